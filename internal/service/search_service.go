package service

import (
	"context"
	"fmt"
	"strings"

	"board-ai-go/internal/model"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// ChunkSearcher 执行组织范围内的全文检索，由 es.Store 实现。
type ChunkSearcher interface {
	Search(ctx context.Context, orgID uint, query string, limit int) ([]model.SearchResult, error)
}

// SearchService 接口定义了文档搜索操作。
type SearchService interface {
	Search(ctx context.Context, orgID uint, query string, limit int) ([]model.SearchResult, error)
}

type searchService struct {
	searcher ChunkSearcher
}

// NewSearchService 创建一个新的 SearchService 实例。searcher 为 nil 时搜索不可用。
func NewSearchService(searcher ChunkSearcher) SearchService {
	return &searchService{searcher: searcher}
}

func (s *searchService) Search(ctx context.Context, orgID uint, query string, limit int) ([]model.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: q is required", ErrBadRequest)
	}
	if s.searcher == nil {
		return nil, fmt.Errorf("%w: document search is not enabled", ErrNotFound)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.searcher.Search(ctx, orgID, query, limit)
}
