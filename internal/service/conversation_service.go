package service

import (
	"context"

	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
)

// ConversationService 定义了对话历史的查询接口。
type ConversationService interface {
	List(ctx context.Context, orgID uint) ([]model.Conversation, error)
	Get(ctx context.Context, orgID, id uint) (*model.Conversation, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// List 返回组织的全部对话，按时间倒序。
func (s *conversationService) List(ctx context.Context, orgID uint) ([]model.Conversation, error) {
	return s.repo.FindByOrganization(ctx, orgID)
}

func (s *conversationService) Get(ctx context.Context, orgID, id uint) (*model.Conversation, error) {
	conv, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "conversation")
	}
	return conv, nil
}
