// Package pipeline 定义了文档索引的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"board-ai-go/internal/model"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/log"
	"board-ai-go/pkg/tasks"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

// ChunkIndex 是分块索引的存储端，由 es.Store 实现。
type ChunkIndex interface {
	IndexChunk(ctx context.Context, doc model.EsDocument) error
	DeleteByDocument(ctx context.Context, orgID, documentID uint) error
}

// Processor 封装了文档索引的所有依赖和逻辑。
type Processor struct {
	docRepo repository.DocumentRepository
	index   ChunkIndex
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(docRepo repository.DocumentRepository, index ChunkIndex) *Processor {
	return &Processor{docRepo: docRepo, index: index}
}

// Process 是文档索引的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentIndexTask) error {
	log.Infof("[Processor] 开始处理索引任务, Action: %s, DocumentID: %d, OrgID: %d", task.Action, task.DocumentID, task.OrganizationID)

	// 无论新建还是删除，都先清理该文档既有的分块（幂等）
	if err := p.index.DeleteByDocument(ctx, task.OrganizationID, task.DocumentID); err != nil {
		return fmt.Errorf("清理旧分块失败: %w", err)
	}
	if task.Action == tasks.ActionDelete {
		log.Infof("[Processor] 文档 %d 的分块已删除", task.DocumentID)
		return nil
	}

	// 1. 读取文档正文
	doc, err := p.docRepo.FindByID(ctx, task.OrganizationID, task.DocumentID)
	if errors.Is(err, repository.ErrNotFound) {
		// 文档在入队后已被删除，无需索引
		log.Warnf("[Processor] 文档 %d 已不存在, 跳过", task.DocumentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取文档失败: %w", err)
	}
	if doc.IsFolder || doc.Content == nil || *doc.Content == "" {
		log.Infof("[Processor] 文档 %d 没有可索引的内容, 跳过", task.DocumentID)
		return nil
	}
	log.Infof("[Processor] 文档读取成功, 内容长度: %d 字符", utf8.RuneCountInString(*doc.Content))

	// 2. 文本切块
	chunks := splitText(*doc.Content, chunkSize, chunkOverlap)
	log.Infof("[Processor] 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 3. 索引到 Elasticsearch
	for i, chunk := range chunks {
		esDoc := model.EsDocument{
			ChunkKey:       fmt.Sprintf("%d_%d", doc.ID, i),
			DocumentID:     doc.ID,
			ChunkID:        i,
			TextContent:    chunk,
			Filename:       doc.DisplayName(),
			DocumentType:   doc.Type,
			OrganizationID: doc.OrganizationID,
		}
		if err := p.index.IndexChunk(ctx, esDoc); err != nil {
			log.Errorf("[Processor] 索引分块 %d 到Elasticsearch失败, Error: %v", i, err)
			return fmt.Errorf("索引块 %d 到 Elasticsearch 失败: %w", i, err)
		}
	}

	log.Infof("[Processor] 文档索引成功完成, DocumentID: %d", doc.ID)
	return nil
}

// splitText 将长文本按指定大小和重叠进行切分。
func splitText(text string, chunkSize int, chunkOverlap int) []string {
	if chunkSize <= chunkOverlap {
		// Fallback to simple split if overlap is invalid
		chunkOverlap = 0
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// DirectPublisher 在未配置 Kafka 时使用，直接在后台 goroutine 中处理任务。
type DirectPublisher struct {
	processor *Processor
}

// NewDirectPublisher 创建一个 DirectPublisher。
func NewDirectPublisher(processor *Processor) *DirectPublisher {
	return &DirectPublisher{processor: processor}
}

// Publish 异步处理任务，错误仅记录日志。
func (d *DirectPublisher) Publish(ctx context.Context, task tasks.DocumentIndexTask) error {
	go func() {
		if err := d.processor.Process(context.WithoutCancel(ctx), task); err != nil {
			log.Errorf("[Processor] 处理索引任务失败: key=%s, error: %v", task.Key(), err)
		}
	}()
	return nil
}
