// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"board-ai-go/internal/model"

	"gorm.io/gorm"
)

// ConversationRepository 定义了对话记录的操作接口。
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) error
	FindByID(ctx context.Context, orgID, id uint) (*model.Conversation, error)
	FindByOrganization(ctx context.Context, orgID uint) ([]model.Conversation, error)
	FindRecent(ctx context.Context, orgID uint, limit int) ([]model.Conversation, error)
	// UpdateDiscussion 覆盖写入 discussion 列；写入值未变化不算错误，记录不存在时返回 ErrNotFound。
	UpdateDiscussion(ctx context.Context, orgID, id uint, discussion *model.Discussion) error
	// RunInSession 在一个独占的数据库连接上执行 fn，fn 返回（或 panic）后连接立即归还。
	RunInSession(ctx context.Context, fn func(repo ConversationRepository) error) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, orgID, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).Where("id = ? AND organization_id = ?", id, orgID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) FindByOrganization(ctx context.Context, orgID uint) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).
		Order("timestamp desc, id desc").Find(&convs).Error
	return convs, err
}

func (r *conversationRepository) FindRecent(ctx context.Context, orgID uint, limit int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).
		Order("timestamp desc, id desc").Limit(limit).Find(&convs).Error
	return convs, err
}

func (r *conversationRepository) UpdateDiscussion(ctx context.Context, orgID, id uint, discussion *model.Discussion) error {
	res := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("discussion", discussion)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// MySQL 对写入相同值的 UPDATE 报告 0 行受影响，需再确认记录是否存在
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) RunInSession(ctx context.Context, fn func(repo ConversationRepository) error) error {
	return r.db.WithContext(ctx).Connection(func(tx *gorm.DB) error {
		return fn(&conversationRepository{db: tx})
	})
}
