package repository

import (
	"context"

	"board-ai-go/internal/model"

	"gorm.io/gorm"
)

// DocumentRepository 接口定义了文档（含文件夹）的持久化操作。
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, orgID, id uint) (*model.Document, error)
	// FindByOrganization 返回组织的全部文档，按时间倒序。
	FindByOrganization(ctx context.Context, orgID uint) ([]model.Document, error)
	// FindRecent 返回组织最近的 limit 个文档，按时间倒序。
	FindRecent(ctx context.Context, orgID uint, limit int) ([]model.Document, error)
	CountChildren(ctx context.Context, orgID, parentID uint) (int64, error)
	// Delete 删除一条记录；记录不存在或不属于该组织时返回 ErrNotFound。
	Delete(ctx context.Context, orgID, id uint) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, orgID, id uint) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ? AND organization_id = ?", id, orgID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByOrganization(ctx context.Context, orgID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).
		Order("timestamp desc, id desc").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) FindRecent(ctx context.Context, orgID uint, limit int) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).
		Order("timestamp desc, id desc").Limit(limit).Find(&docs).Error
	return docs, err
}

func (r *documentRepository) CountChildren(ctx context.Context, orgID, parentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("organization_id = ? AND parent_id = ?", orgID, parentID).Count(&count).Error
	return count, err
}

func (r *documentRepository) Delete(ctx context.Context, orgID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND organization_id = ?", id, orgID).Delete(&model.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
