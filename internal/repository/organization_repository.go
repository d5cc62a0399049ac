package repository

import (
	"context"

	"board-ai-go/internal/model"

	"gorm.io/gorm"
)

// OrganizationRepository 接口定义了组织数据的持久化操作。
type OrganizationRepository interface {
	// FirstOrCreateByName 按名称精确查找组织，不存在时创建。
	FirstOrCreateByName(ctx context.Context, name string) (*model.Organization, error)
	FindByID(ctx context.Context, id uint) (*model.Organization, error)
}

type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建一个新的 OrganizationRepository 实例。
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) FirstOrCreateByName(ctx context.Context, name string) (*model.Organization, error) {
	org := model.Organization{Name: name, SubscriptionTier: "basic", IsActive: true}
	err := r.db.WithContext(ctx).Where(model.Organization{Name: name}).FirstOrCreate(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) FindByID(ctx context.Context, id uint) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}
