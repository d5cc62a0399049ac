package repository

import (
	"context"

	"board-ai-go/internal/model"

	"gorm.io/gorm"
)

// PersonalityRepository 接口定义了自定义顾问人格的持久化操作。
type PersonalityRepository interface {
	Create(ctx context.Context, p *model.Personality) error
	FindByOrganization(ctx context.Context, orgID uint) ([]model.Personality, error)
	// FindByName 在组织内按名称查找（不区分大小写）。
	FindByName(ctx context.Context, orgID uint, name string) (*model.Personality, error)
	Delete(ctx context.Context, orgID, id uint) error
}

type personalityRepository struct {
	db *gorm.DB
}

// NewPersonalityRepository 创建一个新的 PersonalityRepository 实例。
func NewPersonalityRepository(db *gorm.DB) PersonalityRepository {
	return &personalityRepository{db: db}
}

func (r *personalityRepository) Create(ctx context.Context, p *model.Personality) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *personalityRepository) FindByOrganization(ctx context.Context, orgID uint) ([]model.Personality, error) {
	var ps []model.Personality
	err := r.db.WithContext(ctx).Where("organization_id = ?", orgID).Order("id asc").Find(&ps).Error
	return ps, err
}

func (r *personalityRepository) FindByName(ctx context.Context, orgID uint, name string) (*model.Personality, error) {
	var p model.Personality
	err := r.db.WithContext(ctx).Where("organization_id = ? AND LOWER(name) = LOWER(?)", orgID, name).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personalityRepository) Delete(ctx context.Context, orgID, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND organization_id = ?", id, orgID).Delete(&model.Personality{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
