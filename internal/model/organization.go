// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// Organization 是租户边界，所有用户、文档、人格与对话都归属于某个组织。
type Organization struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	SubscriptionTier string    `gorm:"type:varchar(50);not null;default:basic" json:"subscription_tier"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Organization) TableName() string {
	return "organizations"
}
