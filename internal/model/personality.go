package model

import "time"

// Personality 是组织自定义的顾问角色，Name 即为顾问角色的键。
type Personality struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_personality_org_name" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	PromptTemplate string    `gorm:"type:text;not null" json:"prompt_template"`
	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_personality_org_name" json:"organization_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Personality) TableName() string {
	return "personalities"
}
