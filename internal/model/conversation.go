package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Discussion 是对话记录中的结构化讨论内容。
// Responses 以顾问角色为键保存该角色的完整回答；Complete 在编排结束时置为 true。
type Discussion struct {
	Responses map[string]string `json:"responses"`
	Synthesis string            `json:"synthesis,omitempty"`
	Complete  bool              `json:"complete"`
}

// Value 实现 driver.Valuer。
func (d Discussion) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (d *Discussion) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// Clone 返回一份深拷贝，避免调用方共享 Responses map。
func (d *Discussion) Clone() *Discussion {
	if d == nil {
		return nil
	}
	out := &Discussion{Synthesis: d.Synthesis, Complete: d.Complete, Responses: make(map[string]string, len(d.Responses))}
	for k, v := range d.Responses {
		out.Responses[k] = v
	}
	return out
}

// Conversation 记录一次多顾问分析请求及其累积的回答。
type Conversation struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Topic          string      `gorm:"type:text;not null" json:"topic"`
	Discussion     *Discussion `gorm:"type:json" json:"discussion"`
	OrganizationID uint        `gorm:"index;not null" json:"organization_id"`
	Timestamp      time.Time   `gorm:"autoCreateTime;index" json:"timestamp"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Conversation) TableName() string {
	return "conversations"
}
