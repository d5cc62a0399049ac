// Package repository 定义了与数据库进行数据交换的接口和实现。
// 除 Organization 与 User 外，所有读写方法都以组织 ID 作为过滤条件，跨租户访问在结构上不可能发生。
package repository

import (
	"board-ai-go/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound 是记录不存在时返回的错误，与 GORM 保持一致以便统一使用 errors.Is 判断。
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicatedKey 表示违反唯一约束。GORM 需以 TranslateError 打开才会返回此错误。
var ErrDuplicatedKey = gorm.ErrDuplicatedKey

// Repositories 聚合了服务层需要的全部仓储。
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Documents     DocumentRepository
	Personalities PersonalityRepository
	Conversations ConversationRepository
}

// NewRepositories 基于 GORM 创建全部仓储。
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Organizations: NewOrganizationRepository(db),
		Users:         NewUserRepository(db),
		Documents:     NewDocumentRepository(db),
		Personalities: NewPersonalityRepository(db),
		Conversations: NewConversationRepository(db),
	}
}

// AutoMigrate 创建或更新所有数据表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Organization{},
		&model.User{},
		&model.Document{},
		&model.Personality{},
		&model.Conversation{},
	)
}
