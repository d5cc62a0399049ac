package database

import (
	"board-ai-go/pkg/log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitPostgres 初始化 PostgreSQL 数据库连接
func InitPostgres(dsn string) {
	var err error
	DB, err = gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	configurePool(DB)
	log.Info("PostgreSQL database connected successfully")
}
