package database

import (
	"time"

	"board-ai-go/internal/config"
	"board-ai-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init 根据 database.driver 初始化关系型数据库连接。
// driver 为 memory 时不建立连接，DB 保持为 nil，调用方使用内存仓储。
func Init(cfg config.DatabaseConfig) {
	switch cfg.Driver {
	case "mysql", "":
		InitMySQL(cfg.MySQL.DSN)
	case "postgres":
		InitPostgres(cfg.Postgres.DSN)
	case "memory":
		log.Info("使用内存存储，跳过数据库连接")
	default:
		log.Fatalf("不支持的数据库驱动: %s", cfg.Driver)
	}
}

// InitMySQL 初始化 MySQL 数据库连接
func InitMySQL(dsn string) {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	configurePool(DB)
	log.Info("MySQL database connected successfully")
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		// 将驱动的唯一约束错误统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	}
}

// configurePool 配置连接池
func configurePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
	sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
	sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间
}
