package main

import (
	"fmt"

	"board-ai-go/internal/config"
	"board-ai-go/internal/repository"
	"board-ai-go/pkg/database"
	"board-ai-go/pkg/log"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Run GORM auto-migration for all tables against the configured database.

Examples:
  boardai migrate --config ./configs/config.yaml
  BOARDAI_DATABASE_DRIVER=postgres boardai migrate`,
	RunE: runMigrate,
}

func runMigrate(_ *cobra.Command, _ []string) error {
	config.Init(configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("database.driver=memory 没有需要迁移的表结构")
	}
	database.Init(cfg.Database)
	if err := repository.AutoMigrate(database.DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	log.Info("数据库迁移完成")
	return nil
}
