package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"board-ai-go/internal/config"
	"board-ai-go/internal/handler"
	"board-ai-go/internal/middleware"
	"board-ai-go/internal/pipeline"
	"board-ai-go/internal/repository"
	"board-ai-go/internal/service"
	"board-ai-go/pkg/database"
	"board-ai-go/pkg/es"
	"board-ai-go/pkg/kafka"
	"board-ai-go/pkg/llm"
	"board-ai-go/pkg/log"
	"board-ai-go/pkg/storage"
	"board-ai-go/pkg/tika"
	"board-ai-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not auto-migrate the schema on startup")
}

func runServe(_ *cobra.Command, _ []string) error {
	// 1. 初始化配置
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化数据库和 Redis
	database.Init(cfg.Database)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	repos, err := buildRepositories(cfg.Database)
	if err != nil {
		return err
	}
	var blacklist repository.TokenBlacklist
	if database.RDB != nil {
		blacklist = repository.NewRedisTokenBlacklist(database.RDB)
	} else {
		blacklist = repository.NewMemoryTokenBlacklist()
	}

	// 5. 可选的外部组件，地址为空时关闭对应功能
	var extractor service.PageExtractor
	if cfg.Tika.ServerURL != "" {
		extractor = tika.NewClient(cfg.Tika)
	} else {
		log.Warnf("未配置 Tika，PDF 上传不可用")
	}

	var objects service.ObjectStorage
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewObjectStore(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("MinIO 初始化失败: %w", err)
		}
		objects = store
	}

	var searcher service.ChunkSearcher
	var publisher service.IndexPublisher
	var producer *kafka.Producer
	if cfg.Elasticsearch.Addresses != "" {
		store, err := es.NewStore(cfg.Elasticsearch)
		if err != nil {
			return fmt.Errorf("es 初始化失败: %w", err)
		}
		if err := store.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("es 索引初始化失败: %w", err)
		}
		searcher = store

		// 6. 初始化文档索引管道 (Processor)
		processor := pipeline.NewProcessor(repos.Documents, store)
		if cfg.Kafka.Brokers != "" {
			producer = kafka.NewProducer(cfg.Kafka)
			publisher = producer
			// 7. 启动后台 Kafka 消费者，随 ctx 一起退出
			go kafka.StartConsumer(ctx, cfg.Kafka, processor)
		} else {
			publisher = pipeline.NewDirectPublisher(processor)
		}
	} else {
		log.Warnf("未配置 Elasticsearch，文档搜索不可用")
	}

	// 8. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireMinutes)
	llmClient := llm.NewClient(cfg.LLM)
	factory := service.NewAdvisorFactory(repos.Personalities, repos.Documents, repos.Conversations, llmClient, cfg.Advisor)
	userService := service.NewUserService(repos.Users, repos.Organizations, blacklist, jwtManager)

	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.RouterDeps{
		UserService:         userService,
		DocumentService:     service.NewDocumentService(repos.Documents, extractor, objects, publisher),
		PersonalityService:  service.NewPersonalityService(repos.Personalities),
		ConversationService: service.NewConversationService(repos.Conversations),
		SearchService:       service.NewSearchService(searcher),
		AnalysisService:     service.NewAnalysisService(factory, repos.Conversations),
		AdvisorFactory:      factory,
		RateLimiter:         middleware.NewOrgRateLimiter(cfg.RateLimit),
		MaxUploadMB:         cfg.Server.MaxUploadMB,
		HealthChecks:        healthChecks(),
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// 等待中断信号以实现优雅停机
	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP 服务监听失败: %w", err)
	case <-ctx.Done():
	}
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("Kafka producer 关闭失败", err)
		}
	}
	log.Info("服务已优雅关闭")
	return nil
}

// buildRepositories 按数据库驱动选择 GORM 或内存仓储，GORM 模式下按需迁移表结构。
func buildRepositories(cfg config.DatabaseConfig) (*repository.Repositories, error) {
	if cfg.Driver == "memory" {
		log.Warnf("使用内存仓储，进程退出后数据丢失")
		return repository.NewMemoryRepositories(), nil
	}
	if !skipMigrate {
		if err := repository.AutoMigrate(database.DB); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	return repository.NewRepositories(database.DB), nil
}

func healthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{}
	if database.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := database.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if database.RDB != nil {
		checks["redis"] = func(ctx context.Context) error {
			return database.RDB.Ping(ctx).Err()
		}
	}
	return checks
}
