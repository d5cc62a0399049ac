package handler

import (
	"board-ai-go/internal/middleware"
	"board-ai-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps 是注册路由所需的全部服务。
type RouterDeps struct {
	UserService         service.UserService
	DocumentService     service.DocumentService
	PersonalityService  service.PersonalityService
	ConversationService service.ConversationService
	SearchService       service.SearchService
	AnalysisService     service.AnalysisService
	AdvisorFactory      *service.AdvisorFactory
	RateLimiter         *middleware.OrgRateLimiter
	MaxUploadMB         int64
	HealthChecks        map[string]HealthCheck
}

// NewRouter 创建路由引擎并注册所有路由。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestID(), middleware.Metrics(), middleware.RequestLogger(), gin.Recovery())

	authHandler := NewAuthHandler(deps.UserService)
	documentHandler := NewDocumentHandler(deps.DocumentService, deps.MaxUploadMB)
	searchHandler := NewSearchHandler(deps.SearchService)
	personalityHandler := NewPersonalityHandler(deps.PersonalityService)
	conversationHandler := NewConversationHandler(deps.ConversationService)
	advisorHandler := NewAdvisorHandler(deps.AnalysisService, deps.AdvisorFactory)
	wsHandler := NewAdvisorWSHandler(deps.AnalysisService, deps.UserService, deps.RateLimiter)
	authRequired := middleware.AuthMiddleware(deps.UserService)

	r.GET("/healthz", NewHealthHandler(deps.HealthChecks).Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			// 无需认证的路由 (公开访问)
			auth.POST("/register", authHandler.Register)
			auth.POST("/token", authHandler.Token)

			// 需要认证的路由 (仅限登录用户访问)
			authed := auth.Group("")
			authed.Use(authRequired)
			{
				authed.GET("/users/me", authHandler.Me)
				authed.POST("/logout", authHandler.Logout)
				authed.GET("/organization", authHandler.Organization)
			}
		}

		// Document 路由组，需要认证
		documents := apiV1.Group("/documents")
		documents.Use(authRequired)
		{
			documents.POST("/upload", documentHandler.Upload)
			documents.POST("/folders", documentHandler.CreateFolder)
			documents.GET("/list", documentHandler.List)
			documents.GET("/search", searchHandler.Search)
			documents.GET("/download/:id", documentHandler.Download)
			documents.GET("/:id", documentHandler.Get)
			documents.GET("/:id/original", documentHandler.Original)
			documents.DELETE("/:id", documentHandler.Delete)
		}

		personalities := apiV1.Group("/personalities")
		personalities.Use(authRequired)
		{
			personalities.POST("/create", personalityHandler.Create)
			personalities.GET("/list", personalityHandler.List)
			personalities.DELETE("/:id", personalityHandler.Delete)
		}

		advisors := apiV1.Group("/advisors")
		advisors.Use(authRequired)
		{
			analyze := []gin.HandlerFunc{advisorHandler.Analyze}
			if deps.RateLimiter != nil {
				analyze = append([]gin.HandlerFunc{middleware.RateLimit(deps.RateLimiter)}, analyze...)
			}
			advisors.POST("/analyze", analyze...)
			advisors.GET("/roles", advisorHandler.Roles)
			advisors.GET("/conversations", conversationHandler.List)
			advisors.GET("/conversations/:id", conversationHandler.Get)
		}

		// WebSocket 分析，token 在路径中，由 handler 自行认证
		apiV1.GET("/advisors/ws/:token", wsHandler.Handle)
	}
	return r
}
