package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"hiredup/internal/api/middleware"
	"hiredup/internal/association"
	"hiredup/internal/auth"
	"hiredup/internal/jobs"
	"hiredup/internal/notify"
	"hiredup/internal/session"
	"hiredup/internal/slots"
)

// Dependencies 汇总路由需要的组件。Redis、Tasks、Refresher 可为 nil，对应功能随之关闭。
type Dependencies struct {
	Catalog      *jobs.Catalog
	Refresher    catalogRefresher
	Slots        slots.Store
	Notifier     notify.Notifier
	Associations *association.Service
	Tasks        taskEnqueuer
	Auth         *auth.AuthService
	Gates        session.Factory
	Redis        redis.UniversalClient
	Logger       *slog.Logger

	AllowedOrigins        []string
	InternalSecret        string
	LoginRateLimitPerHour int
}

// RegisterRoutes 注册 /v1 下的业务路由。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	var counter redisRateCounter
	if deps.Redis != nil {
		counter = deps.Redis
	}

	jobsHandler := NewJobsHandler(deps.Catalog, deps.Slots, deps.Notifier, deps.Associations)
	meHandler := NewMeHandler(deps.Catalog, deps.Slots, deps.Notifier, deps.Tasks)
	authHandler := NewAuthHandler(deps.Gates, deps.Auth, counter, deps.LoginRateLimitPerHour)

	requireAuth := middleware.AuthMiddleware(deps.Auth, deps.Gates)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.Auth, deps.Gates)

	v1 := router.Group("/v1")
	{
		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, deps.Auth, deps.Gates, deps.Logger, deps.AllowedOrigins)
			v1.GET("/ws", wsHandler.HandleConnection)
		}

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/logout", requireAuth, authHandler.Logout)
			authGroup.GET("/me", requireAuth, authHandler.Me)
		}

		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.GET("", jobsHandler.Search)
			jobsGroup.GET("/categories", jobsHandler.Categories)
			jobsGroup.GET("/:id", optionalAuth, jobsHandler.Detail)
			jobsGroup.POST("/:type", requireAuth, jobsHandler.RecordAssociation)
		}

		meGroup := v1.Group("/me")
		meGroup.Use(requireAuth)
		{
			meGroup.GET("/saved", meHandler.ListSaved)
			meGroup.POST("/saved", meHandler.Save)
			meGroup.DELETE("/saved/:id", meHandler.Unsave)
			meGroup.GET("/applied", meHandler.ListApplied)
			meGroup.POST("/applied", meHandler.Apply)
		}

		if deps.Refresher != nil {
			internalGroup := v1.Group("/internal")
			internalGroup.Use(middleware.InternalSecretMiddleware(deps.InternalSecret))
			{
				internalGroup.POST("/catalog/refresh", NewCatalogHandler(deps.Catalog, deps.Refresher).Refresh)
			}
		}
	}
}
