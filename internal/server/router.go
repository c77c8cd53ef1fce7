package server

import (
	"github.com/gin-gonic/gin"

	"github.com/siftnotes/sift-backend/internal/http/handlers"
	"github.com/siftnotes/sift-backend/internal/http/middleware"
	"github.com/siftnotes/sift-backend/internal/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	CategoryHandler *handlers.CategoryHandler
	ChunkHandler    *handlers.ChunkHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/register", cfg.AuthHandler.Register)
	router.POST("/api/login", cfg.AuthHandler.Login)

	// Protected
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)

	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.GET("/categories", cfg.CategoryHandler.List)

	protected.POST("/chunks/classify", cfg.ChunkHandler.Classify)
	protected.POST("/chunks", cfg.ChunkHandler.Create)
	protected.GET("/chunks", cfg.ChunkHandler.List)
	protected.GET("/chunks/export", cfg.ChunkHandler.Export)
	protected.PUT("/chunks/:id", cfg.ChunkHandler.UpdateContent)
	protected.PATCH("/chunks/:id/importance", cfg.ChunkHandler.UpdateImportance)
	protected.PATCH("/chunks/:id/pin", cfg.ChunkHandler.SetPinned)
	protected.PATCH("/chunks/:id/star", cfg.ChunkHandler.SetStarred)
	protected.DELETE("/chunks/:id", cfg.ChunkHandler.Delete)

	return router
}
