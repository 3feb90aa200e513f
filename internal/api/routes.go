// Package api contains the API routes for the Tagbin API
package api

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/redis/go-redis/v9"
	"github.com/tagbin/tagbinapi/internal/api/handlers"
	"github.com/tagbin/tagbinapi/internal/api/middleware"
	"github.com/tagbin/tagbinapi/internal/config"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/internal/storage"
	"github.com/tagbin/tagbinapi/pkg/utils/auditlog"
	"github.com/tagbin/tagbinapi/pkg/utils/response"
	"gorm.io/gorm"
)

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *gorm.DB, redisClient *redis.Client, audit *auditlog.Logger) error {
	ttl, err := strconv.ParseInt(cfg.SessionTTLMillis, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid session TTL %q: %v", cfg.SessionTTLMillis, err)
	}

	// Services
	authService := service.NewAuthService(db, redisClient, ttl)
	sessionService := authService.Sessions()
	searchService := service.NewSearchService(db)
	fileService := service.NewFileService(db, storage.New(cfg.StorageDir))

	// Identity is resolved for every route; enforcement is per-group
	resolve := middleware.ResolveIdentity(sessionService, authService)
	e.Use(resolve)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, audit)
	userHandler := handlers.NewUserHandler(db, redisClient)
	fileHandler := handlers.NewFileHandler(fileService, searchService, audit)
	adminHandler := handlers.NewAdminHandler(db, redisClient, sessionService, audit)
	socketHandler := handlers.NewSocketHandler(searchService)

	// Account forms (unprotected)
	e.POST("/signup", authHandler.Signup)
	e.POST("/login", authHandler.Login)
	e.POST("/logout", authHandler.Logout, middleware.RequireAuth())

	// Upload form (protected)
	e.POST("/upload", fileHandler.Upload, middleware.RequireAuth())

	// Duplex search channel; identity is bound once at the handshake
	e.GET("/ws", socketHandler.Serve)

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute(cfg))

	// Session routes
	api.GET("/session/:id", authHandler.ActivateSession)

	// User routes (public projections)
	userGroup := api.Group("/user")
	userGroup.GET("/id/:id", userHandler.GetUserByID)
	userGroup.GET("/username/:username", userHandler.GetUserByUsername)

	// File routes (visibility-scoped by the resolved identity)
	fileGroup := api.Group("/file")
	fileGroup.GET("/id/:id", fileHandler.GetFileByID)
	fileGroup.GET("/userid", fileHandler.ListUserFiles)
	fileGroup.GET("/tags", fileHandler.SearchFilesByTags)

	// Admin routes (protected; permission checked in the handler)
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireAuth())
	adminGroup.POST("/generatesession", adminHandler.GenerateSession)

	return nil
}

// indexRoute sets up the index route for the API
func indexRoute(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
		return response.SuccessResponse(c, message)
	}
}
