// Package main is the entry point for the Tagbin API
package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/tagbin/tagbinapi/internal/api"
	"github.com/tagbin/tagbinapi/internal/api/middleware"
	"github.com/tagbin/tagbinapi/internal/config"
	"github.com/tagbin/tagbinapi/internal/repository"
	"github.com/tagbin/tagbinapi/internal/service"
	"github.com/tagbin/tagbinapi/pkg/utils/auditlog"
	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
)

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Connect to Postgres
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	// Connect Redis
	redisClient, err := repository.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Init audit logger
	audit, err := auditlog.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize audit logger: %v", err)
	}

	// startUpMessage
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")
	zaplogger.Info("Postgres initialized")
	zaplogger.Info("Redis initialized")

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	if err := api.SetupRoutes(e, cfg, db, redisClient, audit); err != nil {
		log.Fatalf("Failed to setup routes: %v", err)
	}

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, db, redisClient)
	cronService.Start()

	// Start the server
	startServer(e, cfg)
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3009"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	e.Logger.Fatal(e.Start(":" + port))
}
