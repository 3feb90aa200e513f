// Package repository contains the repository layer for the Tagbin API
package repository

import (
	"errors"
	"fmt"

	"github.com/tagbin/tagbinapi/internal/config"
	"github.com/tagbin/tagbinapi/internal/models"
	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaName is the postgres schema holding all application tables
var SchemaName = "api"

// ErrUniquenessViolation is returned when a lookup that must match at
// most one row matches several. It indicates corrupted state, not user
// error, and callers must treat it as fatal for the current operation.
var ErrUniquenessViolation = errors.New("uniqueness invariant violated")

// ConnectPostgres connects to a Postgres database and returns a GORM database object
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")
	zaplogger.Info(config.SingleLine)

	// Set up GORM logger
	var logLevel logger.LogLevel
	switch cfg.PostgresLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	if cfg.PostgresSchema != "" {
		SchemaName = cfg.PostgresSchema
	}

	// Open database connection
	postgresDSN := cfg.PostgresDsn + " search_path=" + SchemaName + ",public"
	db, err := gorm.Open(postgres.Open(postgresDSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}

	zaplogger.Info("  * connected")

	// Create the schema if it doesn't exist
	createSchemaSql := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", SchemaName)
	if err := db.Exec(createSchemaSql).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}
	zaplogger.Info("  * migrating schema: \"" + SchemaName + "\"")

	// AutoMigrate will create tables and add/modify columns
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.UsersTableName, &models.UserModel{}},
		{models.FilesTableName, &models.FileModel{}},
		{models.SessionsTableName, &models.SessionModel{}},
	}

	zaplogger.Info("  * migrating tables")
	for _, table := range tables {
		err := db.Table(SchemaName + "." + table.name).AutoMigrate(table.model)
		if err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err:%v", table.name, err)
		}
		zaplogger.Info("    - \"" + SchemaName + "." + table.name + "\"")
	}

	return nil
}
