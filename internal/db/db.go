// Package db owns the local postgres database. It only stores project form
// drafts; everything else lives on the marketplace backend.
package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"maderalink/internal/models"
)

// Open connects to dsn and migrates the draft tables.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Database connection established")

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	log.Info("Database migration completed")
	return gdb, nil
}

// Migrate creates or updates the draft tables.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&models.ProjectDraft{}, &models.StagedFile{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
