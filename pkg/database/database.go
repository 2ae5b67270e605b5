package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jomosautsem/lex/pkg/models"
)

// Open connects to Postgres. Query logging stays quiet unless verbose is set.
func Open(dsn string, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ProfileRow{}, &models.Credential{},
		&models.CaseRow{}, &models.DocumentRow{},
		&models.EventRow{}, &models.CaseHistory{},
	); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
