// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// PostgreSQL (pgx driver) and schema migrations. Tests use the pure-Go
// SQLite driver through the same GORM surface.
package repo

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/barinakhq/shelter-backend/internal/domain"
)

// OpenPostgres opens a PostgreSQL database, configures the connection pool,
// and registers the OpenTelemetry tracing plugin so queries show up in traces.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all domain models, including
// the partial unique index guaranteeing a single pending request per
// (user, animal) pair.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Animal{},
		&domain.AdoptionRequest{},
		&domain.Notification{},
		&domain.UserView{},
		&domain.UserSession{},
	)
}
