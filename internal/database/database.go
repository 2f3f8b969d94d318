// Package database opens the GORM connection and owns the schema: embedded
// SQL migrations for postgres and AutoMigrate for sqlite.
package database

import (
	"context"
	"fmt"
	"time"

	"ideaboard/internal/config"
	"ideaboard/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Supported values for DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const connMaxLifetime = 30 * time.Minute

func dialectorFor(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == DriverSQLite {
		return sqlite.Open(cfg.DatabaseURL)
	}
	return postgres.Open(cfg.DatabaseURL)
}

// Connect opens the configured database and sizes its pool. The schema is
// left alone; ApplySchema must run before serving.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialectorFor(cfg), &gorm.Config{
		Logger:         NewGormLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	middleware.Logger.Info("database connected", "driver", cfg.DBDriver, "max_open_conns", cfg.DBMaxOpenConns)
	return db, nil
}

// ApplySchema brings the schema up to date.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if cfg.DBDriver == DriverSQLite {
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		middleware.Logger.Info("sqlite schema synced", "models", len(PersistentModels()))
		return nil
	}
	n, err := NewMigrator(db).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("migrations applied", "count", n)
	return nil
}

// Ping checks connectivity for readiness probes.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
