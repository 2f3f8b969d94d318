package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"ideaboard/internal/middleware"

	"gorm.io/gorm"
)

const createSchemaMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// appliedMigration is a row of schema_migrations.
type appliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (appliedMigration) TableName() string { return "schema_migrations" }

// MigrationStatus reports whether one migration has been applied.
type MigrationStatus struct {
	Migration
	AppliedAt *time.Time
}

// Migrator applies versioned SQL migrations and records them in
// schema_migrations. Each step runs in its own transaction.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator over the embedded migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return newMigrator(db, embedded)
}

func newMigrator(db *gorm.DB, ms []Migration) *Migrator {
	return &Migrator{db: db, migrations: ms}
}

func (m *Migrator) applied(ctx context.Context) (map[int]appliedMigration, error) {
	if err := m.db.WithContext(ctx).Exec(createSchemaMigrations).Error; err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	var rows []appliedMigration
	if err := m.db.WithContext(ctx).Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	known := make(map[int]bool, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = true
	}
	out := make(map[int]appliedMigration, len(rows))
	var unknown []int
	for _, r := range rows {
		if !known[r.Version] {
			unknown = append(unknown, r.Version)
		}
		out[r.Version] = r
	}
	if len(unknown) > 0 {
		sort.Ints(unknown)
		return nil, fmt.Errorf("database has migrations this build does not know: %v", unknown)
	}
	return out, nil
}

// Status lists every known migration with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		st := MigrationStatus{Migration: mig}
		if row, ok := applied[mig.Version]; ok {
			at := row.AppliedAt
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// Up applies every pending migration in version order and returns how many
// ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, mig := range m.migrations {
		if _, done := applied[mig.Version]; done {
			continue
		}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&appliedMigration{Version: mig.Version, Name: mig.Name}).Error
		})
		if err != nil {
			return n, fmt.Errorf("migration %s: %w", mig, err)
		}
		middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", mig.String()))
		n++
	}
	return n, nil
}

// Down reverts the migration with the given version. It must be the most
// recently applied one.
func (m *Migrator) Down(ctx context.Context, version int) error {
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	if _, ok := applied[version]; !ok {
		return fmt.Errorf("migration %06d is not applied", version)
	}
	for v := range applied {
		if v > version {
			return fmt.Errorf("migration %06d is applied after %06d; revert it first", v, version)
		}
	}

	var target Migration
	for _, mig := range m.migrations {
		if mig.Version == version {
			target = mig
		}
	}
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.Down).Error; err != nil {
			return err
		}
		return tx.Delete(&appliedMigration{}, version).Error
	})
	if err != nil {
		return fmt.Errorf("revert %s: %w", target, err)
	}
	middleware.Logger.WarnContext(ctx, "migration reverted", slog.String("migration", target.String()))
	return nil
}
