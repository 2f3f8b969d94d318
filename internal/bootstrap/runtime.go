// Package bootstrap prepares the process runtime: database, schema, cache
// and the initial administrator.
package bootstrap

import (
	"context"
	"fmt"

	"ideaboard/internal/auth"
	"ideaboard/internal/cache"
	"ideaboard/internal/config"
	"ideaboard/internal/database"
	"ideaboard/internal/observability"
	"ideaboard/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipAdmin disables the initial administrator bootstrap.
	SkipAdmin bool
}

// InitRuntime connects to the database, applies the schema, connects Redis
// when configured and ensures an administrator exists.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := observability.RegisterQueryMetrics(db); err != nil {
		return nil, nil, fmt.Errorf("register query metrics: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	// May leave the client nil if Redis is unset or unreachable.
	r := cache.InitRedis(ctx, cfg.RedisURL)

	if !opts.SkipAdmin {
		users := repository.NewUserRepository(db)
		if _, err := EnsureAdmin(ctx, users, auth.NewBcryptHasher(), cfg.InitialAdminEmail, cfg.InitialAdminPassword); err != nil {
			return nil, nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	return db, r, nil
}
