package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ideaboard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	AdminStatsKey = "ideaboard:admin:stats"
	AdminStatsTTL = 30 * time.Second
)

// Invalidate deletes key if the cache is enabled.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", "key", key, "error", err)
	}
}

// InvalidateAdminStats drops the cached admin dashboard counters.
func InvalidateAdminStats(ctx context.Context) {
	Invalidate(ctx, AdminStatsKey)
}

// Remember returns the JSON value cached under key, or calls load and caches
// its result for ttl. Cache failures fall through to load.
func Remember[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if client == nil {
		return load(ctx)
	}

	raw, err := client.Get(ctx, key).Bytes()
	if err == nil {
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if payload, jsonErr := json.Marshal(value); jsonErr == nil {
		if setErr := client.Set(ctx, key, payload, ttl).Err(); setErr != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", setErr)
		}
	}
	return value, nil
}
