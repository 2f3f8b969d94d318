// Package cache provides the optional Redis client and cache-aside helpers.
// Every helper is a no-op when Redis is not configured.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"ideaboard/internal/middleware"
	"ideaboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// metricsHook counts failed commands. redis.Nil is a cache miss, not a
// failure.
type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

func redisOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to addr, a redis:// URL or a bare host:port. Redis is
// optional: an empty, malformed or unreachable address disables caching and
// the function returns nil.
func InitRedis(ctx context.Context, addr string) *redis.Client {
	client = nil
	if addr == "" {
		middleware.Logger.Info("redis disabled", "reason", "REDIS_URL not set")
		return nil
	}
	opts, err := redisOptions(addr)
	if err != nil {
		middleware.Logger.Warn("redis disabled", "reason", "invalid REDIS_URL", "error", err)
		return nil
	}

	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})

	probe, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(probe).Err(); err != nil {
		middleware.Logger.Warn("redis disabled", "reason", "unreachable", "addr", opts.Addr, "error", err)
		_ = c.Close()
		return nil
	}

	middleware.Logger.Info("redis connected", "addr", opts.Addr, "db", opts.DB)
	client = c
	return c
}

// SetClient replaces the package client. Tests use it with miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the current Redis client, or nil when disabled.
func GetClient() *redis.Client {
	return client
}
