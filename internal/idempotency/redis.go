// Package idempotency provides redis-backed once-only markers and locks.
package idempotency

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/aquabill/internal/config"
)

// NewRedisClient returns nil when no redis address is configured; every
// consumer in this package degrades gracefully without it.
func NewRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}
