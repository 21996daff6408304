package idempotency

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store records that an action happened so repeats can be suppressed for a
// bounded window. Without redis every action is treated as first-time; the
// callers' operations are safe to repeat, just noisy.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// MarkOnce returns true exactly once per key within ttl.
func (s *Store) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s == nil || s.client == nil {
		return true, nil
	}
	return s.client.SetNX(ctx, key, "1", ttl).Result()
}

// Clear removes a marker so the action can run again before ttl expires.
func (s *Store) Clear(ctx context.Context, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}
