// Package rate provides the shared fixed-window counter primitive used by
// the login-attempt guard and the SMS verification-code gate.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable indicates the counter backend is unreachable.
var ErrRedisUnavailable = errors.New("rate counter backend unavailable")

// Counter is a Redis-backed fixed-window counter. All mutation goes through
// IncrWithWindow; a non-atomic get-then-set is never used, so two concurrent
// increments of the same key are both reflected.
type Counter struct {
	redis redis.UniversalClient
}

// NewCounter creates a Counter backed by the given Redis client.
func NewCounter(redisClient redis.UniversalClient) *Counter {
	return &Counter{redis: redisClient}
}

// IncrWithWindow atomically increments key and returns the new count.
// The TTL is set only when the increment created the key, so later
// increments do not extend the window.
func (c *Counter) IncrWithWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := c.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Peek returns the current count without mutating the window.
// Missing keys read as zero.
func (c *Counter) Peek(ctx context.Context, key string) (int64, error) {
	count, err := c.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

// Reset deletes the given counter keys.
func (c *Counter) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
