// Package limiters implements the request-rate protections in front of the
// authentication engine: per-identifier login failure lockout and the
// per-mobile/per-IP SMS verification-code gate.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumenadmin/authcore/internal/rate"
)

// AttemptGuardConfig tunes the login failure lockout state machine.
type AttemptGuardConfig struct {
	MaxAttempts int           // failures before lockout
	RetryWindow time.Duration // counter TTL, set on first failure only
	LockoutTime time.Duration // lock flag TTL
}

// ErrLockoutUnavailable indicates the lockout backend is unreachable.
var ErrLockoutUnavailable = errors.New("lockout backend unavailable")

// AttemptGuard tracks failed login attempts per identifier (username or
// mobile) and locks the identifier out once the threshold is reached.
//
// State machine per identifier: Clear -> Counting -> Locked. The lock flag
// always takes precedence over the counter; IsLocked is checked before any
// credential comparison so a locked identifier never reaches expensive work.
type AttemptGuard struct {
	redis   redis.UniversalClient
	counter *rate.Counter
	config  AttemptGuardConfig
}

// NewAttemptGuard creates a guard backed by the given Redis client.
func NewAttemptGuard(redisClient redis.UniversalClient, cfg AttemptGuardConfig) *AttemptGuard {
	return &AttemptGuard{
		redis:   redisClient,
		counter: rate.NewCounter(redisClient),
		config:  cfg,
	}
}

func attemptsKey(identifier string) string {
	return "auth:login_attempts:" + identifier
}

func lockedKey(identifier string) string {
	return "auth:login_locked:" + identifier
}

// IsLocked reports whether a live lockout entry exists for the identifier.
func (g *AttemptGuard) IsLocked(ctx context.Context, identifier string) (bool, error) {
	n, err := g.redis.Exists(ctx, lockedKey(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return n > 0, nil
}

// Attempts returns the current failure count for the identifier.
func (g *AttemptGuard) Attempts(ctx context.Context, identifier string) (int64, error) {
	return g.counter.Peek(ctx, attemptsKey(identifier))
}

// RecordFailure counts one failed attempt. The lockout decision compares the
// count returned by the atomic increment, so two concurrent failures cannot
// both observe pre-lockout state. Returns true when this failure transitioned
// the identifier to Locked.
func (g *AttemptGuard) RecordFailure(ctx context.Context, identifier string) (bool, error) {
	count, err := g.counter.IncrWithWindow(ctx, attemptsKey(identifier), g.config.RetryWindow)
	if err != nil {
		return false, err
	}

	if count < int64(g.config.MaxAttempts) {
		return false, nil
	}

	// Threshold reached: write the lock flag and drop the counter.
	_, err = g.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, lockedKey(identifier), 1, g.config.LockoutTime)
		pipe.Del(ctx, attemptsKey(identifier))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	return true, nil
}

// Reset clears both the failure counter and the lock flag. Called after a
// successful authentication.
func (g *AttemptGuard) Reset(ctx context.Context, identifier string) error {
	if err := g.redis.Del(ctx, attemptsKey(identifier), lockedKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// Unlock removes the lock flag only. Administrative override; the counter,
// if any, keeps its window.
func (g *AttemptGuard) Unlock(ctx context.Context, identifier string) error {
	if err := g.redis.Del(ctx, lockedKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}
