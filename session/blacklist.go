package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenKind selects which blacklist a token belongs to.
type TokenKind string

const (
	// KindAccess is the access-token blacklist.
	KindAccess TokenKind = "access"
	// KindRefresh is the refresh-token blacklist.
	KindRefresh TokenKind = "refresh"
)

// Blacklist is the registry of tokens revoked before their natural expiry.
// Each kind is a sorted set scored by the token's original expiry, so
// entries past expiry can be purged with one range operation. A token past
// its own expiry fails signature validation anyway; the blacklist only has
// to answer for the window before that.
type Blacklist struct {
	redis  redis.UniversalClient
	prefix string
}

// NewBlacklist creates a blacklist under the given key prefix.
func NewBlacklist(redisClient redis.UniversalClient, prefix string) *Blacklist {
	if prefix == "" {
		prefix = "auth"
	}
	return &Blacklist{redis: redisClient, prefix: prefix}
}

func (b *Blacklist) key(kind TokenKind) string {
	return b.prefix + ":blacklist:" + string(kind)
}

// Revoke registers the token with its original expiry timestamp.
func (b *Blacklist) Revoke(ctx context.Context, kind TokenKind, token string, expiresAt int64) error {
	err := b.redis.ZAdd(ctx, b.key(kind), redis.Z{
		Score:  float64(expiresAt),
		Member: token,
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether the token is blacklisted and its recorded expiry
// is still in the future. Entries at or past expiry are ignorable even
// before the purge removes them.
func (b *Blacklist) IsRevoked(ctx context.Context, kind TokenKind, token string) (bool, error) {
	score, err := b.redis.ZScore(ctx, b.key(kind), token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int64(score) > time.Now().Unix(), nil
}

// PurgeExpired bulk-removes all entries of one kind whose original expiry is
// at or before now. Returns the number of entries removed.
func (b *Blacklist) PurgeExpired(ctx context.Context, kind TokenKind, now time.Time) (int64, error) {
	removed, err := b.redis.ZRemRangeByScore(
		ctx,
		b.key(kind),
		"-inf",
		strconv.FormatInt(now.Unix(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed, nil
}
