// Package stores holds the short-lived token stores behind the
// authentication flows: MFA challenge bindings and SMS verification codes.
package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrChallengeNotFound covers both unknown and expired MFA challenge
	// tokens; the caller must restart login either way.
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	// ErrChallengeBackend indicates the challenge backend is unreachable.
	ErrChallengeBackend = errors.New("mfa challenge backend unavailable")
)

// MFAChallenge binds a pending second-factor verification to a user.
type MFAChallenge struct {
	UserID string
	Factor string
}

// MFAChallengeStore keeps single-use challenge tokens in Redis with a fixed
// TTL. Tokens are opaque 128-bit values; the stored value is the
// "{user_id}_{factor}" pair.
type MFAChallengeStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewMFAChallengeStore creates a store with the given challenge TTL.
func NewMFAChallengeStore(redisClient redis.UniversalClient, ttl time.Duration) *MFAChallengeStore {
	return &MFAChallengeStore{redis: redisClient, ttl: ttl}
}

func challengeKey(token string) string {
	return "auth:mfa:" + token
}

// Issue creates a challenge token for the user and factor kind.
func (s *MFAChallengeStore) Issue(ctx context.Context, userID, factor string) (string, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	value := userID + "_" + factor
	if err := s.redis.Set(ctx, challengeKey(token), value, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return token, nil
}

// Resolve returns the challenge bound to the token, or ErrChallengeNotFound
// if the token is unknown or expired. Resolve does not consume the token.
func (s *MFAChallengeStore) Resolve(ctx context.Context, token string) (*MFAChallenge, error) {
	value, err := s.redis.Get(ctx, challengeKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	idx := strings.LastIndex(value, "_")
	if idx <= 0 || idx == len(value)-1 {
		return nil, ErrChallengeNotFound
	}

	return &MFAChallenge{
		UserID: value[:idx],
		Factor: value[idx+1:],
	}, nil
}

// Consume deletes the token. Challenges are single-use: a Resolve after
// Consume reports not found.
func (s *MFAChallengeStore) Consume(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, challengeKey(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}
