package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no session record exists for the
	// (user, device) pair. Callers treat this as "session already ended".
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("session backend unavailable")
)

// deleteScript removes one session and fixes both indices in a single
// atomic unit: the record key, the device's membership in the user set,
// and, when the user set empties, the user's membership in the global
// active set. Deleting an already-gone record is a no-op, which makes the
// operation safe to race against the sweeper.
const deleteScript = `
local removed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if redis.call("SCARD", KEYS[2]) == 0 then
  redis.call("SREM", KEYS[3], ARGV[2])
end
return removed
`

var deleteLua = redis.NewScript(deleteScript)

// Store is the Redis-backed session registry.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a registry under the given key prefix ("auth" by
// convention).
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "auth"
	}
	return &Store{redis: redisClient, prefix: prefix}
}

func (s *Store) recordKey(userID, deviceID string) string {
	return s.prefix + ":session:" + userID + ":" + deviceID
}

// recordKeyPrefix is the prefix the sweeper script concatenates with
// "{user_id}:{device_id}" to rebuild record keys.
func (s *Store) recordKeyPrefix() string {
	return s.prefix + ":session:"
}

func (s *Store) userSetKey(userID string) string {
	return s.prefix + ":sessions:" + userID
}

func (s *Store) activeSetKey() string {
	return s.prefix + ":active_users"
}

// Save writes the record with the given TTL and registers the device in the
// user index and the user in the active index. The three writes share one
// MULTI/EXEC round trip but are not atomic with concurrent deletes; the
// sweeper reconciles the narrow crash window.
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(rec.UserID, rec.DeviceID), data, ttl)
		pipe.SAdd(ctx, s.userSetKey(rec.UserID), rec.DeviceID)
		pipe.SAdd(ctx, s.activeSetKey(), rec.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get fetches one session record.
func (s *Store) Get(ctx context.Context, userID, deviceID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.recordKey(userID, deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetMany batch-reads records for the given device IDs in one pipeline.
// Missing devices are skipped, not errors: the index may lag deletions.
func (s *Store) GetMany(ctx context.Context, userID string, deviceIDs []string) ([]*Record, error) {
	if len(deviceIDs) == 0 {
		return []*Record{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(deviceIDs))
	for i, did := range deviceIDs {
		cmds[i] = pipe.Get(ctx, s.recordKey(userID, did))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	records := make([]*Record, 0, len(deviceIDs))
	for _, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}

	return records, nil
}

// ActiveDeviceIDs returns the device IDs tracked in the user's index.
// Membership is not authoritative; callers must re-check the records.
func (s *Store) ActiveDeviceIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userSetKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// ActiveUserIDs returns the users tracked in the global active index.
func (s *Store) ActiveUserIDs(ctx context.Context) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.activeSetKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Delete atomically removes the session record and updates both indices.
func (s *Store) Delete(ctx context.Context, userID, deviceID string) error {
	keys := []string{
		s.recordKey(userID, deviceID),
		s.userSetKey(userID),
		s.activeSetKey(),
	}
	if err := deleteLua.Run(ctx, s.redis, keys, deviceID, userID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rewrite replaces the record under its remaining TTL. Used by refresh and
// activity touches; callers compute the TTL via Record.RemainingTTL and must
// not call Rewrite with a non-positive duration.
func (s *Store) Rewrite(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.recordKey(rec.UserID, rec.DeviceID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
