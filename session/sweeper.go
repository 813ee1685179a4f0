package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// sweepUserScript reconciles one user's sessions in a single atomic unit.
// It re-reads the membership of the user's device set inside the script
// rather than trusting a snapshot taken by the caller, so a device added
// concurrently is evaluated against its own live record, never against
// stale data. Records whose access and refresh expiries have both passed
// are deleted together with their index entry; index entries pointing at
// missing records are dropped as expected transient state. When the device
// set empties, the user leaves the global active set.
const sweepUserScript = `
local user_key = KEYS[1]
local active_key = KEYS[2]
local user_id = ARGV[1]
local now = tonumber(ARGV[2])
local record_prefix = ARGV[3]

local removed = 0
local device_ids = redis.call("SMEMBERS", user_key)

for _, device_id in ipairs(device_ids) do
  local record_key = record_prefix .. user_id .. ":" .. device_id
  local data = redis.call("GET", record_key)
  if data then
    local ok, rec = pcall(cjson.decode, data)
    if ok and type(rec) == "table" then
      local access_exp = tonumber(rec["access_expired_time"] or 0)
      local refresh_exp = tonumber(rec["refresh_expired_time"] or 0)
      if access_exp <= now and refresh_exp <= now then
        redis.call("DEL", record_key)
        redis.call("SREM", user_key, device_id)
        removed = removed + 1
      end
    else
      redis.call("DEL", record_key)
      redis.call("SREM", user_key, device_id)
      removed = removed + 1
    end
  else
    redis.call("SREM", user_key, device_id)
  end
end

if redis.call("SCARD", user_key) == 0 then
  redis.call("SREM", active_key, user_id)
end

return removed
`

var sweepUserLua = redis.NewScript(sweepUserScript)

// SweeperConfig tunes the background reconciliation job.
type SweeperConfig struct {
	Interval    time.Duration // pass spacing; default 5 minutes
	PassTimeout time.Duration // per-pass context budget; default 1 minute
}

// Sweeper is the background job that removes expired sessions from the
// record space and both indices, and purges past-expiry blacklist entries.
// It runs outside the request path; every mutation it performs is
// idempotent, so races with concurrent logins, logouts, and refreshes
// resolve to a consistent state.
type Sweeper struct {
	store     *Store
	blacklist *Blacklist
	config    SweeperConfig
	logger    *slog.Logger
}

// NewSweeper creates a sweeper over the given registry and blacklist.
// logger may be nil.
func NewSweeper(store *Store, blacklist *Blacklist, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		blacklist: blacklist,
		config:    cfg,
		logger:    logger,
	}
}

// Run executes sweep passes on the configured interval until ctx is
// canceled. Errors are logged, never fatal: the next pass retries.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, s.config.PassTimeout)
			if err := s.SweepOnce(passCtx); err != nil {
				s.logger.Error("session sweep failed", "error", err)
			}
			cancel()
		}
	}
}

// SweepOnce performs one full reconciliation pass: every user in the active
// index gets one atomic per-user cleanup, then both blacklists are purged.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	userIDs, err := s.store.ActiveUserIDs(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	var sessionsRemoved int64
	for _, userID := range userIDs {
		removed, err := s.sweepUser(ctx, userID, now)
		if err != nil {
			return err
		}
		sessionsRemoved += removed
	}

	accessPurged, err := s.blacklist.PurgeExpired(ctx, KindAccess, now)
	if err != nil {
		return err
	}
	refreshPurged, err := s.blacklist.PurgeExpired(ctx, KindRefresh, now)
	if err != nil {
		return err
	}

	s.logger.Info("session sweep complete",
		"users_scanned", len(userIDs),
		"sessions_removed", sessionsRemoved,
		"access_blacklist_purged", accessPurged,
		"refresh_blacklist_purged", refreshPurged,
	)
	return nil
}

func (s *Sweeper) sweepUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	keys := []string{
		s.store.userSetKey(userID),
		s.store.activeSetKey(),
	}
	removed, err := sweepUserLua.Run(
		ctx,
		s.store.redis,
		keys,
		userID,
		now.Unix(),
		s.store.recordKeyPrefix(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed, nil
}
