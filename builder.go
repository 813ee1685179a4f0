package authcore

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/lumenadmin/authcore/internal/limiters"
	"github.com/lumenadmin/authcore/internal/stores"
	"github.com/lumenadmin/authcore/jwt"
	"github.com/lumenadmin/authcore/session"
	"github.com/lumenadmin/authcore/snowflake"
)

// Builder assembles an Engine. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	redis  *redis.Client

	directory UserDirectory
	sms       SMSSender
	geo       GeoResolver
	assigner  snowflake.Assigner
	logger    *slog.Logger

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing every store and limiter.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory sets the account lookup backend.
func (b *Builder) WithUserDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithSMSSender sets the outbound SMS gateway. Optional; without it the
// SMS login and SMS second-factor flows return ErrEngineNotReady.
func (b *Builder) WithSMSSender(s SMSSender) *Builder {
	b.sms = s
	return b
}

// WithGeoResolver sets the IP geolocation backend. Optional.
func (b *Builder) WithGeoResolver(g GeoResolver) *Builder {
	b.geo = g
	return b
}

// WithIDAssigner overrides how the snowflake generator resolves its
// datacenter and worker slot. Takes precedence over Config.Snowflake.
func (b *Builder) WithIDAssigner(a snowflake.Assigner) *Builder {
	b.assigner = a
	return b
}

// WithLogger sets the structured logger used by the engine and sweeper.
// Defaults to slog.Default.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build validates the configuration, wires every store against the Redis
// client, and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		ids *snowflake.Generator
		err error
	)
	switch {
	case b.assigner != nil:
		ids, err = snowflake.NewFromAssigner(b.assigner)
	case cfg.Snowflake.DatacenterID >= 0 && cfg.Snowflake.WorkerID >= 0:
		ids, err = snowflake.New(cfg.Snowflake.DatacenterID, cfg.Snowflake.WorkerID)
	default:
		ids, err = snowflake.NewFromAssigner(snowflake.Env{})
	}
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(cfg.JWT, ids)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	store := session.NewStore(b.redis, cfg.Session.RedisPrefix)
	blacklist := session.NewBlacklist(b.redis, cfg.Session.RedisPrefix)

	engine := &Engine{
		config:    cfg,
		directory: b.directory,
		sms:       b.sms,
		geo:       b.geo,
		sessions:  store,
		blacklist: blacklist,
		guard: limiters.NewAttemptGuard(b.redis, limiters.AttemptGuardConfig{
			MaxAttempts: cfg.Login.MaxAttempts,
			RetryWindow: cfg.Login.RetryWindow,
			LockoutTime: cfg.Login.LockoutTime,
		}),
		smsGate: limiters.NewSMSGate(b.redis, limiters.SMSGateConfig{
			MobileInterval: cfg.SMS.MobileInterval,
			DailyWindow:    cfg.SMS.DailyWindow,
			DailyCap:       cfg.SMS.DailyCap,
			IPWindow:       cfg.SMS.IPWindow,
			IPCap:          cfg.SMS.IPCap,
		}),
		challenges: stores.NewMFAChallengeStore(b.redis, cfg.MFA.ChallengeTTL),
		smsCodes:   stores.NewSMSCodeStore(b.redis, cfg.SMS.CodeTTL),
		tokens:     jm,
		ids:        ids,
		totp: totpVerifier{
			period: cfg.MFA.TOTPPeriod,
			digits: cfg.MFA.TOTPDigits,
			skew:   cfg.MFA.TOTPSkew,
		},
		metrics: NewMetrics(),
		logger:  logger,
	}

	b.built = true

	return engine, nil
}

// NewSweeper returns a Sweeper bound to the engine's session store and
// blacklists. Run it in its own goroutine.
func (e *Engine) NewSweeper() *session.Sweeper {
	return session.NewSweeper(e.sessions, e.blacklist, e.config.Sweeper, e.logger)
}
