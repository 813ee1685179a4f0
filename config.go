package authcore

import (
	"errors"
	"time"

	"github.com/lumenadmin/authcore/jwt"
	"github.com/lumenadmin/authcore/session"
)

// Config defines the engine's tunables. Configure once at construction and
// treat as immutable afterwards.
type Config struct {
	JWT       jwt.Config
	Login     LoginConfig
	SMS       SMSConfig
	MFA       MFAConfig
	Session   SessionConfig
	Sweeper   session.SweeperConfig
	Snowflake SnowflakeConfig
}

// LoginConfig tunes the failure lockout state machine.
type LoginConfig struct {
	MaxAttempts int
	RetryWindow time.Duration
	LockoutTime time.Duration
}

// SMSConfig tunes verification-code issuance and send limits.
type SMSConfig struct {
	CodeDigits     int
	CodeTTL        time.Duration
	MobileInterval time.Duration
	DailyWindow    time.Duration
	DailyCap       int64
	IPWindow       time.Duration
	IPCap          int64
}

// MFAConfig tunes the second-factor challenge step.
type MFAConfig struct {
	ChallengeTTL time.Duration
	TOTPPeriod   int
	TOTPDigits   int
	TOTPSkew     int // accepted steps either side of now
}

// SessionConfig holds the session registry key namespace.
type SessionConfig struct {
	RedisPrefix string
}

// SnowflakeConfig pins the ID generator slot. Leave both at -1 to resolve
// the slot from the environment with best-effort fallbacks.
type SnowflakeConfig struct {
	DatacenterID int64
	WorkerID     int64
}

// DefaultConfig returns the baseline configuration: 10-minute access
// tokens, 30-day refresh tokens, 5 login attempts per hour window with a
// 2-hour lockout, one SMS per mobile per minute (10/day, 5/hour per IP),
// and 15-minute MFA challenges.
func DefaultConfig() Config {
	return Config{
		JWT: jwt.Config{
			AccessTTL:     10 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: jwt.MethodEd25519,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			RetryWindow: time.Hour,
			LockoutTime: 2 * time.Hour,
		},
		SMS: SMSConfig{
			CodeDigits:     6,
			CodeTTL:        5 * time.Minute,
			MobileInterval: time.Minute,
			DailyWindow:    24 * time.Hour,
			DailyCap:       10,
			IPWindow:       time.Hour,
			IPCap:          5,
		},
		MFA: MFAConfig{
			ChallengeTTL: 15 * time.Minute,
			TOTPPeriod:   30,
			TOTPDigits:   6,
			TOTPSkew:     1,
		},
		Session: SessionConfig{
			RedisPrefix: "auth",
		},
		Sweeper: session.SweeperConfig{
			Interval:    5 * time.Minute,
			PassTimeout: time.Minute,
		},
		Snowflake: SnowflakeConfig{
			DatacenterID: -1,
			WorkerID:     -1,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("config: refresh TTL must not be shorter than access TTL")
	}
	if c.Login.MaxAttempts <= 0 {
		return errors.New("config: login max attempts must be positive")
	}
	if c.Login.RetryWindow <= 0 || c.Login.LockoutTime <= 0 {
		return errors.New("config: login windows must be positive")
	}
	if c.SMS.CodeDigits < 4 || c.SMS.CodeDigits > 10 {
		return errors.New("config: sms code digits must be in [4,10]")
	}
	if c.SMS.MobileInterval <= 0 || c.SMS.DailyWindow <= 0 || c.SMS.IPWindow <= 0 {
		return errors.New("config: sms windows must be positive")
	}
	if c.SMS.DailyCap <= 0 || c.SMS.IPCap <= 0 {
		return errors.New("config: sms caps must be positive")
	}
	if c.MFA.ChallengeTTL <= 0 {
		return errors.New("config: mfa challenge TTL must be positive")
	}
	if c.MFA.TOTPPeriod <= 0 || c.MFA.TOTPDigits < 6 || c.MFA.TOTPDigits > 8 {
		return errors.New("config: invalid totp parameters")
	}
	if c.MFA.TOTPSkew < 0 || c.MFA.TOTPSkew > 2 {
		return errors.New("config: totp skew must be in [0,2]")
	}
	return nil
}
