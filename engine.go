package authcore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumenadmin/authcore/internal/limiters"
	"github.com/lumenadmin/authcore/internal/stores"
	"github.com/lumenadmin/authcore/jwt"
	"github.com/lumenadmin/authcore/session"
	"github.com/lumenadmin/authcore/snowflake"
)

// Engine is the authentication and session lifecycle core. Build one with
// the Builder and treat it as immutable afterwards; all methods are safe
// for concurrent use.
type Engine struct {
	config    Config
	directory UserDirectory
	sms       SMSSender
	geo       GeoResolver

	sessions   *session.Store
	blacklist  *session.Blacklist
	guard      *limiters.AttemptGuard
	smsGate    *limiters.SMSGate
	challenges *stores.MFAChallengeStore
	smsCodes   *stores.SMSCodeStore
	tokens     *jwt.Manager
	ids        *snowflake.Generator
	totp       totpVerifier
	metrics    *Metrics
	logger     *slog.Logger
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

// AuthenticatePassword performs the first authentication step with a
// username and password. The lockout state is checked before any
// credential comparison; unknown users and wrong passwords both count as
// failures and return the same generic error. On success the result
// carries either a token pair or a pending MFA challenge.
func (e *Engine) AuthenticatePassword(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrValidation
	}

	locked, err := e.guard.IsLocked(ctx, username)
	if err != nil {
		return nil, err
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		return nil, ErrAccountLocked
	}

	user, err := e.directory.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, e.recordFailure(ctx, username)
		}
		return nil, err
	}

	ok, err := e.directory.CheckPassword(ctx, user.ID, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.recordFailure(ctx, username)
	}

	if !user.Active {
		// A disabled account still burns an attempt.
		if _, gerr := e.guard.RecordFailure(ctx, username); gerr != nil {
			return nil, gerr
		}
		e.metricInc(MetricLoginFailure)
		return nil, ErrAccountDisabled
	}

	if err := e.guard.Reset(ctx, username); err != nil {
		return nil, err
	}

	return e.finishLogin(ctx, user, false)
}

// UnlockAccount removes the lockout flag for a username or mobile without
// waiting out the window. Administrative override; the failure counter, if
// still inside its window, is untouched.
func (e *Engine) UnlockAccount(ctx context.Context, identifier string) error {
	if identifier == "" {
		return ErrValidation
	}
	return e.guard.Unlock(ctx, identifier)
}

// recordFailure counts one failed attempt against the identifier. The
// attempt that reaches the threshold reports the lockout immediately
// instead of the generic credential error.
func (e *Engine) recordFailure(ctx context.Context, identifier string) error {
	e.metricInc(MetricLoginFailure)

	locked, err := e.guard.RecordFailure(ctx, identifier)
	if err != nil {
		return err
	}
	if locked {
		e.metricInc(MetricLoginLocked)
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

// finishLogin routes an authenticated user either straight to session
// creation or to a second-factor challenge. secondFactorDone marks flows
// where the credential already proved control of the second factor, such
// as SMS login for an SMS-MFA account.
func (e *Engine) finishLogin(ctx context.Context, user *UserRecord, secondFactorDone bool) (*LoginResult, error) {
	if user.MFAType == FactorNone || secondFactorDone {
		tokens, err := e.createSession(ctx, user)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricLoginSuccess)
		return &LoginResult{Tokens: tokens}, nil
	}

	token, err := e.challenges.Issue(ctx, user.ID, user.MFAType.String())
	if err != nil {
		return nil, err
	}

	pending := &MFARequired{
		Token:  token,
		Factor: user.MFAType,
	}
	if user.MFAType == FactorSMS {
		pending.MaskedMobile = maskMobile(user.Mobile)
	}

	e.metricInc(MetricMFARequired)
	return &LoginResult{MFARequired: pending}, nil
}

// createSession allocates a device ID, issues the token pair, and writes
// the session record with TTL equal to the refresh lifetime.
func (e *Engine) createSession(ctx context.Context, user *UserRecord) (*SessionTokens, error) {
	deviceID := strings.ReplaceAll(uuid.NewString(), "-", "")

	access, accessExp, err := e.tokens.IssueAccess(user.ID, deviceID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := e.tokens.IssueRefresh(user.ID, deviceID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ip := clientIPFromContext(ctx)

	rec := &session.Record{
		UserID:           user.ID,
		DeviceID:         deviceID,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		AccessTTLSec:     int64(e.tokens.AccessTTL() / time.Second),
		RefreshTTLSec:    int64(e.tokens.RefreshTTL() / time.Second),
		LoginAt:          now.Unix(),
		LastActiveAt:     now.Unix(),
		IPAddress:        ip,
		Device:           deviceInfoFromContext(ctx),
	}

	if e.geo != nil && ip != "" {
		geo, gerr := e.geo.Resolve(ctx, ip)
		if gerr != nil {
			e.logger.Warn("geo resolve failed", "ip", ip, "error", gerr)
		} else {
			rec.Geo = geo
		}
	}

	if err := e.sessions.Save(ctx, rec, e.tokens.RefreshTTL()); err != nil {
		return nil, err
	}
	e.metricInc(MetricSessionCreated)

	return &SessionTokens{
		AccessToken:   access,
		AccessTTLSec:  rec.AccessTTLSec,
		RefreshToken:  refresh,
		RefreshTTLSec: rec.RefreshTTLSec,
		DeviceID:      deviceID,
	}, nil
}
