package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/lumenadmin/authcore/session"
)

// RefreshAccess exchanges a live refresh token for a new access token. The
// prior access token is revoked, and the session record is rewritten under
// its remaining TTL, (login_at + refresh lifetime) - now, so repeated
// refreshes can never push a session past its original window. A missing
// record or an exhausted window both mean the caller must log in again.
func (e *Engine) RefreshAccess(ctx context.Context, refreshToken string) (*AccessGrant, error) {
	if refreshToken == "" {
		return nil, ErrValidation
	}

	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}

	revoked, err := e.blacklist.IsRevoked(ctx, session.KindRefresh, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrTokenRevoked
	}

	rec, err := e.sessions.Get(ctx, claims.UID, claims.DID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if rec.RefreshToken != refreshToken {
		// A superseded or foreign refresh token for a live session.
		e.metricInc(MetricRefreshFailure)
		return nil, ErrRefreshInvalid
	}

	now := time.Now()
	remaining := rec.RemainingTTL(now)
	if remaining <= 0 {
		e.metricInc(MetricRefreshFailure)
		return nil, ErrSessionNotFound
	}

	if err := e.blacklist.Revoke(ctx, session.KindAccess, rec.AccessToken, rec.AccessExpiresAt); err != nil {
		return nil, err
	}

	access, accessExp, err := e.tokens.IssueAccess(rec.UserID, rec.DeviceID)
	if err != nil {
		return nil, err
	}

	rec.AccessToken = access
	rec.AccessExpiresAt = accessExp
	rec.LastActiveAt = now.Unix()

	if err := e.sessions.Rewrite(ctx, rec, remaining); err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	return &AccessGrant{
		AccessToken:  access,
		AccessTTLSec: rec.AccessTTLSec,
	}, nil
}

// ValidateAccess checks an access token on behalf of a request: signature
// and expiry, early revocation, and that the account is still active. The
// returned Identity carries the user's current permission codes.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, ErrValidation
	}

	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}

	revoked, err := e.blacklist.IsRevoked(ctx, session.KindAccess, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenRevoked
	}

	user, err := e.directory.GetByID(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		e.metricInc(MetricValidateFailure)
		return nil, ErrAccountDisabled
	}

	perms, err := e.directory.PermissionCodes(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return &Identity{
		UserID:      claims.UID,
		DeviceID:    claims.DID,
		Permissions: perms,
	}, nil
}

// ListSessions enumerates the user's live sessions. Records whose access
// and refresh expiries have both passed are filtered out; the index may
// lag TTL-based deletion.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]session.Summary, error) {
	if userID == "" {
		return nil, ErrValidation
	}

	deviceIDs, err := e.sessions.ActiveDeviceIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := e.sessions.GetMany(ctx, userID, deviceIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]session.Summary, 0, len(records))
	for _, rec := range records {
		if rec.Expired(now) {
			continue
		}
		summaries = append(summaries, rec.Summarize())
	}
	return summaries, nil
}

// RevokeSession ends one device's session: both live tokens go to the
// blacklist under their original expiries, then the record and its index
// entries are removed.
func (e *Engine) RevokeSession(ctx context.Context, userID, deviceID string) error {
	if userID == "" || deviceID == "" {
		return ErrValidation
	}

	rec, err := e.sessions.Get(ctx, userID, deviceID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := e.blacklist.Revoke(ctx, session.KindAccess, rec.AccessToken, rec.AccessExpiresAt); err != nil {
		return err
	}
	if err := e.blacklist.Revoke(ctx, session.KindRefresh, rec.RefreshToken, rec.RefreshExpiresAt); err != nil {
		return err
	}

	if err := e.sessions.Delete(ctx, userID, deviceID); err != nil {
		return err
	}

	e.metricInc(MetricSessionRevoked)
	return nil
}

// Logout ends the caller's own session. Same semantics as RevokeSession.
func (e *Engine) Logout(ctx context.Context, userID, deviceID string) error {
	return e.RevokeSession(ctx, userID, deviceID)
}

// Touch updates the session's last-active timestamp, rewriting the record
// under the same remaining-TTL rule as refresh.
func (e *Engine) Touch(ctx context.Context, userID, deviceID string) error {
	if userID == "" || deviceID == "" {
		return ErrValidation
	}

	rec, err := e.sessions.Get(ctx, userID, deviceID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	now := time.Now()
	remaining := rec.RemainingTTL(now)
	if remaining <= 0 {
		return ErrSessionNotFound
	}

	rec.LastActiveAt = now.Unix()
	return e.sessions.Rewrite(ctx, rec, remaining)
}
