package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumenadmin/authcore/session"
)

func loginTokens(t *testing.T, engine *Engine, dir *fakeDirectory) *SessionTokens {
	t.Helper()
	dir.add(UserRecord{ID: "u-1", Username: "alice", Active: true}, "secret", "user:list")

	res, err := engine.AuthenticatePassword(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res.Tokens
}

func TestRefreshRotatesAccessToken(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	grant, err := engine.RefreshAccess(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if grant.AccessToken == "" || grant.AccessToken == tokens.AccessToken {
		t.Fatal("expected a fresh access token")
	}

	// The superseded access token is revoked early.
	if _, err := engine.ValidateAccess(ctx, tokens.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("old access token: %v", err)
	}
	if _, err := engine.ValidateAccess(ctx, grant.AccessToken); err != nil {
		t.Fatalf("new access token: %v", err)
	}
}

func TestRefreshAfterRevokeFails(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	if err := engine.RevokeSession(ctx, "u-1", tokens.DeviceID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := engine.RefreshAccess(ctx, tokens.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestRefreshWithGarbageTokenFails(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	loginTokens(t, engine, dir)

	if _, err := engine.RefreshAccess(context.Background(), "not-a-jwt"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRefreshWithMissingSessionFails(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	// Session gone without a blacklist entry, as after TTL expiry.
	if err := engine.sessions.Delete(ctx, "u-1", tokens.DeviceID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := engine.RefreshAccess(ctx, tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestValidateAccessReturnsIdentity(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	id, err := engine.ValidateAccess(ctx, tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.UserID != "u-1" || id.DeviceID != tokens.DeviceID {
		t.Fatalf("identity mismatch: %+v", id)
	}
	if len(id.Permissions) != 1 || id.Permissions[0] != "user:list" {
		t.Fatalf("permissions mismatch: %v", id.Permissions)
	}
}

func TestValidateAccessRejectsDisabledAccount(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	dir.add(UserRecord{ID: "u-1", Username: "alice", Active: false}, "secret")

	if _, err := engine.ValidateAccess(ctx, tokens.AccessToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	if err := engine.Logout(ctx, "u-1", tokens.DeviceID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, tokens.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("access after logout: %v", err)
	}
	if _, err := engine.RefreshAccess(ctx, tokens.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("refresh after logout: %v", err)
	}

	sessions, err := engine.ListSessions(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %+v", sessions)
	}

	// Logging out again reports the session as already ended.
	if err := engine.Logout(ctx, "u-1", tokens.DeviceID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second logout: %v", err)
	}
}

func TestConcurrentDeviceSessionsAreIndependent(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	dir.add(UserRecord{ID: "u-1", Username: "alice", Active: true}, "secret")

	first, err := engine.AuthenticatePassword(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := engine.AuthenticatePassword(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.Tokens.DeviceID == second.Tokens.DeviceID {
		t.Fatal("each login must get its own device")
	}

	if err := engine.Logout(ctx, "u-1", first.Tokens.DeviceID); err != nil {
		t.Fatalf("logout first: %v", err)
	}

	// The other device's tokens stay valid.
	if _, err := engine.ValidateAccess(ctx, second.Tokens.AccessToken); err != nil {
		t.Fatalf("second device access: %v", err)
	}
	sessions, err := engine.ListSessions(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].DeviceID != second.Tokens.DeviceID {
		t.Fatalf("expected only the second session, got %+v", sessions)
	}
}

func TestTouchUpdatesLastActive(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	before, err := engine.sessions.Get(ctx, "u-1", tokens.DeviceID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Make the timestamp move without waiting.
	before.LastActiveAt -= 120
	if err := engine.sessions.Rewrite(ctx, before, time.Hour); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if err := engine.Touch(ctx, "u-1", tokens.DeviceID); err != nil {
		t.Fatalf("touch: %v", err)
	}

	after, err := engine.sessions.Get(ctx, "u-1", tokens.DeviceID)
	if err != nil {
		t.Fatalf("get after touch: %v", err)
	}
	if after.LastActiveAt <= before.LastActiveAt {
		t.Fatalf("last active not advanced: %d -> %d", before.LastActiveAt, after.LastActiveAt)
	}
}

func TestTouchMissingSession(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	if err := engine.Touch(context.Background(), "u-1", "ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRefreshRejectsExhaustedWindow(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	rec, err := engine.sessions.Get(ctx, "u-1", tokens.DeviceID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// Pretend the login happened past the whole refresh window.
	rec.LoginAt = time.Now().Add(-31 * 24 * time.Hour).Unix()
	if err := engine.sessions.Rewrite(ctx, rec, time.Hour); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, err := engine.RefreshAccess(ctx, tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSweeperWiredToEngineStores(t *testing.T) {
	engine, dir, _, _ := newTestEngine(t)
	ctx := context.Background()
	tokens := loginTokens(t, engine, dir)

	rec, err := engine.sessions.Get(ctx, "u-1", tokens.DeviceID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rec.AccessExpiresAt = time.Now().Add(-time.Hour).Unix()
	rec.RefreshExpiresAt = time.Now().Add(-time.Hour).Unix()
	if err := engine.sessions.Rewrite(ctx, rec, time.Hour); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if err := engine.NewSweeper().SweepOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if _, err := engine.sessions.Get(ctx, "u-1", tokens.DeviceID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected session swept, got %v", err)
	}
}
