package authcore

import "errors"

var (
	// ErrValidation rejects malformed input before any store access.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidCredentials is the generic authentication failure. The same
	// message covers unknown users, wrong passwords, and wrong SMS codes so
	// that callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by directory lookups for missing users.
	// The engine translates it to ErrInvalidCredentials on login paths.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountLocked means the identifier exceeded the failure budget and
	// must wait out the lockout window (or an administrative unlock).
	ErrAccountLocked = errors.New("account locked by failed login attempts")
	// ErrAccountDisabled means the account exists but is not active.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrMFANotEnabled rejects MFA verification for accounts without a
	// configured second factor.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrMFAChallengeInvalid covers unknown and expired challenge tokens
	// and failed code verification; the caller must restart login.
	ErrMFAChallengeInvalid = errors.New("mfa verification failed")
	// ErrSMSRateLimited means a verification-code send was denied by one of
	// the send limits. Wrapped errors carry the specific reason.
	ErrSMSRateLimited = errors.New("sms send rate limited")
	// ErrTokenRevoked means the presented token was revoked before its
	// natural expiry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrRefreshInvalid means the presented refresh token failed signature
	// or expiry checks; the caller must re-authenticate.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrSessionNotFound means no live session backs the request; the
	// caller must re-authenticate.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEngineNotReady is returned when the engine was constructed without
	// a required collaborator.
	ErrEngineNotReady = errors.New("engine not initialized")
)
