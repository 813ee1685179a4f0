package authcore

import (
	"context"

	"github.com/lumenadmin/authcore/session"
)

// MFAFactor is the second authentication factor configured for a user.
type MFAFactor uint8

const (
	// FactorNone means no second factor is required.
	FactorNone MFAFactor = 0
	// FactorTOTP requires a time-based one-time code.
	FactorTOTP MFAFactor = 1
	// FactorSMS requires a code delivered to the user's mobile.
	FactorSMS MFAFactor = 2
)

// String returns the wire name of the factor.
func (f MFAFactor) String() string {
	switch f {
	case FactorTOTP:
		return "totp"
	case FactorSMS:
		return "sms"
	default:
		return "none"
	}
}

// UserRecord is the engine's view of a user held by the external directory.
type UserRecord struct {
	ID         string
	Username   string
	Nickname   string
	Mobile     string
	Active     bool
	MFAType    MFAFactor
	TOTPSecret string // base32, set when MFAType is FactorTOTP
}

// UserDirectory is the external relational store holding user, role, and
// permission records. The engine never writes through this interface.
type UserDirectory interface {
	GetByID(ctx context.Context, userID string) (*UserRecord, error)
	GetByUsername(ctx context.Context, username string) (*UserRecord, error)
	GetByMobile(ctx context.Context, mobile string) (*UserRecord, error)
	CheckPassword(ctx context.Context, userID, password string) (bool, error)
	PermissionCodes(ctx context.Context, userID string) ([]string, error)
}

// SMSSender delivers verification codes. Delivery is external; the engine
// only generates, stores, and verifies the codes.
type SMSSender interface {
	Send(ctx context.Context, mobile, code string) error
}

// GeoResolver maps a client IP to coarse location fields. Implementations
// that cannot resolve an IP should return a zero GeoInfo, not an error.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (session.GeoInfo, error)
}

// SessionTokens is the token pair returned after a completed login.
type SessionTokens struct {
	AccessToken   string `json:"access"`
	AccessTTLSec  int64  `json:"access_expired_second"`
	RefreshToken  string `json:"refresh"`
	RefreshTTLSec int64  `json:"refresh_expired_second"`
	DeviceID      string `json:"device_id"`
}

// MFARequired is returned instead of tokens when the account has a second
// factor configured: the caller must complete VerifyMFA with the challenge
// token within its TTL.
type MFARequired struct {
	Token        string    `json:"token"`
	Factor       MFAFactor `json:"mfa_type"`
	MaskedMobile string    `json:"mobile,omitempty"`
}

// LoginResult is the outcome of a successful first authentication step:
// either a token pair, or a pending MFA challenge.
type LoginResult struct {
	Tokens      *SessionTokens
	MFARequired *MFARequired
}

// AccessGrant is the outcome of a token refresh.
type AccessGrant struct {
	AccessToken  string `json:"access"`
	AccessTTLSec int64  `json:"access_expired_second"`
}

// Identity is the validated caller of an authenticated request.
type Identity struct {
	UserID      string
	DeviceID    string
	Permissions []string
}
