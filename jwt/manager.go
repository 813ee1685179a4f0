// Package jwt signs and verifies the access and refresh tokens issued by the
// session registry. Tokens carry the user ID, the device ID assigned at
// login, and a clock-ordered snowflake jti.
//
// Signature and expiry verification happen here; early revocation before
// natural expiry is the blacklist's job, not this package's.
package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with an Ed25519 key pair (default).
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

const (
	// TypeAccess marks short-lived access tokens.
	TypeAccess = "access"
	// TypeRefresh marks long-lived refresh tokens.
	TypeRefresh = "refresh"
)

// ErrTokenInvalid covers malformed tokens, bad signatures, expired tokens,
// and type mismatches (refresh presented as access etc.).
var ErrTokenInvalid = errors.New("invalid token")

// IDSource supplies the jti for issued tokens. The engine wires the
// snowflake generator here, so a fatal clock regression surfaces through
// token issuance instead of being swallowed.
type IDSource interface {
	NextID() (uint64, error)
}

// Config holds the token manager parameters.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the claim set carried by both token types.
type Claims struct {
	UID string `json:"uid"`
	DID string `json:"did"`
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and parses session tokens.
type Manager struct {
	config Config
	ids    IDSource
	edPriv ed25519.PrivateKey
	edPub  ed25519.PublicKey
}

// NewManager validates cfg and builds a Manager. ids must not be nil.
func NewManager(cfg Config, ids IDSource) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("jwt: refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: invalid leeway configuration")
	}
	if ids == nil {
		return nil, errors.New("jwt: id source required")
	}

	m := &Manager{config: cfg, ids: ids}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("jwt: hs256 requires a private key")
		}
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.edPriv = priv
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		m.edPub = pub
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	return m, nil
}

// IssueAccess signs a new access token for (userID, deviceID) and returns
// the token with its expiry unix timestamp.
func (m *Manager) IssueAccess(userID, deviceID string) (string, int64, error) {
	return m.issue(userID, deviceID, TypeAccess, m.config.AccessTTL)
}

// IssueRefresh signs a new refresh token for (userID, deviceID) and returns
// the token with its expiry unix timestamp.
func (m *Manager) IssueRefresh(userID, deviceID string) (string, int64, error) {
	return m.issue(userID, deviceID, TypeRefresh, m.config.RefreshTTL)
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

func (m *Manager) issue(userID, deviceID, typ string, ttl time.Duration) (string, int64, error) {
	jti, err := m.ids.NextID()
	if err != nil {
		return "", 0, err
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		UID: userID,
		DID: deviceID,
		Typ: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatUint(jti, 10),
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	var (
		token *jwt.Token
		key   any
	)
	switch m.config.SigningMethod {
	case MethodHS256:
		token = jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		key = m.config.PrivateKey
	case MethodEd25519:
		token = jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
		key = m.edPriv
	default:
		return "", 0, fmt.Errorf("jwt: unsupported signing method %q", m.config.SigningMethod)
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", 0, err
	}
	return signed, expiresAt.Unix(), nil
}

// ParseAccess verifies signature, expiry, and token type of an access token.
func (m *Manager) ParseAccess(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TypeAccess)
}

// ParseRefresh verifies signature, expiry, and token type of a refresh token.
func (m *Manager) ParseRefresh(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, TypeRefresh)
}

func (m *Manager) parse(tokenStr, wantTyp string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.config.Leeway),
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, m.verifyKey, opts...)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Typ != wantTyp || claims.UID == "" || claims.DID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (m *Manager) verifyKey(token *jwt.Token) (any, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.config.PrivateKey, nil
	case MethodEd25519:
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrTokenInvalid
		}
		return m.edPub, nil
	default:
		return nil, ErrTokenInvalid
	}
}

func parseEdPrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.New("jwt: ed25519 private key must be 64 bytes")
	}
	return ed25519.PrivateKey(raw), nil
}

func parseEdPublicKey(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("jwt: ed25519 public key must be 32 bytes")
	}
	return ed25519.PublicKey(raw), nil
}
