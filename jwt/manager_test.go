package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type seqIDs struct{ next uint64 }

func (s *seqIDs) NextID() (uint64, error) {
	s.next++
	return s.next, nil
}

type failingIDs struct{ err error }

func (f failingIDs) NextID() (uint64, error) { return 0, f.err }

func newEdManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg.SigningMethod = MethodEd25519
	cfg.PrivateKey = priv
	cfg.PublicKey = pub

	m, err := NewManager(cfg, &seqIDs{})
	require.NoError(t, err)
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newEdManager(t, Config{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
		Issuer:     "authcore",
	})

	access, exp, err := m.IssueAccess("u-1", "d-1")
	require.NoError(t, err)
	require.Greater(t, exp, time.Now().Unix())

	claims, err := m.ParseAccess(access)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UID)
	require.Equal(t, "d-1", claims.DID)
	require.Equal(t, TypeAccess, claims.Typ)
	require.NotEmpty(t, claims.ID)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	m := newEdManager(t, Config{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	})

	refresh, _, err := m.IssueRefresh("u-1", "d-1")
	require.NoError(t, err)

	_, err = m.ParseAccess(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.ParseRefresh(refresh)
	require.NoError(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newEdManager(t, Config{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	})

	access, _, err := m.IssueAccess("u-1", "d-1")
	require.NoError(t, err)

	tampered := access[:len(access)-4] + "xxxx"
	_, err = m.ParseAccess(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestForeignKeyRejected(t *testing.T) {
	cfg := Config{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}
	issuer := newEdManager(t, cfg)
	verifier := newEdManager(t, cfg)

	access, _, err := issuer.IssueAccess("u-1", "d-1")
	require.NoError(t, err)

	_, err = verifier.ParseAccess(access)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHS256RoundTrip(t *testing.T) {
	m, err := NewManager(Config{
		AccessTTL:     10 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	}, &seqIDs{})
	require.NoError(t, err)

	access, _, err := m.IssueAccess("u-1", "d-1")
	require.NoError(t, err)

	claims, err := m.ParseAccess(access)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UID)
}

func TestJTIsAreDistinct(t *testing.T) {
	m := newEdManager(t, Config{
		AccessTTL:  10 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	})

	a, _, err := m.IssueAccess("u-1", "d-1")
	require.NoError(t, err)
	b, _, err := m.IssueAccess("u-1", "d-1")
	require.NoError(t, err)

	ca, err := m.ParseAccess(a)
	require.NoError(t, err)
	cb, err := m.ParseAccess(b)
	require.NoError(t, err)
	require.NotEqual(t, ca.ID, cb.ID)
}

func TestIDSourceFailureBlocksIssuance(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	idErr := errors.New("clock moved backwards")
	m, err := NewManager(Config{
		AccessTTL:     10 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	}, failingIDs{err: idErr})
	require.NoError(t, err)

	_, _, err = m.IssueAccess("u-1", "d-1")
	require.ErrorIs(t, err, idErr)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Second, SigningMethod: MethodHS256, PrivateKey: []byte("k")}, &seqIDs{})
	require.Error(t, err)

	_, err = NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256}, &seqIDs{})
	require.Error(t, err)

	_, err = NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: "rs256"}, &seqIDs{})
	require.Error(t, err)

	_, err = NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("k")}, nil)
	require.Error(t, err)
}
