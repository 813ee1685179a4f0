package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newChallengeTest(t *testing.T) (*MFAChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewMFAChallengeStore(rdb, 15*time.Minute), mr
}

func TestIssueResolveRoundTrip(t *testing.T) {
	store, _ := newChallengeTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u-1", "totp")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 32-char token, got %q", token)
	}

	challenge, err := store.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if challenge.UserID != "u-1" || challenge.Factor != "totp" {
		t.Fatalf("challenge mismatch: %+v", challenge)
	}
}

func TestUserIDWithUnderscoreSurvivesEncoding(t *testing.T) {
	store, _ := newChallengeTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "tenant_42_user", "sms")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	challenge, err := store.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if challenge.UserID != "tenant_42_user" || challenge.Factor != "sms" {
		t.Fatalf("challenge mismatch: %+v", challenge)
	}
}

func TestConsumeIsSingleUse(t *testing.T) {
	store, _ := newChallengeTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u-1", "sms")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Consume(ctx, token); err != nil {
		t.Fatalf("consume: %v", err)
	}

	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after consume, got %v", err)
	}
}

func TestChallengeExpires(t *testing.T) {
	store, mr := newChallengeTest(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u-1", "totp")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mr.FastForward(15*time.Minute + time.Second)

	if _, err := store.Resolve(ctx, token); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after TTL, got %v", err)
	}
}

func TestUnknownTokenNotFound(t *testing.T) {
	store, _ := newChallengeTest(t)

	if _, err := store.Resolve(context.Background(), "bogus"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}
