package stores

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSMSCodeBackend indicates the SMS code backend is unreachable.
var ErrSMSCodeBackend = errors.New("sms code backend unavailable")

// CodePurpose selects the code slot for a mobile number. Login and MFA codes
// are independent: an MFA code never satisfies a login check and vice versa.
type CodePurpose string

const (
	// PurposeLogin is the SMS login code slot.
	PurposeLogin CodePurpose = "login_code"
	// PurposeMFA is the second-factor SMS code slot.
	PurposeMFA CodePurpose = "mfa_code"
)

// SMSCodeStore keeps issued verification codes per mobile number, one slot
// per purpose, each with its own TTL.
type SMSCodeStore struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewSMSCodeStore creates a store with the given code TTL.
func NewSMSCodeStore(redisClient redis.UniversalClient, ttl time.Duration) *SMSCodeStore {
	return &SMSCodeStore{redis: redisClient, ttl: ttl}
}

func codeKey(purpose CodePurpose, mobile string) string {
	return "auth:sms:" + string(purpose) + ":" + mobile
}

// Generate creates a numeric code of the given length, stores it in the
// purpose slot for the mobile, and returns it for delivery.
func (s *SMSCodeStore) Generate(ctx context.Context, purpose CodePurpose, mobile string, digits int) (string, error) {
	code, err := randomDigits(digits)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, codeKey(purpose, mobile), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSMSCodeBackend, err)
	}
	return code, nil
}

// Verify reports whether code matches the stored value for the mobile and
// purpose. A missing or expired slot never matches.
func (s *SMSCodeStore) Verify(ctx context.Context, purpose CodePurpose, mobile, code string) (bool, error) {
	stored, err := s.redis.Get(ctx, codeKey(purpose, mobile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrSMSCodeBackend, err)
	}
	if code == "" || len(code) != len(stored) {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}

// Delete clears the code slot, invalidating the outstanding code.
func (s *SMSCodeStore) Delete(ctx context.Context, purpose CodePurpose, mobile string) error {
	if err := s.redis.Del(ctx, codeKey(purpose, mobile)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSMSCodeBackend, err)
	}
	return nil
}

func randomDigits(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code length")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
