package authcore

import (
	"encoding/base32"
	"testing"
	"time"
)

// RFC 4226 appendix D secret.
var rfcSecret = []byte("12345678901234567890")

func rfcSecretBase32() string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(rfcSecret)
}

func TestVerifyRFC6238Vectors(t *testing.T) {
	v := totpVerifier{period: 30, digits: 8, skew: 0}

	// SHA-1 vectors from RFC 6238 appendix B.
	cases := []struct {
		unix int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
	}

	for _, tc := range cases {
		ok, err := v.Verify(rfcSecretBase32(), tc.code, time.Unix(tc.unix, 0))
		if err != nil {
			t.Fatalf("verify at %d: %v", tc.unix, err)
		}
		if !ok {
			t.Errorf("code %s at %d did not verify", tc.code, tc.unix)
		}
	}
}

func TestVerifySkewWindow(t *testing.T) {
	v := totpVerifier{period: 30, digits: 6, skew: 1}
	now := time.Unix(1234567890, 0)

	prev := hotpCode(rfcSecret, now.Unix()/30-1, 6)
	next := hotpCode(rfcSecret, now.Unix()/30+1, 6)
	far := hotpCode(rfcSecret, now.Unix()/30+2, 6)

	for _, code := range []string{prev, next} {
		ok, err := v.Verify(rfcSecretBase32(), code, now)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !ok {
			t.Errorf("code %s within skew did not verify", code)
		}
	}

	ok, err := v.Verify(rfcSecretBase32(), far, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Error("code two steps ahead must not verify")
	}
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	v := totpVerifier{period: 30, digits: 6, skew: 1}
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12345a", "  "} {
		ok, err := v.Verify(rfcSecretBase32(), code, now)
		if err != nil {
			t.Fatalf("verify %q: %v", code, err)
		}
		if ok {
			t.Errorf("malformed code %q verified", code)
		}
	}
}

func TestVerifyRejectsBadSecret(t *testing.T) {
	v := totpVerifier{period: 30, digits: 6, skew: 1}

	if _, err := v.Verify("not!base32", "123456", time.Now()); err == nil {
		t.Fatal("expected error for invalid secret")
	}
}
