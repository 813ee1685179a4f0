package authcore

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if cfg.JWT.AccessTTL != 10*time.Minute {
		t.Errorf("access ttl: %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 30*24*time.Hour {
		t.Errorf("refresh ttl: %v", cfg.JWT.RefreshTTL)
	}
	if cfg.Login.MaxAttempts != 5 {
		t.Errorf("max attempts: %d", cfg.Login.MaxAttempts)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	mutations := map[string]func(*Config){
		"zero access ttl":             func(c *Config) { c.JWT.AccessTTL = 0 },
		"refresh shorter than access": func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL / 2 },
		"zero attempts":               func(c *Config) { c.Login.MaxAttempts = 0 },
		"negative lockout":            func(c *Config) { c.Login.LockoutTime = -time.Minute },
		"code too short":              func(c *Config) { c.SMS.CodeDigits = 3 },
		"code too long":               func(c *Config) { c.SMS.CodeDigits = 11 },
		"zero daily cap":              func(c *Config) { c.SMS.DailyCap = 0 },
		"zero challenge ttl":          func(c *Config) { c.MFA.ChallengeTTL = 0 },
		"totp digits out of range":    func(c *Config) { c.MFA.TOTPDigits = 9 },
		"totp skew out of range":      func(c *Config) { c.MFA.TOTPSkew = 3 },
	}

	for name, mutate := range mutations {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without redis client")
	}
}
