package authcode

import (
	"strings"
	"testing"
)

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.SecretKey = testSecretKey
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	base := func() Config {
		cfg := defaultConfig()
		cfg.SecretKey = testSecretKey
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"short secret", func(c *Config) { c.SecretKey = "short" }, "SecretKey"},
		{"zero token age", func(c *Config) { c.TokenMaxAge = 0 }, "TokenMaxAge"},
		{"zero min password", func(c *Config) { c.MinPasswordLength = 0 }, "MinPasswordLength"},
		{"weak argon memory", func(c *Config) { c.Password.Memory = 64 }, "memory"},
		{"empty session key", func(c *Config) { c.Session.CSRFKey = "" }, "non-empty"},
		{"colliding session keys", func(c *Config) { c.Session.SignatureKey = c.Session.Key }, "distinct"},
		{"relative view url", func(c *Config) { c.Views.URLSignIn = "sign-in/" }, "URLSignIn"},
		{"bad throttle budget", func(c *Config) { c.Throttle.Enabled = true; c.Throttle.MaxSignInFails = 0 }, "MaxSignInFails"},
		{"bad throttle cooldown", func(c *Config) { c.Throttle.Enabled = true; c.Throttle.SignInCooldown = 0 }, "SignInCooldown"},
		{"bad audit buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, "BufferSize"},
	}
	for _, tc := range cases {
		cfg := base()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestDisabledViewSkipsURLCheck(t *testing.T) {
	cfg := defaultConfig()
	cfg.SecretKey = testSecretKey
	cfg.Views.ResetPassword = false
	cfg.Views.URLResetPassword = "no-leading-slash"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled view's URL was validated: %v", err)
	}
}
