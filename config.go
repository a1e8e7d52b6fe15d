package authcode

import (
	"errors"
	"strings"
	"time"

	"github.com/jpscaletti/authcode/password"
)

// Config holds the process-wide settings for an [Auth] instance. It is fixed
// at Build time and read-only thereafter.
type Config struct {
	// SecretKey signs every token and session signature. Required,
	// high-entropy, at least 32 bytes. Rotating it invalidates all
	// outstanding tokens and sessions.
	SecretKey string

	// TokenMaxAge bounds the age of password-reset tokens.
	TokenMaxAge time.Duration

	// MinPasswordLength is enforced by ChangePassword on new passwords.
	MinPasswordLength int

	// CaseInsensitiveLogins lowercases logins before lookup. Logins are
	// always whitespace-trimmed.
	CaseInsensitiveLogins bool

	// RehashOnSignIn re-hashes the password after a successful sign-in when
	// the stored hash was produced with weaker parameters than Password.
	RehashOnSignIn bool

	Password password.Config
	Session  SessionConfig
	Views    ViewsConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

// SessionConfig names the keys authcode owns inside the host session store.
type SessionConfig struct {
	Key           string // authenticated user id
	SignatureKey  string // credential-bound session signature
	CSRFKey       string // per-session CSRF nonce
	RedirectKey   string // pending post-sign-in redirect URL
	ResetGrantKey string // one-shot grant set by a confirmed reset token
}

// ViewsConfig carries the route paths, redirect targets, and enable flags
// consumed by host adapters when registering the auth views. Disabling a
// view also disables the matching flow in the facade.
type ViewsConfig struct {
	SignIn         bool
	SignOut        bool
	ChangePassword bool
	ResetPassword  bool

	URLSignIn         string
	URLSignOut        string
	URLChangePassword string
	URLResetPassword  string

	SignInRedirect  string
	SignOutRedirect string

	ResetEmailSubject string
}

// ThrottleConfig tunes the optional Redis-backed fixed-window counters for
// sign-in failures and reset requests. Enabling it requires a Redis client
// on the builder.
type ThrottleConfig struct {
	Enabled          bool
	PerIP            bool // also count per client IP (see WithClientIP)
	MaxSignInFails   int
	SignInCooldown   time.Duration
	MaxResetRequests int
	ResetCooldown    time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process flow counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		TokenMaxAge:           24 * time.Hour,
		MinPasswordLength:     5,
		CaseInsensitiveLogins: true,
		RehashOnSignIn:        true,
		Password: password.Config{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Session: SessionConfig{
			Key:           "_auth_uid",
			SignatureKey:  "_auth_sig",
			CSRFKey:       "_csrf_token",
			RedirectKey:   "_redirect",
			ResetGrantKey: "_reset_grant",
		},
		Views: ViewsConfig{
			SignIn:            true,
			SignOut:           true,
			ChangePassword:    true,
			ResetPassword:     true,
			URLSignIn:         "/sign-in/",
			URLSignOut:        "/sign-out/",
			URLChangePassword: "/change-password/",
			URLResetPassword:  "/reset-password/",
			SignInRedirect:    "/",
			SignOutRedirect:   "/",
			ResetEmailSubject: "Reset your password",
		},
		Throttle: ThrottleConfig{
			Enabled:          false,
			PerIP:            true,
			MaxSignInFails:   5,
			SignInCooldown:   15 * time.Minute,
			MaxResetRequests: 5,
			ResetCooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for internal consistency. Build calls
// it; it is exported so hosts can validate ahead of time.
func (c *Config) Validate() error {
	if len(c.SecretKey) < 32 {
		return errors.New("SecretKey must be at least 32 bytes of high-entropy data")
	}
	if c.TokenMaxAge <= 0 {
		return errors.New("TokenMaxAge must be > 0")
	}
	if c.MinPasswordLength < 1 {
		return errors.New("MinPasswordLength must be >= 1")
	}

	if err := c.Password.Validate(); err != nil {
		return err
	}

	keys := []string{
		c.Session.Key,
		c.Session.SignatureKey,
		c.Session.CSRFKey,
		c.Session.RedirectKey,
		c.Session.ResetGrantKey,
	}
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key == "" {
			return errors.New("session keys must be non-empty")
		}
		if seen[key] {
			return errors.New("session keys must be distinct")
		}
		seen[key] = true
	}

	urls := map[string]struct {
		enabled bool
		value   string
	}{
		"URLSignIn":         {c.Views.SignIn, c.Views.URLSignIn},
		"URLSignOut":        {c.Views.SignOut, c.Views.URLSignOut},
		"URLChangePassword": {c.Views.ChangePassword, c.Views.URLChangePassword},
		"URLResetPassword":  {c.Views.ResetPassword, c.Views.URLResetPassword},
	}
	for name, u := range urls {
		if u.enabled && !strings.HasPrefix(u.value, "/") {
			return errors.New("Views " + name + " must start with '/'")
		}
	}

	if c.Throttle.Enabled {
		if c.Throttle.MaxSignInFails <= 0 {
			return errors.New("Throttle MaxSignInFails must be > 0")
		}
		if c.Throttle.SignInCooldown <= 0 {
			return errors.New("Throttle SignInCooldown must be > 0")
		}
		if c.Throttle.MaxResetRequests <= 0 {
			return errors.New("Throttle MaxResetRequests must be > 0")
		}
		if c.Throttle.ResetCooldown <= 0 {
			return errors.New("Throttle ResetCooldown must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
