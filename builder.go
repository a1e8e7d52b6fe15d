package authcode

import (
	"errors"

	"github.com/jpscaletti/authcode/password"
	"github.com/jpscaletti/authcode/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Auth] instance. Collaborators are attached with the
// With methods; Build validates the result and wires everything together. A
// builder is single-use.
type Builder struct {
	config Config
	users  UserStore
	mailer Mailer
	redis  redis.UniversalClient
	sink   AuditSink

	built bool
}

// New returns a builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration. Call it before the narrower
// With methods or it will overwrite them.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithSecretKey sets the signing key for tokens and session signatures.
func (b *Builder) WithSecretKey(key string) *Builder {
	b.config.SecretKey = key
	return b
}

// WithUserStore attaches the host's persistence collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithMailer attaches the reset-email sender. Required only when the
// password-reset view is enabled.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithRedis attaches the Redis client backing the optional throttle
// counters. Required only when throttling is enabled; sessions never touch
// Redis.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithThrottle enables Redis-backed rate limiting for sign-in failures and
// reset requests.
func (b *Builder) WithThrottle(enabled bool) *Builder {
	b.config.Throttle.Enabled = enabled
	return b
}

// WithAuditSink enables audit dispatch into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-process flow counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns the assembled facade.
func (b *Builder) Build() (*Auth, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.config.Views.ResetPassword && b.mailer == nil {
		return nil, errors.New("mailer required when password reset is enabled")
	}
	if b.config.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("redis client required when throttling is enabled")
	}

	hasher, err := password.NewArgon2(b.config.Password)
	if err != nil {
		return nil, err
	}

	// Hashed once at build time so unknown-login sign-ins can burn a real
	// verification without paying a hash per request.
	dummyHash, err := hasher.Hash("!decoy-credential!")
	if err != nil {
		return nil, err
	}

	auth := &Auth{
		config:    b.config,
		users:     b.users,
		mailer:    b.mailer,
		hasher:    hasher,
		codec:     token.New([]byte(b.config.SecretKey), b.config.TokenMaxAge),
		metrics:   NewMetrics(b.config.Metrics),
		audit:     newAuditDispatcher(b.config.Audit, b.sink),
		now:       timeNow,
		dummyHash: dummyHash,
	}

	if b.config.Throttle.Enabled {
		auth.throttle = newThrottle(b.redis, b.config.Throttle)
	}

	b.built = true
	return auth, nil
}
