package authcode

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jpscaletti/authcode/password"
	"github.com/jpscaletti/authcode/token"
)

// timeNow is the facade's default clock; tests swap the per-instance copy.
var timeNow = time.Now

// Auth is the authentication facade. It owns no storage: users live behind
// the host's UserStore and per-request state behind the host's SessionStore.
// Construct it with [New]; a built Auth is immutable and safe for concurrent
// use.
type Auth struct {
	config   Config
	users    UserStore
	mailer   Mailer
	hasher   *password.Argon2
	codec    *token.Codec
	throttle *throttle
	audit    *auditDispatcher
	metrics  *Metrics
	now      func() time.Time

	// dummyHash is verified against when a sign-in names an unknown login,
	// so the response time does not reveal whether the account exists.
	dummyHash string
}

// Session binds the facade to one request's session store. Cheap to create;
// make one per request and discard it.
func (a *Auth) Session(store SessionStore) *Session {
	return &Session{auth: a, store: store}
}

// Config returns a copy of the active configuration.
func (a *Auth) Config() Config {
	return a.config
}

// SetPassword hashes secret and stores it on user, persisting the change.
// It applies no length policy; that belongs to the interactive
// ChangePassword flow. Passing an empty secret clears the password, which
// disables sign-in for the account.
func (a *Auth) SetPassword(ctx context.Context, user *User, secret string) error {
	if secret == "" {
		user.PasswordHash = ""
		return a.users.Save(ctx, user)
	}

	hash, err := a.hasher.Hash(secret)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return a.users.Save(ctx, user)
}

// ResetToken mints a password-reset token bound to user's current
// credential. It expires after Config.TokenMaxAge and dies early if the
// password changes first.
func (a *Auth) ResetToken(user *User) string {
	return a.codec.Mint(identityOf(user), a.now())
}

// ResetURL returns the confirmation path for a freshly minted reset token,
// ready to be embedded in the reset email.
func (a *Auth) ResetURL(user *User) string {
	base := a.config.Views.URLResetPassword
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + a.ResetToken(user) + "/"
}

// MetricsSnapshot returns the current flow counters. All zeros when metrics
// are disabled.
func (a *Auth) MetricsSnapshot() MetricsSnapshot {
	return a.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (a *Auth) AuditDropped() uint64 {
	return a.audit.Dropped()
}

// Close drains and stops the audit dispatcher. Call it once during
// shutdown; the facade is unusable afterwards.
func (a *Auth) Close() {
	a.audit.Close()
}

// normalizeLogin trims surrounding whitespace and, when configured,
// lowercases the login before any lookup or throttle key derivation.
func (a *Auth) normalizeLogin(login string) string {
	login = strings.TrimSpace(login)
	if a.config.CaseInsensitiveLogins {
		login = strings.ToLower(login)
	}
	return login
}

// findLiveUserByLogin resolves a normalized login to a non-deleted user, or
// (nil, nil) when no such account exists.
func (a *Auth) findLiveUserByLogin(ctx context.Context, login string) (*User, error) {
	user, err := a.users.FindUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted {
		return nil, nil
	}
	return user, nil
}

// findLiveUserByID resolves an id to a non-deleted user, or (nil, nil).
func (a *Auth) findLiveUserByID(ctx context.Context, id int64) (*User, error) {
	user, err := a.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Deleted {
		return nil, nil
	}
	return user, nil
}

// authenticate checks a login/password pair against the store. It returns
// (nil, nil) for every credential failure so callers collapse them into one
// generic error, and burns a hash verification even for unknown logins to
// keep response timing uniform.
func (a *Auth) authenticate(ctx context.Context, login, secret string) (*User, error) {
	user, err := a.findLiveUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil || user.PasswordHash == "" {
		a.hasher.Verify(secret, a.dummyHash)
		return nil, nil
	}
	if !a.hasher.Verify(secret, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

// maybeRehash upgrades user's stored hash in place when it predates the
// current cost parameters. The caller persists the user afterwards.
func (a *Auth) maybeRehash(user *User, secret string) error {
	if !a.config.RehashOnSignIn || !a.hasher.NeedsRehash(user.PasswordHash) {
		return nil
	}
	hash, err := a.hasher.Hash(secret)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

func (a *Auth) emitAudit(ctx context.Context, event AuditEvent) {
	if a.audit == nil {
		return
	}
	event.Timestamp = a.now().UTC()
	event.IP = clientIPFromContext(ctx)
	a.audit.Emit(ctx, event)
}

func identityOf(user *User) token.Identity {
	return token.Identity{
		ID:           user.ID,
		Login:        user.Login,
		PasswordHash: user.PasswordHash,
	}
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseUserID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
