package authcode

import (
	"context"
	"strings"
	"time"
)

// User is the account record the core reads and writes. The host owns
// storage and may embed User in a wider row type; only the fields below are
// touched by authcode.
//
// PasswordHash holds the opaque encoded hash produced by the password
// subpackage, never plaintext. An empty PasswordHash means the account has
// no password and cannot sign in.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	LastSignIn   *time.Time
	Deleted      bool
	Roles        []string
}

// HasRole reports whether the user has any of the named roles. Names are
// compared after trimming surrounding whitespace.
func (u *User) HasRole(names ...string) bool {
	if u == nil {
		return false
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		for _, role := range u.Roles {
			if strings.TrimSpace(role) == name {
				return true
			}
		}
	}
	return false
}

// AddRole adds a role by name if the user does not already have it.
func (u *User) AddRole(name string) {
	name = strings.TrimSpace(name)
	if name == "" || u.HasRole(name) {
		return
	}
	u.Roles = append(u.Roles, name)
}

// RemoveRole removes a role by name. Removing an absent role is a no-op.
func (u *User) RemoveRole(name string) {
	name = strings.TrimSpace(name)
	for i, role := range u.Roles {
		if strings.TrimSpace(role) == name {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return
		}
	}
}

// UserStore is the persistence collaborator that callers must implement to
// integrate authcode with their user database. The core never issues raw
// queries.
//
// Find methods return (nil, nil) when no user matches; errors are reserved
// for infrastructure failures and propagate unhandled to the host.
type UserStore interface {
	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindUserByLogin(ctx context.Context, login string) (*User, error)
	Save(ctx context.Context, user *User) error
}

// SessionStore is the host-owned per-request key-value session, typically
// cookie-backed. Lifetime and persistence are the host's concern; authcode
// only reads and writes its own keys (see SessionConfig).
type SessionStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Mailer delivers the password-reset message. Send is called synchronously
// by RequestPasswordReset; delivery failures are returned as-is and never
// retried by the core.
type Mailer interface {
	Send(ctx context.Context, user *User, subject, body string) error
}
