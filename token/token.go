package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned by Verify when the token does not parse into
	// the expected three segments.
	ErrMalformed = errors.New("malformed token")
	// ErrUserNotFound is returned by Verify when the lookup yields no live
	// user for the decoded id.
	ErrUserNotFound = errors.New("token user not found")
	// ErrTampered is returned by Verify when the fingerprint does not match
	// the current user state: the token was altered, or the credential it
	// was bound to has changed since minting.
	ErrTampered = errors.New("token tampered or stale")
	// ErrExpired is returned by Verify when the token's age is negative or
	// exceeds the configured maximum.
	ErrExpired = errors.New("token expired")
)

const (
	segmentSep = "."

	tokenDomain     = "tok"
	signatureDomain = "sig"

	// Token fingerprints are truncated to 20 of the 32 HMAC-SHA256 bytes;
	// session signatures keep the full digest.
	tokenMACSize = 20
)

// Identity is the slice of user state a token binds to. PasswordHash is the
// opaque encoded credential; including it is what invalidates tokens on
// password change.
type Identity struct {
	ID           int64
	Login        string
	PasswordHash string
}

// Lookup resolves a decoded user id to current state during verification.
// Returning (nil, nil) means no live user exists for the id. Errors
// propagate out of Verify untouched.
type Lookup func(ctx context.Context, id int64) (*Identity, error)

// Codec mints and verifies tokens with a fixed secret and age window. The
// zero value is unusable; construct with New.
type Codec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// New returns a codec signing with secret and accepting tokens up to maxAge
// old.
func New(secret []byte, maxAge time.Duration) *Codec {
	return &Codec{
		secret: append([]byte(nil), secret...),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// WithNow overrides the codec's clock. For tests.
func (c *Codec) WithNow(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Mint builds a token for u issued at the given time. A zero issuedAt means
// now. Mint is deterministic: identical identity, secret, and timestamp
// always produce the same token.
func (c *Codec) Mint(u Identity, issuedAt time.Time) string {
	if issuedAt.IsZero() {
		issuedAt = c.now()
	}
	ts := issuedAt.Unix()

	mac := c.fingerprint(tokenDomain, u, ts)[:tokenMACSize]

	var b strings.Builder
	b.WriteString(strconv.FormatInt(u.ID, 36))
	b.WriteString(segmentSep)
	b.WriteString(strconv.FormatInt(ts, 36))
	b.WriteString(segmentSep)
	b.WriteString(base64.RawURLEncoding.EncodeToString(mac))
	return b.String()
}

// Verify parses and checks a token. The checks run in a fixed order:
// structure, then user lookup, then a constant-time fingerprint comparison
// against current user state, then the age window. The first failure wins.
func (c *Codec) Verify(ctx context.Context, tok string, lookup Lookup) (*Identity, error) {
	id, ts, mac, err := parse(tok)
	if err != nil {
		return nil, err
	}

	u, err := lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	expected := c.fingerprint(tokenDomain, *u, ts)[:tokenMACSize]
	if !hmac.Equal(mac, expected) {
		return nil, ErrTampered
	}

	age := c.now().Sub(time.Unix(ts, 0))
	if age < 0 || age > c.maxAge {
		return nil, ErrExpired
	}

	return u, nil
}

// SessionSignature returns the keyed hash bound to u's current credential,
// stored by the session binder next to the user id. It carries no timestamp
// and stays valid until the login or password hash changes.
func (c *Codec) SessionSignature(u Identity) string {
	mac := c.fingerprint(signatureDomain, u, 0)
	return base64.RawURLEncoding.EncodeToString(mac)
}

// VerifySessionSignature compares a stored signature against u's current
// state in constant time.
func (c *Codec) VerifySessionSignature(u Identity, stored string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(stored)
	if err != nil {
		return false
	}
	return hmac.Equal(raw, c.fingerprint(signatureDomain, u, 0))
}

func (c *Codec) fingerprint(domain string, u Identity, ts int64) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(u.ID, 10)))
	h.Write([]byte{0})
	h.Write([]byte(u.Login))
	h.Write([]byte{0})
	h.Write([]byte(u.PasswordHash))
	if domain == tokenDomain {
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(ts, 10)))
	}
	return h.Sum(nil)
}

func parse(tok string) (id, ts int64, mac []byte, err error) {
	parts := strings.Split(tok, segmentSep)
	if len(parts) != 3 {
		return 0, 0, nil, ErrMalformed
	}

	id, err = strconv.ParseInt(parts[0], 36, 64)
	if err != nil || id <= 0 {
		return 0, 0, nil, ErrMalformed
	}

	ts, err = strconv.ParseInt(parts[1], 36, 64)
	if err != nil || ts < 0 {
		return 0, 0, nil, ErrMalformed
	}

	mac, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(mac) != tokenMACSize {
		return 0, 0, nil, ErrMalformed
	}

	return id, ts, mac, nil
}
