package authcode

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
)

// Session binds the facade to one request's session store and resolves the
// current user lazily. The first CurrentUser call does the lookup and
// signature check; later calls in the same request return the cached
// result. Not safe for concurrent use; make one per request.
type Session struct {
	auth  *Auth
	store SessionStore

	resolved bool
	user     *User
}

// CurrentUser returns the authenticated user for this request, or nil for
// an anonymous session. An anonymous session costs no store lookup. A
// session whose signature no longer matches the user's credential, or
// whose user has vanished, is cleared and reported anonymous.
func (s *Session) CurrentUser(ctx context.Context) (*User, error) {
	if s.resolved {
		return s.user, nil
	}

	raw, ok := s.store.Get(s.auth.config.Session.Key)
	if !ok {
		s.resolved = true
		return nil, nil
	}

	id, ok := parseUserID(raw)
	if !ok {
		s.clearAuth()
		s.resolved = true
		return nil, nil
	}

	user, err := s.auth.findLiveUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.clearAuth()
		s.resolved = true
		return nil, nil
	}

	sig, _ := s.store.Get(s.auth.config.Session.SignatureKey)
	if !s.auth.codec.VerifySessionSignature(identityOf(user), sig) {
		s.clearAuth()
		s.resolved = true
		return nil, nil
	}

	s.user = user
	s.resolved = true
	return user, nil
}

// Login attaches user to the session: it stores the id and a signature
// bound to the current credential, and rotates the CSRF token so nothing
// issued to the anonymous session survives.
func (s *Session) Login(user *User) {
	s.store.Set(s.auth.config.Session.Key, formatUserID(user.ID))
	s.store.Set(s.auth.config.Session.SignatureKey, s.auth.codec.SessionSignature(identityOf(user)))
	s.rotateCSRF()
	s.user = user
	s.resolved = true
}

// Logout detaches the user and every piece of auth-owned state, then
// rotates the CSRF token.
func (s *Session) Logout() {
	s.clearAuth()
	s.store.Delete(s.auth.config.Session.RedirectKey)
	s.rotateCSRF()
	s.user = nil
	s.resolved = true
}

// CSRFToken returns the session's CSRF nonce, minting one on first use.
// Embed it in every state-changing form.
func (s *Session) CSRFToken() string {
	if tok, ok := s.store.Get(s.auth.config.Session.CSRFKey); ok && tok != "" {
		return tok
	}
	return s.rotateCSRF()
}

// CheckCSRF compares a submitted token against the session's nonce in
// constant time. A session with no nonce yet rejects everything.
func (s *Session) CheckCSRF(submitted string) error {
	stored, ok := s.store.Get(s.auth.config.Session.CSRFKey)
	if !ok || stored == "" || submitted == "" {
		return ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// SetNextURL remembers where to send the user after the next successful
// sign-in. Only local paths are kept: anything not starting with "/" is
// dropped, as are "//" and "/\" prefixes, which browsers treat as
// protocol-relative.
func (s *Session) SetNextURL(url string) {
	if len(url) < 1 || url[0] != '/' {
		return
	}
	if len(url) > 1 && (url[1] == '/' || url[1] == '\\') {
		return
	}
	s.store.Set(s.auth.config.Session.RedirectKey, url)
}

// PopNextURL consumes the pending redirect, falling back to the configured
// sign-in redirect target.
func (s *Session) PopNextURL() string {
	key := s.auth.config.Session.RedirectKey
	if url, ok := s.store.Get(key); ok && url != "" {
		s.store.Delete(key)
		return url
	}
	return s.auth.config.Views.SignInRedirect
}

// grantPasswordReset marks the session as arriving through a confirmed
// reset token, letting the next password change skip the current-password
// check.
func (s *Session) grantPasswordReset() {
	s.store.Set(s.auth.config.Session.ResetGrantKey, "1")
}

// HasResetGrant reports whether the session came through a confirmed reset
// token and may change the password without the current one. Hosts use it
// to hide the current-password field.
func (s *Session) HasResetGrant() bool {
	v, ok := s.store.Get(s.auth.config.Session.ResetGrantKey)
	return ok && v == "1"
}

// consumeResetGrant spends the one-shot grant after a successful change.
func (s *Session) consumeResetGrant() {
	s.store.Delete(s.auth.config.Session.ResetGrantKey)
}

func (s *Session) clearAuth() {
	s.store.Delete(s.auth.config.Session.Key)
	s.store.Delete(s.auth.config.Session.SignatureKey)
	s.store.Delete(s.auth.config.Session.ResetGrantKey)
}

func (s *Session) rotateCSRF() string {
	tok := uuid.NewString()
	s.store.Set(s.auth.config.Session.CSRFKey, tok)
	return tok
}
