package authcode

import (
	"context"
	"errors"
)

// SignIn authenticates a login/password pair and attaches the user to the
// session. A session that is already authenticated short-circuits: the
// current user is returned untouched, before any CSRF or credential work.
//
// Every credential failure returns ErrInvalidCredentials without
// distinguishing unknown logins, deleted accounts, and wrong passwords, and
// costs the same hash verification either way.
//
// With throttling enabled, exhausted budgets return ErrSignInRateLimited
// before any credential work, and a Redis outage refuses the sign-in rather
// than skipping the check.
func (a *Auth) SignIn(ctx context.Context, sess *Session, csrfToken, login, secret string) (*User, error) {
	if !a.config.Views.SignIn {
		return nil, ErrSignInDisabled
	}

	current, err := sess.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return current, nil
	}

	if err := sess.CheckCSRF(csrfToken); err != nil {
		return nil, err
	}

	login = a.normalizeLogin(login)

	if err := a.throttle.checkSignIn(ctx, login); err != nil {
		if errors.Is(err, ErrSignInRateLimited) {
			a.metrics.Inc(MetricSignInRateLimited)
			a.emitAudit(ctx, AuditEvent{
				EventType: AuditSignIn,
				Login:     login,
				Error:     err.Error(),
			})
		}
		return nil, err
	}

	user, err := a.authenticate(ctx, login, secret)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Counting the failure matters more than reporting a broken counter;
		// the attempt is refused either way.
		_ = a.throttle.recordSignInFailure(ctx, login)
		a.metrics.Inc(MetricSignInFailure)
		a.emitAudit(ctx, AuditEvent{
			EventType: AuditSignIn,
			Login:     login,
			Error:     ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	if err := a.maybeRehash(user, secret); err != nil {
		return nil, err
	}
	signedIn := a.now()
	user.LastSignIn = &signedIn
	if err := a.users.Save(ctx, user); err != nil {
		return nil, err
	}

	_ = a.throttle.clearSignIn(ctx, login)
	sess.Login(user)

	a.metrics.Inc(MetricSignInSuccess)
	a.emitAudit(ctx, AuditEvent{
		EventType: AuditSignIn,
		UserID:    user.ID,
		Login:     login,
		Success:   true,
	})

	return user, nil
}
