package authcode

import "context"

// SignOut detaches the current user from the session. It requires an
// authenticated session and a valid CSRF token, in that order: an anonymous
// caller learns nothing about CSRF state, and a missing token leaves the
// session signed in.
func (a *Auth) SignOut(ctx context.Context, sess *Session, csrfToken string) error {
	if !a.config.Views.SignOut {
		return ErrSignOutDisabled
	}

	user, err := sess.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotAuthenticated
	}

	if err := sess.CheckCSRF(csrfToken); err != nil {
		return err
	}

	sess.Logout()

	a.metrics.Inc(MetricSignOut)
	a.emitAudit(ctx, AuditEvent{
		EventType: AuditSignOut,
		UserID:    user.ID,
		Login:     user.Login,
		Success:   true,
	})

	return nil
}
