package authcode

import "context"

// ChangePassword replaces the current user's password. The checks run in a
// fixed order: authentication, CSRF, current password, length of the new
// password, then confirmation match.
//
// A session that arrived through a confirmed reset token holds a one-shot
// grant and skips the current-password check; the grant is spent by the
// first successful change. On success the session signature is refreshed,
// so this session survives while every other session and outstanding reset
// token for the user dies with the old hash.
func (a *Auth) ChangePassword(ctx context.Context, sess *Session, csrfToken, currentPassword, newPassword, confirm string) error {
	if !a.config.Views.ChangePassword {
		return ErrPasswordChangeDisabled
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

	if !sess.HasResetGrant() {
		if !a.hasher.Verify(currentPassword, user.PasswordHash) {
			a.metrics.Inc(MetricPasswordChangeFailure)
			a.emitAudit(ctx, AuditEvent{
				EventType: AuditPasswordChange,
				UserID:    user.ID,
				Login:     user.Login,
				Error:     ErrInvalidCredentials.Error(),
			})
			return ErrInvalidCredentials
		}
	}

	if len(newPassword) < a.config.MinPasswordLength {
		a.metrics.Inc(MetricPasswordChangeFailure)
		return ErrPasswordTooShort
	}
	if newPassword != confirm {
		a.metrics.Inc(MetricPasswordChangeFailure)
		return ErrPasswordMismatch
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := a.users.Save(ctx, user); err != nil {
		return err
	}

	// Re-bind the session to the new credential before anything reads it.
	sess.Login(user)
	sess.consumeResetGrant()
	_ = a.throttle.clearSignIn(ctx, a.normalizeLogin(user.Login))

	a.metrics.Inc(MetricPasswordChangeSuccess)
	a.emitAudit(ctx, AuditEvent{
		EventType: AuditPasswordChange,
		UserID:    user.ID,
		Login:     user.Login,
		Success:   true,
	})

	return nil
}
