package authcode

import (
	"context"
	"errors"
	"fmt"

	"github.com/jpscaletti/authcode/token"
)

// RequestPasswordReset emails a one-time reset link to the account behind
// login. Unknown logins return ErrUserNotFound; the reset form is allowed
// to say the account does not exist. Every request spends throttle budget,
// successful or not, because each one can cost an outbound email.
func (a *Auth) RequestPasswordReset(ctx context.Context, login string) error {
	if !a.config.Views.ResetPassword {
		return ErrPasswordResetDisabled
	}

	login = a.normalizeLogin(login)

	if err := a.throttle.checkAndRecordReset(ctx, login); err != nil {
		if errors.Is(err, ErrResetRateLimited) {
			a.emitAudit(ctx, AuditEvent{
				EventType: AuditResetRequest,
				Login:     login,
				Error:     err.Error(),
			})
		}
		return err
	}

	user, err := a.findLiveUserByLogin(ctx, login)
	if err != nil {
		return err
	}
	if user == nil {
		a.emitAudit(ctx, AuditEvent{
			EventType: AuditResetRequest,
			Login:     login,
			Error:     ErrUserNotFound.Error(),
		})
		return ErrUserNotFound
	}

	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Someone requested that the password be reset for your account.\n"+
			"If it was you, open this link to choose a new password:\n\n"+
			"    %s\n\n"+
			"The link expires in %s and works only while your current password\n"+
			"is unchanged. If you did not ask for this, ignore this message.\n",
		user.Login, a.ResetURL(user), a.config.TokenMaxAge,
	)
	if err := a.mailer.Send(ctx, user, a.config.Views.ResetEmailSubject, body); err != nil {
		return err
	}

	a.metrics.Inc(MetricResetRequest)
	a.emitAudit(ctx, AuditEvent{
		EventType: AuditResetRequest,
		UserID:    user.ID,
		Login:     login,
		Success:   true,
	})

	return nil
}

// ConfirmPasswordReset validates a reset token from an email link. A valid
// token signs the user in and grants a one-shot password change without the
// current password. Every invalid token, whatever the cause, returns
// ErrWrongToken; only store failures surface as themselves.
func (a *Auth) ConfirmPasswordReset(ctx context.Context, sess *Session, resetToken string) (*User, error) {
	if !a.config.Views.ResetPassword {
		return nil, ErrPasswordResetDisabled
	}

	identity, err := a.codec.Verify(ctx, resetToken, func(ctx context.Context, id int64) (*token.Identity, error) {
		user, err := a.findLiveUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, nil
		}
		ident := identityOf(user)
		return &ident, nil
	})
	if err != nil {
		if isTokenRejection(err) {
			a.metrics.Inc(MetricResetConfirmFailure)
			a.emitAudit(ctx, AuditEvent{
				EventType: AuditResetConfirm,
				Error:     err.Error(),
			})
			return nil, ErrWrongToken
		}
		return nil, err
	}

	user, err := a.findLiveUserByID(ctx, identity.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrWrongToken
	}

	// A confirmed token is a sign-in; it counts like one.
	signedIn := a.now()
	user.LastSignIn = &signedIn
	if err := a.users.Save(ctx, user); err != nil {
		return nil, err
	}

	sess.Login(user)
	sess.grantPasswordReset()

	a.metrics.Inc(MetricResetConfirmSuccess)
	a.emitAudit(ctx, AuditEvent{
		EventType: AuditResetConfirm,
		UserID:    user.ID,
		Login:     user.Login,
		Success:   true,
	})

	return user, nil
}

// isTokenRejection separates "this token is bad" from "the store broke".
func isTokenRejection(err error) bool {
	return errors.Is(err, token.ErrMalformed) ||
		errors.Is(err, token.ErrUserNotFound) ||
		errors.Is(err, token.ErrTampered) ||
		errors.Is(err, token.ErrExpired)
}
