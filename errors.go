package authcode

import "errors"

var (
	// ErrInvalidCredentials is returned by SignIn and ChangePassword when the
	// submitted login/password pair does not match a live account. It is
	// deliberately generic: an unknown login, a soft-deleted user, and a
	// wrong password all produce the same error.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotAuthenticated is returned by flows that require a signed-in
	// session (sign-out, password change) when the session is anonymous.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrCSRFMismatch is returned when a state-changing request carries a
	// missing or stale CSRF token. It is distinct from authentication
	// failures and maps to a forbidden response at the transport boundary.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrWrongToken is returned by ConfirmPasswordReset for every invalid
	// reset token. Malformed, unknown-user, tampered, and expired tokens are
	// not distinguished, to avoid leaking validity information.
	ErrWrongToken = errors.New("wrong reset token")
	// ErrUserNotFound is returned by RequestPasswordReset when no account
	// matches the submitted login. Visible by design: the reset form may
	// tell the user the account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrPasswordTooShort is returned by ChangePassword when the new
	// password is below Config.MinPasswordLength.
	ErrPasswordTooShort = errors.New("new password too short")
	// ErrPasswordMismatch is returned by ChangePassword when the new
	// password and its confirmation differ.
	ErrPasswordMismatch = errors.New("new passwords do not match")
	// ErrSignInDisabled is returned by SignIn when the sign-in view is
	// disabled in Config.Views.
	ErrSignInDisabled = errors.New("sign in disabled")
	// ErrSignOutDisabled is returned by SignOut when the sign-out view is
	// disabled in Config.Views.
	ErrSignOutDisabled = errors.New("sign out disabled")
	// ErrPasswordChangeDisabled is returned by ChangePassword when the
	// change-password view is disabled in Config.Views.
	ErrPasswordChangeDisabled = errors.New("password change disabled")
	// ErrPasswordResetDisabled is returned by the reset flows when the reset
	// view is disabled in Config.Views.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrSignInRateLimited is returned by SignIn when the throttle budget
	// for the login or client IP is exhausted.
	ErrSignInRateLimited = errors.New("sign in rate limited")
	// ErrResetRateLimited is returned by RequestPasswordReset when the reset
	// request budget for the login or client IP is exhausted.
	ErrResetRateLimited = errors.New("password reset rate limited")
	// ErrThrottleUnavailable wraps Redis failures inside the optional
	// throttle. Flows fail closed when the throttle backend is down.
	ErrThrottleUnavailable = errors.New("throttle backend unavailable")
)
