package authcode

import (
	"context"
	"errors"
	"testing"
)

func TestChangePasswordHappyPath(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "old-secret")

	sess, raw := signedInSession(t, auth, store, "meggie", "old-secret")
	csrf := sess.CSRFToken()

	err := auth.ChangePassword(context.Background(), sess, csrf, "old-secret", "new-secret", "new-secret")
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if !auth.hasher.Verify("new-secret", store.users[1].PasswordHash) {
		t.Fatal("stored hash does not verify the new password")
	}

	// This session must survive the change; the signature was re-bound.
	user, err := auth.Session(raw).CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user == nil || user.ID != 1 {
		t.Fatal("session did not survive its own password change")
	}
	if got := auth.MetricsSnapshot().Counters[MetricPasswordChangeSuccess]; got != 1 {
		t.Fatalf("success counter = %d", got)
	}
}

func TestChangePasswordValidationOrder(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "old-secret")

	sess, _ := signedInSession(t, auth, store, "meggie", "old-secret")
	csrf := sess.CSRFToken()
	ctx := context.Background()

	cases := []struct {
		name             string
		csrf             string
		current, np, np2 string
		want             error
	}{
		{"bad csrf", "garbage", "old-secret", "new-secret", "new-secret", ErrCSRFMismatch},
		{"missing current", csrf, "", "new-secret", "new-secret", ErrInvalidCredentials},
		{"wrong current", csrf, "not-it", "new-secret", "new-secret", ErrInvalidCredentials},
		{"too short", csrf, "old-secret", "abc", "abc", ErrPasswordTooShort},
		// Wrong current outranks a short new password.
		{"wrong current and short", csrf, "not-it", "abc", "abc", ErrInvalidCredentials},
		{"mismatch", csrf, "old-secret", "new-secret", "other-secret", ErrPasswordMismatch},
	}
	for _, tc := range cases {
		err := auth.ChangePassword(ctx, sess, tc.csrf, tc.current, tc.np, tc.np2)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: ChangePassword = %v, want %v", tc.name, err, tc.want)
		}
	}

	// None of the failures may have touched the stored credential.
	if !auth.hasher.Verify("old-secret", store.users[1].PasswordHash) {
		t.Fatal("a failed change modified the stored hash")
	}
}

func TestChangePasswordDisabledView(t *testing.T) {
	store := newMemoryUserStore()

	cfg := testConfig()
	cfg.Views.ChangePassword = false
	auth, err := New().WithConfig(cfg).WithUserStore(store).WithMailer(&mockMailer{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer auth.Close()
	seedUser(t, auth, store, 1, "meggie", "old-secret")

	sess, _ := signedInSession(t, auth, store, "meggie", "old-secret")

	err = auth.ChangePassword(context.Background(), sess, sess.CSRFToken(), "old-secret", "new-secret", "new-secret")
	if !errors.Is(err, ErrPasswordChangeDisabled) {
		t.Fatalf("ChangePassword with the view disabled = %v, want ErrPasswordChangeDisabled", err)
	}
	if !auth.hasher.Verify("old-secret", store.users[1].PasswordHash) {
		t.Fatal("disabled change-password modified the stored hash")
	}
}

func TestChangePasswordRequiresAuthentication(t *testing.T) {
	auth := newTestAuth(t, newMemoryUserStore(), nil)
	sess := auth.Session(mapSession{})

	err := auth.ChangePassword(context.Background(), sess, "x", "a", "new-secret", "new-secret")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("ChangePassword = %v, want ErrNotAuthenticated", err)
	}
}

func TestChangePasswordKillsOtherSessions(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "old-secret")

	_, otherRaw := signedInSession(t, auth, store, "meggie", "old-secret")
	sess, _ := signedInSession(t, auth, store, "meggie", "old-secret")

	err := auth.ChangePassword(context.Background(), sess, sess.CSRFToken(), "old-secret", "new-secret", "new-secret")
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	user, err := auth.Session(otherRaw).CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user != nil {
		t.Fatal("a session bound to the old credential survived the change")
	}
}

func TestChangePasswordWithResetGrantSkipsCurrentPassword(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	user := seedUser(t, auth, store, 1, "meggie", "forgotten")

	raw := mapSession{}
	sess := auth.Session(raw)
	if _, err := auth.ConfirmPasswordReset(context.Background(), sess, auth.ResetToken(user)); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if !sess.HasResetGrant() {
		t.Fatal("expected a reset grant after token confirmation")
	}

	csrf := sess.CSRFToken()
	err := auth.ChangePassword(context.Background(), sess, csrf, "", "new-secret", "new-secret")
	if err != nil {
		t.Fatalf("ChangePassword under reset grant failed: %v", err)
	}
	if !auth.hasher.Verify("new-secret", store.users[1].PasswordHash) {
		t.Fatal("new password not stored")
	}

	// The grant is one-shot: the next change needs the current password again.
	if sess.HasResetGrant() {
		t.Fatal("reset grant survived a successful change")
	}
	err = auth.ChangePassword(context.Background(), sess, sess.CSRFToken(), "", "another-one", "another-one")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("second change without current password = %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePasswordGrantSurvivesFailedAttempts(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	user := seedUser(t, auth, store, 1, "meggie", "forgotten")

	sess := auth.Session(mapSession{})
	if _, err := auth.ConfirmPasswordReset(context.Background(), sess, auth.ResetToken(user)); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	csrf := sess.CSRFToken()

	// Validation failures do not spend the grant.
	if err := auth.ChangePassword(context.Background(), sess, csrf, "", "abc", "abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password = %v", err)
	}
	if err := auth.ChangePassword(context.Background(), sess, csrf, "", "new-secret", "nope"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("mismatch = %v", err)
	}

	if err := auth.ChangePassword(context.Background(), sess, csrf, "", "new-secret", "new-secret"); err != nil {
		t.Fatalf("change after failed attempts = %v", err)
	}
}
