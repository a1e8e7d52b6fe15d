package authcode

import (
	"context"
	"errors"
	"testing"
)

func TestSignInSuccess(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "foobar")

	raw := mapSession{}
	sess := auth.Session(raw)
	user, err := auth.SignIn(context.Background(), sess, sess.CSRFToken(), "meggie", "foobar")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("signed in as user %d", user.ID)
	}

	if raw[auth.config.Session.Key] != "1" {
		t.Fatalf("session user id = %q", raw[auth.config.Session.Key])
	}
	if raw[auth.config.Session.SignatureKey] == "" {
		t.Fatal("session signature missing")
	}
	if got := auth.MetricsSnapshot().Counters[MetricSignInSuccess]; got != 1 {
		t.Fatalf("success counter = %d", got)
	}
}

func TestSignInDisabledView(t *testing.T) {
	store := newMemoryUserStore()

	cfg := testConfig()
	cfg.Views.SignIn = false
	auth, err := New().WithConfig(cfg).WithUserStore(store).WithMailer(&mockMailer{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer auth.Close()
	seedUser(t, auth, store, 1, "meggie", "foobar")

	raw := mapSession{}
	sess := auth.Session(raw)
	_, err = auth.SignIn(context.Background(), sess, sess.CSRFToken(), "meggie", "foobar")
	if !errors.Is(err, ErrSignInDisabled) {
		t.Fatalf("SignIn with the view disabled = %v, want ErrSignInDisabled", err)
	}
	if _, ok := raw[auth.config.Session.Key]; ok {
		t.Fatal("disabled sign-in established a session")
	}
}

func TestSignInRequiresCSRF(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "foobar")

	raw := mapSession{}
	sess := auth.Session(raw)
	sess.CSRFToken()

	for _, submitted := range []string{"", "stale-token"} {
		_, err := auth.SignIn(context.Background(), sess, submitted, "meggie", "foobar")
		if !errors.Is(err, ErrCSRFMismatch) {
			t.Fatalf("SignIn(%q) = %v, want ErrCSRFMismatch", submitted, err)
		}
	}
	if _, ok := raw[auth.config.Session.Key]; ok {
		t.Fatal("CSRF-refused sign-in established a session")
	}
}

func TestSignInShortCircuitsWhenAuthenticated(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "foobar")
	seedUser(t, auth, store, 2, "tuco", "qwerty")

	sess, raw := signedInSession(t, auth, store, "meggie", "foobar")

	// Another sign-in on the same session is a no-op: the current user comes
	// back regardless of the submitted credentials, and no CSRF is needed.
	user, err := auth.SignIn(context.Background(), sess, "", "tuco", "qwerty")
	if err != nil {
		t.Fatalf("SignIn on an authenticated session failed: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("short-circuit returned user %d, want the signed-in user 1", user.ID)
	}
	if raw[auth.config.Session.Key] != "1" {
		t.Fatal("short-circuit modified the session")
	}
}

func TestSignInNormalizesLogin(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "foobar")

	if _, err := trySignIn(context.Background(), auth, "  MEGGIE ", "foobar"); err != nil {
		t.Fatalf("SignIn with unnormalized login failed: %v", err)
	}
}

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "foobar")

	deleted := seedUser(t, auth, store, 2, "gone", "foobar")
	store.users[deleted.ID].Deleted = true
	store.users[3] = &User{ID: 3, Login: "nopass"}

	cases := []struct {
		name   string
		login  string
		secret string
	}{
		{"wrong password", "meggie", "wrong"},
		{"unknown login", "ghost", "foobar"},
		{"soft-deleted user", "gone", "foobar"},
		{"account without password", "nopass", ""},
	}
	for _, tc := range cases {
		raw := mapSession{}
		sess := auth.Session(raw)
		_, err := auth.SignIn(context.Background(), sess, sess.CSRFToken(), tc.login, tc.secret)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: SignIn = %v, want ErrInvalidCredentials", tc.name, err)
		}
		if _, ok := raw[auth.config.Session.Key]; ok {
			t.Fatalf("%s: failed sign-in left a user id in the session", tc.name)
		}
	}

	if got := auth.MetricsSnapshot().Counters[MetricSignInFailure]; got != uint64(len(cases)) {
		t.Fatalf("failure counter = %d, want %d", got, len(cases))
	}
}

func TestSignInStoreErrorPropagates(t *testing.T) {
	store := newMemoryUserStore()
	auth := newTestAuth(t, store, nil)
	seedUser(t, auth, store, 1, "meggie", "foobar")

	boom := errors.New("disk on fire")
	store.saveErr = boom

	_, err := trySignIn(context.Background(), auth, "meggie", "foobar")
	if !errors.Is(err, boom) {
		t.Fatalf("SignIn = %v, want the store error", err)
	}
}

func TestSignInEmitsAuditEvents(t *testing.T) {
	store := newMemoryUserStore()

	sink := NewChannelSink(8)
	auth, err := New().
		WithConfig(testConfig()).
		WithUserStore(store).
		WithMailer(&mockMailer{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	seedUser(t, auth, store, 1, "meggie", "foobar")

	ctx := WithClientIP(context.Background(), "10.1.2.3")
	if _, err := trySignIn(ctx, auth, "meggie", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("SignIn = %v", err)
	}
	if _, err := trySignIn(ctx, auth, "meggie", "foobar"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	auth.Close() // drains the dispatcher

	failure := <-sink.Events()
	if failure.EventType != AuditSignIn || failure.Success || failure.IP != "10.1.2.3" {
		t.Fatalf("unexpected failure event: %+v", failure)
	}
	success := <-sink.Events()
	if !success.Success || success.UserID != 1 {
		t.Fatalf("unexpected success event: %+v", success)
	}
}
