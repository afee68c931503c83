package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/notedash/internal/apperr"
	"github.com/starford/notedash/internal/remote"
	"github.com/starford/notedash/internal/session"
	"github.com/starford/notedash/internal/testutil"
)

type countingView struct{ n int }

func (v *countingView) Invalidate() { v.n++ }

func setup(t *testing.T) (*Service, *testutil.FakeAPI, *session.Store, *countingView) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	client, err := remote.New(fake.URL())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(testutil.TestStorage(t), logger)
	view := &countingView{}
	return New(client, store, logger, view), fake, store, view
}

func TestSignup_ValidatesBeforeSending(t *testing.T) {
	svc, fake, _, _ := setup(t)
	cases := []struct {
		name string
		form SignupForm
		msg  string
	}{
		{"missing field", SignupForm{Username: "ada", Email: "ada@example.com", Password: "pw"}, "All fields are required."},
		{"mismatch", SignupForm{Username: "ada", Email: "ada@example.com", Password: "pw", ConfirmPassword: "px"}, "Passwords do not match."},
		{"bad email", SignupForm{Username: "ada", Email: "ada-at-example", Password: "pw", ConfirmPassword: "pw"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.form)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tc.msg != "" && apperr.Message(err) != tc.msg {
				t.Errorf("message = %q", apperr.Message(err))
			}
		})
	}
	if fake.Calls(testutil.OpCreateAccount) != 0 {
		t.Error("invalid forms reached the server")
	}
}

func TestSignup_DoesNotLogIn(t *testing.T) {
	svc, _, store, _ := setup(t)
	user, err := svc.Signup(context.Background(), SignupForm{
		Username: "ada", Email: "ada@example.com", Password: "pw", ConfirmPassword: "pw",
	})
	if err != nil {
		t.Fatal(err)
	}
	if user.ID == "" || user.Username != "ada" {
		t.Errorf("user = %+v", user)
	}
	if store.Authenticated() {
		t.Error("signup must not authenticate")
	}

	_, err = svc.Signup(context.Background(), SignupForm{
		Username: "ada", Email: "other@example.com", Password: "pw", ConfirmPassword: "pw",
	})
	if apperr.Message(err) != "Username already exists" {
		t.Errorf("duplicate signup: %v", err)
	}
}

func TestLoginAndLogout(t *testing.T) {
	svc, fake, store, view := setup(t)
	fake.AddUser("ada", "ada@example.com", "secret")
	ctx := context.Background()

	if _, err := svc.Login(ctx, LoginForm{Username: "ada"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("blank password: %v", err)
	}
	_, err := svc.Login(ctx, LoginForm{Username: "ada", Password: "wrong"})
	if !errors.Is(err, apperr.ErrUnauthenticated) || apperr.Message(err) != "Invalid username or password" {
		t.Fatalf("bad password: %v", err)
	}
	if store.Authenticated() {
		t.Fatal("failed login must not authenticate")
	}

	user, err := svc.Login(ctx, LoginForm{Username: " ada ", Password: "secret"})
	if err != nil {
		t.Fatal(err)
	}
	if cur, ok := store.Current(); !ok || cur.ID != user.ID {
		t.Errorf("session = %+v, %v", cur, ok)
	}

	if err := svc.Logout(); err != nil {
		t.Fatal(err)
	}
	if store.Authenticated() || view.n != 1 {
		t.Errorf("authenticated=%v invalidations=%d", store.Authenticated(), view.n)
	}
}
