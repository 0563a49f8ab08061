package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
)

var tokenKeyPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

func TestAuthService_RegisterVerifyLoginScenario(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	res := f.register(t, "a@x.com", "pw1")
	if res.User.IsActive || res.User.IsVerified {
		t.Fatalf("expected new user inactive and unverified, got %+v", res.User)
	}

	if _, err := f.auth.Authenticate(ctx, "a@x.com", "pw1"); !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("expected ErrAccountNotActive, got %v", err)
	}

	key := linkKey(t, f.sender.last(t).Body, "/verify-email/")
	verified, err := f.verification.ConfirmVerification(ctx, key)
	if err != nil {
		t.Fatalf("confirm verification failed: %v", err)
	}
	if !verified.IsVerified || verified.Email != "a@x.com" {
		t.Fatalf("unexpected verified snapshot %+v", verified)
	}

	payload, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if payload.Token != key {
		t.Fatalf("expected login token to reuse verification token %s, got %s", key, payload.Token)
	}

	checked, err := f.auth.VerifyToken(ctx, payload.Token)
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}
	if checked.Email != "a@x.com" || checked.Token != payload.Token {
		t.Fatalf("expected round-trip identity, got %+v", checked)
	}
}

func TestAuthService_CredentialCheckPrecedesStateGates(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	f.register(t, "user@example.com", "secret-pass")

	_, err := f.auth.Authenticate(ctx, "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password on inactive account, got %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "missing@example.com", "secret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, "user@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
	if f.tokens.created != 1 {
		t.Fatalf("expected only the registration token, got %d tokens", f.tokens.created)
	}
}

func TestAuthService_ActiveButUnverified(t *testing.T) {
	f := newFixture(nil)
	res := f.register(t, "user@example.com", "secret-pass")

	user, _ := f.users.GetByID(context.Background(), res.User.ID)
	user.IsActive = true
	_ = f.users.Update(context.Background(), user)

	_, err := f.auth.Authenticate(context.Background(), "user@example.com", "secret-pass")
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestAuthService_TokenIsStableAcrossLogins(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	if _, err := f.accounts.CreateSuperuser(ctx, RegisterInput{
		Email: "Admin@Example.com ", Password: "pw", ConfirmPassword: "pw", FirstName: "Root", LastName: "Admin",
	}); err != nil {
		t.Fatalf("create superuser failed: %v", err)
	}

	first, err := f.auth.Authenticate(ctx, "admin@example.com", "pw")
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := f.auth.Authenticate(ctx, "ADMIN@example.com", "pw")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if first.Token != second.Token {
		t.Fatalf("expected identical token keys, got %s and %s", first.Token, second.Token)
	}
	if !tokenKeyPattern.MatchString(first.Token) {
		t.Fatalf("expected 40 hex char token, got %q", first.Token)
	}
	if first.DateJoined.Year == 0 || len(first.DateJoined.Time) != 8 {
		t.Fatalf("expected date parts to be filled, got %+v", first.DateJoined)
	}
}

func TestAuthService_VerifyTokenInvalid(t *testing.T) {
	f := newFixture(nil)
	if _, err := f.auth.VerifyToken(context.Background(), "nope"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := f.auth.VerifyToken(context.Background(), "  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for blank key, got %v", err)
	}
}

func TestAuthService_ResolveOrphanedToken(t *testing.T) {
	f := newFixture(nil)
	res := f.register(t, "user@example.com", "pw")
	key := linkKey(t, f.sender.last(t).Body, "/verify-email/")

	user, err := f.auth.Resolve(context.Background(), key)
	if err != nil || user.ID != res.User.ID {
		t.Fatalf("expected resolve to return owner, got %+v, %v", user, err)
	}

	_ = f.users.Delete(context.Background(), res.User.ID)
	if _, err := f.auth.Resolve(context.Background(), key); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for orphaned token, got %v", err)
	}
}
