package accounts

import (
	"errors"
	"testing"
	"time"

	"learngate/pkg/domain"
	"learngate/pkg/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions := store.NewJWTSessionStore("accounts-test-secret", time.Hour)
	return New(mem, sessions)
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc := newTestService(t)

	user, token, err := svc.Register("Trainee@Example.com", "hunter22!", "Alex", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "trainee@example.com" {
		t.Fatalf("email should normalize, got %q", user.Email)
	}
	if user.Role != domain.RoleTrainee {
		t.Fatalf("default role should be trainee, got %q", user.Role)
	}
	if user.PasswordHash == "hunter22!" {
		t.Fatal("password stored in plaintext")
	}

	got, ok := svc.FromToken(token)
	if !ok || got.ID != user.ID {
		t.Fatalf("token should resolve to the registered user")
	}

	again, token2, err := svc.Login("trainee@example.com", "hunter22!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if again.ID != user.ID || token2 == "" {
		t.Fatalf("login should issue a session for the same user")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t)

	if _, _, err := svc.Register("", "hunter22!", "", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty email: %v", err)
	}
	if _, _, err := svc.Register("a@b.com", "short", "", ""); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password: %v", err)
	}
	if _, _, err := svc.Register("a@b.com", "hunter22!", "", domain.RoleSuperAdmin); !errors.Is(err, ErrBadRole) {
		t.Fatalf("self-registering super admin must fail: %v", err)
	}
	if _, _, err := svc.Register("a@b.com", "hunter22!", "", "owner"); !errors.Is(err, ErrBadRole) {
		t.Fatalf("unknown role must fail: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)

	if _, _, err := svc.Register("dup@example.com", "hunter22!", "", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err := svc.Register("DUP@example.com", "hunter22!", "", "")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected duplicate email conflict, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)
	if _, _, err := svc.Register("user@example.com", "hunter22!", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login("user@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, _, err := svc.Login("nobody@example.com", "hunter22!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestFromTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	if _, ok := svc.FromToken("not-a-token"); ok {
		t.Fatal("garbage token resolved to a user")
	}
}
