package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)

	ctx := context.Background()
	user, err := svc.Register(ctx, Credentials{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.KYCStatus != KYCPending {
		t.Fatalf("expected pending kyc, got %s", user.KYCStatus)
	}
	if user.Role != RoleUser {
		t.Fatalf("expected user role, got %s", user.Role)
	}

	authed, err := svc.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, authed.ID)
	}

	if _, err := svc.Authenticate(ctx, Credentials{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Register(context.Background(), Credentials{Email: "a@b.c", Password: "short"}); err == nil {
		t.Fatalf("expected short password rejection")
	}
}

func TestRegisterWithReferral(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	referrer, err := svc.Register(ctx, Credentials{Email: "ref@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register referrer: %v", err)
	}

	referred, err := svc.Register(ctx, Credentials{Email: "new@example.com", Password: "correct-horse", ReferralCode: referrer.ID})
	if err != nil {
		t.Fatalf("register referred: %v", err)
	}
	if referred.ReferrerID != referrer.ID {
		t.Fatalf("expected referrer link %s, got %q", referrer.ID, referred.ReferrerID)
	}

	if _, err := svc.Register(ctx, Credentials{Email: "bad@example.com", Password: "correct-horse", ReferralCode: "nope"}); err == nil {
		t.Fatalf("expected unknown referral code rejection")
	}
}

func TestSetKYCStatus(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, Credentials{Email: "kyc@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.SetKYCStatus(ctx, user.ID, KYCApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := svc.Get(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.KYCStatus != KYCApproved {
		t.Fatalf("expected approved, got %s", got.KYCStatus)
	}

	if err := svc.SetKYCStatus(ctx, user.ID, "maybe"); err == nil {
		t.Fatalf("expected invalid status rejection")
	}
	if err := svc.SetKYCStatus(ctx, "ghost", KYCApproved); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
