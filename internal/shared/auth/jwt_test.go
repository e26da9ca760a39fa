package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner("s3cret", "production", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := signer.Sign("user-1", "ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "ana@example.com" || claims.Name != "Ana" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	signer, _ := NewSigner("s3cret", "dev", time.Minute)
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }

	token, err := signer.Sign("user-1", "", "")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := signer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other, _ := NewSigner("different", "dev", time.Hour)
	foreign, _ := other.Sign("user-1", "", "")
	if _, err := signer.Verify(foreign); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign token to be rejected, got %v", err)
	}
}

func TestNewSignerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewSigner("", "production", 0); err == nil {
		t.Fatalf("expected error without secret in production")
	}
	if _, err := NewSigner("", "dev", 0); err != nil {
		t.Fatalf("expected dev fallback secret, got %v", err)
	}
}
