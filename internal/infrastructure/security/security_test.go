package security

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("access-secret", "refresh-secret")

	access, refresh, err := m.Generate("user-1", "ADMIN")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ValidateAccessToken(access)
	if err != nil {
		t.Fatalf("validate access: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "ADMIN" {
		t.Errorf("claims = %+v", claims)
	}

	sub, err := m.ValidateRefreshToken(refresh)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if sub != "user-1" {
		t.Errorf("sub = %q", sub)
	}
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	// Один и тот же секрет, чтобы проверить именно claim "type"
	m := NewTokenManager("secret", "secret")
	access, refresh, err := m.Generate("user-1", "USER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := m.ValidateAccessToken(refresh); err == nil {
		t.Error("refresh token accepted as access")
	}
	if _, err := m.ValidateRefreshToken(access); err == nil {
		t.Error("access token accepted as refresh")
	}
}

func TestExpiredAccessToken(t *testing.T) {
	m := NewTokenManager("a", "r")
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	access, _, err := m.Generate("user-1", "USER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	m.now = func() time.Time { return issued.Add(16 * time.Minute) }
	if _, err := m.ValidateAccessToken(access); err == nil {
		t.Error("expired token accepted")
	}
}

func TestWrongSecret(t *testing.T) {
	access, _, err := NewTokenManager("a", "r").Generate("user-1", "USER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("other", "r").ValidateAccessToken(access); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasherWithCost(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Compare(hash, "s3cret"); err != nil {
		t.Errorf("compare correct password: %v", err)
	}
	if err := h.Compare(hash, "wrong"); err == nil {
		t.Error("wrong password accepted")
	}
}
