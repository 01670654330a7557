package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"falplatform/internal/domain"
)

func TestRegisterAppliesRoleDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, "ayse", "Ayse@Example.com ", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleUser || user.Coins != 100 || user.DailyFreeFortunes != 3 || user.DailyAIQuestions != 5 {
		t.Errorf("user = %+v", user)
	}
	if user.Email != "ayse@example.com" {
		t.Errorf("email = %q, want normalized", user.Email)
	}
	if user.Password == "password123" {
		t.Error("password stored in plain text")
	}

	if _, err := env.auth.Register(ctx, "ayse2", "ayse@example.com", "password123"); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("duplicate err = %v, want ErrUserAlreadyExists", err)
	}
}

func TestCreateAccountRoleTable(t *testing.T) {
	env := newTestEnv(t)

	for role, want := range testRoles {
		user := env.register(t, string(role)+"@example.com", role)
		if user.Defaults() != want {
			t.Errorf("%s defaults = %+v, want %+v", role, user.Defaults(), want)
		}
	}

	if _, err := env.auth.CreateAccount(context.Background(), "x", "x@example.com", "password123", "ROOT"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
}

func TestLoginRefreshLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@example.com", domain.RoleModerator)

	if _, _, err := env.auth.Login(ctx, "a@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, _, err := env.auth.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}

	access, refresh, err := env.auth.Login(ctx, "A@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := env.auth.ValidateAccess(access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID.String() || claims.Role != "MODERATOR" {
		t.Errorf("claims = %+v", claims)
	}

	_, newRefresh, err := env.auth.Refresh(ctx, refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// Старый refresh одноразовый
	if _, _, err := env.auth.Refresh(ctx, refresh); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("reuse err = %v, want ErrTokenRevoked", err)
	}

	if err := env.auth.Logout(ctx, newRefresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := env.auth.Refresh(ctx, newRefresh); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("after logout err = %v, want ErrTokenRevoked", err)
	}
}

func TestRefreshTokenRedeemedOnceUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a@example.com", domain.RoleUser)

	_, refresh, err := env.auth.Login(ctx, "a@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var wg sync.WaitGroup
	var redeemed, revoked int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := env.auth.Refresh(ctx, refresh)
			switch {
			case err == nil:
				atomic.AddInt32(&redeemed, 1)
			case errors.Is(err, ErrTokenRevoked):
				atomic.AddInt32(&revoked, 1)
			}
		}()
	}
	wg.Wait()

	if redeemed != 1 || revoked != 19 {
		t.Errorf("redeemed = %d, revoked = %d, want 1 and 19", redeemed, revoked)
	}
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@example.com", domain.RoleUser)

	_, refresh, err := env.auth.Login(ctx, "a@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.admin.ChangeRole(ctx, "admin", user.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("change role: %v", err)
	}

	access, _, err := env.auth.Refresh(ctx, refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, _ := env.auth.ValidateAccess(access)
	if claims.Role != "ADMIN" {
		t.Errorf("role = %s, want ADMIN", claims.Role)
	}
}
