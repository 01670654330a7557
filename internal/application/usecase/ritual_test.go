package usecase

import (
	"context"
	"errors"
	"testing"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/payment"
)

func seedRitual(t *testing.T, env *testEnv, id string, price int, active bool) {
	t.Helper()
	if err := env.rituals.Upsert(context.Background(), &domain.Ritual{
		ID: id, Name: id, CoinPrice: price, Active: active,
	}); err != nil {
		t.Fatalf("seed ritual: %v", err)
	}
}

func TestPurchaseWithCoins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@example.com", domain.RoleUser)
	seedRitual(t, env, "love-candle", 60, true)

	res, err := env.ritualUC.PurchaseWithCoins(ctx, user.ID, "love-candle")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.Balance != 40 || res.Purchase.RitualID != "love-candle" {
		t.Errorf("result = %+v", res)
	}
	if !env.ritualUC.HasPurchased(ctx, user.ID.String(), "love-candle") {
		t.Error("ritual not in ledger")
	}

	if _, err := env.ritualUC.PurchaseWithCoins(ctx, user.ID, "love-candle"); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Errorf("second purchase err = %v, want ErrInsufficientCoins", err)
	}
	if got := env.ritualUC.Purchased(ctx, user.ID.String()); len(got.Items) != 1 || !got.Available {
		t.Errorf("purchased = %+v", got)
	}
}

func TestPurchaseUnknownOrInactiveRitual(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@example.com", domain.RoleUser)
	seedRitual(t, env, "retired", 10, false)

	for _, id := range []string{"missing", "retired"} {
		if _, err := env.ritualUC.PurchaseWithCoins(ctx, user.ID, id); !errors.Is(err, domain.ErrRitualNotFound) {
			t.Errorf("%s: err = %v, want ErrRitualNotFound", id, err)
		}
	}
	me, _ := env.users.GetByID(ctx, user.ID)
	if me.Coins != 100 {
		t.Errorf("coins = %d, want 100", me.Coins)
	}
}

func TestPurchaseRefundsWhenLedgerDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@example.com", domain.RoleUser)
	seedRitual(t, env, "evil-eye", 30, true)

	env.redis.Close()

	_, err := env.ritualUC.PurchaseWithCoins(ctx, user.ID, "evil-eye")
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	me, _ := env.users.GetByID(ctx, user.ID)
	if me.Coins != 100 {
		t.Errorf("coins = %d, want refund to 100", me.Coins)
	}

	got := env.ritualUC.Purchased(ctx, user.ID.String())
	if got.Available || len(got.Items) != 0 {
		t.Errorf("purchased = %+v, want unavailable and empty", got)
	}
}

func TestCheckoutAndWebhookCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "a@example.com", domain.RoleUser)
	seedRitual(t, env, "full-moon", 500, true)

	url, err := env.ritualUC.StartCheckout(ctx, user.ID, "full-moon")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if url == "" || env.checkout.ritualID != "full-moon" {
		t.Errorf("url=%q ritual=%q", url, env.checkout.ritualID)
	}

	done := &payment.CompletedCheckout{SessionID: "cs_test_42", UserID: user.ID.String(), RitualID: "full-moon"}
	for i := 0; i < 2; i++ {
		p, err := env.ritualUC.CompleteCheckout(ctx, done)
		if err != nil {
			t.Fatalf("complete %d: %v", i+1, err)
		}
		if p.ID != "cs_test_42" {
			t.Errorf("purchase id = %q", p.ID)
		}
	}
	if got := env.ritualUC.Purchased(ctx, user.ID.String()); len(got.Items) != 1 {
		t.Errorf("items = %d, want 1 after duplicate webhook", len(got.Items))
	}

	bad := &payment.CompletedCheckout{SessionID: "cs_x", UserID: user.ID.String(), RitualID: "nope"}
	if _, err := env.ritualUC.CompleteCheckout(ctx, bad); !errors.Is(err, domain.ErrRitualNotFound) {
		t.Errorf("err = %v, want ErrRitualNotFound", err)
	}
}

func TestRemoveAndClearPurchases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@example.com", domain.RoleAdmin)
	bob := env.register(t, "bob@example.com", domain.RoleUser)
	seedRitual(t, env, "a", 1, true)
	seedRitual(t, env, "b", 1, true)

	for _, id := range []string{"a", "b"} {
		env.ritualUC.PurchaseWithCoins(ctx, alice.ID, id)
	}
	env.ritualUC.PurchaseWithCoins(ctx, bob.ID, "a")

	if err := env.ritualUC.RemovePurchase(ctx, alice.ID.String(), "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if env.ritualUC.HasPurchased(ctx, alice.ID.String(), "a") {
		t.Error("alice still has a")
	}
	if err := env.ritualUC.ClearPurchases(ctx, alice.ID.String()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n := len(env.ritualUC.Purchased(ctx, alice.ID.String()).Items); n != 0 {
		t.Errorf("alice items = %d", n)
	}
	if !env.ritualUC.HasPurchased(ctx, bob.ID.String(), "a") {
		t.Error("bob lost his purchase")
	}
}
