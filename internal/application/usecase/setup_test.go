package usecase

import (
	"context"
	"testing"
	"time"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/cache"
	"falplatform/internal/infrastructure/ledger"
	"falplatform/internal/infrastructure/oracle"
	"falplatform/internal/infrastructure/repository"
	"falplatform/internal/infrastructure/security"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testRoles = map[domain.Role]domain.RoleDefaults{
	domain.RoleAdmin:     {Coins: 1000, DailyFreeFortunes: 10, DailyAIQuestions: 20},
	domain.RoleModerator: {Coins: 500, DailyFreeFortunes: 5, DailyAIQuestions: 10},
	domain.RoleUser:      {Coins: 100, DailyFreeFortunes: 3, DailyAIQuestions: 5},
}

var anonDefaults = domain.RoleDefaults{DailyFreeFortunes: 3, DailyAIQuestions: 5}

// clock - управляемое время для проверки суточного сброса
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type stubOracle struct {
	answer string
	err    error
	calls  int
}

func (o *stubOracle) Interpret(_ context.Context, req oracle.Request) (string, error) {
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	return o.answer, nil
}

type stubCheckout struct {
	url      string
	ritualID string
}

func (s *stubCheckout) CreateRitualCheckout(_ context.Context, _ string, r *domain.Ritual) (string, error) {
	s.ritualID = r.ID
	return s.url, nil
}

type testEnv struct {
	db    *gorm.DB
	redis *miniredis.Miniredis
	clock *clock

	users        *repository.UserRepository
	rituals      *repository.RitualRepository
	entitlements *EntitlementUseCase
	auth         *AuthUseCase
	fortunes     *FortuneUseCase
	ritualUC     *RitualUseCase
	admin        *AdminUseCase
	oracle       *stubOracle
	checkout     *stubCheckout
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	clk := &clock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}

	env := &testEnv{
		db:       db,
		redis:    mr,
		clock:    clk,
		users:    repository.NewUserRepository(db),
		rituals:  repository.NewRitualRepository(db),
		oracle:   &stubOracle{answer: "A long journey awaits."},
		checkout: &stubCheckout{url: "https://checkout.stripe.com/c/pay/cs_test"},
	}

	env.entitlements = NewEntitlementUseCase(
		repository.NewEntitlementRepository(db), env.users, anonDefaults, time.UTC, log)
	env.entitlements.now = clk.now

	tm := security.NewTokenManager("access", "refresh")
	env.auth = NewAuthUseCase(env.users, cache.NewTokenCache(rdb, tm.RefreshTTL()),
		security.NewPasswordHasherWithCost(bcrypt.MinCost), tm, testRoles, time.UTC, log)
	env.auth.now = clk.now

	env.fortunes = NewFortuneUseCase(env.entitlements, repository.NewFortuneRepository(db), env.oracle, log)
	env.ritualUC = NewRitualUseCase(env.rituals, env.users, ledger.New(rdb, log), env.checkout, log)
	env.admin = NewAdminUseCase(env.users, env.entitlements, env.ritualUC, testRoles, log)
	return env
}

func (e *testEnv) register(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	user, err := e.auth.CreateAccount(context.Background(), "seer", email, "password123", role)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return user
}
