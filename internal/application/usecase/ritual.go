package usecase

import (
	"context"
	"fmt"
	"time"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/payment"
	"falplatform/internal/infrastructure/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger - журнал купленных ритуалов
type Ledger interface {
	Available(ctx context.Context) bool
	List(ctx context.Context, userID string) []domain.PurchasedRitual
	Has(ctx context.Context, userID, ritualID string) bool
	Add(ctx context.Context, userID, ritualID string) (domain.PurchasedRitual, error)
	Record(ctx context.Context, purchaseID, userID, ritualID string) (domain.PurchasedRitual, error)
	Remove(ctx context.Context, userID, ritualID string) error
	Clear(ctx context.Context, userID string) error
}

type Checkout interface {
	CreateRitualCheckout(ctx context.Context, userID string, ritual *domain.Ritual) (string, error)
}

// Purchases - список покупок. Available=false значит, что хранилище недоступно
// и пустой список не означает отсутствие покупок.
type Purchases struct {
	Items     []domain.PurchasedRitual
	Available bool
}

type CoinPurchase struct {
	Purchase domain.PurchasedRitual
	Balance  int
}

type RitualUseCase struct {
	rituals  *repository.RitualRepository
	users    *repository.UserRepository
	ledger   Ledger
	checkout Checkout
	logger   *zap.Logger
}

func NewRitualUseCase(
	rr *repository.RitualRepository,
	ur *repository.UserRepository,
	l Ledger,
	c Checkout,
	logger *zap.Logger,
) *RitualUseCase {
	return &RitualUseCase{
		rituals:  rr,
		users:    ur,
		ledger:   l,
		checkout: c,
		logger:   logger,
	}
}

func (uc *RitualUseCase) Catalog(ctx context.Context) ([]domain.Ritual, error) {
	return uc.rituals.ListActive(ctx)
}

func (uc *RitualUseCase) activeRitual(ctx context.Context, ritualID string) (*domain.Ritual, error) {
	ritual, err := uc.rituals.GetByID(ctx, ritualID)
	if err != nil {
		return nil, err
	}
	if !ritual.Active {
		return nil, domain.ErrRitualNotFound
	}
	return ritual, nil
}

// PurchaseWithCoins списывает монеты и записывает покупку.
// Если запись в журнал не удалась, монеты возвращаются.
func (uc *RitualUseCase) PurchaseWithCoins(ctx context.Context, userID uuid.UUID, ritualID string) (*CoinPurchase, error) {
	ritual, err := uc.activeRitual(ctx, ritualID)
	if err != nil {
		return nil, err
	}

	balance, err := uc.users.ChangeBalance(ctx, userID, -ritual.CoinPrice)
	if err != nil {
		return nil, err
	}

	purchase, err := uc.ledger.Add(ctx, userID.String(), ritual.ID)
	if err != nil {
		refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if _, refundErr := uc.users.ChangeBalance(refundCtx, userID, ritual.CoinPrice); refundErr != nil {
			uc.logger.Error("CRITICAL: coin refund failed",
				zap.String("user_id", userID.String()),
				zap.String("ritual_id", ritual.ID),
				zap.Int("amount", ritual.CoinPrice),
				zap.Error(refundErr))
		}
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	uc.logger.Info("ritual purchased with coins",
		zap.String("user_id", userID.String()),
		zap.String("ritual_id", ritual.ID),
		zap.Int("price", ritual.CoinPrice))
	return &CoinPurchase{Purchase: purchase, Balance: balance}, nil
}

func (uc *RitualUseCase) StartCheckout(ctx context.Context, userID uuid.UUID, ritualID string) (string, error) {
	ritual, err := uc.activeRitual(ctx, ritualID)
	if err != nil {
		return "", err
	}
	return uc.checkout.CreateRitualCheckout(ctx, userID.String(), ritual)
}

// CompleteCheckout вызывается из вебхука Stripe. id сессии служит id покупки,
// поэтому повторная доставка события не создает дубль.
func (uc *RitualUseCase) CompleteCheckout(ctx context.Context, c *payment.CompletedCheckout) (domain.PurchasedRitual, error) {
	if _, err := uc.rituals.GetByID(ctx, c.RitualID); err != nil {
		return domain.PurchasedRitual{}, err
	}
	purchase, err := uc.ledger.Record(ctx, c.SessionID, c.UserID, c.RitualID)
	if err != nil {
		return domain.PurchasedRitual{}, fmt.Errorf("record checkout %s: %w", c.SessionID, err)
	}
	uc.logger.Info("ritual purchased via stripe",
		zap.String("user_id", c.UserID),
		zap.String("ritual_id", c.RitualID),
		zap.String("session_id", c.SessionID))
	return purchase, nil
}

func (uc *RitualUseCase) Purchased(ctx context.Context, userID string) Purchases {
	return Purchases{
		Items:     uc.ledger.List(ctx, userID),
		Available: uc.ledger.Available(ctx),
	}
}

func (uc *RitualUseCase) LedgerAvailable(ctx context.Context) bool {
	return uc.ledger.Available(ctx)
}

func (uc *RitualUseCase) HasPurchased(ctx context.Context, userID, ritualID string) bool {
	return uc.ledger.Has(ctx, userID, ritualID)
}

func (uc *RitualUseCase) RemovePurchase(ctx context.Context, userID, ritualID string) error {
	return uc.ledger.Remove(ctx, userID, ritualID)
}

func (uc *RitualUseCase) ClearPurchases(ctx context.Context, userID string) error {
	return uc.ledger.Clear(ctx, userID)
}
