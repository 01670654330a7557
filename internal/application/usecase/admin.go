package usecase

import (
	"context"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminUseCase struct {
	users        *repository.UserRepository
	entitlements *EntitlementUseCase
	rituals      *RitualUseCase
	roles        map[domain.Role]domain.RoleDefaults
	logger       *zap.Logger
}

func NewAdminUseCase(
	ur *repository.UserRepository,
	eu *EntitlementUseCase,
	ru *RitualUseCase,
	roles map[domain.Role]domain.RoleDefaults,
	logger *zap.Logger,
) *AdminUseCase {
	return &AdminUseCase{
		users:        ur,
		entitlements: eu,
		rituals:      ru,
		roles:        roles,
		logger:       logger,
	}
}

func (uc *AdminUseCase) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.users.List(ctx, limit, offset)
}

// AdjustCoins - начисление (amount > 0) или списание (amount < 0) монет
func (uc *AdminUseCase) AdjustCoins(ctx context.Context, actorID string, userID uuid.UUID, amount int) (int, error) {
	if amount == 0 {
		return 0, domain.ErrInvalidAmount
	}
	balance, err := uc.users.ChangeBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	uc.logger.Info("admin adjusted coins",
		zap.String("actor_id", actorID),
		zap.String("user_id", userID.String()),
		zap.Int("amount", amount),
		zap.Int("balance", balance))
	return balance, nil
}

func (uc *AdminUseCase) GrantExtraRights(ctx context.Context, actorID string, userID uuid.UUID, t domain.FortuneType, count int) (*domain.EntitlementRecord, error) {
	record, err := uc.entitlements.GrantExtraRights(ctx, userID, t, count)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("admin granted extra rights",
		zap.String("actor_id", actorID),
		zap.String("user_id", userID.String()))
	return record, nil
}

// ChangeRole переводит пользователя на лимиты новой роли. Баланс монет не меняется.
func (uc *AdminUseCase) ChangeRole(ctx context.Context, actorID string, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	defaults, ok := uc.roles[role]
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	if err := uc.users.ChangeRole(ctx, userID, role, defaults); err != nil {
		return nil, err
	}
	uc.logger.Info("admin changed role",
		zap.String("actor_id", actorID),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)))
	return uc.users.GetByID(ctx, userID)
}

func (uc *AdminUseCase) UserRituals(ctx context.Context, userID uuid.UUID) (Purchases, error) {
	if _, err := uc.users.GetByID(ctx, userID); err != nil {
		return Purchases{}, err
	}
	return uc.rituals.Purchased(ctx, userID.String()), nil
}

func (uc *AdminUseCase) ClearUserRituals(ctx context.Context, actorID string, userID uuid.UUID) error {
	if err := uc.rituals.ClearPurchases(ctx, userID.String()); err != nil {
		return err
	}
	uc.logger.Info("admin cleared rituals",
		zap.String("actor_id", actorID),
		zap.String("user_id", userID.String()))
	return nil
}
