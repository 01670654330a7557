package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntitlementUseCase - дневные лимиты гаданий: сброс, подсчет остатка, списание
type EntitlementUseCase struct {
	repo   *repository.EntitlementRepository
	users  *repository.UserRepository
	anon   domain.RoleDefaults
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

func NewEntitlementUseCase(
	repo *repository.EntitlementRepository,
	users *repository.UserRepository,
	anon domain.RoleDefaults,
	loc *time.Location,
	logger *zap.Logger,
) *EntitlementUseCase {
	return &EntitlementUseCase{
		repo:   repo,
		users:  users,
		anon:   anon,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (uc *EntitlementUseCase) Today() string {
	return domain.Day(uc.now(), uc.loc)
}

// GetLimits возвращает записи по всем типам в каноническом порядке.
// Перед чтением устаревшие счетчики сбрасываются.
func (uc *EntitlementUseCase) GetLimits(ctx context.Context, userID uuid.UUID) ([]domain.EntitlementRecord, error) {
	today := uc.Today()
	if err := uc.resetIfStale(ctx, userID, today); err != nil {
		return nil, err
	}

	records, err := uc.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	if len(records) < len(domain.FortuneTypes) {
		// Записи по новому типу или аккаунт, созданный в обход регистрации
		if err := uc.ensureRows(ctx, userID, today); err != nil {
			return nil, err
		}
		if records, err = uc.repo.List(ctx, userID); err != nil {
			return nil, fmt.Errorf("list entitlements: %w", err)
		}
	}
	return ordered(records), nil
}

// CheckLimit - текущая запись по одному типу (со сбросом)
func (uc *EntitlementUseCase) CheckLimit(ctx context.Context, userID uuid.UUID, t domain.FortuneType) (*domain.EntitlementRecord, error) {
	records, err := uc.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Type == t {
			return &records[i], nil
		}
	}
	return nil, domain.ErrInvalidFortuneType
}

func (uc *EntitlementUseCase) HasRemainingRights(ctx context.Context, userID uuid.UUID, t domain.FortuneType) (bool, error) {
	record, err := uc.CheckLimit(ctx, userID, t)
	if err != nil {
		return false, err
	}
	return record.Remaining() > 0, nil
}

// Consume списывает одну единицу. Атомарность обеспечивает условный UPDATE в базе,
// поэтому при одной оставшейся единице успех получит ровно один из параллельных запросов.
func (uc *EntitlementUseCase) Consume(ctx context.Context, userID uuid.UUID, t domain.FortuneType) (*domain.EntitlementRecord, error) {
	today := uc.Today()

	// Попытки: основная, после досоздания записи, после сброса дня
	for attempt := 0; attempt < 3; attempt++ {
		ok, err := uc.repo.TryConsume(ctx, userID, t, today)
		if err != nil {
			return nil, fmt.Errorf("consume %s: %w", t, err)
		}

		record, err := uc.repo.Get(ctx, userID, t)
		if ok {
			if err != nil {
				return nil, fmt.Errorf("read entitlement: %w", err)
			}
			return record, nil
		}

		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			if err := uc.ensureRows(ctx, userID, today); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, fmt.Errorf("read entitlement: %w", err)
		case record.LastResetDate != today:
			if err := uc.resetIfStale(ctx, userID, today); err != nil {
				return nil, err
			}
		default:
			return nil, domain.ErrLimitExceeded
		}
	}
	return nil, domain.ErrLimitExceeded
}

// Release возвращает единицу, списанную Consume, если гадание не состоялось
func (uc *EntitlementUseCase) Release(ctx context.Context, userID uuid.UUID, t domain.FortuneType) error {
	if err := uc.repo.Release(ctx, userID, t, uc.Today()); err != nil {
		return fmt.Errorf("release %s: %w", t, err)
	}
	return nil
}

func (uc *EntitlementUseCase) GrantExtraRights(ctx context.Context, userID uuid.UUID, t domain.FortuneType, count int) (*domain.EntitlementRecord, error) {
	if count <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := uc.ensureRows(ctx, userID, uc.Today()); err != nil {
		return nil, err
	}
	if err := uc.repo.AddExtraRights(ctx, userID, t, count); err != nil {
		return nil, fmt.Errorf("grant extra rights: %w", err)
	}

	uc.logger.Info("extra rights granted",
		zap.String("user_id", userID.String()),
		zap.String("type", string(t)),
		zap.Int("count", count))
	return uc.CheckLimit(ctx, userID, t)
}

// AnonymousLimits - фиксированная таблица для неавторизованных посетителей
func (uc *EntitlementUseCase) AnonymousLimits() []domain.EntitlementRecord {
	today := uc.Today()
	records := make([]domain.EntitlementRecord, 0, len(domain.FortuneTypes))
	for _, t := range domain.FortuneTypes {
		records = append(records, domain.EntitlementRecord{
			Type:          t,
			DailyLimit:    uc.anon.LimitFor(t),
			LastResetDate: today,
		})
	}
	return records
}

func (uc *EntitlementUseCase) resetIfStale(ctx context.Context, userID uuid.UUID, today string) error {
	n, err := uc.repo.ResetStale(ctx, userID, today)
	if err != nil {
		return fmt.Errorf("reset entitlements: %w", err)
	}
	if n > 0 {
		uc.logger.Debug("daily limits reset",
			zap.String("user_id", userID.String()),
			zap.String("date", today),
			zap.Int64("records", n))
		if err := uc.users.MarkReset(ctx, userID, today); err != nil {
			uc.logger.Warn("failed to mark reset date", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return nil
}

func (uc *EntitlementUseCase) ensureRows(ctx context.Context, userID uuid.UUID, today string) error {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := uc.repo.Ensure(ctx, userID, user.Defaults(), today); err != nil {
		return fmt.Errorf("ensure entitlements: %w", err)
	}
	return nil
}

func ordered(records []domain.EntitlementRecord) []domain.EntitlementRecord {
	byType := make(map[domain.FortuneType]domain.EntitlementRecord, len(records))
	for _, r := range records {
		byType[r.Type] = r
	}
	out := make([]domain.EntitlementRecord, 0, len(domain.FortuneTypes))
	for _, t := range domain.FortuneTypes {
		if r, ok := byType[t]; ok {
			out = append(out, r)
		}
	}
	return out
}
