package repository

import (
	"context"
	"errors"

	"falplatform/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Сколько бонусных прав сгорает при сбросе: всё, что было потрачено сверх дневного лимита
const burnSpentExtraRights = `CASE WHEN used > daily_limit THEN
	CASE WHEN extra_rights > used - daily_limit THEN extra_rights - (used - daily_limit) ELSE 0 END
	ELSE extra_rights END`

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

func newEntitlementRows(userID uuid.UUID, defaults domain.RoleDefaults, today string) []domain.EntitlementRecord {
	rows := make([]domain.EntitlementRecord, 0, len(domain.FortuneTypes))
	for _, t := range domain.FortuneTypes {
		rows = append(rows, domain.EntitlementRecord{
			UserID:        userID,
			Type:          t,
			DailyLimit:    defaults.LimitFor(t),
			LastResetDate: today,
		})
	}
	return rows
}

// Ensure создает недостающие записи по всем типам. Существующие не трогаем.
func (r *EntitlementRepository) Ensure(ctx context.Context, userID uuid.UUID, defaults domain.RoleDefaults, today string) error {
	rows := newEntitlementRows(userID, defaults, today)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *EntitlementRepository) List(ctx context.Context, userID uuid.UUID) ([]domain.EntitlementRecord, error) {
	var records []domain.EntitlementRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&records).Error
	return records, err
}

func (r *EntitlementRepository) Get(ctx context.Context, userID uuid.UUID, t domain.FortuneType) (*domain.EntitlementRecord, error) {
	var record domain.EntitlementRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND fortune_type = ?", userID, t).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ResetStale обнуляет счетчики, у которых дата сброса не совпадает с сегодняшней.
// Условие в WHERE делает сброс идемпотентным: второй вызов за день ничего не меняет.
func (r *EntitlementRepository) ResetStale(ctx context.Context, userID uuid.UUID, today string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.EntitlementRecord{}).
		Where("user_id = ? AND last_reset_date <> ?", userID, today).
		Updates(map[string]interface{}{
			"extra_rights":    gorm.Expr(burnSpentExtraRights),
			"used":            0,
			"last_reset_date": today,
		})
	return result.RowsAffected, result.Error
}

// TryConsume - атомарный инкремент с проверкой остатка.
// false без ошибки значит, что остаток исчерпан (или запись еще не сброшена на сегодня).
func (r *EntitlementRepository) TryConsume(ctx context.Context, userID uuid.UUID, t domain.FortuneType, today string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.EntitlementRecord{}).
		Where("user_id = ? AND fortune_type = ? AND last_reset_date = ? AND used < daily_limit + extra_rights",
			userID, t, today).
		Update("used", gorm.Expr("used + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release возвращает одну единицу, если последующее действие не удалось
func (r *EntitlementRepository) Release(ctx context.Context, userID uuid.UUID, t domain.FortuneType, today string) error {
	return r.db.WithContext(ctx).Model(&domain.EntitlementRecord{}).
		Where("user_id = ? AND fortune_type = ? AND last_reset_date = ? AND used > 0", userID, t, today).
		Update("used", gorm.Expr("used - 1")).Error
}

func (r *EntitlementRepository) AddExtraRights(ctx context.Context, userID uuid.UUID, t domain.FortuneType, count int) error {
	result := r.db.WithContext(ctx).Model(&domain.EntitlementRecord{}).
		Where("user_id = ? AND fortune_type = ?", userID, t).
		Update("extra_rights", gorm.Expr("extra_rights + ?", count))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
