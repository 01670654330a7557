package repository

import (
	"context"
	"errors"

	"falplatform/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя вместе с записями лимитов по всем типам гаданий
func (r *UserRepository) Create(ctx context.Context, user *domain.User, today string) error {
	user.LastResetDate = today
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrUserAlreadyExists
			}
			return err
		}
		rows := newEntitlementRows(user.ID, user.Defaults(), today)
		return tx.Create(&rows).Error
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, total, err
}

// ChangeBalance меняет баланс монет. Списание не уходит в минус: проверка в том же UPDATE.
func (r *UserRepository) ChangeBalance(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND coins + ? >= 0", id, delta).
		Update("coins", gorm.Expr("coins + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return 0, err
		}
		return 0, domain.ErrInsufficientCoins
	}

	user, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Coins, nil
}

// ChangeRole меняет роль и дневные лимиты из таблицы ролей (монеты не трогаем)
func (r *UserRepository) ChangeRole(ctx context.Context, id uuid.UUID, role domain.Role, defaults domain.RoleDefaults) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.User{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"role":                role,
				"daily_free_fortunes": defaults.DailyFreeFortunes,
				"daily_ai_questions":  defaults.DailyAIQuestions,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}

		if err := tx.Model(&domain.EntitlementRecord{}).
			Where("user_id = ? AND fortune_type <> ?", id, domain.FortuneAIChat).
			Update("daily_limit", defaults.DailyFreeFortunes).Error; err != nil {
			return err
		}
		return tx.Model(&domain.EntitlementRecord{}).
			Where("user_id = ? AND fortune_type = ?", id, domain.FortuneAIChat).
			Update("daily_limit", defaults.DailyAIQuestions).Error
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", id).
		Update("password", hash).Error
}

// MarkReset фиксирует дату последнего сброса в профиле
func (r *UserRepository) MarkReset(ctx context.Context, id uuid.UUID, today string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND (last_reset_date IS NULL OR last_reset_date <> ?)", id, today).
		Update("last_reset_date", today).Error
}
