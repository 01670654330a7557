package repository

import (
	"context"

	"falplatform/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FortuneRepository struct {
	db *gorm.DB
}

func NewFortuneRepository(db *gorm.DB) *FortuneRepository {
	return &FortuneRepository{db: db}
}

func (r *FortuneRepository) Create(ctx context.Context, f *domain.Fortune) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *FortuneRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Fortune, error) {
	var fortunes []domain.Fortune
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&fortunes).Error
	return fortunes, err
}
