package repository

import (
	"context"
	"errors"

	"falplatform/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RitualRepository struct {
	db *gorm.DB
}

func NewRitualRepository(db *gorm.DB) *RitualRepository {
	return &RitualRepository{db: db}
}

func (r *RitualRepository) ListActive(ctx context.Context) ([]domain.Ritual, error) {
	var rituals []domain.Ritual
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("coin_price asc").
		Find(&rituals).Error
	return rituals, err
}

func (r *RitualRepository) GetByID(ctx context.Context, id string) (*domain.Ritual, error) {
	var ritual domain.Ritual
	err := r.db.WithContext(ctx).First(&ritual, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRitualNotFound
		}
		return nil, err
	}
	return &ritual, nil
}

// Upsert используется сидером: повторный запуск обновляет цены и описания
func (r *RitualRepository) Upsert(ctx context.Context, ritual *domain.Ritual) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "coin_price", "price_minor", "stripe_price_id", "active", "updated_at"}),
		}).
		Create(ritual).Error
}
