package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ritual - платная услуга из каталога
type Ritual struct {
	ID            string `gorm:"primaryKey;size:64"` // slug, например "love-candle"
	Name          string `gorm:"not null"`
	Description   string
	CoinPrice     int    `gorm:"not null;default:0"`
	PriceMinor    int64  `gorm:"not null;default:0"` // цена для Stripe в копейках/куруш
	StripePriceID string `gorm:"size:64"`
	Active        bool   `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PurchasedRitual struct {
	ID           string    `json:"id"`
	RitualID     string    `json:"ritualId"`
	PurchaseDate time.Time `json:"purchaseDate"`
	UserID       string    `json:"userId"`
}

// NewPurchaseID - UUIDv7: метка времени + случайный хвост
func NewPurchaseID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
