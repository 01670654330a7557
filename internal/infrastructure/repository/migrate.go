package repository

import (
	"falplatform/internal/domain"

	"gorm.io/gorm"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.EntitlementRecord{},
		&domain.Ritual{},
		&domain.Fortune{},
	)
}
