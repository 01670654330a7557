package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleUser      Role = "USER"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleModerator, RoleUser:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// RoleDefaults - стартовые значения, которые получает аккаунт при создании
type RoleDefaults struct {
	Coins             int `mapstructure:"coins"`
	DailyFreeFortunes int `mapstructure:"daily_free_fortunes"`
	DailyAIQuestions  int `mapstructure:"daily_ai_questions"`
}

// LimitFor - дневной лимит для конкретного типа
func (d RoleDefaults) LimitFor(t FortuneType) int {
	if t.IsReading() {
		return d.DailyFreeFortunes
	}
	return d.DailyAIQuestions
}

type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email             string    `gorm:"uniqueIndex;not null;size:100"`
	Username          string    `gorm:"not null;size:50"`
	Password          string    `gorm:"not null"`
	Role              Role      `gorm:"size:16;not null;default:'USER'"`
	Coins             int       `gorm:"not null;default:0"`
	DailyFreeFortunes int       `gorm:"not null;default:0"`
	DailyAIQuestions  int       `gorm:"column:daily_ai_questions;not null;default:0"`
	LastResetDate     string    `gorm:"size:10"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (u *User) Defaults() RoleDefaults {
	return RoleDefaults{
		Coins:             u.Coins,
		DailyFreeFortunes: u.DailyFreeFortunes,
		DailyAIQuestions:  u.DailyAIQuestions,
	}
}

func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}
