package domain

import (
	"time"

	"github.com/google/uuid"
)

type FortuneType string

const (
	FortuneHand   FortuneType = "HAND"
	FortuneFace   FortuneType = "FACE"
	FortuneCoffee FortuneType = "COFFEE"
	FortuneTarot  FortuneType = "TAROT"
	FortuneAIChat FortuneType = "AI_CHAT"
)

// Порядок важен: в таком виде таблица лимитов отдается клиенту
var FortuneTypes = []FortuneType{FortuneHand, FortuneFace, FortuneCoffee, FortuneTarot, FortuneAIChat}

func ParseFortuneType(s string) (FortuneType, error) {
	for _, t := range FortuneTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", ErrInvalidFortuneType
}

// IsReading - гадания (рука, лицо, кофе, таро) берут лимит из dailyFreeFortunes,
// AI_CHAT - из dailyAiQuestions.
func (t FortuneType) IsReading() bool {
	return t != FortuneAIChat
}

type EntitlementRecord struct {
	UserID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Type          FortuneType `gorm:"column:fortune_type;size:16;primaryKey"`
	DailyLimit    int         `gorm:"not null;default:0"`
	Used          int         `gorm:"not null;default:0"`
	ExtraRights   int         `gorm:"not null;default:0"`
	LastResetDate string      `gorm:"size:10;not null"` // YYYY-MM-DD
	UpdatedAt     time.Time
}

func (EntitlementRecord) TableName() string {
	return "fortune_entitlements"
}

func (r EntitlementRecord) TotalAvailable() int {
	return r.DailyLimit + r.ExtraRights
}

func (r EntitlementRecord) Remaining() int {
	left := r.TotalAvailable() - r.Used
	if left < 0 {
		return 0
	}
	return left
}

// Fortune - сохраненное гадание с интерпретацией
type Fortune struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID   `gorm:"type:uuid;index"`
	Type           FortuneType `gorm:"column:fortune_type;size:16;index"`
	Question       string
	ImageURL       string
	Cards          string
	Interpretation string
	CreatedAt      time.Time
}

// Day возвращает календарную дату в нужной таймзоне (ключ суточного сброса)
func Day(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
