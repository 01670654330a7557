package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"falplatform/internal/application/usecase"
	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type limitResponse struct {
	Type           domain.FortuneType `json:"type"`
	DailyLimit     int                `json:"dailyLimit"`
	Used           int                `json:"used"`
	ExtraRights    int                `json:"extraRights"`
	TotalAvailable int                `json:"totalAvailable"`
	Remaining      int                `json:"remaining"`
	LastResetDate  string             `json:"lastResetDate"`
}

func toLimits(records []domain.EntitlementRecord) []limitResponse {
	out := make([]limitResponse, 0, len(records))
	for _, r := range records {
		out = append(out, limitResponse{
			Type:           r.Type,
			DailyLimit:     r.DailyLimit,
			Used:           r.Used,
			ExtraRights:    r.ExtraRights,
			TotalAvailable: r.TotalAvailable(),
			Remaining:      r.Remaining(),
			LastResetDate:  r.LastResetDate,
		})
	}
	return out
}

type userResponse struct {
	ID                string      `json:"id"`
	Email             string      `json:"email"`
	Username          string      `json:"username"`
	Role              domain.Role `json:"role"`
	Coins             int         `json:"coins"`
	DailyFreeFortunes int         `json:"dailyFreeFortunes"`
	DailyAIQuestions  int         `json:"dailyAiQuestions"`
	LastResetDate     string      `json:"lastResetDate"`
	CreatedAt         time.Time   `json:"createdAt"`
}

func toUser(u *domain.User) userResponse {
	return userResponse{
		ID:                u.ID.String(),
		Email:             u.Email,
		Username:          u.Username,
		Role:              u.Role,
		Coins:             u.Coins,
		DailyFreeFortunes: u.DailyFreeFortunes,
		DailyAIQuestions:  u.DailyAIQuestions,
		LastResetDate:     u.LastResetDate,
		CreatedAt:         u.CreatedAt,
	}
}

type fortuneResponse struct {
	ID             string             `json:"id"`
	Type           domain.FortuneType `json:"type"`
	Question       string             `json:"question,omitempty"`
	ImageURL       string             `json:"imageUrl,omitempty"`
	Cards          []string           `json:"cards,omitempty"`
	Interpretation string             `json:"interpretation"`
	CreatedAt      time.Time          `json:"createdAt"`
}

func toFortune(f *domain.Fortune) fortuneResponse {
	var cards []string
	if f.Cards != "" {
		cards = strings.Split(f.Cards, ",")
	}
	return fortuneResponse{
		ID:             f.ID.String(),
		Type:           f.Type,
		Question:       f.Question,
		ImageURL:       f.ImageURL,
		Cards:          cards,
		Interpretation: f.Interpretation,
		CreatedAt:      f.CreatedAt,
	}
}

type ritualResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CoinPrice   int    `json:"coinPrice"`
	PriceMinor  int64  `json:"priceMinor"`
}

func toRituals(rs []domain.Ritual) []ritualResponse {
	out := make([]ritualResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ritualResponse{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			CoinPrice:   r.CoinPrice,
			PriceMinor:  r.PriceMinor,
		})
	}
	return out
}

func purchasesBody(p usecase.Purchases) gin.H {
	return gin.H{"purchases": p.Items, "available": p.Available}
}

type apiError struct {
	status int
	code   string
	msg    string
}

var errorTable = []struct {
	target error
	apiError
}{
	{domain.ErrLimitExceeded, apiError{http.StatusTooManyRequests, "LIMIT_EXCEEDED", "Daily limit reached for this fortune type"}},
	{domain.ErrStorageUnavailable, apiError{http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is temporarily unavailable"}},
	{domain.ErrOracleUnavailable, apiError{http.StatusBadGateway, "ORACLE_UNAVAILABLE", "Could not get an interpretation, please try again"}},
	{payment.ErrNotConfigured, apiError{http.StatusServiceUnavailable, "PAYMENTS_DISABLED", "Card payments are not available"}},
	{domain.ErrUserNotFound, apiError{http.StatusNotFound, "USER_NOT_FOUND", "User not found"}},
	{domain.ErrRitualNotFound, apiError{http.StatusNotFound, "RITUAL_NOT_FOUND", "Ritual not found"}},
	{domain.ErrUserAlreadyExists, apiError{http.StatusConflict, "USER_EXISTS", "User already exists"}},
	{domain.ErrInsufficientCoins, apiError{http.StatusPaymentRequired, "INSUFFICIENT_COINS", "Not enough coins"}},
	{domain.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials"}},
	{domain.ErrUnauthenticated, apiError{http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token"}},
	{usecase.ErrTokenRevoked, apiError{http.StatusUnauthorized, "TOKEN_REVOKED", "Refresh token revoked"}},
	{domain.ErrInvalidFortuneType, apiError{http.StatusBadRequest, "INVALID_TYPE", ""}},
	{domain.ErrInvalidReading, apiError{http.StatusBadRequest, "INVALID_READING", ""}},
	{domain.ErrInvalidAmount, apiError{http.StatusBadRequest, "INVALID_AMOUNT", ""}},
	{domain.ErrInvalidRole, apiError{http.StatusBadRequest, "INVALID_ROLE", ""}},
}

// writeError переводит доменную ошибку в HTTP-ответ. Неизвестные ошибки логируются
// и уходят клиенту как 500 без подробностей.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			msg := e.msg
			if msg == "" {
				msg = err.Error()
			}
			if e.status >= 500 {
				logger.Warn("request degraded", zap.String("path", c.FullPath()), zap.Error(err))
			}
			c.AbortWithStatusJSON(e.status, gin.H{"error": msg, "code": e.code})
			return
		}
	}

	logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
	c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "BAD_REQUEST"})
}
