package handlers

import (
	"net/http"

	"falplatform/internal/application/usecase"
	"falplatform/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LimitsHandler struct {
	entitlements *usecase.EntitlementUseCase
	logger       *zap.Logger
}

func NewLimitsHandler(eu *usecase.EntitlementUseCase, logger *zap.Logger) *LimitsHandler {
	return &LimitsHandler{entitlements: eu, logger: logger}
}

// Get отдает таблицу лимитов. Без токена или с невалидным токеном - анонимные лимиты,
// при сбое хранилища - тоже они, с пометкой degraded.
func (h *LimitsHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"limits":        toLimits(h.entitlements.AnonymousLimits()),
		})
		return
	}

	records, err := h.entitlements.GetLimits(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load limits, serving defaults",
			zap.String("user_id", userID.String()), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"authenticated": true,
			"degraded":      true,
			"limits":        toLimits(h.entitlements.AnonymousLimits()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"limits":        toLimits(records),
	})
}
