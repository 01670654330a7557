package handlers

import (
	"net/http"

	"falplatform/internal/application/usecase"
	"falplatform/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RitualHandler struct {
	rituals *usecase.RitualUseCase
	logger  *zap.Logger
}

func NewRitualHandler(ru *usecase.RitualUseCase, logger *zap.Logger) *RitualHandler {
	return &RitualHandler{rituals: ru, logger: logger}
}

func (h *RitualHandler) Catalog(c *gin.Context) {
	rituals, err := h.rituals.Catalog(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rituals": toRituals(rituals)})
}

func (h *RitualHandler) Purchase(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	res, err := h.rituals.PurchaseWithCoins(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"purchase": res.Purchase,
		"balance":  res.Balance,
	})
}

func (h *RitualHandler) Checkout(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	url, err := h.rituals.StartCheckout(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *RitualHandler) Purchased(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	c.JSON(http.StatusOK, purchasesBody(h.rituals.Purchased(c.Request.Context(), userID.String())))
}

func (h *RitualHandler) HasPurchased(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	ritualID := c.Param("ritualId")
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"ritualId":  ritualID,
		"purchased": h.rituals.HasPurchased(ctx, userID.String(), ritualID),
		"available": h.rituals.LedgerAvailable(ctx),
	})
}

func (h *RitualHandler) Remove(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if err := h.rituals.RemovePurchase(c.Request.Context(), userID.String(), c.Param("ritualId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RitualHandler) Clear(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if err := h.rituals.ClearPurchases(c.Request.Context(), userID.String()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
