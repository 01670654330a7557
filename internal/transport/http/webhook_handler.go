package handlers

import (
	"errors"
	"io"
	"net/http"

	"falplatform/internal/application/usecase"
	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 65536

type WebhookParser interface {
	ParseWebhook(payload []byte, sigHeader string) (*payment.CompletedCheckout, error)
}

type WebhookHandler struct {
	parser  WebhookParser
	rituals *usecase.RitualUseCase
	logger  *zap.Logger
}

func NewWebhookHandler(p WebhookParser, ru *usecase.RitualUseCase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{parser: p, rituals: ru, logger: logger}
}

// Stripe повторяет доставку при ответе не 2xx. 200 отдаем только когда повтор
// ничего не изменит, иначе оплаченная покупка потеряется. Record идемпотентен
// по id сессии, так что повторная доставка безопасна.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body"})
		return
	}

	checkout, err := h.parser.ParseWebhook(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		h.logger.Error("webhook: bad checkout payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}
	if checkout == nil {
		c.Status(http.StatusOK)
		return
	}

	if _, err := h.rituals.CompleteCheckout(c.Request.Context(), checkout); err != nil {
		switch {
		case errors.Is(err, domain.ErrRitualNotFound):
			h.logger.Error("webhook: paid for unknown ritual",
				zap.String("session_id", checkout.SessionID),
				zap.String("ritual_id", checkout.RitualID), zap.Error(err))
		case errors.Is(err, domain.ErrStorageUnavailable):
			h.logger.Error("webhook: ledger unavailable, asking stripe to retry",
				zap.String("session_id", checkout.SessionID), zap.Error(err))
			c.Status(http.StatusServiceUnavailable)
			return
		default:
			h.logger.Error("webhook: failed to record purchase, asking stripe to retry",
				zap.String("session_id", checkout.SessionID), zap.Error(err))
			c.Status(http.StatusInternalServerError)
			return
		}
	}
	c.Status(http.StatusOK)
}
