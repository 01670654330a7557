package handlers

import (
	"net/http"
	"strconv"

	"falplatform/internal/application/usecase"
	"falplatform/internal/domain"
	"falplatform/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FortuneHandler struct {
	fortunes *usecase.FortuneUseCase
	logger   *zap.Logger
}

func NewFortuneHandler(fu *usecase.FortuneUseCase, logger *zap.Logger) *FortuneHandler {
	return &FortuneHandler{fortunes: fu, logger: logger}
}

type createFortuneReq struct {
	Type     string   `json:"type" binding:"required"`
	Question string   `json:"question" binding:"max=2000"`
	ImageURL string   `json:"imageUrl" binding:"omitempty,url"`
	Cards    []string `json:"cards"`
}

type chatReq struct {
	Message string `json:"message" binding:"required,max=2000"`
}

func (h *FortuneHandler) Create(c *gin.Context) {
	var req createFortuneReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := domain.ParseFortuneType(req.Type)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	userID, _ := middleware.UserID(c)
	res, err := h.fortunes.Read(c.Request.Context(), userID, usecase.ReadingInput{
		Type:     t,
		Question: req.Question,
		ImageURL: req.ImageURL,
		Cards:    req.Cards,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"fortune":   toFortune(res.Fortune),
		"remaining": res.Remaining,
	})
}

func (h *FortuneHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	res, err := h.fortunes.Ask(c.Request.Context(), userID, req.Message)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":    res.Fortune.Interpretation,
		"remaining": res.Remaining,
	})
}

func (h *FortuneHandler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	fortunes, err := h.fortunes.History(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]fortuneResponse, 0, len(fortunes))
	for i := range fortunes {
		out = append(out, toFortune(&fortunes[i]))
	}
	c.JSON(http.StatusOK, gin.H{"fortunes": out})
}
