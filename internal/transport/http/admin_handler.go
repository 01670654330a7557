package handlers

import (
	"net/http"
	"strconv"

	"falplatform/internal/application/usecase"
	"falplatform/internal/domain"
	"falplatform/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	admin  *usecase.AdminUseCase
	logger *zap.Logger
}

func NewAdminHandler(au *usecase.AdminUseCase, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: au, logger: logger}
}

type coinsReq struct {
	Amount int `json:"amount" binding:"required"`
}

type extraRightsReq struct {
	Type  string `json:"type" binding:"required"`
	Count int    `json:"count" binding:"required,min=1,max=1000"`
}

type roleReq struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) targetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user id", "code": "BAD_REQUEST"})
		return uuid.Nil, false
	}
	return id, true
}

func actor(c *gin.Context) string {
	id, _ := middleware.UserID(c)
	return id.String()
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	users, total, err := h.admin.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUser(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total})
}

func (h *AdminHandler) AdjustCoins(c *gin.Context) {
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	var req coinsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	balance, err := h.admin.AdjustCoins(c.Request.Context(), actor(c), id, req.Amount)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *AdminHandler) GrantExtraRights(c *gin.Context) {
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	var req extraRightsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := domain.ParseFortuneType(req.Type)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	record, err := h.admin.GrantExtraRights(c.Request.Context(), actor(c), id, t, req.Count)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"limit": toLimits([]domain.EntitlementRecord{*record})[0]})
}

func (h *AdminHandler) ChangeRole(c *gin.Context) {
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	var req roleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	user, err := h.admin.ChangeRole(c.Request.Context(), actor(c), id, role)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUser(user)})
}

func (h *AdminHandler) UserRituals(c *gin.Context) {
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	purchases, err := h.admin.UserRituals(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, purchasesBody(purchases))
}

func (h *AdminHandler) ClearUserRituals(c *gin.Context) {
	id, ok := h.targetID(c)
	if !ok {
		return
	}
	if err := h.admin.ClearUserRituals(c.Request.Context(), actor(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
