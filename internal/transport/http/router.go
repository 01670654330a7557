package handlers

import (
	"net/http"
	"time"

	"falplatform/internal/domain"
	"falplatform/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *AuthHandler
	Limits   *LimitsHandler
	Fortunes *FortuneHandler
	Rituals  *RitualHandler
	Webhooks *WebhookHandler
	Admin    *AdminHandler
}

// Authenticator проверяет access-токены и перечитывает роль для админки
type Authenticator interface {
	middleware.TokenValidator
	middleware.RoleLoader
}

func NewRouter(h Handlers, limiter *middleware.RateLimiter, tokens Authenticator, allowedOrigins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	requireAuth := middleware.AuthMiddleware(tokens)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", limiter.Limit("login", 5, 1*time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}
		api.GET("/me", requireAuth, h.Auth.Me)

		api.GET("/fortune-limits", middleware.OptionalAuth(tokens), h.Limits.Get)

		fortunes := api.Group("/fortunes")
		fortunes.Use(requireAuth)
		{
			fortunes.POST("", limiter.Limit("fortunes", 20, 1*time.Minute), h.Fortunes.Create)
			fortunes.GET("", h.Fortunes.List)
		}
		api.POST("/ai/chat", requireAuth, limiter.Limit("fortunes", 20, 1*time.Minute), h.Fortunes.Chat)

		api.GET("/rituals", h.Rituals.Catalog)
		rituals := api.Group("/rituals")
		rituals.Use(requireAuth)
		{
			rituals.GET("/purchased", h.Rituals.Purchased)
			rituals.DELETE("/purchased", h.Rituals.Clear)
			rituals.GET("/purchased/:ritualId", h.Rituals.HasPurchased)
			rituals.DELETE("/purchased/:ritualId", h.Rituals.Remove)
			rituals.POST("/:id/purchase", h.Rituals.Purchase)
			rituals.POST("/:id/checkout", h.Rituals.Checkout)
		}

		api.POST("/webhooks/stripe", h.Webhooks.HandleStripeWebhook)

		admin := api.Group("/admin")
		admin.Use(requireAuth, middleware.FreshRole(tokens), middleware.RequireRole(domain.RoleAdmin, domain.RoleModerator))
		{
			admin.GET("/users", h.Admin.ListUsers)
			admin.POST("/users/:id/coins", h.Admin.AdjustCoins)
			admin.POST("/users/:id/extra-rights", h.Admin.GrantExtraRights)
			admin.PUT("/users/:id/role", middleware.RequireRole(domain.RoleAdmin), h.Admin.ChangeRole)
			admin.GET("/users/:id/rituals", h.Admin.UserRituals)
			admin.DELETE("/users/:id/rituals", h.Admin.ClearUserRituals)
		}
	}

	return r
}
