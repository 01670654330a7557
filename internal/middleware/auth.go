package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/security"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserID = "userId"
	ctxRole   = "role"
)

type TokenValidator interface {
	ValidateAccess(token string) (security.Claims, error)
}

// RoleLoader отдает текущую роль пользователя из базы
type RoleLoader interface {
	CurrentRole(ctx context.Context, userID uuid.UUID) (domain.Role, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// authenticate кладет userId и role в контекст, если токен валиден
func authenticate(c *gin.Context, v TokenValidator) bool {
	token, ok := bearerToken(c)
	if !ok {
		return false
	}
	claims, err := v.ValidateAccess(token)
	if err != nil {
		return false
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return false
	}
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, claims.Role)
	return true
}

func AuthMiddleware(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := bearerToken(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}
		if !authenticate(c, v) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Next()
	}
}

// OptionalAuth не отклоняет запрос без токена или с битым токеном:
// хендлер сам решает, что отдать анониму
func OptionalAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, v)
		c.Next()
	}
}

// FreshRole заменяет роль из токена на роль из базы. Ставится после
// AuthMiddleware перед RequireRole там, где понижение роли должно
// действовать сразу, а не после истечения access-токена.
func FreshRole(l RoleLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		role, err := l.CurrentRole(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
			return
		}
		c.Set(ctxRole, string(role))
		c.Next()
	}
}

// RequireRole ставится после AuthMiddleware
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := domain.Role(c.GetString(ctxRole))
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(ctxUserID)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func Role(c *gin.Context) domain.Role {
	return domain.Role(c.GetString(ctxRole))
}
