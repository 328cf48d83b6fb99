package middleware

import (
	"net/http"
	"strings"

	"keyshop_backend/internal/auth"
	"keyshop_backend/internal/logger"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware - проверка JWT для админ-панели
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or invalid"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		ctx := logger.WithUserID(c.Request.Context(), claims.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Set("adminID", claims.AdminID)
		c.Set("adminUsername", claims.Username)
		c.Next()
	}
}

// GetAdminID извлекает ID администратора из контекста запроса
func GetAdminID(c *gin.Context) uint {
	val, exists := c.Get("adminID")
	if !exists {
		return 0
	}
	id, ok := val.(uint)
	if !ok {
		return 0
	}
	return id
}
