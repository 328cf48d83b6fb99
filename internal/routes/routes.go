package routes

import (
	"net/http"

	"keyshop_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP-маршруты витрины
func RegisterRoutes(ginRouter *gin.Engine, appHandlers *handlers.AppHandlers) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	root := ginRouter.Group("")
	{
		appHandlers.PublicHandler.RegisterRoutes(root)
		appHandlers.OrderHandler.RegisterRoutes(root)
		appHandlers.PaymentHandler.RegisterRoutes(root)
		appHandlers.AdminHandler.RegisterRoutes(root)
	}
}
