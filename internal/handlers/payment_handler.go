package handlers

import (
	"net/http"

	"keyshop_backend/internal/services"
	"keyshop_backend/internal/services/payment"

	"github.com/gin-gonic/gin"
)

// PaymentHandler принимает вебхуки провайдеров.
// Тело подтверждения у каждого провайдера свое и является частью
// wire-контракта: неправильное тело провайдер считает недоставкой и ретраит.
type PaymentHandler struct {
	*BaseHandler
	reconcile *services.ReconcileService
	registry  *payment.Registry
}

func NewPaymentHandler(base *BaseHandler, reconcile *services.ReconcileService, registry *payment.Registry) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler: base,
		reconcile:   reconcile,
		registry:    registry,
	}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("/anypay/webhook", h.Webhook("anypay"))
		payments.POST("/nicepay/webhook", h.Webhook("nicepay"))
		payments.GET("/success", h.Success)
		payments.GET("/fail", h.Fail)
	}
}

// Success - страница возврата после оплаты. Статус заказа здесь не меняется:
// источником истины остается вебхук, редирект - только для пользователя.
func (h *PaymentHandler) Success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Оплата принята. Ключ придет в сообщении от бота.",
	})
}

func (h *PaymentHandler) Fail(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "fail",
		"message": "Оплата не прошла. Попробуйте оформить заказ заново.",
	})
}

// Webhook строит обработчик для конкретного провайдера.
// Поля принимаются в нативных именах провайдера: form-данные и query.
func (h *PaymentHandler) Webhook(providerName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := collectFields(c)

		err := h.reconcile.Handle(c.Request.Context(), providerName, fields)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}

		provider, err := h.registry.Get(providerName)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}

		contentType, body := provider.AckBody()
		c.Data(http.StatusOK, contentType, []byte(body))
	}
}

func collectFields(c *gin.Context) map[string]string {
	fields := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	if err := c.Request.ParseForm(); err == nil {
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
	}
	return fields
}
