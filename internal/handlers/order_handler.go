package handlers

import (
	"net/http"

	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services"
	"keyshop_backend/internal/services/payment"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	*BaseHandler
	orders   *services.OrderService
	catalog  *services.CatalogService
	users    repositories.UserRepository
	registry *payment.Registry
}

func NewOrderHandler(
	base *BaseHandler,
	orders *services.OrderService,
	catalog *services.CatalogService,
	users repositories.UserRepository,
	registry *payment.Registry,
) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		orders:      orders,
		catalog:     catalog,
		users:       users,
		registry:    registry,
	}
}

func (h *OrderHandler) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("/api")
	{
		api.POST("/orders", h.CreateOrder)
		api.GET("/orders/:id", h.GetOrder)
	}
}

type createOrderRequest struct {
	TelegramID   int64  `json:"telegram_id" validate:"required"`
	Username     string `json:"username"`
	ProductSlug  string `json:"product_slug" validate:"required,slug"`
	DurationDays int    `json:"duration_days" validate:"required,gt=0"`
	Provider     string `json:"provider"`
}

// CreateOrder - инициация покупки: резерв ключа, заказ, платежная ссылка.
// При отказе провайдера заказ не остается висеть - строка удалена,
// ключ вернулся в пул, клиент получает ошибку создания платежа.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	product, err := h.catalog.GetBySlug(ctx, req.ProductSlug)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	user, err := h.users.GetOrCreateByTelegramID(req.TelegramID, req.Username)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	providerName := req.Provider
	provider := h.registry.Default()
	if providerName != "" {
		provider, err = h.registry.Get(providerName)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}
	}

	order, paymentURL, err := h.orders.Purchase(ctx, user.ID, product.ID, req.DurationDays, provider)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":    order.ID,
		"amount":      order.Amount,
		"currency":    order.Currency,
		"provider":    order.Provider,
		"payment_url": paymentURL,
	})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	order, err := h.orders.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": order.ID,
		"status":   order.Status,
		"amount":   order.Amount,
		"currency": order.Currency,
		"provider": order.Provider,
	})
}
