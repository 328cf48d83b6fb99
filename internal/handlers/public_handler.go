package handlers

import (
	"net/http"

	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services"
	"keyshop_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// PublicHandler - витринный API: список продуктов и активация ключей
type PublicHandler struct {
	*BaseHandler
	catalog   *services.CatalogService
	inventory *services.InventoryService
	settings  repositories.SettingsRepository
}

func NewPublicHandler(
	base *BaseHandler,
	catalog *services.CatalogService,
	inventory *services.InventoryService,
	settings repositories.SettingsRepository,
) *PublicHandler {
	return &PublicHandler{
		BaseHandler: base,
		catalog:     catalog,
		inventory:   inventory,
		settings:    settings,
	}
}

func (h *PublicHandler) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("/api")
	{
		api.GET("/products", h.GetProducts)
		api.POST("/:product_slug/auth", h.AuthKey)
	}
}

// apiEnabled проверяет политику витрины. Ядро про "выключено" не знает -
// гейт живет на вызывающем слое.
func (h *PublicHandler) apiEnabled(c *gin.Context) bool {
	settings, err := h.settings.Get()
	if err != nil {
		// Не блокируем витрину из-за сбоя чтения настроек
		return true
	}
	policy := settings.Policy()
	if !policy.APIEnabled || policy.Maintenance {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API is disabled"})
		return false
	}
	return true
}

func (h *PublicHandler) GetProducts(c *gin.Context) {
	if !h.apiEnabled(c) {
		return
	}

	listings, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": listings})
}

type authKeyRequest struct {
	Key  string `json:"key" validate:"required"`
	UUID string `json:"uuid" validate:"required"`
}

// AuthKey - аутентификация устройства по купленному ключу.
// Ошибки доменного уровня возвращаются в теле с success=false,
// как их ожидает клиентский загрузчик.
func (h *PublicHandler) AuthKey(c *gin.Context) {
	if !h.apiEnabled(c) {
		return
	}

	var req authKeyRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	product, err := h.catalog.GetBySlug(c.Request.Context(), c.Param("product_slug"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	result, err := h.inventory.Activate(c.Request.Context(), product.ID, req.Key, req.UUID)
	if err != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) {
			switch appErr.Code {
			case apperrors.CodeNotFound:
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "Key mismatch"})
				return
			case apperrors.CodeKeyNotSold:
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "Key not sold"})
				return
			case apperrors.CodeDeviceMismatch:
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "HWID mismatch"})
				return
			case apperrors.CodeKeyExpired:
				c.JSON(http.StatusOK, gin.H{"success": false, "error": "Key expired"})
				return
			}
		}
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"key":       result.Key,
		"uuid":      result.UUID,
		"remaining": result.Remaining,
	})
}
