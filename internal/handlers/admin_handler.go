package handlers

import (
	"net/http"
	"time"

	"keyshop_backend/internal/auth"
	"keyshop_backend/internal/middleware"
	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/services"
	"keyshop_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// AdminHandler - управление витриной: продукты, цены, билды, ключи, заказы
type AdminHandler struct {
	*BaseHandler
	products  repositories.ProductRepository
	users     repositories.UserRepository
	keys      repositories.KeyRepository
	events    repositories.WebhookEventRepository
	settings  repositories.SettingsRepository
	orders    *services.OrderService
	orderRepo repositories.OrderRepository
	inventory *services.InventoryService
}

func NewAdminHandler(
	base *BaseHandler,
	products repositories.ProductRepository,
	users repositories.UserRepository,
	keys repositories.KeyRepository,
	events repositories.WebhookEventRepository,
	settings repositories.SettingsRepository,
	orders *services.OrderService,
	orderRepo repositories.OrderRepository,
	inventory *services.InventoryService,
) *AdminHandler {
	return &AdminHandler{
		BaseHandler: base,
		products:    products,
		users:       users,
		keys:        keys,
		events:      events,
		settings:    settings,
		orders:      orders,
		orderRepo:   orderRepo,
		inventory:   inventory,
	}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware())
	{
		admin.GET("/products", h.ListProducts)
		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)

		admin.POST("/products/:id/prices", h.CreatePrice)
		admin.DELETE("/prices/:id", h.DeletePrice)

		admin.POST("/products/:id/builds", h.CreateBuild)
		admin.GET("/products/:id/builds", h.ListBuilds)
		admin.PUT("/builds/:id", h.UpdateBuild)

		admin.POST("/products/:id/keys", h.GenerateKeys)
		admin.GET("/products/:id/keys", h.ListKeys)

		admin.GET("/orders", h.ListOrders)
		admin.POST("/orders/:id/cancel", h.CancelOrder)
		admin.GET("/orders/:id/webhooks", h.ListOrderWebhooks)

		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)

		admin.GET("/stats", h.Stats)
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	admin, err := h.users.FindAdminByUsername(req.Username)
	if err != nil || !auth.CheckPasswordHash(req.Password, admin.PasswordHash) {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid credentials"))
		return
	}

	token, err := auth.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	now := time.Now()
	admin.LastLogin = &now
	_ = h.users.SaveAdmin(admin)

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// --- Продукты ---

func (h *AdminHandler) ListProducts(c *gin.Context) {
	products, err := h.products.FindAll()
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type productRequest struct {
	Slug        string `json:"slug" validate:"required,slug"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	product := &models.Product{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.products.Create(product); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req productRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	product, err := h.products.FindByID(id)
	if err != nil {
		h.HandleServiceError(c, apperrors.ErrProductNotFound)
		return
	}

	product.Slug = req.Slug
	product.Title = req.Title
	product.Description = req.Description
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.products.Save(product); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if err := h.products.Delete(id); err != nil {
		h.HandleServiceError(c, apperrors.ErrProductNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Цены ---

type priceRequest struct {
	DurationDays int     `json:"duration_days" validate:"required,gt=0"`
	Price        float64 `json:"price" validate:"required,gt=0"`
}

func (h *AdminHandler) CreatePrice(c *gin.Context) {
	productID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req priceRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	price := &models.ProductPrice{
		ProductID:    productID,
		DurationDays: req.DurationDays,
		Price:        req.Price,
	}
	if err := h.products.CreatePrice(price); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, price)
}

func (h *AdminHandler) DeletePrice(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if err := h.products.DeletePrice(id); err != nil {
		h.HandleServiceError(c, apperrors.ErrNotFound(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Билды ---

type buildRequest struct {
	Label    string `json:"label" validate:"required"`
	FilePath string `json:"file_path" validate:"required"`
	IsActive *bool  `json:"is_active"`
}

func (h *AdminHandler) CreateBuild(c *gin.Context) {
	productID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req buildRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	build := &models.Build{
		ProductID: productID,
		Label:     req.Label,
		FilePath:  req.FilePath,
		IsActive:  true,
	}
	if req.IsActive != nil {
		build.IsActive = *req.IsActive
	}

	if err := h.products.CreateBuild(build); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, build)
}

func (h *AdminHandler) ListBuilds(c *gin.Context) {
	productID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	builds, err := h.products.ListBuilds(productID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"builds": builds})
}

func (h *AdminHandler) UpdateBuild(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req buildRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	build, err := h.products.FindBuildByID(id)
	if err != nil {
		h.HandleServiceError(c, apperrors.ErrNotFound(err))
		return
	}

	build.Label = req.Label
	build.FilePath = req.FilePath
	if req.IsActive != nil {
		build.IsActive = *req.IsActive
	}

	if err := h.products.SaveBuild(build); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, build)
}

// --- Ключи ---

type generateKeysRequest struct {
	DurationDays int `json:"duration_days" validate:"required,gt=0"`
	Count        int `json:"count" validate:"required,min=1,max=1000"`
}

func (h *AdminHandler) GenerateKeys(c *gin.Context) {
	productID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req generateKeysRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if _, err := h.products.FindByID(productID); err != nil {
		h.HandleServiceError(c, apperrors.ErrProductNotFound)
		return
	}

	keys, err := h.inventory.GenerateKeys(c.Request.Context(), productID, req.DurationDays, req.Count)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, k.Value)
	}
	c.JSON(http.StatusCreated, gin.H{"count": len(values), "keys": values})
}

func (h *AdminHandler) ListKeys(c *gin.Context) {
	productID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	keys, err := h.keys.ListByProduct(productID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// --- Заказы ---

func (h *AdminHandler) ListOrders(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", 50)
	orders, err := h.orderRepo.ListRecent(limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *AdminHandler) CancelOrder(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if err := h.orders.AdminCancel(c.Request.Context(), id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *AdminHandler) ListOrderWebhooks(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	events, err := h.events.ListByOrder(id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// --- Настройки витрины ---

func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get()
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type settingsRequest struct {
	BotEnabled       *bool   `json:"bot_enabled"`
	APIEnabled       *bool   `json:"api_enabled"`
	MaintenanceMode  *bool   `json:"maintenance_mode"`
	AlertMessage     *string `json:"alert_message"`
	TechnicalMessage *string `json:"technical_message"`
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	settings, err := h.settings.Get()
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if req.BotEnabled != nil {
		settings.BotEnabled = *req.BotEnabled
	}
	if req.APIEnabled != nil {
		settings.APIEnabled = *req.APIEnabled
	}
	if req.MaintenanceMode != nil {
		settings.MaintenanceMode = *req.MaintenanceMode
	}
	if req.AlertMessage != nil {
		settings.AlertMessage = *req.AlertMessage
	}
	if req.TechnicalMessage != nil {
		settings.TechnicalMessage = *req.TechnicalMessage
	}

	if err := h.settings.Save(settings); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// --- Статистика ---

func (h *AdminHandler) Stats(c *gin.Context) {
	db := h.GetDB(c)

	var stats struct {
		Orders    int64 `json:"orders"`
		Paid      int64 `json:"paid_orders"`
		Available int64 `json:"available_keys"`
		Sold      int64 `json:"sold_keys"`
	}

	if err := db.Model(&models.Order{}).Count(&stats.Orders).Error; err != nil {
		h.HandleServiceError(c, err)
		return
	}
	db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPaid).Count(&stats.Paid)
	db.Model(&models.Key{}).Where("status = ?", models.KeyStatusAvailable).Count(&stats.Available)
	db.Model(&models.Key{}).Where("status IN ?",
		[]models.KeyStatus{models.KeyStatusSold, models.KeyStatusActivated}).Count(&stats.Sold)

	c.JSON(http.StatusOK, stats)
}
