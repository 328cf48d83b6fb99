package app

import (
	"context"
	"errors"
	"fmt"

	"keyshop_backend/database"
	"keyshop_backend/internal/bot"
	"keyshop_backend/internal/config"
	"keyshop_backend/internal/email"
	"keyshop_backend/internal/handlers"
	"keyshop_backend/internal/logger"
	"keyshop_backend/internal/middleware"
	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/internal/routes"
	"keyshop_backend/internal/services"
	"keyshop_backend/internal/services/payment"
	"keyshop_backend/internal/validator"
	"keyshop_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter, container := SetupRouter(cfg, gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orderWorker := workers.NewOrderWorker(container.OrderRepo, container.OrderService, cfg)
	orderWorker.Start(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// ServiceContainer - явный контекст приложения: все зависимости
// собираются один раз на старте процесса и передаются дальше.
// Глобального мутабельного состояния у сервисов нет.
type ServiceContainer struct {
	OrderRepo        repositories.OrderRepository
	KeyRepo          repositories.KeyRepository
	ProductRepo      repositories.ProductRepository
	UserRepo         repositories.UserRepository
	SettingsRepo     repositories.SettingsRepository
	EventRepo        repositories.WebhookEventRepository
	Registry         *payment.Registry
	InventoryService *services.InventoryService
	CatalogService   *services.CatalogService
	OrderService     *services.OrderService
	ReconcileService *services.ReconcileService
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *ServiceContainer) {
	container := initializeServices(cfg, gormDB)
	appHandlers := initializeHandlers(cfg, container)

	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers)

	return ginRouter, container
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB) *ServiceContainer {
	keyRepo := repositories.NewKeyRepository(gormDB)
	orderRepo := repositories.NewOrderRepository(gormDB)
	productRepo := repositories.NewProductRepository(gormDB)
	userRepo := repositories.NewUserRepository(gormDB)
	settingsRepo := repositories.NewSettingsRepository(gormDB)
	eventRepo := repositories.NewWebhookEventRepository(gormDB)

	registry, err := payment.NewRegistry(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize payment providers", "error", err)
	}
	normalizer := payment.NewNormalizer(cfg)

	alerter := email.NewSender(cfg)
	delivery := bot.NewNotifier(cfg, orderRepo, keyRepo, productRepo, userRepo)

	inventorySvc := services.NewInventoryService(gormDB, keyRepo, cfg)
	catalogSvc := services.NewCatalogService(productRepo, keyRepo)
	orderSvc := services.NewOrderService(gormDB, orderRepo, inventorySvc, catalogSvc, delivery, cfg)
	reconcileSvc := services.NewReconcileService(registry, orderSvc, orderRepo, eventRepo, normalizer, alerter, cfg)

	return &ServiceContainer{
		OrderRepo:        orderRepo,
		KeyRepo:          keyRepo,
		ProductRepo:      productRepo,
		UserRepo:         userRepo,
		SettingsRepo:     settingsRepo,
		EventRepo:        eventRepo,
		Registry:         registry,
		InventoryService: inventorySvc,
		CatalogService:   catalogSvc,
		OrderService:     orderSvc,
		ReconcileService: reconcileSvc,
	}
}

func initializeHandlers(cfg *config.Config, c *ServiceContainer) *handlers.AppHandlers {
	v := validator.New()
	base := handlers.NewBaseHandler(v)

	return &handlers.AppHandlers{
		PublicHandler:  handlers.NewPublicHandler(base, c.CatalogService, c.InventoryService, c.SettingsRepo),
		OrderHandler:   handlers.NewOrderHandler(base, c.OrderService, c.CatalogService, c.UserRepo, c.Registry),
		PaymentHandler: handlers.NewPaymentHandler(base, c.ReconcileService, c.Registry),
		AdminHandler: handlers.NewAdminHandler(base, c.ProductRepo, c.UserRepo, c.KeyRepo,
			c.EventRepo, c.SettingsRepo, c.OrderService, c.OrderRepo, c.InventoryService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	username := cfg.Admin.Username
	password := cfg.Admin.Password

	if username == "" || password == "" {
		logger.Warn("Admin credentials are not configured. Skipping admin seeding.")
		return nil
	}

	var admin models.AdminUser
	result := db.Where("username = ?", username).First(&admin)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "username", username)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found. Creating first admin...", "username", username)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.AdminUser{
		Username:     username,
		PasswordHash: string(hashedPassword),
	}
	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("First admin user created", "username", username)
	return nil
}
