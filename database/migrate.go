package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/models"
)

var gormDB *gorm.DB

// ConnectGorm инициализирует GORM с DSN из конфига
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	dsn := cfg.Database.DSN

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate выполняет миграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AdminUser{},
		&models.Product{},
		&models.ProductPrice{},
		&models.Build{},
		&models.Key{},
		&models.Order{},
		&models.WebhookEvent{},
		&models.StoreSettings{},
	)
}
