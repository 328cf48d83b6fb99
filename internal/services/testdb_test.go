package services

import (
	"context"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"keyshop_backend/database"
	"keyshop_backend/internal/config"
	"keyshop_backend/internal/models"

	"github.com/stretchr/testify/require"
)

// setupTestDB подключается к тестовой базе из DATABASE_URL.
// Без переменной окружения тесты, которым нужна база, пропускаются.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is not set, skipping database test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	// Чистим данные между тестами
	db.Exec("TRUNCATE webhook_events, orders, keys, builds, product_prices, products, admin_users, users, store_settings RESTART IDENTITY CASCADE")

	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Payments.SettlementCurrency = "RUB"
	cfg.Payments.DefaultProvider = "anypay"
	cfg.Payments.AmountTolerancePercent = 2.0
	cfg.Payments.ExpiryAnchor = "activation"
	cfg.Payments.StaleOrderTTLHours = 24
	return cfg
}

func seedProduct(t *testing.T, db *gorm.DB, slug string, durationDays int, price float64) *models.Product {
	t.Helper()

	product := &models.Product{Slug: slug, Title: slug, IsActive: true}
	require.NoError(t, db.Create(product).Error)
	require.NoError(t, db.Create(&models.ProductPrice{
		ProductID:    product.ID,
		DurationDays: durationDays,
		Price:        price,
	}).Error)
	return product
}

func seedKeys(t *testing.T, db *gorm.DB, productID uint, durationDays, count int) []models.Key {
	t.Helper()

	keys := make([]models.Key, 0, count)
	for i := 0; i < count; i++ {
		value, err := generateKeyValue()
		require.NoError(t, err)
		key := models.Key{
			ProductID:    productID,
			Value:        value,
			DurationDays: durationDays,
			Status:       models.KeyStatusAvailable,
		}
		require.NoError(t, db.Create(&key).Error)
		keys = append(keys, key)
	}
	return keys
}

func seedUser(t *testing.T, db *gorm.DB, telegramID int64) *models.User {
	t.Helper()

	user := &models.User{TelegramID: telegramID, Username: "tester"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// countingDelivery считает вызовы доставки; settle ее сбои не видит
type countingDelivery struct {
	mu    sync.Mutex
	calls []uint
}

func (d *countingDelivery) NotifyPaid(ctx context.Context, orderID uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, orderID)
}

func (d *countingDelivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}
