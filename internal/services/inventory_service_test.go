package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Пул из N ключей, 2N конкурентных попыток: ровно N успехов,
// все выданные ключи разные, остальные получают OutOfStock
func TestReserveConcurrent(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "concurrent", 30, 500)
	const n = 8
	seedKeys(t, db, product.ID, 30, n)

	var wg sync.WaitGroup
	results := make(chan *models.Key, 2*n)
	failures := make(chan error, 2*n)

	for i := 0; i < 2*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, err := inv.Reserve(context.Background(), product.ID, 30)
			if err != nil {
				failures <- err
				return
			}
			results <- key
		}()
	}
	wg.Wait()
	close(results)
	close(failures)

	seen := make(map[uint]bool)
	for key := range results {
		assert.False(t, seen[key.ID], "key %d reserved twice", key.ID)
		seen[key.ID] = true
	}
	assert.Len(t, seen, n)

	failed := 0
	for err := range failures {
		assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
		failed++
	}
	assert.Equal(t, n, failed)
}

// FIFO: первым уходит самый старый ключ
func TestReserveFIFO(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "fifo", 30, 500)
	keys := seedKeys(t, db, product.ID, 30, 3)
	// Явно делаем keys[0] самым старым
	oldest := keys[0]
	require.NoError(t, db.Model(&models.Key{}).Where("id = ?", oldest.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)

	reserved, err := inv.Reserve(context.Background(), product.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, oldest.ID, reserved.ID)
	assert.Equal(t, models.KeyStatusHeld, reserved.Status)
}

func TestReleaseIdempotent(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "release", 30, 500)
	seedKeys(t, db, product.ID, 30, 1)

	key, err := inv.Reserve(context.Background(), product.ID, 30)
	require.NoError(t, err)

	require.NoError(t, inv.Release(context.Background(), key.ID))
	// Повторный release свободного ключа - no-op
	require.NoError(t, inv.Release(context.Background(), key.ID))

	reloaded, err := keyRepo.FindByID(key.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KeyStatusAvailable, reloaded.Status)
	assert.Nil(t, reloaded.OrderID)
	assert.Nil(t, reloaded.SoldToUserID)
}

func TestReleaseSoldKeyFails(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "release-sold", 30, 500)
	seedKeys(t, db, product.ID, 30, 1)
	user := seedUser(t, db, 1001)

	key, err := inv.Reserve(context.Background(), product.ID, 30)
	require.NoError(t, err)
	require.NoError(t, inv.WithTx(db).FinalizeSale(context.Background(), key.ID, user.ID))

	err = inv.Release(context.Background(), key.ID)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)
}

func TestFinalizeSaleRequiresHeld(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "finalize", 30, 500)
	keys := seedKeys(t, db, product.ID, 30, 1)
	user := seedUser(t, db, 1002)

	// available → sold запрещен
	err := inv.WithTx(db).FinalizeSale(context.Background(), keys[0].ID, user.ID)
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidTransition, appErr.Code)
}

func TestFinalizeSaleExpiryAnchorSale(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	cfg := testConfig()
	cfg.Payments.ExpiryAnchor = "sale"
	inv := NewInventoryService(db, keyRepo, cfg)

	product := seedProduct(t, db, "anchor-sale", 30, 500)
	seedKeys(t, db, product.ID, 30, 1)
	user := seedUser(t, db, 1003)

	key, err := inv.Reserve(context.Background(), product.ID, 30)
	require.NoError(t, err)
	require.NoError(t, inv.WithTx(db).FinalizeSale(context.Background(), key.ID, user.ID))

	reloaded, err := keyRepo.FindByID(key.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KeyStatusSold, reloaded.Status)
	require.NotNil(t, reloaded.ExpiresAt, "sale anchor starts expiry at sale time")
	assert.NotNil(t, reloaded.SoldAt)
	require.NotNil(t, reloaded.SoldToUserID)
	assert.Equal(t, user.ID, *reloaded.SoldToUserID)
}

// Сценарий D: первая активация привязывает устройство,
// повторная с тем же uuid - только чтение, с другим - отказ
func TestActivateDeviceBinding(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "activate", 30, 500)
	seedKeys(t, db, product.ID, 30, 1)
	user := seedUser(t, db, 1004)

	key, err := inv.Reserve(context.Background(), product.ID, 30)
	require.NoError(t, err)
	require.NoError(t, inv.WithTx(db).FinalizeSale(context.Background(), key.ID, user.ID))

	first, err := inv.Activate(context.Background(), product.ID, key.Value, "U1")
	require.NoError(t, err)
	require.NotNil(t, first.ExpiresAt)
	require.NotNil(t, first.Remaining)
	assert.Equal(t, 29, first.Remaining.Days)

	// Повторная активация тем же устройством не двигает expires_at
	second, err := inv.Activate(context.Background(), product.ID, key.Value, "U1")
	require.NoError(t, err)
	assert.WithinDuration(t, *first.ExpiresAt, *second.ExpiresAt, time.Second)

	// Чужое устройство
	_, err = inv.Activate(context.Background(), product.ID, key.Value, "U2")
	assert.ErrorIs(t, err, apperrors.ErrDeviceMismatch)

	reloaded, err := keyRepo.FindByID(key.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KeyStatusActivated, reloaded.Status)
	assert.Equal(t, "U1", reloaded.ActivationUUID)
	assert.WithinDuration(t, *first.ExpiresAt, *reloaded.ExpiresAt, time.Second)
}

func TestActivateNotSoldKey(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "not-sold", 30, 500)
	keys := seedKeys(t, db, product.ID, 30, 1)

	_, err := inv.Activate(context.Background(), product.ID, keys[0].Value, "U1")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotSold)
}

func TestActivateUnknownKey(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "unknown-key", 30, 500)

	_, err := inv.Activate(context.Background(), product.ID, "MPH-AAAAA-AAAAA-AAAAA-AAAAA", "U1")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

// Активация после истечения срока переводит ключ в expired
func TestActivateExpiredKey(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "expired", 30, 500)
	seedKeys(t, db, product.ID, 30, 1)
	user := seedUser(t, db, 1005)

	key, err := inv.Reserve(context.Background(), product.ID, 30)
	require.NoError(t, err)
	require.NoError(t, inv.WithTx(db).FinalizeSale(context.Background(), key.ID, user.ID))

	_, err = inv.Activate(context.Background(), product.ID, key.Value, "U1")
	require.NoError(t, err)

	// Отматываем срок в прошлое
	past := time.Now().Add(-time.Hour)
	require.NoError(t, keyRepo.UpdateFields(key.ID, map[string]interface{}{"expires_at": past}))

	_, err = inv.Activate(context.Background(), product.ID, key.Value, "U1")
	assert.ErrorIs(t, err, apperrors.ErrKeyExpired)

	reloaded, err := keyRepo.FindByID(key.ID)
	require.NoError(t, err)
	assert.Equal(t, models.KeyStatusExpired, reloaded.Status)
}

func TestGenerateKeysBounds(t *testing.T) {
	db := setupTestDB(t)
	keyRepo := repositories.NewKeyRepository(db)
	inv := NewInventoryService(db, keyRepo, testConfig())

	product := seedProduct(t, db, "gen", 30, 500)

	_, err := inv.GenerateKeys(context.Background(), product.ID, 30, 0)
	assert.Error(t, err)
	_, err = inv.GenerateKeys(context.Background(), product.ID, 30, 1001)
	assert.Error(t, err)

	keys, err := inv.GenerateKeys(context.Background(), product.ID, 30, 5)
	require.NoError(t, err)
	assert.Len(t, keys, 5)

	count, err := keyRepo.CountAvailable(product.ID, 30)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}
