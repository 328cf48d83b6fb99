package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"keyshop_backend/internal/config"
	"keyshop_backend/internal/logger"
	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/pkg/apperrors"
)

const (
	keyPrefix      = "MPH"
	keyGroupCount  = 4
	keyGroupLength = 5
	keyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ActivationResult - ответ на активацию ключа устройством
type ActivationResult struct {
	Key       string     `json:"key"`
	UUID      string     `json:"uuid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Remaining *Remaining `json:"remaining,omitempty"`
}

type Remaining struct {
	Days  int `json:"days"`
	Hours int `json:"hours"`
}

// InventoryService - единственный писатель статусов ключей.
// Все переходы идут через него; остальные сервисы статус не трогают.
type InventoryService struct {
	db   *gorm.DB
	keys repositories.KeyRepository
	cfg  *config.Config
}

func NewInventoryService(db *gorm.DB, keys repositories.KeyRepository, cfg *config.Config) *InventoryService {
	return &InventoryService{db: db, keys: keys, cfg: cfg}
}

// WithTx возвращает копию сервиса, работающую внутри транзакции
func (s *InventoryService) WithTx(tx *gorm.DB) *InventoryService {
	return &InventoryService{db: tx, keys: s.keys.WithTx(tx), cfg: s.cfg}
}

// Reserve атомарно забирает один available-ключ в held.
// FIFO по created_at; конкурирующие вызовы никогда не получают один ключ.
func (s *InventoryService) Reserve(ctx context.Context, productID uint, durationDays int) (*models.Key, error) {
	key, err := s.keys.ReserveAvailable(productID, durationDays)
	if err != nil {
		if errors.Is(err, repositories.ErrNoAvailableKey) {
			return nil, apperrors.ErrOutOfStock
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Key reserved",
		slog.Uint64("key_id", uint64(key.ID)),
		slog.Uint64("product_id", uint64(productID)),
		slog.Int("duration_days", durationDays))
	return key, nil
}

// Release возвращает held-ключ в пул, снимая привязку к заказу.
// Идемпотентна: повторный release уже свободного ключа - no-op.
func (s *InventoryService) Release(ctx context.Context, keyID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		keys := s.keys.WithTx(tx)
		key, err := keys.FindByIDForUpdate(keyID)
		if err != nil {
			if errors.Is(err, repositories.ErrKeyNotFound) {
				return apperrors.ErrKeyNotFound
			}
			return apperrors.InternalError(err)
		}

		switch key.Status {
		case models.KeyStatusAvailable:
			return nil
		case models.KeyStatusHeld:
			return keys.UpdateFields(key.ID, map[string]interface{}{
				"status":          models.KeyStatusAvailable,
				"order_id":        nil,
				"sold_to_user_id": nil,
				"sold_at":         nil,
			})
		default:
			return apperrors.ErrInvalidTransition("key",
				fmt.Sprintf("cannot release key in status %s", key.Status))
		}
	})
	if err != nil {
		return err
	}

	logger.CtxInfo(ctx, "Key released", slog.Uint64("key_id", uint64(keyID)))
	return nil
}

// FinalizeSale переводит held → sold, проставляя владельца и sold_at.
// При expiry_anchor=sale срок ключа стартует здесь.
// Вызывается внутри транзакции settle - сервис должен быть привязан к ней через WithTx.
func (s *InventoryService) FinalizeSale(ctx context.Context, keyID, userID uint) error {
	key, err := s.keys.FindByIDForUpdate(keyID)
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return apperrors.ErrKeyNotFound
		}
		return apperrors.InternalError(err)
	}

	if key.Status != models.KeyStatusHeld {
		return apperrors.ErrInvalidTransition("key",
			fmt.Sprintf("finalize_sale requires held key, got %s", key.Status))
	}

	now := time.Now()
	fields := map[string]interface{}{
		"status":          models.KeyStatusSold,
		"sold_to_user_id": userID,
		"sold_at":         now,
	}
	if s.cfg.Payments.ExpiryAnchor == "sale" && key.ExpiresAt == nil {
		fields["expires_at"] = now.AddDate(0, 0, key.DurationDays)
	}

	if err := s.keys.UpdateFields(key.ID, fields); err != nil {
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Key sold",
		slog.Uint64("key_id", uint64(keyID)),
		slog.Uint64("user_id", uint64(userID)))
	return nil
}

// Activate - аутентификация устройства по ключу.
// Первый вызов привязывает uuid устройства и запускает срок действия,
// повторный с тем же uuid - только чтение, с другим - отказ.
func (s *InventoryService) Activate(ctx context.Context, productID uint, keyValue, deviceUUID string) (*ActivationResult, error) {
	var result *ActivationResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		keys := s.keys.WithTx(tx)
		key, err := keys.FindByValue(productID, keyValue)
		if err != nil {
			if errors.Is(err, repositories.ErrKeyNotFound) {
				return apperrors.ErrKeyNotFound
			}
			return apperrors.InternalError(err)
		}

		if key.Status == models.KeyStatusAvailable || key.Status == models.KeyStatusHeld {
			return apperrors.ErrKeyNotSold
		}

		if key.ActivationUUID != "" && key.ActivationUUID != deviceUUID {
			return apperrors.ErrDeviceMismatch
		}

		now := time.Now()

		// Строго позже expires_at; граница не считается истечением
		if key.ExpiredAt(now) {
			if key.Status != models.KeyStatusExpired {
				if err := keys.UpdateFields(key.ID, map[string]interface{}{
					"status": models.KeyStatusExpired,
				}); err != nil {
					return apperrors.InternalError(err)
				}
			}
			return apperrors.ErrKeyExpired
		}

		if key.ActivationUUID == "" {
			fields := map[string]interface{}{
				"activation_uuid": deviceUUID,
				"status":          models.KeyStatusActivated,
				"activated_at":    now,
			}
			if key.ExpiresAt == nil {
				expires := now.AddDate(0, 0, key.DurationDays)
				fields["expires_at"] = expires
				key.ExpiresAt = &expires
			}
			if err := keys.UpdateFields(key.ID, fields); err != nil {
				return apperrors.InternalError(err)
			}

			logger.CtxInfo(ctx, "Key activated",
				slog.Uint64("key_id", uint64(key.ID)),
				slog.String("device_uuid", deviceUUID))
		}

		result = &ActivationResult{
			Key:       keyValue,
			UUID:      deviceUUID,
			ExpiresAt: key.ExpiresAt,
		}
		if key.ExpiresAt != nil {
			delta := key.ExpiresAt.Sub(now)
			result.Remaining = &Remaining{
				Days:  int(delta.Hours()) / 24,
				Hours: int(delta.Hours()) % 24,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateKeys создает count новых ключей вида MPH-XXXXX-XXXXX-XXXXX-XXXXX
func (s *InventoryService) GenerateKeys(ctx context.Context, productID uint, durationDays, count int) ([]models.Key, error) {
	if count < 1 || count > 1000 {
		return nil, apperrors.NewBadRequestError("count must be between 1 and 1000")
	}

	keys := make([]*models.Key, 0, count)
	for i := 0; i < count; i++ {
		value, err := generateKeyValue()
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		keys = append(keys, &models.Key{
			ProductID:    productID,
			Value:        value,
			DurationDays: durationDays,
			Status:       models.KeyStatusAvailable,
		})
	}

	if err := s.keys.CreateBatch(keys); err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Keys generated",
		slog.Uint64("product_id", uint64(productID)),
		slog.Int("duration_days", durationDays),
		slog.Int("count", count))

	out := make([]models.Key, 0, count)
	for _, k := range keys {
		out = append(out, *k)
	}
	return out, nil
}

func generateKeyValue() (string, error) {
	groups := make([]string, 0, keyGroupCount)
	buf := make([]byte, keyGroupLength)
	for g := 0; g < keyGroupCount; g++ {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		chars := make([]byte, keyGroupLength)
		for i, b := range buf {
			chars[i] = keyAlphabet[int(b)%len(keyAlphabet)]
		}
		groups = append(groups, string(chars))
	}
	return keyPrefix + "-" + strings.Join(groups, "-"), nil
}
