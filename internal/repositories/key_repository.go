package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keyshop_backend/internal/models"
)

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrNoAvailableKey = errors.New("no available key for product and duration")
)

type KeyRepository interface {
	// WithTx возвращает репозиторий, привязанный к транзакции
	WithTx(tx *gorm.DB) KeyRepository

	CreateBatch(keys []*models.Key) error
	FindByID(id uint) (*models.Key, error)
	// FindByIDForUpdate берет строку с блокировкой FOR UPDATE;
	// вызывать только внутри транзакции
	FindByIDForUpdate(id uint) (*models.Key, error)
	FindByValue(productID uint, value string) (*models.Key, error)
	// ReserveAvailable атомарно переводит один available-ключ в held.
	// FIFO: самый старый по created_at. Конкурирующие вызовы получают
	// разные ключи (SKIP LOCKED) либо ErrNoAvailableKey.
	ReserveAvailable(productID uint, durationDays int) (*models.Key, error)
	Save(key *models.Key) error
	UpdateFields(id uint, fields map[string]interface{}) error
	CountAvailable(productID uint, durationDays int) (int64, error)
	CountAvailableByDuration(productID uint) (map[int]int64, error)
	ListByProduct(productID uint) ([]models.Key, error)
}

type KeyRepositoryImpl struct {
	db *gorm.DB
}

func NewKeyRepository(db *gorm.DB) KeyRepository {
	return &KeyRepositoryImpl{db: db}
}

func (r *KeyRepositoryImpl) WithTx(tx *gorm.DB) KeyRepository {
	return &KeyRepositoryImpl{db: tx}
}

func (r *KeyRepositoryImpl) CreateBatch(keys []*models.Key) error {
	return r.db.Create(keys).Error
}

func (r *KeyRepositoryImpl) FindByID(id uint) (*models.Key, error) {
	var key models.Key
	err := r.db.First(&key, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *KeyRepositoryImpl) FindByIDForUpdate(id uint) (*models.Key, error) {
	var key models.Key
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&key, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *KeyRepositoryImpl) FindByValue(productID uint, value string) (*models.Key, error) {
	var key models.Key
	err := r.db.Where("product_id = ? AND value = ?", productID, value).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *KeyRepositoryImpl) ReserveAvailable(productID uint, durationDays int) (*models.Key, error) {
	var key models.Key

	// Транзакция обязательна: FOR UPDATE держит блокировку до коммита.
	// SKIP LOCKED - проигравший конкурент не ждет, а берет следующий ключ
	// или получает ErrNoAvailableKey.
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("product_id = ? AND duration_days = ? AND status = ?",
				productID, durationDays, models.KeyStatusAvailable).
			Order("created_at ASC").
			First(&key).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoAvailableKey
			}
			return err
		}

		key.Status = models.KeyStatusHeld
		return tx.Model(&key).Update("status", models.KeyStatusHeld).Error
	})
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *KeyRepositoryImpl) Save(key *models.Key) error {
	return r.db.Save(key).Error
}

func (r *KeyRepositoryImpl) UpdateFields(id uint, fields map[string]interface{}) error {
	result := r.db.Model(&models.Key{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func (r *KeyRepositoryImpl) CountAvailable(productID uint, durationDays int) (int64, error) {
	var count int64
	err := r.db.Model(&models.Key{}).
		Where("product_id = ? AND duration_days = ? AND status = ?",
			productID, durationDays, models.KeyStatusAvailable).
		Count(&count).Error
	return count, err
}

func (r *KeyRepositoryImpl) CountAvailableByDuration(productID uint) (map[int]int64, error) {
	var rows []struct {
		DurationDays int
		Count        int64
	}
	err := r.db.Model(&models.Key{}).
		Select("duration_days, COUNT(*) as count").
		Where("product_id = ? AND status = ?", productID, models.KeyStatusAvailable).
		Group("duration_days").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[int]int64, len(rows))
	for _, row := range rows {
		result[row.DurationDays] = row.Count
	}
	return result, nil
}

func (r *KeyRepositoryImpl) ListByProduct(productID uint) ([]models.Key, error) {
	var keys []models.Key
	err := r.db.Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&keys).Error
	return keys, err
}
