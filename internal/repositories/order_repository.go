package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keyshop_backend/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository

	Create(order *models.Order) error
	FindByID(id uint) (*models.Order, error)
	// FindByIDForUpdate - строка с блокировкой FOR UPDATE, только внутри транзакции.
	// Сериализует конкурирующие settle по одному заказу.
	FindByIDForUpdate(id uint) (*models.Order, error)
	FindByProviderPayID(provider, payID string) (*models.Order, error)
	Save(order *models.Order) error
	Delete(id uint) error
	ListByUser(userID uint, limit int) ([]models.Order, error)
	ListRecent(limit int) ([]models.Order, error)
	// FindStaleWaiting возвращает waiting-заказы старше порога
	FindStaleWaiting(olderThan time.Time) ([]models.Order, error)
}

type OrderRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

func (r *OrderRepositoryImpl) WithTx(tx *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{db: tx}
}

func (r *OrderRepositoryImpl) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *OrderRepositoryImpl) FindByID(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) FindByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) FindByProviderPayID(provider, payID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("provider = ? AND provider_pay_id = ?", provider, payID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepositoryImpl) Save(order *models.Order) error {
	return r.db.Save(order).Error
}

func (r *OrderRepositoryImpl) Delete(id uint) error {
	result := r.db.Delete(&models.Order{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepositoryImpl) ListByUser(userID uint, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&orders).Error
	return orders, err
}

func (r *OrderRepositoryImpl) ListRecent(limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.Preload("User").Preload("Product").Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&orders).Error
	return orders, err
}

func (r *OrderRepositoryImpl) FindStaleWaiting(olderThan time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Where("status IN ? AND created_at < ?",
		[]models.OrderStatus{models.OrderStatusPending, models.OrderStatusWaiting}, olderThan).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}
