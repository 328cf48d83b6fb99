package repositories

import (
	"gorm.io/gorm"

	"keyshop_backend/internal/models"
)

type WebhookEventRepository interface {
	Create(event *models.WebhookEvent) error
	ListByOrder(orderID uint) ([]models.WebhookEvent, error)
	ListRecent(limit int) ([]models.WebhookEvent, error)
}

type WebhookEventRepositoryImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &WebhookEventRepositoryImpl{db: db}
}

func (r *WebhookEventRepositoryImpl) Create(event *models.WebhookEvent) error {
	return r.db.Create(event).Error
}

func (r *WebhookEventRepositoryImpl) ListByOrder(orderID uint) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}

func (r *WebhookEventRepositoryImpl) ListRecent(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}
