package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent - аудит-запись входящего вебхука (после проверки подписи).
// Идемпотентность обеспечивается статусом заказа, а не этой таблицей;
// записи нужны для разбора дублей и расхождений по суммам.
type WebhookEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Provider   string         `gorm:"size:30;not null;index" json:"provider"`
	ExternalID string         `gorm:"size:50" json:"external_id"`
	OrderID    uint           `gorm:"index" json:"order_id"`
	Result     string         `gorm:"size:30" json:"result"`
	Amount     float64        `json:"amount"`
	Currency   string         `gorm:"size:10" json:"currency"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt  time.Time      `gorm:"default:now()" json:"created_at"`
}
