package models

import "time"

// Order - намерение покупки: пользователь, продукт/длительность, сумма
// и (после резервирования) ровно один ключ.
// Инвариант: key_id после установки не меняется; paid - терминальный статус.
type Order struct {
	BaseModel
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	ProductID     uint        `gorm:"not null;index" json:"product_id"`
	DurationDays  int         `gorm:"not null" json:"duration_days"`
	Amount        float64     `gorm:"not null" json:"amount"` // в целых единицах валюты, не в копейках
	Currency      string      `gorm:"size:10;default:'RUB'" json:"currency"`
	Provider      string      `gorm:"size:30" json:"provider"`
	ProviderPayID string      `gorm:"size:50;index" json:"provider_pay_id,omitempty"`
	PaymentURL    string      `gorm:"size:400" json:"payment_url,omitempty"`
	Status        OrderStatus `gorm:"size:20;default:'pending';index" json:"status"`
	KeyID         *uint       `json:"key_id,omitempty"`
	PaidAt        *time.Time  `json:"paid_at,omitempty"`
	FailedAt      *time.Time  `json:"failed_at,omitempty"`

	// Relations
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"-"`
	Key     *Key    `gorm:"foreignKey:KeyID" json:"-"`
}
