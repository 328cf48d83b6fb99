package models

import "time"

// Key - лицензионный ключ. Единственный владелец статуса - InventoryService.
// Инвариант: у held/sold ключа ровно один владеющий заказ (OrderID);
// activation_uuid выставляется не более одного раза.
type Key struct {
	BaseModel
	ProductID      uint      `gorm:"not null;index:idx_keys_pool" json:"product_id"`
	Value          string    `gorm:"size:100;uniqueIndex;not null" json:"value"`
	DurationDays   int       `gorm:"not null;index:idx_keys_pool" json:"duration_days"`
	Status         KeyStatus `gorm:"size:20;default:'available';index:idx_keys_pool" json:"status"`
	SoldToUserID   *uint     `json:"sold_to_user_id,omitempty"`
	OrderID        *uint     `json:"order_id,omitempty"`
	ActivationUUID string    `gorm:"size:120" json:"activation_uuid,omitempty"`
	SoldAt         *time.Time `json:"sold_at,omitempty"`
	ActivatedAt    *time.Time `json:"activated_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// ExpiredAt сообщает, истек ли ключ на момент now.
// Граница: expires_at, равный now, еще НЕ истек - только строго позже.
func (k *Key) ExpiredAt(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}
