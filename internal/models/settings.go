package models

import "time"

// StoreSettings - единственная строка с флагами витрины.
// Ядро про эти флаги не знает: их читает вызывающий слой (хендлеры/бот)
// в виде StorefrontPolicy перед обращением к сервисам.
type StoreSettings struct {
	ID               uint   `gorm:"primaryKey;default:1" json:"id"`
	BotEnabled       bool   `gorm:"default:false" json:"bot_enabled"`
	APIEnabled       bool   `gorm:"default:true" json:"api_enabled"`
	MaintenanceMode  bool   `gorm:"default:false" json:"maintenance_mode"`
	AlertMessage     string `gorm:"type:text" json:"alert_message"`
	TechnicalMessage string `gorm:"type:text" json:"technical_message"`
	UpdatedAt        time.Time
}

// StorefrontPolicy - снимок флагов на один запрос
type StorefrontPolicy struct {
	Enabled          bool
	APIEnabled       bool
	Maintenance      bool
	AlertMessage     string
	TechnicalMessage string
}

func (s *StoreSettings) Policy() StorefrontPolicy {
	return StorefrontPolicy{
		Enabled:          s.BotEnabled,
		APIEnabled:       s.APIEnabled,
		Maintenance:      s.MaintenanceMode,
		AlertMessage:     s.AlertMessage,
		TechnicalMessage: s.TechnicalMessage,
	}
}
