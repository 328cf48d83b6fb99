package models

import "time"

// User - покупатель (идентифицируется по telegram id, приходит из бот-слоя)
type User struct {
	BaseModel
	TelegramID int64  `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username   string `gorm:"size:150" json:"username"`
	IsAdmin    bool   `gorm:"default:false" json:"is_admin"`
	LastSeen   time.Time

	Orders []Order `gorm:"foreignKey:UserID" json:"-"`
}

// AdminUser - учетка админ-панели
type AdminUser struct {
	BaseModel
	Username     string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"size:200;not null" json:"-"`
	LastLogin    *time.Time
}
