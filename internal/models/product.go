package models

// Product - продукт каталога. Неизменяем на время жизни заказа.
type Product struct {
	BaseModel
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Prices []ProductPrice `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"prices"`
	Builds []Build        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"builds"`
	Keys   []Key          `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
}

// ProductPrice - цена за вариант длительности, уникальна на (product, duration)
type ProductPrice struct {
	BaseModel
	ProductID    uint    `gorm:"not null;index;uniqueIndex:uq_product_duration" json:"product_id"`
	DurationDays int     `gorm:"not null;uniqueIndex:uq_product_duration" json:"duration_days"`
	Price        float64 `gorm:"not null" json:"price"`
}

// Build - дистрибутив продукта; покупателю отдается активный билд
type Build struct {
	BaseModel
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Label     string `gorm:"size:100;not null" json:"label"`
	FilePath  string `gorm:"size:300;not null" json:"file_path"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`
}
