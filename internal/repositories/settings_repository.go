package repositories

import (
	"errors"

	"gorm.io/gorm"

	"keyshop_backend/internal/models"
)

type SettingsRepository interface {
	// Get возвращает единственную строку настроек, создавая дефолтную при отсутствии
	Get() (*models.StoreSettings, error)
	Save(settings *models.StoreSettings) error
}

type SettingsRepositoryImpl struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) Get() (*models.StoreSettings, error) {
	var settings models.StoreSettings
	err := r.db.First(&settings, "id = ?", 1).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = models.StoreSettings{
		ID:         1,
		BotEnabled: true,
		APIEnabled: true,
	}
	if err := r.db.Create(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *SettingsRepositoryImpl) Save(settings *models.StoreSettings) error {
	return r.db.Save(settings).Error
}
