package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"keyshop_backend/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminNotFound = errors.New("admin user not found")
)

type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository

	FindByID(id uint) (*models.User, error)
	FindByTelegramID(telegramID int64) (*models.User, error)
	// GetOrCreateByTelegramID возвращает существующего пользователя
	// либо создает нового, обновляя username и last_seen
	GetOrCreateByTelegramID(telegramID int64, username string) (*models.User, error)
	Save(user *models.User) error

	FindAdminByUsername(username string) (*models.AdminUser, error)
	CreateAdmin(admin *models.AdminUser) error
	SaveAdmin(admin *models.AdminUser) error
}

type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) WithTx(tx *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: tx}
}

func (r *UserRepositoryImpl) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) GetOrCreateByTelegramID(telegramID int64, username string) (*models.User, error) {
	user, err := r.FindByTelegramID(telegramID)
	if err == nil {
		user.Username = username
		user.LastSeen = time.Now()
		if err := r.db.Save(user).Error; err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &models.User{
		TelegramID: telegramID,
		Username:   username,
		LastSeen:   time.Now(),
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepositoryImpl) Save(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepositoryImpl) FindAdminByUsername(username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.Where("username = ?", username).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

func (r *UserRepositoryImpl) CreateAdmin(admin *models.AdminUser) error {
	return r.db.Create(admin).Error
}

func (r *UserRepositoryImpl) SaveAdmin(admin *models.AdminUser) error {
	return r.db.Save(admin).Error
}
