package repositories

import (
	"errors"

	"gorm.io/gorm"

	"keyshop_backend/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrPriceNotFound   = errors.New("price not found")
	ErrBuildNotFound   = errors.New("build not found")
)

type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository

	Create(product *models.Product) error
	FindByID(id uint) (*models.Product, error)
	FindBySlug(slug string) (*models.Product, error)
	FindActive() ([]models.Product, error)
	FindAll() ([]models.Product, error)
	Save(product *models.Product) error
	Delete(id uint) error

	CreatePrice(price *models.ProductPrice) error
	FindPrice(productID uint, durationDays int) (*models.ProductPrice, error)
	ListPrices(productID uint) ([]models.ProductPrice, error)
	DeletePrice(id uint) error

	CreateBuild(build *models.Build) error
	FindBuildByID(id uint) (*models.Build, error)
	// FindActiveBuild возвращает последний активный билд продукта
	FindActiveBuild(productID uint) (*models.Build, error)
	ListBuilds(productID uint) ([]models.Build, error)
	SaveBuild(build *models.Build) error
}

type ProductRepositoryImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &ProductRepositoryImpl{db: db}
}

func (r *ProductRepositoryImpl) WithTx(tx *gorm.DB) ProductRepository {
	return &ProductRepositoryImpl{db: tx}
}

func (r *ProductRepositoryImpl) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

func (r *ProductRepositoryImpl) FindByID(id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Prices").First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepositoryImpl) FindBySlug(slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.Preload("Prices").Where("slug = ?", slug).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepositoryImpl) FindActive() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Preload("Prices", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_prices.duration_days ASC")
	}).Where("is_active = ?", true).Order("id ASC").Find(&products).Error
	return products, err
}

func (r *ProductRepositoryImpl) FindAll() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Preload("Prices").Order("id ASC").Find(&products).Error
	return products, err
}

func (r *ProductRepositoryImpl) Save(product *models.Product) error {
	return r.db.Save(product).Error
}

func (r *ProductRepositoryImpl) Delete(id uint) error {
	result := r.db.Select("Prices", "Builds").Delete(&models.Product{BaseModel: models.BaseModel{ID: id}})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepositoryImpl) CreatePrice(price *models.ProductPrice) error {
	return r.db.Create(price).Error
}

func (r *ProductRepositoryImpl) FindPrice(productID uint, durationDays int) (*models.ProductPrice, error) {
	var price models.ProductPrice
	err := r.db.Where("product_id = ? AND duration_days = ?", productID, durationDays).
		First(&price).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPriceNotFound
		}
		return nil, err
	}
	return &price, nil
}

func (r *ProductRepositoryImpl) ListPrices(productID uint) ([]models.ProductPrice, error) {
	var prices []models.ProductPrice
	err := r.db.Where("product_id = ?", productID).
		Order("duration_days ASC").
		Find(&prices).Error
	return prices, err
}

func (r *ProductRepositoryImpl) DeletePrice(id uint) error {
	result := r.db.Delete(&models.ProductPrice{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPriceNotFound
	}
	return nil
}

func (r *ProductRepositoryImpl) CreateBuild(build *models.Build) error {
	return r.db.Create(build).Error
}

func (r *ProductRepositoryImpl) FindBuildByID(id uint) (*models.Build, error) {
	var build models.Build
	err := r.db.First(&build, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuildNotFound
		}
		return nil, err
	}
	return &build, nil
}

func (r *ProductRepositoryImpl) FindActiveBuild(productID uint) (*models.Build, error) {
	var build models.Build
	err := r.db.Where("product_id = ? AND is_active = ?", productID, true).
		Order("created_at DESC").
		First(&build).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBuildNotFound
		}
		return nil, err
	}
	return &build, nil
}

func (r *ProductRepositoryImpl) ListBuilds(productID uint) ([]models.Build, error) {
	var builds []models.Build
	err := r.db.Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&builds).Error
	return builds, err
}

func (r *ProductRepositoryImpl) SaveBuild(build *models.Build) error {
	return r.db.Save(build).Error
}
