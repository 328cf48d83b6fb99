package services

import (
	"context"
	"errors"

	"keyshop_backend/internal/models"
	"keyshop_backend/internal/repositories"
	"keyshop_backend/pkg/apperrors"
)

// ProductListing - витринное представление продукта:
// какие длительности есть в наличии и по какой цене
type ProductListing struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Available   map[int]int64     `json:"available"`
	Prices      map[int]float64   `json:"prices"`
}

type CatalogService struct {
	products repositories.ProductRepository
	keys     repositories.KeyRepository
}

func NewCatalogService(products repositories.ProductRepository, keys repositories.KeyRepository) *CatalogService {
	return &CatalogService{products: products, keys: keys}
}

// ListActive возвращает активные продукты со счетчиками доступных ключей
func (s *CatalogService) ListActive(ctx context.Context) ([]ProductListing, error) {
	products, err := s.products.FindActive()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	listings := make([]ProductListing, 0, len(products))
	for _, p := range products {
		available, err := s.keys.CountAvailableByDuration(p.ID)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}

		prices := make(map[int]float64, len(p.Prices))
		for _, price := range p.Prices {
			prices[price.DurationDays] = price.Price
		}

		listings = append(listings, ProductListing{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: p.Description,
			Available:   available,
			Prices:      prices,
		})
	}
	return listings, nil
}

func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.products.FindBySlug(slug)
	if err != nil {
		if errors.Is(err, repositories.ErrProductNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return product, nil
}

// GetPrice возвращает цену варианта продукт+длительность
func (s *CatalogService) GetPrice(ctx context.Context, productID uint, durationDays int) (*models.ProductPrice, error) {
	price, err := s.products.FindPrice(productID, durationDays)
	if err != nil {
		if errors.Is(err, repositories.ErrPriceNotFound) {
			return nil, apperrors.ErrNoPrice
		}
		return nil, apperrors.InternalError(err)
	}
	return price, nil
}

// GetActiveBuild возвращает текущий билд для выдачи покупателю
func (s *CatalogService) GetActiveBuild(ctx context.Context, productID uint) (*models.Build, error) {
	build, err := s.products.FindActiveBuild(productID)
	if err != nil {
		if errors.Is(err, repositories.ErrBuildNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return build, nil
}
