package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/pitabwire/frame"
	"github.com/shopspring/decimal"
	"github.com/sokoflow/service-storefront/service/models"
)

// ProductFilter narrows a catalog listing. Zero values match everything.
type ProductFilter struct {
	Query    string
	Category string
	VendorID string
	MaxPrice decimal.NullDecimal
}

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Search(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

type productRepository struct {
	abstractRepository
}

func NewProductRepository(_ context.Context, service *frame.Service) ProductRepository {
	return &productRepository{abstractRepository{service: service}}
}

func (repo *productRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	product := models.Product{}
	err := repo.readDb(ctx).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (repo *productRepository) Search(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	var products []*models.Product
	productQuery := repo.readDb(ctx)

	query := strings.TrimSpace(filter.Query)
	if query != "" {
		searchQ := fmt.Sprintf("%%%s%%", query)
		productQuery = productQuery.Where("name ILIKE ? OR description ILIKE ?", searchQ, searchQ)
	}
	if filter.Category != "" {
		productQuery = productQuery.Where("category = ?", filter.Category)
	}
	if filter.VendorID != "" {
		productQuery = productQuery.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.MaxPrice.Valid {
		productQuery = productQuery.Where("unit_price <= ?", filter.MaxPrice.Decimal)
	}

	err := productQuery.Order("created_at DESC").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (repo *productRepository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := repo.readDb(ctx).Model(&models.Product{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (repo *productRepository) Save(ctx context.Context, product *models.Product) error {
	return repo.writeDb(ctx).Save(product).Error
}

func (repo *productRepository) Delete(ctx context.Context, id string) error {
	return repo.writeDb(ctx).Delete(&models.Product{}, "id = ?", id).Error
}
