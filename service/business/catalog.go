package business

import (
	"context"
	"errors"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
	"github.com/sokoflow/service-storefront/service/repository"
	"gorm.io/gorm"
)

// CatalogBusiness covers customer browsing and the vendor side of the
// product catalog, plus the dashboard sales summary.
type CatalogBusiness interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]string, error)

	CreateProduct(ctx context.Context, vendorID string, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, vendorID string, id string, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, vendorID string, id string) error

	VendorSales(ctx context.Context, vendorID string) (*repository.VendorSales, error)
}

func NewCatalogBusiness(ctx context.Context, service *frame.Service) (CatalogBusiness, error) {
	if service == nil {
		return nil, ErrorInitializationFail
	}
	return &catalogBusiness{
		service:     service,
		productRepo: repository.NewProductRepository(ctx, service),
		orderRepo:   repository.NewOrderRepository(ctx, service),
	}, nil
}

type catalogBusiness struct {
	service     *frame.Service
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
}

func (cb *catalogBusiness) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*models.Product, error) {
	return cb.productRepo.Search(ctx, filter)
}

func (cb *catalogBusiness) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := cb.productRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrorProductDoesNotExist
	}
	return product, err
}

func (cb *catalogBusiness) ListCategories(ctx context.Context) ([]string, error) {
	return cb.productRepo.ListCategories(ctx)
}

func (cb *catalogBusiness) CreateProduct(ctx context.Context, vendorID string, product *models.Product) (*models.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	product.VendorID = vendorID
	product.GenID(ctx)
	if err := cb.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (cb *catalogBusiness) UpdateProduct(ctx context.Context, vendorID string, id string, product *models.Product) (*models.Product, error) {
	existing, err := cb.ownedProduct(ctx, vendorID, id)
	if err != nil {
		return nil, err
	}
	if err = validateProduct(product); err != nil {
		return nil, err
	}

	existing.Name = product.Name
	existing.Description = product.Description
	existing.Category = product.Category
	existing.ImageURL = product.ImageURL
	existing.UnitPrice = product.UnitPrice
	existing.Currency = product.Currency
	existing.StockQuantity = product.StockQuantity

	if err = cb.productRepo.Save(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (cb *catalogBusiness) DeleteProduct(ctx context.Context, vendorID string, id string) error {
	if _, err := cb.ownedProduct(ctx, vendorID, id); err != nil {
		return err
	}
	return cb.productRepo.Delete(ctx, id)
}

func (cb *catalogBusiness) VendorSales(ctx context.Context, vendorID string) (*repository.VendorSales, error) {
	return cb.orderRepo.SalesSummaryForVendor(ctx, vendorID)
}

func (cb *catalogBusiness) ownedProduct(ctx context.Context, vendorID string, id string) (*models.Product, error) {
	existing, err := cb.productRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrorProductDoesNotExist
	}
	if err != nil {
		return nil, err
	}
	if existing.VendorID != vendorID {
		return nil, ErrorNotProductOwner
	}
	return existing, nil
}

func validateProduct(product *models.Product) error {
	if product == nil || product.Name == "" {
		return ErrorInvalidProduct
	}
	if !product.UnitPrice.Valid || product.UnitPrice.Decimal.Sign() <= 0 {
		return ErrorInvalidProduct
	}
	return nil
}
