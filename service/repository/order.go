package repository

import (
	"context"

	"github.com/pitabwire/frame"
	"github.com/shopspring/decimal"
	"github.com/sokoflow/service-storefront/service/models"
)

// VendorSales aggregates settled order lines for one vendor.
type VendorSales struct {
	VendorID    string          `json:"vendorId"`
	TotalOrders int64           `json:"totalOrders"`
	TotalUnits  int64           `json:"totalUnits"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Order, error)
	GetByAccountReference(ctx context.Context, reference string) (*models.Order, error)
	ItemsForOrder(ctx context.Context, orderID string) ([]*models.OrderItem, error)
	SalesSummaryForVendor(ctx context.Context, vendorID string) (*VendorSales, error)
	Save(ctx context.Context, order *models.Order) error
}

type orderRepository struct {
	abstractRepository
}

func NewOrderRepository(_ context.Context, service *frame.Service) OrderRepository {
	return &orderRepository{abstractRepository{service: service}}
}

func (repo *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	order := models.Order{}
	err := repo.readDb(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (repo *orderRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Order, error) {
	order := models.Order{}
	err := repo.readDb(ctx).First(&order, "checkout_request_id = ?", checkoutRequestID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (repo *orderRepository) GetByAccountReference(ctx context.Context, reference string) (*models.Order, error) {
	order := models.Order{}
	err := repo.readDb(ctx).First(&order, "account_reference = ?", reference).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (repo *orderRepository) ItemsForOrder(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	var items []*models.OrderItem
	err := repo.readDb(ctx).Find(&items, "order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (repo *orderRepository) SalesSummaryForVendor(ctx context.Context, vendorID string) (*VendorSales, error) {
	summary := VendorSales{VendorID: vendorID}

	err := repo.readDb(ctx).Table("order_items").
		Select("COUNT(DISTINCT order_items.order_id) AS total_orders, " +
			"COALESCE(SUM(order_items.quantity), 0) AS total_units, " +
			"COALESCE(SUM(order_items.quantity * order_items.unit_price), 0) AS total_amount").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.vendor_id = ? AND orders.paid_at IS NOT NULL", vendorID).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (repo *orderRepository) Save(ctx context.Context, order *models.Order) error {
	return repo.writeDb(ctx).Save(order).Error
}
