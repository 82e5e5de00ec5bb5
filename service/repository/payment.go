package repository

import (
	"context"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
)

type PaymentRecordRepository interface {
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.PaymentRecord, error)
	ListForOrder(ctx context.Context, orderID string) ([]*models.PaymentRecord, error)
	Save(ctx context.Context, record *models.PaymentRecord) error
}

type paymentRecordRepository struct {
	abstractRepository
}

func NewPaymentRecordRepository(_ context.Context, service *frame.Service) PaymentRecordRepository {
	return &paymentRecordRepository{abstractRepository{service: service}}
}

func (repo *paymentRecordRepository) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.PaymentRecord, error) {
	record := models.PaymentRecord{}
	err := repo.readDb(ctx).First(&record, "checkout_request_id = ?", checkoutRequestID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (repo *paymentRecordRepository) ListForOrder(ctx context.Context, orderID string) ([]*models.PaymentRecord, error) {
	var records []*models.PaymentRecord
	err := repo.readDb(ctx).Find(&records, "order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *paymentRecordRepository) Save(ctx context.Context, record *models.PaymentRecord) error {
	return repo.writeDb(ctx).Save(record).Error
}
