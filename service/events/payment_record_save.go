package events

import (
	"context"
	"errors"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
	"gorm.io/gorm/clause"
)

type PaymentRecordSave struct {
	Service *frame.Service
}

func (event *PaymentRecordSave) Name() string {
	return "payment.record.save"
}

func (event *PaymentRecordSave) PayloadType() any {
	return &models.PaymentRecord{}
}

func (event *PaymentRecordSave) Validate(ctx context.Context, payload any) error {
	record, ok := payload.(*models.PaymentRecord)
	if !ok {
		return errors.New("payload is not of type models.PaymentRecord")
	}

	if record.CheckoutRequestID == "" {
		return errors.New("payment record needs the gateway checkout request id")
	}
	return nil
}

func (event *PaymentRecordSave) Execute(ctx context.Context, payload any) error {
	record := payload.(*models.PaymentRecord)

	logger := event.Service.Log(ctx).WithField("type", event.Name())
	logger.WithField("payload", record).Debug("handling event")

	// The callback can race the initiation path, upsert on the gateway id.
	result := event.Service.DB(ctx, false).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_request_id"}},
		UpdateAll: true,
	}).Create(record)

	if result.Error != nil {
		logger.WithError(result.Error).Warn("could not save to db")
		return result.Error
	}
	return nil
}
