package events

import (
	"context"
	"errors"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
	"gorm.io/gorm/clause"
)

type OrderSave struct {
	Service *frame.Service
}

func (event *OrderSave) Name() string {
	return "order.save"
}

func (event *OrderSave) PayloadType() any {
	return &models.Order{}
}

func (event *OrderSave) Validate(ctx context.Context, payload any) error {
	order, ok := payload.(*models.Order)
	if !ok {
		return errors.New("payload is not of type models.Order")
	}

	if order.GetID() == "" {
		return errors.New("order id should already have been set")
	}
	return nil
}

func (event *OrderSave) Execute(ctx context.Context, payload any) error {
	order := payload.(*models.Order)

	logger := event.Service.Log(ctx).WithField("type", event.Name())
	logger.WithField("payload", order).Debug("handling event")

	result := event.Service.DB(ctx, false).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(order)

	err := result.Error
	if err != nil {
		logger.WithError(err).Warn("could not save to db")
		return err
	}
	logger.WithField("rows affected", result.RowsAffected).Debug("successfully saved record to db")
	return nil
}
