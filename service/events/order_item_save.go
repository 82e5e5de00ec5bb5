package events

import (
	"context"
	"errors"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
	"gorm.io/gorm/clause"
)

type OrderItemSave struct {
	Service *frame.Service
}

func (event *OrderItemSave) Name() string {
	return "order.item.save"
}

func (event *OrderItemSave) PayloadType() any {
	return &models.OrderItem{}
}

func (event *OrderItemSave) Validate(ctx context.Context, payload any) error {
	item, ok := payload.(*models.OrderItem)
	if !ok {
		return errors.New("payload is not of type models.OrderItem")
	}

	if item.OrderID == "" {
		return errors.New("order item needs its order id set")
	}
	return nil
}

func (event *OrderItemSave) Execute(ctx context.Context, payload any) error {
	item := payload.(*models.OrderItem)

	logger := event.Service.Log(ctx).WithField("type", event.Name())

	result := event.Service.DB(ctx, false).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(item)

	if result.Error != nil {
		logger.WithError(result.Error).Warn("could not save to db")
		return result.Error
	}
	return nil
}
