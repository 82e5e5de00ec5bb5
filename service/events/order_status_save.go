package events

import (
	"context"
	"errors"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
)

type OrderStatusSave struct {
	Service *frame.Service
}

func (event *OrderStatusSave) Name() string {
	return "order.status.save"
}

func (event *OrderStatusSave) PayloadType() any {
	return &models.OrderStatus{}
}

func (event *OrderStatusSave) Validate(ctx context.Context, payload any) error {
	status, ok := payload.(*models.OrderStatus)
	if !ok {
		return errors.New("payload is not of type models.OrderStatus")
	}

	if status.OrderID == "" {
		return errors.New("order status needs its order id set")
	}
	return nil
}

// Execute appends the transition row. Status rows are never updated in
// place, the latest row wins.
func (event *OrderStatusSave) Execute(ctx context.Context, payload any) error {
	status := payload.(*models.OrderStatus)

	logger := event.Service.Log(ctx).WithField("type", event.Name())
	logger.WithField("payload", status).Debug("handling event")

	result := event.Service.DB(ctx, false).Create(status)
	if result.Error != nil {
		logger.WithError(result.Error).Warn("could not save to db")
		return result.Error
	}
	return nil
}
