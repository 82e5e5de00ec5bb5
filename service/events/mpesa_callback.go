package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/models"
	"github.com/sokoflow/service-storefront/service/repository"
	"gorm.io/datatypes"
)

// Emitter is satisfied by *frame.Service.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

// MpesaCallbackReceive settles an order from the gateway's out of band
// result. This is the only path that moves an order to paid. Repositories
// and the emitter default to the service's own when left unset.
type MpesaCallbackReceive struct {
	Service    *frame.Service
	OrderRepo  repository.OrderRepository
	RecordRepo repository.PaymentRecordRepository
	Emitter    Emitter
}

func (event *MpesaCallbackReceive) Name() string {
	return "mpesa.callback.receive"
}

func (event *MpesaCallbackReceive) PayloadType() any {
	return &models.STKCallback{}
}

func (event *MpesaCallbackReceive) Validate(ctx context.Context, payload any) error {
	callback, ok := payload.(*models.STKCallback)
	if !ok {
		return fmt.Errorf("invalid payload type, expected STKCallback")
	}

	if callback.CheckoutRequestID == "" {
		return fmt.Errorf("checkout request id is required")
	}
	return nil
}

// Handle implements the frame.SubscribeWorker interface so the callback can
// also arrive via the queue.
func (event *MpesaCallbackReceive) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	payload := event.PayloadType()
	callback, ok := payload.(*models.STKCallback)
	if !ok {
		return fmt.Errorf("invalid payload type, expected STKCallback")
	}

	if err := json.Unmarshal(message, callback); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v", err)
	}

	if err := event.Validate(ctx, callback); err != nil {
		return fmt.Errorf("payload validation failed: %v", err)
	}
	return event.Execute(ctx, callback)
}

func (event *MpesaCallbackReceive) orderRepository(ctx context.Context) repository.OrderRepository {
	if event.OrderRepo != nil {
		return event.OrderRepo
	}
	return repository.NewOrderRepository(ctx, event.Service)
}

func (event *MpesaCallbackReceive) recordRepository(ctx context.Context) repository.PaymentRecordRepository {
	if event.RecordRepo != nil {
		return event.RecordRepo
	}
	return repository.NewPaymentRecordRepository(ctx, event.Service)
}

func (event *MpesaCallbackReceive) emitter() Emitter {
	if event.Emitter != nil {
		return event.Emitter
	}
	return event.Service
}

func (event *MpesaCallbackReceive) Execute(ctx context.Context, payload any) error {
	callback, ok := payload.(*models.STKCallback)
	if !ok {
		return fmt.Errorf("invalid payload type")
	}

	logger := event.Service.Log(ctx).
		WithField("type", event.Name()).
		WithField("checkoutRequestId", callback.CheckoutRequestID)
	logger.WithField("resultCode", callback.ResultCode).Info("processing gateway callback")

	order, err := event.orderRepository(ctx).GetByCheckoutRequestID(ctx, callback.CheckoutRequestID)
	if err != nil {
		logger.WithError(err).Error("no order matches the callback")
		return fmt.Errorf("no order for checkout request %s: %v", callback.CheckoutRequestID, err)
	}

	record, err := event.recordRepository(ctx).GetByCheckoutRequestID(ctx, callback.CheckoutRequestID)
	if err != nil {
		// Initiation may not have persisted its record yet.
		record = &models.PaymentRecord{
			OrderID:           order.GetID(),
			CheckoutRequestID: callback.CheckoutRequestID,
			Amount:            order.Amount,
			Currency:          order.Currency,
		}
		record.GenID(ctx)
	}

	record.MerchantRequestID = callback.MerchantRequestID
	record.ResultCode = callback.ResultCode
	record.ResultDesc = callback.ResultDesc
	if receipt, found := callback.MetadataValue("MpesaReceiptNumber"); found {
		record.MpesaReceipt = fmt.Sprint(receipt)
	}
	if phone, found := callback.MetadataValue("PhoneNumber"); found {
		record.PhoneNumber = formatCallbackNumber(phone)
	}

	if err = event.emitter().Emit(ctx, (&PaymentRecordSave{}).Name(), record); err != nil {
		logger.WithError(err).Warn("could not emit payment record event")
		return err
	}

	if callback.IsSuccessful() {
		now := time.Now()
		order.PaidAt = &now
		if err = event.emitter().Emit(ctx, (&OrderSave{}).Name(), order); err != nil {
			return err
		}
		return event.emitStatus(ctx, order.GetID(), models.StatusPaid, callback)
	}

	return event.emitStatus(ctx, order.GetID(), models.StatusFailed, callback)
}

func (event *MpesaCallbackReceive) emitStatus(ctx context.Context, orderID string, status int32, callback *models.STKCallback) error {
	orderStatus := &models.OrderStatus{
		OrderID: orderID,
		State:   models.StateActive,
		Status:  status,
		Extra: datatypes.JSONMap{
			"result_code": callback.ResultCode,
			"result_desc": callback.ResultDesc,
		},
	}
	orderStatus.GenID(ctx)
	return event.emitter().Emit(ctx, (&OrderStatusSave{}).Name(), orderStatus)
}

// formatCallbackNumber renders the numeric MSISDN the gateway sends back
// without scientific notation.
func formatCallbackNumber(value any) string {
	if number, ok := value.(float64); ok {
		return strconv.FormatInt(int64(number), 10)
	}
	return fmt.Sprint(value)
}
