package business

import (
	"context"

	"github.com/google/uuid"
	"github.com/pitabwire/frame"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/sokoflow/service-storefront/service/cache"
	"github.com/sokoflow/service-storefront/service/cart"
	"github.com/sokoflow/service-storefront/service/coreapi"
	"github.com/sokoflow/service-storefront/service/events"
	"github.com/sokoflow/service-storefront/service/models"
)

// CheckoutRequest is what the checkout boundary collects from the customer.
type CheckoutRequest struct {
	CartID      string `json:"cartId"`
	PhoneNumber string `json:"phoneNumber"`
	// AccountReference is a caller generated idempotency key. Generated
	// server side when absent.
	AccountReference string `json:"accountReference"`
	Description      string `json:"description"`
}

// PushResult is the transport safe outcome of a payment initiation. All
// failures are folded into it; nothing escapes the checkout boundary as a
// panic or raw gateway error.
type PushResult struct {
	Success          bool                     `json:"success"`
	OrderID          string                   `json:"orderId,omitempty"`
	AccountReference string                   `json:"accountReference,omitempty"`
	Data             *coreapi.STKPushResponse `json:"data,omitempty"`
	Error            string                   `json:"error,omitempty"`
}

// CartStore is the slice of the cart layer checkout needs.
type CartStore interface {
	Get(ctx context.Context, id string) (cart.Cart, error)
	Clear(ctx context.Context, id string) error
}

// Emitter is satisfied by *frame.Service.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

type CheckoutBusiness interface {
	InitiatePayment(ctx context.Context, request CheckoutRequest) (*PushResult, error)
}

func NewCheckoutBusiness(_ context.Context, service *frame.Service, client coreapi.DarajaApiClient,
	carts CartStore, guard cache.IdempotencyStore, currency string) (CheckoutBusiness, error) {
	if service == nil || client == nil || carts == nil || guard == nil {
		return nil, ErrorInitializationFail
	}
	return &checkoutBusiness{
		service:  service,
		emitter:  service,
		client:   client,
		carts:    carts,
		guard:    guard,
		currency: currency,
	}, nil
}

type checkoutBusiness struct {
	service  *frame.Service
	emitter  Emitter
	client   coreapi.DarajaApiClient
	carts    CartStore
	guard    cache.IdempotencyStore
	currency string
}

// InitiatePayment creates a pending order for the cart, then asks the
// gateway to prompt the customer's handset. The order settles later via the
// gateway callback; push initiation failure fails the order immediately.
func (cb *checkoutBusiness) InitiatePayment(ctx context.Context, request CheckoutRequest) (*PushResult, error) {
	logger := cb.service.Log(ctx).WithField("type", "checkout").WithField("cartId", request.CartID)

	if err := coreapi.ValidateMSISDN(request.PhoneNumber); err != nil {
		return failure("", "", err.Error()), nil
	}

	snapshot, err := cb.carts.Get(ctx, request.CartID)
	if err != nil {
		return nil, err
	}
	if snapshot.IsEmpty() {
		return failure("", "", ErrorCartEmpty.Error()), nil
	}

	// The gateway only accepts whole currency units.
	amount := snapshot.Total().Ceil().IntPart()
	if amount <= 0 {
		return failure("", "", "cart total must be a positive amount"), nil
	}

	currency := snapshot.Currency()
	if currency == "" {
		currency = cb.currency
	}

	reference := request.AccountReference
	if reference == "" {
		reference = uuid.NewString()
	}

	duplicate, err := cb.guard.CheckOrSetInProgress(ctx, reference)
	if err != nil {
		return nil, err
	}
	if duplicate {
		logger.WithField("reference", reference).Warn("duplicate checkout submission blocked")
		return failure("", reference, ErrorCheckoutInProgress.Error()), nil
	}

	order := &models.Order{
		CustomerPhone:    request.PhoneNumber,
		CartID:           request.CartID,
		AccountReference: reference,
		Amount:           decimal.NullDecimal{Valid: true, Decimal: decimal.NewFromInt(amount)},
		Currency:         currency,
	}
	order.GenID(ctx)

	if err = cb.emitOrder(ctx, order, snapshot); err != nil {
		logger.WithError(err).Warn("could not emit order events")
		cb.releaseGuard(ctx, reference)
		return nil, err
	}
	if err = cb.emitStatus(ctx, order.GetID(), models.StateCreated, models.StatusPending, nil); err != nil {
		cb.releaseGuard(ctx, reference)
		return nil, err
	}

	response, err := cb.client.InitiateSTKPush(ctx, request.PhoneNumber, amount, reference, request.Description)
	if err != nil {
		logger.WithError(err).Error("could not initiate STK push")

		cb.releaseGuard(ctx, reference)
		statusErr := cb.emitStatus(ctx, order.GetID(), models.StateActive, models.StatusFailed,
			map[string]any{"error": err.Error()})
		if statusErr != nil {
			logger.WithError(statusErr).Warn("could not emit failed status")
		}
		return failure(order.GetID(), reference, err.Error()), nil
	}

	order.MerchantRequestID = response.MerchantRequestID
	order.CheckoutRequestID = response.CheckoutRequestID
	if err = cb.emitter.Emit(ctx, (&events.OrderSave{}).Name(), order); err != nil {
		return nil, err
	}

	record := &models.PaymentRecord{
		OrderID:           order.GetID(),
		CheckoutRequestID: response.CheckoutRequestID,
		MerchantRequestID: response.MerchantRequestID,
		PhoneNumber:       request.PhoneNumber,
		Amount:            order.Amount,
		Currency:          currency,
	}
	record.GenID(ctx)
	if err = cb.emitter.Emit(ctx, (&events.PaymentRecordSave{}).Name(), record); err != nil {
		return nil, err
	}

	if err = cb.emitStatus(ctx, order.GetID(), models.StateActive, models.StatusInitiated,
		map[string]any{"checkout_request_id": response.CheckoutRequestID}); err != nil {
		return nil, err
	}

	if err = cb.guard.SetCompleted(ctx, reference); err != nil {
		logger.WithError(err).Warn("could not mark checkout reference completed")
	}
	if err = cb.carts.Clear(ctx, request.CartID); err != nil {
		logger.WithError(err).Warn("could not clear cart after checkout")
	}

	return &PushResult{
		Success:          true,
		OrderID:          order.GetID(),
		AccountReference: reference,
		Data:             response,
	}, nil
}

// releaseGuard frees the reference so the customer can retry; best effort.
func (cb *checkoutBusiness) releaseGuard(ctx context.Context, reference string) {
	if err := cb.guard.Release(ctx, reference); err != nil {
		cb.service.Log(ctx).WithError(err).WithField("reference", reference).
			Warn("could not release idempotency guard")
	}
}

func (cb *checkoutBusiness) emitOrder(ctx context.Context, order *models.Order, snapshot cart.Cart) error {
	if err := cb.emitter.Emit(ctx, (&events.OrderSave{}).Name(), order); err != nil {
		return err
	}

	for _, line := range snapshot.Items {
		item := &models.OrderItem{
			OrderID:   order.GetID(),
			ProductID: line.ProductID,
			VendorID:  line.VendorID,
			Quantity:  line.Quantity,
			UnitPrice: decimal.NullDecimal{Valid: true, Decimal: line.UnitPrice},
			Currency:  line.Currency,
		}
		item.GenID(ctx)
		if err := cb.emitter.Emit(ctx, (&events.OrderItemSave{}).Name(), item); err != nil {
			return err
		}
	}
	return nil
}

func (cb *checkoutBusiness) emitStatus(ctx context.Context, orderID string, state, status int32, extra map[string]any) error {
	orderStatus := &models.OrderStatus{
		OrderID: orderID,
		State:   state,
		Status:  status,
		Extra:   datatypes.JSONMap(extra),
	}
	orderStatus.GenID(ctx)
	return cb.emitter.Emit(ctx, (&events.OrderStatusSave{}).Name(), orderStatus)
}

func failure(orderID, reference, message string) *PushResult {
	return &PushResult{
		Success:          false,
		OrderID:          orderID,
		AccountReference: reference,
		Error:            message,
	}
}
