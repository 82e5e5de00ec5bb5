package business

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pitabwire/frame"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sokoflow/service-storefront/service/cart"
	"github.com/sokoflow/service-storefront/service/coreapi"
	"github.com/sokoflow/service-storefront/service/events"
	"github.com/sokoflow/service-storefront/service/models"
)

type emittedEvent struct {
	name    string
	payload any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (e *recordingEmitter) Emit(_ context.Context, name string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, emittedEvent{name: name, payload: payload})
	return nil
}

func (e *recordingEmitter) named(name string) []emittedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var matched []emittedEvent
	for _, event := range e.events {
		if event.name == name {
			matched = append(matched, event)
		}
	}
	return matched
}

type fakeCartStore struct {
	carts   map[string]cart.Cart
	cleared []string
}

func (f *fakeCartStore) Get(_ context.Context, id string) (cart.Cart, error) {
	if c, ok := f.carts[id]; ok {
		return c, nil
	}
	return cart.New(id), nil
}

func (f *fakeCartStore) Clear(_ context.Context, id string) error {
	f.cleared = append(f.cleared, id)
	return nil
}

type fakeGuard struct {
	claimed   map[string]bool
	completed []string
	released  []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{claimed: map[string]bool{}}
}

func (f *fakeGuard) CheckOrSetInProgress(_ context.Context, reference string) (bool, error) {
	if f.claimed[reference] {
		return true, nil
	}
	f.claimed[reference] = true
	return false, nil
}

func (f *fakeGuard) SetCompleted(_ context.Context, reference string) error {
	f.completed = append(f.completed, reference)
	return nil
}

func (f *fakeGuard) Release(_ context.Context, reference string) error {
	f.released = append(f.released, reference)
	delete(f.claimed, reference)
	return nil
}

func testCart(id string) cart.Cart {
	c := cart.New(id)
	c = c.WithItem(cart.Item{
		ProductID: "prod-1", VendorID: "vendor-1", Name: "Ceramic mug",
		UnitPrice: decimal.NewFromFloat(450.50), Currency: "KES", Quantity: 2,
	})
	c = c.WithItem(cart.Item{
		ProductID: "prod-2", VendorID: "vendor-2", Name: "Kiondo basket",
		UnitPrice: decimal.NewFromInt(1200), Currency: "KES", Quantity: 1,
	})
	// Total: 450.50*2 + 1200 = 2101.00, pushed as 2101 whole units.
	return c
}

type checkoutFixture struct {
	business *checkoutBusiness
	client   *coreapi.MockClient
	emitter  *recordingEmitter
	carts    *fakeCartStore
	guard    *fakeGuard
}

func newCheckoutFixture(ctx context.Context, t *testing.T) *checkoutFixture {
	t.Helper()
	_, service := frame.NewServiceWithContext(ctx, "storefront tests")

	client := &coreapi.MockClient{}
	emitter := &recordingEmitter{}
	carts := &fakeCartStore{carts: map[string]cart.Cart{"cart-1": testCart("cart-1")}}
	guard := newFakeGuard()

	return &checkoutFixture{
		business: &checkoutBusiness{
			service:  service,
			emitter:  emitter,
			client:   client,
			carts:    carts,
			guard:    guard,
			currency: "KES",
		},
		client:  client,
		emitter: emitter,
		carts:   carts,
		guard:   guard,
	}
}

func TestNewCheckoutBusinessRequiresDependencies(t *testing.T) {
	ctx := context.Background()
	_, service := frame.NewServiceWithContext(ctx, "storefront tests")

	_, err := NewCheckoutBusiness(ctx, nil, &coreapi.MockClient{}, &fakeCartStore{}, newFakeGuard(), "KES")
	assert.ErrorIs(t, err, ErrorInitializationFail)

	_, err = NewCheckoutBusiness(ctx, service, nil, &fakeCartStore{}, newFakeGuard(), "KES")
	assert.ErrorIs(t, err, ErrorInitializationFail)

	_, err = NewCheckoutBusiness(ctx, service, &coreapi.MockClient{}, nil, newFakeGuard(), "KES")
	assert.ErrorIs(t, err, ErrorInitializationFail)

	_, err = NewCheckoutBusiness(ctx, service, &coreapi.MockClient{}, &fakeCartStore{}, nil, "KES")
	assert.ErrorIs(t, err, ErrorInitializationFail)
}

func TestInitiatePaymentHappyPath(t *testing.T) {
	ctx := context.Background()
	fixture := newCheckoutFixture(ctx, t)

	pushResponse := &coreapi.STKPushResponse{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: "ws_CO_191220191020363925",
		ResponseCode:      "0",
	}
	fixture.client.On("InitiateSTKPush", ctx, "254722000111", int64(2101), "order-ref-1", "Mug order").
		Return(pushResponse, nil)

	result, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
		CartID:           "cart-1",
		PhoneNumber:      "254722000111",
		AccountReference: "order-ref-1",
		Description:      "Mug order",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, "order-ref-1", result.AccountReference)
	assert.Equal(t, pushResponse, result.Data)
	assert.Empty(t, result.Error)

	fixture.client.AssertExpectations(t)

	// Order saved pending first, then again with the gateway identifiers.
	orderSaves := fixture.emitter.named((&events.OrderSave{}).Name())
	require.Len(t, orderSaves, 2)
	pendingOrder := orderSaves[0].payload.(*models.Order)
	assert.Equal(t, "254722000111", pendingOrder.CustomerPhone)
	assert.Equal(t, "order-ref-1", pendingOrder.AccountReference)
	assert.True(t, pendingOrder.Amount.Decimal.Equal(decimal.NewFromInt(2101)))
	trackedOrder := orderSaves[1].payload.(*models.Order)
	assert.Equal(t, "ws_CO_191220191020363925", trackedOrder.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", trackedOrder.MerchantRequestID)

	itemSaves := fixture.emitter.named((&events.OrderItemSave{}).Name())
	assert.Len(t, itemSaves, 2)

	statusSaves := fixture.emitter.named((&events.OrderStatusSave{}).Name())
	require.Len(t, statusSaves, 2)
	assert.Equal(t, models.StatusPending, statusSaves[0].payload.(*models.OrderStatus).Status)
	assert.Equal(t, models.StatusInitiated, statusSaves[1].payload.(*models.OrderStatus).Status)

	recordSaves := fixture.emitter.named((&events.PaymentRecordSave{}).Name())
	require.Len(t, recordSaves, 1)
	record := recordSaves[0].payload.(*models.PaymentRecord)
	assert.Equal(t, result.OrderID, record.OrderID)
	assert.Equal(t, "ws_CO_191220191020363925", record.CheckoutRequestID)

	assert.Equal(t, []string{"order-ref-1"}, fixture.guard.completed)
	assert.Equal(t, []string{"cart-1"}, fixture.carts.cleared)
}

func TestInitiatePaymentGeneratesReferenceWhenAbsent(t *testing.T) {
	ctx := context.Background()
	fixture := newCheckoutFixture(ctx, t)

	fixture.client.On("InitiateSTKPush", ctx, "254722000111", int64(2101), mock.AnythingOfType("string"), "").
		Return(&coreapi.STKPushResponse{CheckoutRequestID: "ws_CO_1"}, nil)

	result, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
		CartID:      "cart-1",
		PhoneNumber: "254722000111",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.AccountReference)
}

func TestInitiatePaymentRejectsInvalidPhone(t *testing.T) {
	ctx := context.Background()
	fixture := newCheckoutFixture(ctx, t)

	result, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
		CartID:      "cart-1",
		PhoneNumber: "0712345678",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "phoneNumber")

	fixture.client.AssertNotCalled(t, "InitiateSTKPush",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, fixture.emitter.events)
}

func TestInitiatePaymentRejectsEmptyCart(t *testing.T) {
	ctx := context.Background()
	fixture := newCheckoutFixture(ctx, t)

	result, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
		CartID:      "cart-unknown",
		PhoneNumber: "254722000111",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ErrorCartEmpty.Error(), result.Error)
	assert.Empty(t, fixture.emitter.events)
}

func TestInitiatePaymentBlocksDuplicateReference(t *testing.T) {
	ctx := context.Background()
	fixture := newCheckoutFixture(ctx, t)
	fixture.guard.claimed["order-ref-1"] = true

	result, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
		CartID:           "cart-1",
		PhoneNumber:      "254722000111",
		AccountReference: "order-ref-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, ErrorCheckoutInProgress.Error(), result.Error)
	assert.Equal(t, "order-ref-1", result.AccountReference)

	fixture.client.AssertNotCalled(t, "InitiateSTKPush",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, fixture.emitter.events)
}

type failingEmitter struct {
	recordingEmitter
	failOn string
}

func (e *failingEmitter) Emit(ctx context.Context, name string, payload any) error {
	if name == e.failOn {
		return fmt.Errorf("emit %s: queue unavailable", name)
	}
	return e.recordingEmitter.Emit(ctx, name, payload)
}

func TestInitiatePaymentReleasesGuardWhenPersistenceFails(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name   string
		failOn string
	}{
		{name: "order save fails", failOn: (&events.OrderSave{}).Name()},
		{name: "pending status fails", failOn: (&events.OrderStatusSave{}).Name()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := newCheckoutFixture(ctx, t)
			fixture.business.emitter = &failingEmitter{failOn: tc.failOn}

			_, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
				CartID:           "cart-1",
				PhoneNumber:      "254722000111",
				AccountReference: "order-ref-1",
			})
			require.Error(t, err)

			// The reference must be free again for a retry.
			assert.Equal(t, []string{"order-ref-1"}, fixture.guard.released)
			assert.NotContains(t, fixture.guard.claimed, "order-ref-1")
			fixture.client.AssertNotCalled(t, "InitiateSTKPush",
				mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInitiatePaymentPushFailureFailsOrder(t *testing.T) {
	ctx := context.Background()
	fixture := newCheckoutFixture(ctx, t)

	pushErr := &coreapi.PushRejectedError{StatusCode: 500, Payload: `{"errorMessage":"Unable to lock subscriber"}`}
	fixture.client.On("InitiateSTKPush", ctx, "254722000111", int64(2101), "order-ref-1", "").
		Return(nil, pushErr)

	result, err := fixture.business.InitiatePayment(ctx, CheckoutRequest{
		CartID:           "cart-1",
		PhoneNumber:      "254722000111",
		AccountReference: "order-ref-1",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.OrderID)
	assert.Equal(t, pushErr.Error(), result.Error)

	// Guard released so the customer can retry, order marked failed, cart kept.
	assert.Equal(t, []string{"order-ref-1"}, fixture.guard.released)
	assert.Empty(t, fixture.guard.completed)
	assert.Empty(t, fixture.carts.cleared)

	statusSaves := fixture.emitter.named((&events.OrderStatusSave{}).Name())
	require.Len(t, statusSaves, 2)
	assert.Equal(t, models.StatusPending, statusSaves[0].payload.(*models.OrderStatus).Status)
	failedStatus := statusSaves[1].payload.(*models.OrderStatus)
	assert.Equal(t, models.StatusFailed, failedStatus.Status)
	assert.Contains(t, failedStatus.Extra["error"], "Unable to lock subscriber")
}
