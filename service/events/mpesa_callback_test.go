package events

import (
	"context"
	"sync"
	"testing"

	"github.com/pitabwire/frame"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sokoflow/service-storefront/service/models"
	"github.com/sokoflow/service-storefront/service/repository"
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

type fakeOrderRepo struct {
	orders map[string]*models.Order
}

func (f *fakeOrderRepo) GetByID(_ context.Context, _ string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) GetByCheckoutRequestID(_ context.Context, checkoutRequestID string) (*models.Order, error) {
	order, ok := f.orders[checkoutRequestID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetByAccountReference(_ context.Context, _ string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) ItemsForOrder(_ context.Context, _ string) ([]*models.OrderItem, error) {
	return nil, nil
}

func (f *fakeOrderRepo) SalesSummaryForVendor(_ context.Context, _ string) (*repository.VendorSales, error) {
	return nil, nil
}

func (f *fakeOrderRepo) Save(_ context.Context, _ *models.Order) error {
	return nil
}

type fakeRecordRepo struct {
	records map[string]*models.PaymentRecord
}

func (f *fakeRecordRepo) GetByCheckoutRequestID(_ context.Context, checkoutRequestID string) (*models.PaymentRecord, error) {
	record, ok := f.records[checkoutRequestID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (f *fakeRecordRepo) ListForOrder(_ context.Context, _ string) ([]*models.PaymentRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) Save(_ context.Context, _ *models.PaymentRecord) error {
	return nil
}

type callbackFixture struct {
	event   *MpesaCallbackReceive
	emitter *recordingEmitter
	order   *models.Order
	records *fakeRecordRepo
}

func newCallbackFixture(ctx context.Context, t *testing.T) *callbackFixture {
	t.Helper()
	_, service := frame.NewServiceWithContext(ctx, "storefront tests")

	order := &models.Order{
		CustomerPhone:     "254722000111",
		AccountReference:  "order-ref-1",
		Amount:            decimal.NullDecimal{Valid: true, Decimal: decimal.NewFromInt(2101)},
		Currency:          "KES",
		CheckoutRequestID: "ws_CO_191220191020363925",
	}
	order.GenID(ctx)

	emitter := &recordingEmitter{}
	records := &fakeRecordRepo{records: map[string]*models.PaymentRecord{}}

	return &callbackFixture{
		event: &MpesaCallbackReceive{
			Service:    service,
			OrderRepo:  &fakeOrderRepo{orders: map[string]*models.Order{order.CheckoutRequestID: order}},
			RecordRepo: records,
			Emitter:    emitter,
		},
		emitter: emitter,
		order:   order,
		records: records,
	}
}

func successCallback() *models.STKCallback {
	callback := &models.STKCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: "ws_CO_191220191020363925",
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
	}
	callback.CallbackMetadata.Item = []models.CallbackItem{
		{Name: "Amount", Value: 2101.00},
		{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
		{Name: "PhoneNumber", Value: float64(254722000111)},
	}
	return callback
}

func TestMpesaCallbackReceiveValidate(t *testing.T) {
	ctx := context.Background()
	event := &MpesaCallbackReceive{}

	assert.Equal(t, "mpesa.callback.receive", event.Name())

	_, ok := event.PayloadType().(*models.STKCallback)
	require.True(t, ok)

	err := event.Validate(ctx, "not a callback")
	assert.Error(t, err)

	err = event.Validate(ctx, &models.STKCallback{})
	assert.Error(t, err)

	err = event.Validate(ctx, &models.STKCallback{CheckoutRequestID: "ws_CO_1"})
	assert.NoError(t, err)
}

func TestMpesaCallbackHandleRejectsBadPayloads(t *testing.T) {
	ctx := context.Background()
	event := &MpesaCallbackReceive{}

	err := event.Handle(ctx, nil, []byte("not json"))
	assert.ErrorContains(t, err, "failed to unmarshal")

	err = event.Handle(ctx, nil, []byte(`{"ResultCode":0}`))
	assert.ErrorContains(t, err, "validation failed")
}

func TestCallbackSettlesOrderAsPaid(t *testing.T) {
	ctx := context.Background()
	fixture := newCallbackFixture(ctx, t)

	require.NoError(t, fixture.event.Execute(ctx, successCallback()))

	recordSaves := fixture.emitter.named((&PaymentRecordSave{}).Name())
	require.Len(t, recordSaves, 1)
	record := recordSaves[0].payload.(*models.PaymentRecord)
	assert.Equal(t, "ws_CO_191220191020363925", record.CheckoutRequestID)
	assert.Equal(t, "NLJ7RT61SV", record.MpesaReceipt)
	assert.Equal(t, "254722000111", record.PhoneNumber)
	assert.Equal(t, 0, record.ResultCode)

	orderSaves := fixture.emitter.named((&OrderSave{}).Name())
	require.Len(t, orderSaves, 1)
	settled := orderSaves[0].payload.(*models.Order)
	require.NotNil(t, settled.PaidAt)
	assert.True(t, settled.IsPaid())

	statusSaves := fixture.emitter.named((&OrderStatusSave{}).Name())
	require.Len(t, statusSaves, 1)
	status := statusSaves[0].payload.(*models.OrderStatus)
	assert.Equal(t, models.StatusPaid, status.Status)
	assert.Equal(t, fixture.order.GetID(), status.OrderID)
}

func TestCallbackFailsOrderOnCancellation(t *testing.T) {
	ctx := context.Background()
	fixture := newCallbackFixture(ctx, t)

	callback := &models.STKCallback{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: "ws_CO_191220191020363925",
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user.",
	}

	require.NoError(t, fixture.event.Execute(ctx, callback))

	// The order never gets a paid timestamp on a declined result.
	assert.Empty(t, fixture.emitter.named((&OrderSave{}).Name()))
	assert.Nil(t, fixture.order.PaidAt)

	statusSaves := fixture.emitter.named((&OrderStatusSave{}).Name())
	require.Len(t, statusSaves, 1)
	status := statusSaves[0].payload.(*models.OrderStatus)
	assert.Equal(t, models.StatusFailed, status.Status)
	assert.Equal(t, 1032, status.Extra["result_code"])

	recordSaves := fixture.emitter.named((&PaymentRecordSave{}).Name())
	require.Len(t, recordSaves, 1)
	assert.Equal(t, 1032, recordSaves[0].payload.(*models.PaymentRecord).ResultCode)
}

func TestCallbackBackfillsMissingPaymentRecord(t *testing.T) {
	ctx := context.Background()
	fixture := newCallbackFixture(ctx, t)

	// No record persisted yet: the callback raced the initiation path.
	require.Empty(t, fixture.records.records)

	require.NoError(t, fixture.event.Execute(ctx, successCallback()))

	recordSaves := fixture.emitter.named((&PaymentRecordSave{}).Name())
	require.Len(t, recordSaves, 1)
	record := recordSaves[0].payload.(*models.PaymentRecord)
	assert.NotEmpty(t, record.GetID())
	assert.Equal(t, fixture.order.GetID(), record.OrderID)
	assert.Equal(t, "ws_CO_191220191020363925", record.CheckoutRequestID)
	assert.True(t, record.Amount.Valid)
	assert.True(t, record.Amount.Decimal.Equal(decimal.NewFromInt(2101)))
	assert.Equal(t, "KES", record.Currency)
}

func TestCallbackUpdatesExistingPaymentRecord(t *testing.T) {
	ctx := context.Background()
	fixture := newCallbackFixture(ctx, t)

	existing := &models.PaymentRecord{
		OrderID:           fixture.order.GetID(),
		CheckoutRequestID: fixture.order.CheckoutRequestID,
		PhoneNumber:       "254722000111",
		Amount:            fixture.order.Amount,
		Currency:          "KES",
	}
	existing.GenID(ctx)
	fixture.records.records[existing.CheckoutRequestID] = existing

	require.NoError(t, fixture.event.Execute(ctx, successCallback()))

	recordSaves := fixture.emitter.named((&PaymentRecordSave{}).Name())
	require.Len(t, recordSaves, 1)
	record := recordSaves[0].payload.(*models.PaymentRecord)
	assert.Equal(t, existing.GetID(), record.GetID())
	assert.Equal(t, "NLJ7RT61SV", record.MpesaReceipt)
	assert.Equal(t, "29115-34620561-1", record.MerchantRequestID)
}

func TestCallbackWithoutMatchingOrder(t *testing.T) {
	ctx := context.Background()
	fixture := newCallbackFixture(ctx, t)

	callback := &models.STKCallback{CheckoutRequestID: "ws_CO_unknown"}
	err := fixture.event.Execute(ctx, callback)
	assert.ErrorContains(t, err, "no order for checkout request")
	assert.Empty(t, fixture.emitter.events)
}

func TestFormatCallbackNumber(t *testing.T) {
	// JSON numbers decode as float64; the gateway sends the MSISDN as one.
	assert.Equal(t, "254722000111", formatCallbackNumber(float64(254722000111)))
	assert.Equal(t, "254722000111", formatCallbackNumber("254722000111"))
}
