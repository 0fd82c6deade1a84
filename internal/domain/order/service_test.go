package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/bakery-pos/internal/catalog"
	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestOrderService(t *testing.T, setup ...func(*catalog.Catalog)) (*Service, *mocks.MockEventStore) {
	t.Helper()
	cat, err := catalog.New(
		catalog.Product{ID: "1", Name: "Pan de bono", Price: decimal.RequireFromString("1.50")},
		catalog.Product{ID: "2", Name: "Croissant", Price: decimal.RequireFromString("2.25")},
		catalog.Product{ID: "3", Name: "Torta de queso", Price: decimal.RequireFromString("18")},
	)
	require.NoError(t, err)
	for _, fn := range setup {
		fn(cat)
	}

	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore, cat, WithClock(func() time.Time { return fixedNow }))
	return service, eventStore
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func inPerson(lines ...Line) PlaceOrder {
	return PlaceOrder{
		Flow:          customer.FlowInPerson,
		Lines:         lines,
		PaymentMethod: checkout.Cash,
	}
}

// ============================================
// Place Order Tests
// ============================================

func TestService_Place_PricesFromCatalog(t *testing.T) {
	service, eventStore := newTestOrderService(t)

	o, created, err := service.Place(context.Background(), inPerson(
		Line{ProductID: "1", Quantity: 2},
		Line{ProductID: "2", Quantity: 1},
	))

	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, "5.25", o.Total.StringFixed(2))
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Pan de bono", o.Items[0].Name)
	assert.Equal(t, "1.50", o.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, fixedNow, o.CreatedAt)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventOrderPlaced, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Place_RepricesClientLines(t *testing.T) {
	service, _ := newTestOrderService(t)

	o, _, err := service.Place(context.Background(), PlaceOrder{
		Flow:          customer.FlowOnline,
		Lines:         []Line{{ProductID: "1", Name: "Pan", Price: price("0.01"), Quantity: 3}},
		Customer:      &customer.Customer{Flow: customer.FlowOnline, Fields: map[string]string{"firstName": "Ana"}},
		PaymentMethod: checkout.Transfer,
	})

	require.NoError(t, err)
	assert.Equal(t, "Pan de bono", o.Items[0].Name)
	assert.Equal(t, "1.50", o.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "4.50", o.Total.StringFixed(2))
	assert.Equal(t, "Ana", o.Customer["firstName"])
	assert.Equal(t, checkout.Transfer, o.PaymentMethod)
}

func TestService_Place_AppliesPromotions(t *testing.T) {
	service, eventStore := newTestOrderService(t, func(c *catalog.Catalog) {
		require.NoError(t, c.AddPromotion(catalog.Promotion{
			ID: "desayuno", Type: catalog.DiscountPercent, Value: decimal.RequireFromString("10"),
			Active: true, Products: []string{"1"},
		}))
		require.NoError(t, c.AddPromotion(catalog.Promotion{
			ID: "torta", Type: catalog.DiscountFixed, Value: decimal.RequireFromString("3"),
			Active: true, Products: []string{"3"}, StartsAt: fixedNow.Add(time.Hour),
		}))
	})

	o, _, err := service.Place(context.Background(), inPerson(
		Line{ProductID: "1", Quantity: 3},
		Line{ProductID: "2", Quantity: 1},
		Line{ProductID: "3", Quantity: 1},
	))

	require.NoError(t, err)
	require.Len(t, o.Items, 3)
	assert.Equal(t, "1.50", o.Items[0].BaseUnitPrice.StringFixed(2))
	assert.Equal(t, "1.35", o.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "desayuno", o.Items[0].PromotionID)
	assert.Equal(t, "0.45", o.Items[0].LineDiscount().StringFixed(2))
	assert.Empty(t, o.Items[2].PromotionID)

	assert.Equal(t, "24.75", o.Subtotal.StringFixed(2))
	assert.Equal(t, "0.45", o.DiscountTotal.StringFixed(2))
	assert.Equal(t, "24.30", o.Total.StringFixed(2))

	var event OrderPlaced
	require.NoError(t, json.Unmarshal(mustJSON(t, eventStore.AppendCalls[0].Data), &event))
	assert.Equal(t, "0.45", event.DiscountTotal.StringFixed(2))
}

func TestService_Place_MergesRepeatedProducts(t *testing.T) {
	service, _ := newTestOrderService(t)

	o, _, err := service.Place(context.Background(), inPerson(
		Line{ProductID: "2", Quantity: 1},
		Line{ProductID: "1", Quantity: 1},
		Line{ProductID: "2", Quantity: 2},
	))

	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "2", o.Items[0].ProductID)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, "8.25", o.Total.StringFixed(2))
}

func TestService_Place_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  PlaceOrder
		want error
	}{
		{"no lines", inPerson(), ErrEmptyOrder},
		{"missing id", inPerson(Line{Quantity: 1}), ErrInvalidLine},
		{"zero quantity", inPerson(Line{ProductID: "1"}), ErrInvalidQuantity},
		{"negative price", inPerson(Line{ProductID: "1", Quantity: 1, Price: price("-1")}), ErrInvalidPrice},
		{"unknown product", inPerson(Line{ProductID: "99", Quantity: 1}), ErrUnknownProduct},
		{
			"card not accepted online",
			PlaceOrder{
				Flow:          customer.FlowOnline,
				Lines:         []Line{{ProductID: "1", Quantity: 1}},
				Customer:      &customer.Customer{Flow: customer.FlowOnline},
				PaymentMethod: checkout.Card,
			},
			checkout.ErrUnsupportedPaymentMethod,
		},
		{
			"online without customer",
			PlaceOrder{Flow: customer.FlowOnline, Lines: []Line{{ProductID: "1", Quantity: 1}}, PaymentMethod: checkout.Cash},
			ErrCustomerRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, eventStore := newTestOrderService(t)

			o, created, err := service.Place(context.Background(), tt.cmd)

			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, o)
			assert.False(t, created)
			assert.Empty(t, eventStore.AppendCalls)
		})
	}
}

func TestService_Place_AppendError(t *testing.T) {
	service, eventStore := newTestOrderService(t)
	eventStore.AppendErr = errors.New("disk full")

	_, _, err := service.Place(context.Background(), inPerson(Line{ProductID: "1", Quantity: 1}))

	assert.ErrorContains(t, err, "disk full")
}

// ============================================
// Idempotency Tests
// ============================================

func TestService_Place_DuplicateKeyReturnsExisting(t *testing.T) {
	service, eventStore := newTestOrderService(t)
	cmd := inPerson(Line{ProductID: "1", Quantity: 2})
	cmd.IdempotencyKey = "5b0c9a8e-key"

	first, created, err := service.Place(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := service.Place(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Total.Equal(second.Total))
	assert.Len(t, eventStore.AppendCalls, 1)
}

func TestService_Place_DifferentKeysCreateDifferentOrders(t *testing.T) {
	service, _ := newTestOrderService(t)
	a := inPerson(Line{ProductID: "1", Quantity: 1})
	a.IdempotencyKey = "key-a"
	b := a
	b.IdempotencyKey = "key-b"

	oa, _, err := service.Place(context.Background(), a)
	require.NoError(t, err)
	ob, _, err := service.Place(context.Background(), b)
	require.NoError(t, err)

	assert.NotEqual(t, oa.ID, ob.ID)
}

func TestService_Place_ConcurrentWriterWinsConflict(t *testing.T) {
	service, eventStore := newTestOrderService(t)
	eventStore.AppendCallback = func(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
		// another instance stores the same order first
		require.NoError(t, eventStore.AddEvent(aggregateID, aggregateType, eventType, data))
		return nil, store.ErrVersionConflict
	}
	cmd := inPerson(Line{ProductID: "3", Quantity: 1})
	cmd.IdempotencyKey = "racy"

	o, created, err := service.Place(context.Background(), cmd)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "18.00", o.Total.StringFixed(2))
}

func TestService_Place_ConflictWithoutKeyIsError(t *testing.T) {
	service, eventStore := newTestOrderService(t)
	eventStore.AppendErr = store.ErrVersionConflict

	_, _, err := service.Place(context.Background(), inPerson(Line{ProductID: "1", Quantity: 1}))

	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

// ============================================
// Get Order Tests
// ============================================

func TestService_Get(t *testing.T) {
	service, _ := newTestOrderService(t)
	placed, _, err := service.Place(context.Background(), inPerson(Line{ProductID: "1", Quantity: 4}))
	require.NoError(t, err)

	got, err := service.Get(context.Background(), placed.ID)

	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
	assert.Equal(t, "6.00", got.Total.StringFixed(2))
	assert.Equal(t, 1, got.Version)
}

func TestService_Get_NotFound(t *testing.T) {
	service, _ := newTestOrderService(t)

	_, err := service.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrder_ApplyEvent_BadPayload(t *testing.T) {
	o := &Order{}

	err := o.ApplyEvent(store.Event{EventType: EventOrderPlaced, Data: json.RawMessage(`{"total":[]}`)})

	assert.Error(t, err)
}
