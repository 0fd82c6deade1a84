package order

import (
	"encoding/json"
	"time"

	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

type Status string

// Orders are accepted in a single step; there is no later lifecycle.
const StatusPlaced Status = "placed"

type Order struct {
	ID             string                 `json:"id"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Flow           customer.Flow          `json:"flow"`
	PaymentMethod  checkout.PaymentMethod `json:"payment_method"`
	Customer       map[string]string      `json:"customer,omitempty"`
	Items          []OrderItem            `json:"items"`
	Subtotal       decimal.Decimal        `json:"subtotal"`
	DiscountTotal  decimal.Decimal        `json:"discount_total"`
	Total          decimal.Decimal        `json:"total"`
	Status         Status                 `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	Version        int                    `json:"version"`
}

// Aggregate interface implementation
func (o *Order) GetID() string    { return o.ID }
func (o *Order) GetVersion() int  { return o.Version }
func (o *Order) SetVersion(v int) { o.Version = v }

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.IdempotencyKey = data.IdempotencyKey
		o.Flow = customer.Flow(data.Flow)
		o.PaymentMethod = checkout.PaymentMethod(data.PaymentMethod)
		o.Customer = data.Customer
		o.Items = data.Items
		o.Subtotal = data.Subtotal
		o.DiscountTotal = data.DiscountTotal
		o.Total = data.Total
		o.Status = StatusPlaced
		o.CreatedAt = data.PlacedAt
	}
	o.Version = event.Version
	return nil
}
