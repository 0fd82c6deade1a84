package order

import (
	"time"

	"github.com/example/bakery-pos/internal/money"
	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "OrderPlaced"

// OrderItem is a priced order line. BaseUnitPrice is the catalog price and
// UnitPrice the price charged, both at placement time.
type OrderItem struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	BaseUnitPrice decimal.Decimal `json:"base_unit_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PromotionID   string          `json:"promotion_id,omitempty"`
}

// LineSubtotal returns the line at catalog price.
func (i OrderItem) LineSubtotal() decimal.Decimal {
	return money.Round(i.BaseUnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// LineTotal returns the line at the price charged.
func (i OrderItem) LineTotal() decimal.Decimal {
	return money.Round(i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

func (i OrderItem) LineDiscount() decimal.Decimal {
	return i.LineSubtotal().Sub(i.LineTotal())
}

type OrderPlaced struct {
	OrderID        string            `json:"order_id"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Flow           string            `json:"flow"`
	PaymentMethod  string            `json:"payment_method"`
	Customer       map[string]string `json:"customer,omitempty"`
	Items          []OrderItem       `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountTotal  decimal.Decimal   `json:"discount_total"`
	Total          decimal.Decimal   `json:"total"`
	PlacedAt       time.Time         `json:"placed_at"`
}
