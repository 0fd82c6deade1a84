package readmodel

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemReadModel represents an item in an order
type OrderItemReadModel struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	BaseUnitPrice decimal.Decimal `json:"base_unit_price"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PromotionID   string          `json:"promotion_id,omitempty"`
	Discount      decimal.Decimal `json:"discount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// OrderReadModel is the read model for placed orders
type OrderReadModel struct {
	ID             string               `json:"id"`
	IdempotencyKey string               `json:"idempotency_key,omitempty"`
	Flow           string               `json:"flow"`
	PaymentMethod  string               `json:"payment_method"`
	Customer       map[string]string    `json:"customer,omitempty"`
	Items          []OrderItemReadModel `json:"items"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	DiscountTotal  decimal.Decimal      `json:"discount_total"`
	Total          decimal.Decimal      `json:"total"`
	Status         string               `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
}
