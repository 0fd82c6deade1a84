// Package wire holds the JSON shapes exchanged between the storefront and the
// order acceptance endpoint.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Order acceptance paths for the in-person and online flows.
const (
	SaveOrderPath       = "/save_order/"
	SaveOrderOnlinePath = "/save_order_online/"
)

// ProductID accepts both JSON strings and JSON numbers and always encodes
// as a string. The point-of-sale page sends numeric ids.
type ProductID string

func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*p = ProductID(n.String())
	return nil
}

// OrderLine is one entry of the "orders" array. In-person clients may send
// only id and quantity; a missing quantity counts as one unit.
type OrderLine struct {
	ID       ProductID    `json:"id"`
	Name     string       `json:"name,omitempty"`
	Price    *json.Number `json:"price,omitempty"`
	Quantity *int         `json:"quantity,omitempty"`
}

// Units returns the quantity, defaulting to 1.
func (l OrderLine) Units() int {
	if l.Quantity == nil {
		return 1
	}
	return *l.Quantity
}

// OrderRequest covers both the in-person and the online request shapes.
type OrderRequest struct {
	Orders         []OrderLine       `json:"orders"`
	Customer       map[string]string `json:"customer,omitempty"`
	PaymentMethod  string            `json:"paymentMethod,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Flow           string            `json:"flow,omitempty"`
	SubmittedAt    string            `json:"submittedAt,omitempty"`
}

// Totals are the backend's authoritative amounts. Subtotal is at catalog
// prices; DiscountTotal is what promotions took off it.
type Totals struct {
	Subtotal      json.Number `json:"subtotal,omitempty"`
	DiscountTotal json.Number `json:"discount_total,omitempty"`
	Total         json.Number `json:"total"`
}

// OrderResponse is the backend's answer to an OrderRequest.
type OrderResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	OrderID string  `json:"order_id,omitempty"`
	Totals  *Totals `json:"totals,omitempty"`
}

// OK reports whether the response signals success.
func (r OrderResponse) OK() bool {
	return r.Status == StatusSuccess
}
