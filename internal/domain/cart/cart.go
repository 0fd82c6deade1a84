package cart

import (
	"errors"
	"fmt"

	"github.com/example/bakery-pos/internal/money"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct = errors.New("product_id is required")
	ErrInvalidPrice   = errors.New("price must not be negative")
	ErrInvalidLines   = errors.New("line items do not form a cart")
)

// LineItem is one product entry in a cart.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// ValidateItem checks the values a collaborator hands to AddItem.
func ValidateItem(productID string, unitPrice decimal.Decimal) error {
	if productID == "" {
		return ErrInvalidProduct
	}
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Cart is an insertion-ordered set of line items keyed by product id.
// It is not safe for concurrent use; a single session owns it.
type Cart struct {
	items []LineItem
	index map[string]int // productID -> position in items
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Restore builds a cart from previously stored line items. The lines must
// pass ValidateLines; nothing is merged or repaired.
func Restore(items []LineItem) (*Cart, error) {
	if err := ValidateLines(items); err != nil {
		return nil, err
	}
	c := New()
	for _, item := range items {
		item.UnitPrice = money.Round(item.UnitPrice)
		c.index[item.ProductID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// ValidateLines checks that stored lines form a cart: every id present and
// unique, every quantity at least 1, no negative price.
func ValidateLines(items []LineItem) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if err := ValidateItem(item.ProductID, item.UnitPrice); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLines, err)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: product %s has quantity %d", ErrInvalidLines, item.ProductID, item.Quantity)
		}
		if seen[item.ProductID] {
			return fmt.Errorf("%w: product %s appears twice", ErrInvalidLines, item.ProductID)
		}
		seen[item.ProductID] = true
	}
	return nil
}

// AddItem increments the quantity of an existing line or appends a new one
// with quantity 1. It returns the resulting line.
func (c *Cart) AddItem(productID, name string, unitPrice decimal.Decimal) LineItem {
	if pos, ok := c.index[productID]; ok {
		c.items[pos].Quantity++
		return c.items[pos]
	}

	item := LineItem{
		ProductID: productID,
		Name:      name,
		UnitPrice: money.Round(unitPrice),
		Quantity:  1,
	}
	c.index[productID] = len(c.items)
	c.items = append(c.items, item)
	return item
}

// AdjustQuantity adds delta to a line's quantity. A line that reaches zero
// or below is removed. The second return value reports whether the line is
// still present; it is false for unknown product ids as well.
func (c *Cart) AdjustQuantity(productID string, delta int) (LineItem, bool) {
	pos, ok := c.index[productID]
	if !ok {
		return LineItem{}, false
	}

	if c.items[pos].Quantity+delta <= 0 {
		c.removeAt(pos)
		return LineItem{}, false
	}

	c.items[pos].Quantity += delta
	return c.items[pos], true
}

// RemoveItem deletes the line for productID and reports whether one existed.
func (c *Cart) RemoveItem(productID string) bool {
	pos, ok := c.index[productID]
	if !ok {
		return false
	}
	c.removeAt(pos)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
	c.index = make(map[string]int)
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Snapshot returns a copy of the lines with derived count and total.
func (c *Cart) Snapshot() Snapshot {
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	return NewSnapshot(items)
}

func (c *Cart) removeAt(pos int) {
	delete(c.index, c.items[pos].ProductID)
	c.items = append(c.items[:pos], c.items[pos+1:]...)
	for i := pos; i < len(c.items); i++ {
		c.index[c.items[i].ProductID] = i
	}
}

// Snapshot is a read-only view of a cart at one point in time.
type Snapshot struct {
	Items     []LineItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// NewSnapshot derives count and total from items.
func NewSnapshot(items []LineItem) Snapshot {
	s := Snapshot{Items: items, Total: decimal.Zero}
	for _, item := range items {
		s.ItemCount += item.Quantity
		s.Total = s.Total.Add(item.Subtotal())
	}
	s.Total = money.Round(s.Total)
	return s
}

// IsEmpty reports whether the snapshot has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}
