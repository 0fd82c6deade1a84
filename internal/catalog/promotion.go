package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bakery-pos/internal/money"
	"github.com/shopspring/decimal"
)

var ErrInvalidPromotion = errors.New("invalid promotion")

type DiscountType string

const (
	// DiscountPercent takes Value percent off the base price.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed takes Value off the base price.
	DiscountFixed DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Promotion lowers the unit price of the products it covers while it is
// active. A zero StartsAt or EndsAt leaves that side of the window open.
type Promotion struct {
	ID           string
	Name         string
	Type         DiscountType
	Value        decimal.Decimal
	Active       bool
	StartsAt     time.Time
	EndsAt       time.Time
	AppliesToAll bool
	Products     []string
}

// ActiveAt reports whether the promotion is switched on and t is inside its
// window.
func (p Promotion) ActiveAt(t time.Time) bool {
	if !p.Active {
		return false
	}
	if !p.StartsAt.IsZero() && t.Before(p.StartsAt) {
		return false
	}
	if !p.EndsAt.IsZero() && t.After(p.EndsAt) {
		return false
	}
	return true
}

func (p Promotion) AppliesTo(productID string) bool {
	if p.AppliesToAll {
		return true
	}
	for _, id := range p.Products {
		if id == productID {
			return true
		}
	}
	return false
}

// Apply returns the discounted unit price, rounded and never below zero.
func (p Promotion) Apply(base decimal.Decimal) decimal.Decimal {
	var price decimal.Decimal
	switch p.Type {
	case DiscountPercent:
		price = base.Mul(hundred.Sub(p.Value)).Div(hundred)
	case DiscountFixed:
		price = base.Sub(p.Value)
	default:
		return base
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return money.Round(price)
}

func (p Promotion) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPromotion)
	}
	switch p.Type {
	case DiscountPercent:
		if p.Value.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s takes more than 100%%", ErrInvalidPromotion, p.ID)
		}
	case DiscountFixed:
	default:
		return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidPromotion, p.ID, p.Type)
	}
	if p.Value.IsNegative() {
		return fmt.Errorf("%w: %s has a negative value", ErrInvalidPromotion, p.ID)
	}
	if !p.StartsAt.IsZero() && !p.EndsAt.IsZero() && p.EndsAt.Before(p.StartsAt) {
		return fmt.Errorf("%w: %s ends before it starts", ErrInvalidPromotion, p.ID)
	}
	if !p.AppliesToAll && len(p.Products) == 0 {
		return fmt.Errorf("%w: %s covers no products", ErrInvalidPromotion, p.ID)
	}
	return nil
}

// Quote is the price of one unit of a product at a point in time.
type Quote struct {
	Product Product
	// BaseUnit is the catalog price, UnitPrice the best promotional price.
	BaseUnit  decimal.Decimal
	UnitPrice decimal.Decimal
	// PromotionID names the promotion that set UnitPrice, if any.
	PromotionID string
}

// UnitDiscount returns BaseUnit minus UnitPrice.
func (q Quote) UnitDiscount() decimal.Decimal {
	return q.BaseUnit.Sub(q.UnitPrice)
}

// Pricer quotes authoritative unit prices.
type Pricer interface {
	Quote(ctx context.Context, productID string, at time.Time) (Quote, error)
}

// AddPromotion registers a promotion. Promotions scoped to products must
// name products the catalog knows.
func (c *Catalog) AddPromotion(p Promotion) error {
	if err := p.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.promotions {
		if existing.ID == p.ID {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidPromotion, p.ID)
		}
	}
	for _, id := range p.Products {
		if _, ok := c.products[id]; !ok {
			return fmt.Errorf("%w: %s covers unknown product %s", ErrInvalidPromotion, p.ID, id)
		}
	}
	p.Products = append([]string(nil), p.Products...)
	c.promotions = append(c.promotions, p)
	return nil
}

// Promotions returns the registered promotions in registration order.
func (c *Catalog) Promotions() []Promotion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Promotion(nil), c.promotions...)
}

// Quote prices one unit of productID at time at: the catalog price lowered
// by the best promotion active then. Ties keep the promotion registered first.
func (c *Catalog) Quote(ctx context.Context, productID string, at time.Time) (Quote, error) {
	p, err := c.GetProduct(ctx, productID)
	if err != nil {
		return Quote{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	q := Quote{Product: p, BaseUnit: p.Price, UnitPrice: p.Price}
	for _, promo := range c.promotions {
		if !promo.ActiveAt(at) || !promo.AppliesTo(productID) {
			continue
		}
		if candidate := promo.Apply(p.Price); candidate.LessThan(q.UnitPrice) {
			q.UnitPrice = candidate
			q.PromotionID = promo.ID
		}
	}
	return q, nil
}
