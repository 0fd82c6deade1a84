// Package catalog holds the products the backend can price.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/example/bakery-pos/internal/money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateID     = errors.New("duplicate product id")
)

type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Reader looks up a single product.
type Reader interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
}

type Catalog struct {
	mu         sync.RWMutex
	products   map[string]Product
	promotions []Promotion
}

func New(products ...Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		if p.ID == "" {
			return nil, errors.New("product id is required")
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %s: %w", p.ID, money.ErrNegativeAmount)
		}
		if _, ok := c.products[p.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		p.Price = money.Round(p.Price)
		c.products[p.ID] = p
	}
	return c, nil
}

type fileFormat struct {
	Products []struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Price string `yaml:"price"`
	} `yaml:"products"`
	Promotions []struct {
		ID           string   `yaml:"id"`
		Name         string   `yaml:"name"`
		Type         string   `yaml:"type"`
		Value        string   `yaml:"value"`
		Active       *bool    `yaml:"active"`
		StartsAt     string   `yaml:"starts_at"`
		EndsAt       string   `yaml:"ends_at"`
		AppliesToAll bool     `yaml:"applies_to_all"`
		Products     []string `yaml:"products"`
	} `yaml:"promotions"`
}

// Parse reads a YAML catalog. Promotions are optional; active defaults to
// true and window bounds are RFC 3339 timestamps.
//
//	products:
//	  - id: "1"
//	    name: Pan de bono
//	    price: "1.50"
//	promotions:
//	  - id: desayuno
//	    type: percent
//	    value: "10"
//	    products: ["1"]
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	products := make([]Product, 0, len(f.Products))
	for _, p := range f.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("product %s: invalid price %q: %w", p.ID, p.Price, err)
		}
		products = append(products, Product{ID: p.ID, Name: p.Name, Price: price})
	}
	c, err := New(products...)
	if err != nil {
		return nil, err
	}

	for _, fp := range f.Promotions {
		value, err := decimal.NewFromString(fp.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: invalid value %q", ErrInvalidPromotion, fp.ID, fp.Value)
		}
		promo := Promotion{
			ID:           fp.ID,
			Name:         fp.Name,
			Type:         DiscountType(fp.Type),
			Value:        value,
			Active:       fp.Active == nil || *fp.Active,
			AppliesToAll: fp.AppliesToAll,
			Products:     fp.Products,
		}
		if promo.StartsAt, err = parseTime(fp.StartsAt); err != nil {
			return nil, fmt.Errorf("%w: %s: starts_at: %v", ErrInvalidPromotion, fp.ID, err)
		}
		if promo.EndsAt, err = parseTime(fp.EndsAt); err != nil {
			return nil, fmt.Errorf("%w: %s: ends_at: %v", ErrInvalidPromotion, fp.ID, err)
		}
		if err := c.AddPromotion(promo); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func (c *Catalog) GetProduct(ctx context.Context, productID string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return p, nil
}

// Put adds or replaces a product.
func (c *Catalog) Put(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p.Price = money.Round(p.Price)
	c.products[p.ID] = p
}

// List returns all products ordered by id.
func (c *Catalog) List() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
