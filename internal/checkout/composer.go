package checkout

import (
	"errors"
	"time"

	"github.com/example/bakery-pos/internal/domain/cart"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrEmptyCart = errors.New("cart is empty")

// ValidationError is returned when customer fields fail their schema.
type ValidationError = customer.ValidationError

// Submission is the immutable order snapshot sent to the backend.
type Submission struct {
	flow           customer.Flow
	lineItems      []cart.LineItem
	customer       *customer.Customer
	paymentMethod  PaymentMethod
	total          decimal.Decimal
	submittedAt    time.Time
	idempotencyKey string
}

func (s *Submission) Flow() customer.Flow { return s.flow }

// LineItems returns a copy of the submitted lines.
func (s *Submission) LineItems() []cart.LineItem {
	items := make([]cart.LineItem, len(s.lineItems))
	copy(items, s.lineItems)
	return items
}

// Customer returns a copy of the customer, or nil when none was given.
func (s *Submission) Customer() *customer.Customer { return s.customer.Clone() }

func (s *Submission) PaymentMethod() PaymentMethod { return s.paymentMethod }
func (s *Submission) Total() decimal.Decimal       { return s.total }
func (s *Submission) SubmittedAt() time.Time       { return s.submittedAt }

// IdempotencyKey lets the backend recognise a resent submission.
func (s *Submission) IdempotencyKey() string { return s.idempotencyKey }

type Option func(*Composer)

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) { c.now = now }
}

// WithKeyGenerator overrides how idempotency keys are generated.
func WithKeyGenerator(gen func() string) Option {
	return func(c *Composer) { c.newKey = gen }
}

// Composer turns a cart snapshot and customer input into a Submission.
// It never mutates its inputs and can be called repeatedly.
type Composer struct {
	schema customer.Schema
	now    func() time.Time
	newKey func() string
}

func NewComposer(schema customer.Schema, opts ...Option) *Composer {
	c := &Composer{
		schema: schema,
		now:    time.Now,
		newKey: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Composer) Flow() customer.Flow { return c.schema.Flow }

// Compose validates and builds a submission. It fails with ErrEmptyCart for
// an empty snapshot, and with *ValidationError naming every bad field.
func (c *Composer) Compose(snapshot cart.Snapshot, fields map[string]string, method PaymentMethod) (*Submission, error) {
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	cust, err := c.schema.Parse(fields)
	if err != nil {
		return nil, err
	}

	if !Accepts(c.schema.Flow, method) {
		return nil, ErrUnsupportedPaymentMethod
	}

	items := make([]cart.LineItem, len(snapshot.Items))
	copy(items, snapshot.Items)

	return &Submission{
		flow:           c.schema.Flow,
		lineItems:      items,
		customer:       cust,
		paymentMethod:  method,
		total:          cart.NewSnapshot(items).Total,
		submittedAt:    c.now(),
		idempotencyKey: c.newKey(),
	}, nil
}
