package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrUnknownEvent = errors.New("no handler registered for event")

type EventKind string

const (
	EventAddItem             EventKind = "add_item"
	EventAdjustQuantity      EventKind = "adjust_quantity"
	EventRemoveItem          EventKind = "remove_item"
	EventClearCart           EventKind = "clear_cart"
	EventPaymentMethodToggle EventKind = "payment_method_toggle"
	EventCheckoutRequested   EventKind = "checkout_requested"
)

// Event is raised by the view layer. Only the fields its Kind uses are read.
type Event struct {
	Kind      EventKind
	ProductID string
	Name      string
	Price     decimal.Decimal
	Delta     int
	Fields    map[string]string
}

type Handler func(ctx context.Context, ev Event) error

// Registrar binds handlers to event kinds.
type Registrar interface {
	On(kind EventKind, h Handler)
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[EventKind]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventKind]Handler)}
}

// On registers h for kind, replacing any earlier handler.
func (d *Dispatcher) On(kind EventKind, h Handler) {
	d.handlers[kind] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	h, ok := d.handlers[ev.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Kind)
	}
	return h(ctx, ev)
}

// Bind registers the controller for every event kind.
func (c *Controller) Bind(r Registrar) {
	r.On(EventAddItem, func(ctx context.Context, ev Event) error {
		return c.OnAddItem(ctx, ev.ProductID, ev.Name, ev.Price)
	})
	r.On(EventAdjustQuantity, func(ctx context.Context, ev Event) error {
		c.OnAdjustQuantity(ctx, ev.ProductID, ev.Delta)
		return nil
	})
	r.On(EventRemoveItem, func(ctx context.Context, ev Event) error {
		c.OnRemoveItem(ctx, ev.ProductID)
		return nil
	})
	r.On(EventClearCart, func(ctx context.Context, ev Event) error {
		c.OnClearCart(ctx)
		return nil
	})
	r.On(EventPaymentMethodToggle, func(ctx context.Context, ev Event) error {
		c.OnPaymentMethodToggle()
		return nil
	})
	r.On(EventCheckoutRequested, func(ctx context.Context, ev Event) error {
		_, err := c.OnCheckoutRequested(ctx, ev.Fields)
		return err
	})
}
