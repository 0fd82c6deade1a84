// Package session owns one cart for one user session and implements the
// events a view layer raises against it.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/cart"
	"github.com/example/bakery-pos/internal/gateway"
	"github.com/example/bakery-pos/internal/money"
	"github.com/example/bakery-pos/internal/persistence"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrCheckoutInProgress = errors.New("checkout already in progress")

// Submitter delivers a submission to the order backend.
type Submitter interface {
	Submit(ctx context.Context, sub *checkout.Submission) (gateway.Result, error)
}

// ViewModel is everything a view needs to draw the cart.
type ViewModel struct {
	Lines           []cart.LineItem
	ItemCount       int
	Total           decimal.Decimal
	PaymentMethod   checkout.PaymentMethod
	CheckoutEnabled bool
	Submitting      bool
}

type Renderer interface {
	Render(vm ViewModel)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(vm ViewModel)

func (f RendererFunc) Render(vm ViewModel) { f(vm) }

type Option func(*Controller)

func WithRenderer(r Renderer) Option {
	return func(c *Controller) { c.renderer = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller serializes cart mutations and guards checkout so that at most
// one submission is in flight.
type Controller struct {
	mu        sync.Mutex
	cart      *cart.Cart
	method    checkout.PaymentMethod
	persist   *persistence.Adapter
	composer  *checkout.Composer
	submitter Submitter
	renderer  Renderer
	logger    *zap.Logger

	submitting atomic.Bool
}

// NewController rehydrates the cart from persist and renders it once.
func NewController(ctx context.Context, persist *persistence.Adapter, composer *checkout.Composer, submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		persist:   persist,
		composer:  composer,
		submitter: submitter,
		method:    checkout.DefaultPaymentMethod,
		renderer:  RendererFunc(func(ViewModel) {}),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("session")

	restored, err := cart.Restore(persist.Load(ctx))
	if err != nil {
		c.logger.Warn("stored cart discarded", zap.Error(err))
		restored = cart.New()
	}
	c.cart = restored
	c.logger.Debug("cart restored", zap.Int("lines", c.cart.Len()))
	c.render()
	return c
}

// OnAddItem adds one unit of a product.
func (c *Controller) OnAddItem(ctx context.Context, productID, name string, price decimal.Decimal) error {
	if err := cart.ValidateItem(productID, price); err != nil {
		return err
	}
	c.mutate(ctx, func(ct *cart.Cart) {
		line := ct.AddItem(productID, name, price)
		c.logger.Debug("item added", zap.String("product_id", productID), zap.Int("quantity", line.Quantity))
	})
	return nil
}

// OnAdjustQuantity changes a line's quantity by delta. Unknown ids are ignored.
func (c *Controller) OnAdjustQuantity(ctx context.Context, productID string, delta int) {
	c.mutate(ctx, func(ct *cart.Cart) {
		line, ok := ct.AdjustQuantity(productID, delta)
		c.logger.Debug("quantity adjusted",
			zap.String("product_id", productID),
			zap.Int("delta", delta),
			zap.Bool("present", ok),
			zap.Int("quantity", line.Quantity),
		)
	})
}

func (c *Controller) OnRemoveItem(ctx context.Context, productID string) {
	c.mutate(ctx, func(ct *cart.Cart) {
		removed := ct.RemoveItem(productID)
		c.logger.Debug("item removed", zap.String("product_id", productID), zap.Bool("present", removed))
	})
}

func (c *Controller) OnClearCart(ctx context.Context) {
	c.mutate(ctx, func(ct *cart.Cart) {
		ct.Clear()
		c.logger.Debug("cart cleared")
	})
}

// OnPaymentMethodToggle advances to the next method the flow accepts.
func (c *Controller) OnPaymentMethodToggle() checkout.PaymentMethod {
	c.mu.Lock()
	c.method = checkout.NextPaymentMethod(c.composer.Flow(), c.method)
	method := c.method
	c.mu.Unlock()

	c.logger.Debug("payment method toggled", zap.String("method", string(method)))
	c.render()
	return method
}

// OnCheckoutRequested composes and submits the cart. Validation errors and
// ErrCheckoutInProgress leave everything untouched, as does a failed
// submission. On success the submitted quantities are taken out of the cart
// and the payment method goes back to the default. Items added while the
// submission was in flight stay in the cart and in the slot.
func (c *Controller) OnCheckoutRequested(ctx context.Context, fields map[string]string) (gateway.Result, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		c.logger.Info("checkout rejected, submission in flight")
		return gateway.Result{}, ErrCheckoutInProgress
	}
	defer func() {
		c.submitting.Store(false)
		c.render()
	}()

	c.mu.Lock()
	sub, err := c.composer.Compose(c.cart.Snapshot(), fields, c.method)
	c.mu.Unlock()
	if err != nil {
		c.logger.Info("checkout not composed", zap.Error(err))
		return gateway.Result{}, err
	}

	c.render()
	result, err := c.submitter.Submit(ctx, sub)
	if err != nil {
		return gateway.Result{}, err
	}

	c.mu.Lock()
	for _, item := range sub.LineItems() {
		c.cart.AdjustQuantity(item.ProductID, -item.Quantity)
	}
	c.method = checkout.DefaultPaymentMethod
	c.saveLocked(ctx)
	c.mu.Unlock()

	c.logger.Info("checkout completed",
		zap.String("order_id", result.OrderID),
		zap.String("total", result.ConfirmedTotal.StringFixed(money.Places)),
	)
	return result, nil
}

// View returns the current view model.
func (c *Controller) View() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Submitting reports whether a checkout is in flight.
func (c *Controller) Submitting() bool {
	return c.submitting.Load()
}

// mutate applies fn and writes the result to the slot under the same lock,
// so the slot always holds the latest mutation.
func (c *Controller) mutate(ctx context.Context, fn func(*cart.Cart)) {
	c.mu.Lock()
	fn(c.cart)
	c.saveLocked(ctx)
	c.mu.Unlock()

	c.render()
}

func (c *Controller) saveLocked(ctx context.Context) {
	if c.cart.Len() == 0 {
		c.persist.ClearPersisted(ctx)
		return
	}
	c.persist.Save(ctx, c.cart.Snapshot())
}

func (c *Controller) render() {
	c.renderer.Render(c.View())
}

func (c *Controller) viewLocked() ViewModel {
	snap := c.cart.Snapshot()
	submitting := c.submitting.Load()
	return ViewModel{
		Lines:           snap.Items,
		ItemCount:       snap.ItemCount,
		Total:           snap.Total,
		PaymentMethod:   c.method,
		CheckoutEnabled: !snap.IsEmpty() && !submitting,
		Submitting:      submitting,
	}
}
