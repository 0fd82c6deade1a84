package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/bakery-pos/internal/catalog"
	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/aggregate"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrEmptyOrder       = errors.New("order must have at least one item")
	ErrInvalidLine      = errors.New("order line must have a product id")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrCustomerRequired = errors.New("customer details are required")
)

// idempotencyNamespace derives order ids from idempotency keys, so a retried
// submission maps onto the aggregate it created the first time.
var idempotencyNamespace = uuid.MustParse("6f1c1f5e-2b8a-4d1e-9a57-0c4b3e2d9f10")

// defaultLookupLimit caps concurrent catalog lookups per order.
const defaultLookupLimit = 8

// Line is an order line as received. Name and Price are what the client
// showed; the catalog sets the price actually charged.
type Line struct {
	ProductID string
	Name      string
	Price     *decimal.Decimal
	Quantity  int
}

type PlaceOrder struct {
	Flow           customer.Flow
	Lines          []Line
	Customer       *customer.Customer
	PaymentMethod  checkout.PaymentMethod
	IdempotencyKey string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger.Named("order") }
}

func WithLookupLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lookupLimit = n
		}
	}
}

type Service struct {
	eventStore  store.EventStoreInterface
	pricer      catalog.Pricer
	now         func() time.Time
	lookupLimit int
	logger      *zap.Logger

	// serializes the idempotency check with the append
	mu sync.Mutex
}

func NewService(es store.EventStoreInterface, pricer catalog.Pricer, opts ...Option) *Service {
	s := &Service{
		eventStore:  es,
		pricer:      pricer,
		now:         time.Now,
		lookupLimit: defaultLookupLimit,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadOrder loads an order by replaying events
func (s *Service) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	order, found, err := aggregate.LoadAggregate(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Place validates, reprices and records an order. Every line is priced from
// the catalog and its promotions at placement time. The boolean result is
// false when cmd.IdempotencyKey matched an order placed earlier; that order
// is returned unchanged.
func (s *Service) Place(ctx context.Context, cmd PlaceOrder) (*Order, bool, error) {
	if err := validate(cmd); err != nil {
		return nil, false, err
	}

	placedAt := s.now().UTC()
	items, err := s.price(ctx, merge(cmd.Lines), placedAt)
	if err != nil {
		return nil, false, err
	}

	subtotal, total := decimal.Zero, decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineSubtotal())
		total = total.Add(item.LineTotal())
	}

	orderID := uuid.New().String()
	if cmd.IdempotencyKey != "" {
		orderID = uuid.NewSHA1(idempotencyNamespace, []byte(cmd.IdempotencyKey)).String()
	}

	var fields map[string]string
	if cmd.Customer != nil {
		fields = cmd.Customer.Clone().Fields
	}

	event := OrderPlaced{
		OrderID:        orderID,
		IdempotencyKey: cmd.IdempotencyKey,
		Flow:           string(cmd.Flow),
		PaymentMethod:  string(cmd.PaymentMethod),
		Customer:       fields,
		Items:          items,
		Subtotal:       subtotal,
		DiscountTotal:  subtotal.Sub(total),
		Total:          total,
		PlacedAt:       placedAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.IdempotencyKey != "" {
		existing, err := s.loadOrder(ctx, orderID)
		if err == nil {
			s.logger.Info("duplicate submission",
				zap.String("order_id", orderID),
				zap.String("idempotency_key", cmd.IdempotencyKey),
			)
			return existing, false, nil
		}
		if !errors.Is(err, ErrOrderNotFound) {
			return nil, false, err
		}
	}

	storedEvent, err := s.eventStore.Append(ctx, orderID, AggregateType, EventOrderPlaced, event)
	if errors.Is(err, store.ErrVersionConflict) && cmd.IdempotencyKey != "" {
		// another instance placed the same key first
		existing, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return nil, false, loadErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	o := &Order{}
	if storedEvent != nil {
		if err := o.ApplyEvent(*storedEvent); err != nil {
			return nil, false, err
		}
	}

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("flow", string(o.Flow)),
		zap.String("total", o.Total.StringFixed(money.Places)),
		zap.String("discount", o.DiscountTotal.StringFixed(money.Places)),
	)
	return o, true, nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.loadOrder(ctx, orderID)
}

func validate(cmd PlaceOrder) error {
	if len(cmd.Lines) == 0 {
		return ErrEmptyOrder
	}
	for _, l := range cmd.Lines {
		if l.ProductID == "" {
			return ErrInvalidLine
		}
		if l.Quantity < 1 {
			return fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
		}
		if l.Price != nil && l.Price.IsNegative() {
			return fmt.Errorf("%w: product %s", ErrInvalidPrice, l.ProductID)
		}
	}
	if !checkout.Accepts(cmd.Flow, cmd.PaymentMethod) {
		return fmt.Errorf("%w: %s", checkout.ErrUnsupportedPaymentMethod, cmd.PaymentMethod)
	}
	if cmd.Flow == customer.FlowOnline && cmd.Customer == nil {
		return ErrCustomerRequired
	}
	return nil
}

// merge folds repeated product ids into one line, keeping first-seen order
// and the first line's name and price.
func merge(lines []Line) []Line {
	index := make(map[string]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// price quotes every line from the catalog. A client price that disagrees
// with the quote is logged and ignored.
func (s *Service) price(ctx context.Context, lines []Line, at time.Time) ([]OrderItem, error) {
	items := make([]OrderItem, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupLimit)
	for i, l := range lines {
		g.Go(func() error {
			q, err := s.pricer.Quote(gctx, l.ProductID, at)
			if errors.Is(err, catalog.ErrProductNotFound) {
				return fmt.Errorf("%w: %s", ErrUnknownProduct, l.ProductID)
			}
			if err != nil {
				return fmt.Errorf("failed to price product %s: %w", l.ProductID, err)
			}

			name := q.Product.Name
			if name == "" {
				name = l.Name
			}
			items[i] = OrderItem{
				ProductID:     l.ProductID,
				Name:          name,
				Quantity:      l.Quantity,
				BaseUnitPrice: q.BaseUnit,
				UnitPrice:     q.UnitPrice,
				PromotionID:   q.PromotionID,
			}

			if l.Price != nil && !money.Round(*l.Price).Equal(q.UnitPrice) {
				s.logger.Debug("client price differs from catalog",
					zap.String("product_id", l.ProductID),
					zap.String("client_price", l.Price.StringFixed(money.Places)),
					zap.String("unit_price", q.UnitPrice.StringFixed(money.Places)),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
