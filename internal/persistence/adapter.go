package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/bakery-pos/internal/domain/cart"
	"github.com/example/bakery-pos/internal/money"
	"github.com/example/bakery-pos/internal/wire"
	"go.uber.org/zap"
)

// DefaultKey is the slot key used when no namespace is given.
const DefaultKey = "cart"

// Key returns the slot key for a namespace, e.g. "cart:pos-1".
func Key(namespace string) string {
	if namespace == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + namespace
}

// PersistenceError describes a failed slot operation. It is logged, never
// returned to callers of the Adapter.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var errUnexpectedShape = errors.New("stored cart has unexpected shape")

type storedItem struct {
	ID       wire.ProductID `json:"id"`
	Name     string         `json:"name"`
	Price    json.Number    `json:"price"`
	Quantity int            `json:"quantity"`
}

// Adapter mirrors a cart into a single slot so it survives page loads.
// Last write wins; there is no versioning.
type Adapter struct {
	slot   Slot
	key    string
	logger *zap.Logger
}

func NewAdapter(slot Slot, key string, logger *zap.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{slot: slot, key: key, logger: logger.Named("persistence")}
}

func (a *Adapter) Key() string { return a.key }

// Save overwrites the slot with the snapshot's lines.
func (a *Adapter) Save(ctx context.Context, snapshot cart.Snapshot) {
	items := make([]storedItem, len(snapshot.Items))
	for i, item := range snapshot.Items {
		items[i] = storedItem{
			ID:       wire.ProductID(item.ProductID),
			Name:     item.Name,
			Price:    money.Number(item.UnitPrice),
			Quantity: item.Quantity,
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		a.report(&PersistenceError{Op: "save", Key: a.key, Err: err})
		return
	}
	if err := a.slot.Set(ctx, a.key, data); err != nil {
		a.report(&PersistenceError{Op: "save", Key: a.key, Err: err})
		return
	}
	a.logger.Debug("cart saved", zap.String("key", a.key), zap.Int("lines", len(items)))
}

// Load returns the stored lines, or an empty list when the slot is empty,
// unreadable, or holds something that is not a well-formed cart.
func (a *Adapter) Load(ctx context.Context) []cart.LineItem {
	data, err := a.slot.Get(ctx, a.key)
	if errors.Is(err, ErrSlotEmpty) {
		return []cart.LineItem{}
	}
	if err != nil {
		a.report(&PersistenceError{Op: "load", Key: a.key, Err: err})
		return []cart.LineItem{}
	}

	items, err := decode(data)
	if err != nil {
		a.report(&PersistenceError{Op: "load", Key: a.key, Err: err})
		return []cart.LineItem{}
	}
	return items
}

// ClearPersisted removes the stored cart.
func (a *Adapter) ClearPersisted(ctx context.Context) {
	if err := a.slot.Delete(ctx, a.key); err != nil {
		a.report(&PersistenceError{Op: "clear", Key: a.key, Err: err})
	}
}

func (a *Adapter) report(err *PersistenceError) {
	a.logger.Warn("cart persistence failed",
		zap.String("op", err.Op),
		zap.String("key", err.Key),
		zap.Error(err.Err),
	)
}

func decode(data []byte) ([]cart.LineItem, error) {
	var stored []storedItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	items := make([]cart.LineItem, 0, len(stored))
	for _, s := range stored {
		price, err := money.Parse(s.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errUnexpectedShape, err)
		}
		items = append(items, cart.LineItem{
			ProductID: string(s.ID),
			Name:      s.Name,
			UnitPrice: price,
			Quantity:  s.Quantity,
		})
	}
	if err := cart.ValidateLines(items); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnexpectedShape, err)
	}
	return items, nil
}
