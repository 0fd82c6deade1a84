package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/bakery-pos/internal/domain/order"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/readmodel"
	"go.uber.org/zap"
)

type Projector struct {
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

func NewProjector(readStore store.ReadStoreInterface, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{readStore: readStore, logger: logger.Named("projector")}
}

// HandleEvent decodes a published event and applies it. It matches
// kafka.MessageHandler.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return p.Apply(ctx, event)
}

// Apply projects one event into the read store. Events of other aggregates
// are ignored.
func (p *Projector) Apply(ctx context.Context, event store.Event) error {
	p.logger.Debug("received event",
		zap.String("event_type", event.EventType),
		zap.String("aggregate_id", event.AggregateID),
	)

	if event.AggregateType != order.AggregateType {
		return nil
	}
	return p.handleOrderEvent(ctx, event)
}

// Replay rebuilds read models from every stored event and returns how many
// events were applied.
func (p *Projector) Replay(ctx context.Context, es store.EventStoreInterface) (int, error) {
	events, err := es.GetAllEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load events: %w", err)
	}

	applied := 0
	for _, event := range events {
		if err := p.Apply(ctx, event); err != nil {
			p.logger.Error("failed to replay event", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		applied++
	}
	return applied, nil
}

func (p *Projector) handleOrderEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}

		items := make([]readmodel.OrderItemReadModel, 0, len(e.Items))
		for _, item := range e.Items {
			items = append(items, readmodel.OrderItemReadModel{
				ProductID:     item.ProductID,
				Name:          item.Name,
				Quantity:      item.Quantity,
				BaseUnitPrice: item.BaseUnitPrice,
				UnitPrice:     item.UnitPrice,
				PromotionID:   item.PromotionID,
				Discount:      item.LineDiscount(),
				Subtotal:      item.LineTotal(),
			})
		}

		err := p.readStore.Set(ctx, store.CollectionOrders, e.OrderID, &readmodel.OrderReadModel{
			ID:             e.OrderID,
			IdempotencyKey: e.IdempotencyKey,
			Flow:           e.Flow,
			PaymentMethod:  e.PaymentMethod,
			Customer:       e.Customer,
			Items:          items,
			Subtotal:       e.Subtotal,
			DiscountTotal:  e.DiscountTotal,
			Total:          e.Total,
			Status:         string(order.StatusPlaced),
			CreatedAt:      e.PlacedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to project order %s: %w", e.OrderID, err)
		}
		p.logger.Info("order projected", zap.String("order_id", e.OrderID))
	}
	return nil
}
