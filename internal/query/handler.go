package query

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bakery-pos/internal/infrastructure/store"
	"github.com/example/bakery-pos/internal/report"
	"go.uber.org/zap"
)

type Handler struct {
	readStore store.ReadStoreInterface
	logger    *zap.Logger
}

func NewHandler(readStore store.ReadStoreInterface, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{readStore: readStore, logger: logger.Named("query")}
}

// Orders
func (h *Handler) GetOrder(ctx context.Context, id string) (*OrderReadModel, bool, error) {
	data, ok, err := h.readStore.Get(ctx, store.CollectionOrders, id)
	if err != nil {
		h.logger.Error("failed to get order", zap.String("order_id", id), zap.Error(err))
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	o, ok := data.(*OrderReadModel)
	if !ok {
		return nil, false, fmt.Errorf("unexpected read model type %T", data)
	}
	return o, true, nil
}

// ListOrders returns every projected order, oldest first.
func (h *Handler) ListOrders(ctx context.Context) ([]*OrderReadModel, error) {
	items, err := h.readStore.GetAll(ctx, store.CollectionOrders)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		return nil, err
	}
	orders := make([]*OrderReadModel, 0, len(items))
	for _, item := range items {
		if o, ok := item.(*OrderReadModel); ok {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

// DailySalesReport summarizes the orders placed on day.
func (h *Handler) DailySalesReport(ctx context.Context, day time.Time) (report.Daily, error) {
	orders, err := h.ListOrders(ctx)
	if err != nil {
		return report.Daily{}, err
	}
	return report.BuildDaily(day, orders), nil
}
