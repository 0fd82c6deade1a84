package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/domain/order"
	"github.com/example/bakery-pos/internal/money"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidRequest marks request fields that cannot be decoded.
var ErrInvalidRequest = errors.New("invalid order request")

type Handler struct {
	orderSvc *order.Service
	logger   *zap.Logger
}

func NewHandler(orderSvc *order.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{orderSvc: orderSvc, logger: logger.Named("command")}
}

// PlaceOrder decodes the wire request and places the order. The boolean
// result is false when the idempotency key was already used.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, bool, error) {
	schema, err := customer.SchemaFor(cmd.Flow)
	if err != nil {
		return nil, false, err
	}

	req := cmd.Request
	cust, err := schema.Parse(normalizeCustomer(req.Customer))
	if err != nil {
		return nil, false, err
	}

	method := checkout.DefaultPaymentMethod
	if req.PaymentMethod != "" {
		method, err = checkout.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	// Client prices are only checked for shape; the order service reprices.
	lines := make([]order.Line, 0, len(req.Orders))
	for _, l := range req.Orders {
		line := order.Line{
			ProductID: string(l.ID),
			Name:      l.Name,
			Quantity:  l.Units(),
		}
		if l.Price != nil {
			p, err := money.Parse(*l.Price)
			if errors.Is(err, money.ErrNegativeAmount) {
				return nil, false, fmt.Errorf("%w: product %s", order.ErrInvalidPrice, l.ID)
			}
			if err != nil {
				return nil, false, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			line.Price = decimalPtr(p)
		}
		lines = append(lines, line)
	}

	o, created, err := h.orderSvc.Place(ctx, order.PlaceOrder{
		Flow:           cmd.Flow,
		Lines:          lines,
		Customer:       cust,
		PaymentMethod:  method,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.logger.Info("order rejected",
			zap.String("flow", string(cmd.Flow)),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err),
		)
		return nil, false, err
	}
	return o, created, nil
}

// normalizeCustomer copies raw, renaming aliased keys unless the canonical
// key is present too.
func normalizeCustomer(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	for alias, canonical := range customerAliases {
		v, ok := out[alias]
		if !ok {
			continue
		}
		delete(out, alias)
		if _, exists := out[canonical]; !exists {
			out[canonical] = v
		}
	}
	return out
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
