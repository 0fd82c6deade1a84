package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/domain/order"
	"github.com/example/bakery-pos/internal/email"
	"github.com/example/bakery-pos/internal/infrastructure/store"
	"go.uber.org/zap"
)

// ReceiptSender delivers receipts. email.Service implements it.
type ReceiptSender interface {
	SendReceipt(to string, r email.Receipt) error
}

// Handler processes events for sending notifications
type Handler struct {
	sender ReceiptSender
	logger *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(sender ReceiptSender, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sender: sender, logger: logger.Named("notifier")}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	// Only process OrderPlaced events
	if event.EventType == order.EventOrderPlaced {
		return h.handleOrderPlaced(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event store.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("failed to decode OrderPlaced: %w", err)
	}

	to := e.Customer[customer.FieldEmail]
	if to == "" {
		h.logger.Debug("no email on order, skipping receipt", zap.String("order_id", e.OrderID))
		return nil
	}

	items := make([]email.ReceiptItem, len(e.Items))
	for i, item := range e.Items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		items[i] = email.ReceiptItem{Name: name, Quantity: item.Quantity, UnitPrice: item.UnitPrice}
	}

	receipt := email.Receipt{
		OrderID:       e.OrderID,
		CustomerName:  customerName(e.Customer),
		PaymentMethod: e.PaymentMethod,
		Items:         items,
		Subtotal:      e.Subtotal,
		Discount:      e.DiscountTotal,
		Total:         e.Total,
	}
	if err := h.sender.SendReceipt(to, receipt); err != nil {
		h.logger.Error("failed to send receipt", zap.String("order_id", e.OrderID), zap.Error(err))
		return err
	}

	h.logger.Info("receipt sent", zap.String("order_id", e.OrderID))
	return nil
}

func customerName(fields map[string]string) string {
	if name := fields[customer.FieldName]; name != "" {
		return name
	}
	return strings.TrimSpace(fields[customer.FieldFirstName] + " " + fields[customer.FieldLastName])
}
