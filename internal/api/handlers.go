package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/command"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/domain/order"
	"github.com/example/bakery-pos/internal/money"
	"github.com/example/bakery-pos/internal/query"
	"github.com/example/bakery-pos/internal/report"
	"github.com/example/bakery-pos/internal/wire"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds an order request body.
const maxBodyBytes = 1 << 20

const (
	msgOrderSaved     = "Pedido registrado correctamente"
	msgOrderDuplicate = "El pedido ya había sido registrado"
	msgInternalError  = "Error interno, intente de nuevo"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
	now          func() time.Time
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.Named("api"),
		now:          time.Now,
	}
}

// Order Handlers

// SaveOrder accepts an order for flow and answers with the wire contract.
func (h *Handlers) SaveOrder(flow customer.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.OrderRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "JSON inválido: "+err.Error())
			return
		}

		o, created, err := h.cmdHandler.PlaceOrder(r.Context(), command.PlaceOrder{Flow: flow, Request: req})
		if err != nil {
			if isClientError(err) {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			h.logger.Error("failed to place order", zap.String("flow", string(flow)), zap.Error(err))
			respondError(w, http.StatusInternalServerError, msgInternalError)
			return
		}

		msg := msgOrderSaved
		if !created {
			msg = msgOrderDuplicate
		}
		respondJSON(w, http.StatusOK, wire.OrderResponse{
			Status:  wire.StatusSuccess,
			Message: msg,
			OrderID: o.ID,
			Totals: &wire.Totals{
				Subtotal:      money.Number(o.Subtotal),
				DiscountTotal: money.Number(o.DiscountTotal),
				Total:         money.Number(o.Total),
			},
		})
	}
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.ListOrders(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	o, ok, err := h.queryHandler.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "Pedido no encontrado")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// Report Handlers

// DailyReport serves the sales report for ?date=YYYY-MM-DD. A missing or
// unparsable date means today.
func (h *Handlers) DailyReport(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	day := now
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation(report.DateLayout, v, now.Location())
		if err != nil {
			h.logger.Debug("invalid report date, using today", zap.String("date", v))
		} else {
			day = parsed
		}
	}

	rep, err := h.queryHandler.DailySalesReport(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func isClientError(err error) bool {
	var verr *customer.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, command.ErrInvalidRequest) ||
		errors.Is(err, checkout.ErrUnsupportedPaymentMethod) ||
		errors.Is(err, order.ErrEmptyOrder) ||
		errors.Is(err, order.ErrInvalidLine) ||
		errors.Is(err, order.ErrInvalidQuantity) ||
		errors.Is(err, order.ErrInvalidPrice) ||
		errors.Is(err, order.ErrUnknownProduct) ||
		errors.Is(err, order.ErrCustomerRequired)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, wire.OrderResponse{Status: wire.StatusError, Message: message})
}
