package api

import (
	"net/http"
	"time"

	"github.com/example/bakery-pos/internal/api/middleware"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/wire"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 15 * time.Second

type RouterConfig struct {
	Handlers       *Handlers
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	h := cfg.Handlers

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Get("/health", h.Health)

	r.Post(wire.SaveOrderPath, h.SaveOrder(customer.FlowInPerson))
	r.Post(wire.SaveOrderOnlinePath, h.SaveOrder(customer.FlowOnline))

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.GetOrders)
		r.Get("/{orderID}", h.GetOrder)
	})
	r.Get("/reports/daily", h.DailyReport)

	return r
}
