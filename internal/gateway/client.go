// Package gateway sends checkout submissions to the order acceptance
// endpoint. Each submission is attempted exactly once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/money"
	"github.com/example/bakery-pos/internal/wire"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// Result is the backend's confirmation of an accepted order.
type Result struct {
	OrderID        string
	ConfirmedTotal decimal.Decimal
}

// Client posts submissions as JSON. A circuit breaker short-circuits
// submissions while the endpoint keeps failing; it never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[wire.OrderResponse]
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithBreakerSettings replaces the default breaker configuration. A nil
// IsSuccessful defaults to BackendHealthy.
func WithBreakerSettings(st gobreaker.Settings) Option {
	return func(cl *Client) {
		if st.IsSuccessful == nil {
			st.IsSuccessful = BackendHealthy
		}
		cl.breaker = gobreaker.NewCircuitBreaker[wire.OrderResponse](st)
	}
}

// NewClient creates a client posting to endpoint, a full URL such as
// http://localhost:8080/save_order/.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("gateway")
	if c.breaker == nil {
		c.breaker = gobreaker.NewCircuitBreaker[wire.OrderResponse](c.defaultSettings())
	}
	return c
}

func (c *Client) defaultSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "order-endpoint",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: BackendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// BackendHealthy reports whether err leaves the endpoint looking healthy to
// the breaker. Rejections the user can correct (status "error" or a 4xx) do;
// transport failures, 5xx answers and unreadable responses do not.
func BackendHealthy(err error) bool {
	if err == nil {
		return true
	}
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		return false
	}
	switch subErr.Reason {
	case ReasonRejected:
		return true
	case ReasonHTTPStatus:
		return subErr.StatusCode >= 400 && subErr.StatusCode < 500
	default:
		return false
	}
}

// Submit sends the submission once. Any failure is a *SubmissionError.
func (c *Client) Submit(ctx context.Context, sub *checkout.Submission) (Result, error) {
	body, err := json.Marshal(BuildRequest(sub))
	if err != nil {
		return Result{}, &SubmissionError{Reason: ReasonEncoding, Err: err}
	}

	resp, err := c.breaker.Execute(func() (wire.OrderResponse, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		var subErr *SubmissionError
		if !errors.As(err, &subErr) {
			subErr = &SubmissionError{Reason: ReasonUnavailable, Err: err}
		}
		c.logger.Error("order submission failed",
			zap.String("idempotency_key", sub.IdempotencyKey()),
			zap.String("reason", string(subErr.Reason)),
			zap.Error(err),
		)
		return Result{}, subErr
	}

	result := Result{OrderID: resp.OrderID, ConfirmedTotal: sub.Total()}
	if resp.Totals != nil && resp.Totals.Total != "" {
		total, err := money.Parse(resp.Totals.Total)
		if err != nil {
			return Result{}, &SubmissionError{Reason: ReasonMalformedResponse, Err: err}
		}
		result.ConfirmedTotal = total
	}

	c.logger.Info("order submitted",
		zap.String("order_id", result.OrderID),
		zap.String("total", result.ConfirmedTotal.StringFixed(money.Places)),
	)
	return result, nil
}

func (c *Client) post(ctx context.Context, body []byte) (wire.OrderResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return wire.OrderResponse{}, &SubmissionError{Reason: ReasonTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return wire.OrderResponse{}, &SubmissionError{Reason: ReasonTransport, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return wire.OrderResponse{}, &SubmissionError{Reason: ReasonTransport, Err: err}
	}

	var resp wire.OrderResponse
	decodeErr := json.Unmarshal(data, &resp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		subErr := &SubmissionError{
			Reason:     ReasonHTTPStatus,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", httpResp.StatusCode),
		}
		if decodeErr == nil {
			subErr.Message = resp.Message
		}
		return wire.OrderResponse{}, subErr
	}
	if decodeErr != nil {
		return wire.OrderResponse{}, &SubmissionError{Reason: ReasonMalformedResponse, StatusCode: httpResp.StatusCode, Err: decodeErr}
	}
	if !resp.OK() {
		return wire.OrderResponse{}, &SubmissionError{
			Reason:     ReasonRejected,
			StatusCode: httpResp.StatusCode,
			Message:    resp.Message,
			Err:        fmt.Errorf("order rejected with status %q", resp.Status),
		}
	}
	return resp, nil
}

// BuildRequest converts a submission into its wire shape. Online lines carry
// the name and price the shopper saw; in-person lines carry only id and
// quantity. The backend reprices every line either way.
func BuildRequest(sub *checkout.Submission) wire.OrderRequest {
	items := sub.LineItems()
	lines := make([]wire.OrderLine, len(items))
	for i, item := range items {
		qty := item.Quantity
		line := wire.OrderLine{ID: wire.ProductID(item.ProductID), Quantity: &qty}
		if sub.Flow() == customer.FlowOnline {
			price := money.Number(item.UnitPrice)
			line.Name = item.Name
			line.Price = &price
		}
		lines[i] = line
	}

	req := wire.OrderRequest{
		Orders:         lines,
		PaymentMethod:  string(sub.PaymentMethod()),
		IdempotencyKey: sub.IdempotencyKey(),
		Flow:           string(sub.Flow()),
		SubmittedAt:    sub.SubmittedAt().UTC().Format(time.RFC3339),
	}
	if cust := sub.Customer(); cust != nil {
		req.Customer = cust.Fields
	}
	return req
}
