package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/bakery-pos/internal/checkout"
	"github.com/example/bakery-pos/internal/domain/cart"
	"github.com/example/bakery-pos/internal/domain/customer"
	"github.com/example/bakery-pos/internal/wire"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func compose(t *testing.T, schema customer.Schema, fields map[string]string, method checkout.PaymentMethod) *checkout.Submission {
	t.Helper()
	c := cart.New()
	c.AddItem("1", "Bread", decimal.RequireFromString("2.50"))
	c.AddItem("1", "Bread", decimal.RequireFromString("2.50"))
	c.AddItem("2", "Cake", decimal.RequireFromString("5.00"))

	composer := checkout.NewComposer(schema,
		checkout.WithClock(func() time.Time { return fixedNow }),
		checkout.WithKeyGenerator(func() string { return "key-1" }),
	)
	sub, err := composer.Compose(c.Snapshot(), fields, method)
	require.NoError(t, err)
	return sub
}

func inPersonSubmission(t *testing.T) *checkout.Submission {
	return compose(t, customer.InPerson, map[string]string{
		customer.FieldCedula: "123456",
		customer.FieldName:   "Ana",
	}, checkout.Card)
}

func onlineSubmission(t *testing.T) *checkout.Submission {
	return compose(t, customer.Online, map[string]string{
		customer.FieldFirstName:    "Ana",
		customer.FieldLastName:     "Pérez",
		customer.FieldCedula:       "1023456789",
		customer.FieldPhone:        "+573001234567",
		customer.FieldAddress:      "Calle 10 # 5-20",
		customer.FieldCity:         "Medellín",
		customer.FieldNeighborhood: "Laureles",
	}, checkout.Transfer)
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ============================================
// Request shape
// ============================================

func TestBuildRequest_InPerson(t *testing.T) {
	req := BuildRequest(inPersonSubmission(t))

	assert.Equal(t, "Card", req.PaymentMethod)
	assert.Equal(t, "key-1", req.IdempotencyKey)
	assert.Equal(t, "in_person", req.Flow)
	assert.Equal(t, "2026-03-14T09:30:00Z", req.SubmittedAt)
	assert.Equal(t, map[string]string{"cedula": "123456", "name": "Ana"}, req.Customer)
	require.Len(t, req.Orders, 2)
	assert.Equal(t, wire.ProductID("1"), req.Orders[0].ID)
	assert.Equal(t, 2, req.Orders[0].Units())
	assert.Nil(t, req.Orders[0].Price)
	assert.Empty(t, req.Orders[0].Name)
}

func TestBuildRequest_Online(t *testing.T) {
	req := BuildRequest(onlineSubmission(t))

	require.Len(t, req.Orders, 2)
	assert.Equal(t, "Bread", req.Orders[0].Name)
	require.NotNil(t, req.Orders[0].Price)
	assert.Equal(t, "2.50", req.Orders[0].Price.String())
	assert.Equal(t, "Transfer", req.PaymentMethod)
	assert.Equal(t, "Laureles", req.Customer[customer.FieldNeighborhood])
}

func TestBuildRequest_NoCustomer(t *testing.T) {
	sub := compose(t, customer.InPerson, map[string]string{}, checkout.Cash)

	data, err := json.Marshal(BuildRequest(sub))

	require.NoError(t, err)
	assert.NotContains(t, string(data), `"customer"`)
}

// ============================================
// Submit
// ============================================

func TestClient_Submit_Success(t *testing.T) {
	var received wire.OrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		respond(w, http.StatusOK, `{"status":"success","message":"ok","order_id":"42","totals":{"total":10.00}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + wire.SaveOrderPath)
	result, err := client.Submit(context.Background(), inPersonSubmission(t))

	require.NoError(t, err)
	assert.Equal(t, "42", result.OrderID)
	assert.Equal(t, "10.00", result.ConfirmedTotal.StringFixed(2))
	assert.Equal(t, "key-1", received.IdempotencyKey)
}

func TestClient_Submit_MissingTotalsFallsBackToSubmissionTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{"status":"success"}`)
	}))
	defer srv.Close()

	result, err := NewClient(srv.URL).Submit(context.Background(), inPersonSubmission(t))

	require.NoError(t, err)
	assert.True(t, result.ConfirmedTotal.Equal(decimal.RequireFromString("10")))
	assert.Empty(t, result.OrderID)
}

func TestClient_Submit_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason Reason
		wantMsg    string
	}{
		{"business rejection", http.StatusOK, `{"status":"error","message":"Producto no encontrado"}`, ReasonRejected, "Producto no encontrado"},
		{"server error", http.StatusInternalServerError, `oops`, ReasonHTTPStatus, ""},
		{"bad request with message", http.StatusBadRequest, `{"status":"error","message":"invalid customer"}`, ReasonHTTPStatus, "invalid customer"},
		{"malformed body", http.StatusOK, `<html>`, ReasonMalformedResponse, ""},
		{"negative total", http.StatusOK, `{"status":"success","order_id":"1","totals":{"total":-1}}`, ReasonMalformedResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				respond(w, tt.status, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Submit(context.Background(), inPersonSubmission(t))

			var subErr *SubmissionError
			require.ErrorAs(t, err, &subErr)
			assert.Equal(t, tt.wantReason, subErr.Reason)
			assert.Equal(t, tt.wantMsg, subErr.Message)
		})
	}
}

func TestClient_Submit_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Submit(context.Background(), inPersonSubmission(t))

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, ReasonTransport, subErr.Reason)
}

func TestClient_Submit_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(w, http.StatusServiceUnavailable, `{}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Submit(context.Background(), inPersonSubmission(t))

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Submit_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := client.Submit(context.Background(), inPersonSubmission(t))

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, ReasonTransport, subErr.Reason)
}

func TestClient_Submit_BreakerOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		respond(w, http.StatusBadGateway, `{}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithBreakerSettings(gobreaker.Settings{
		Name:    "test",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	}))
	ctx := context.Background()

	_, err := client.Submit(ctx, inPersonSubmission(t))
	require.Error(t, err)

	_, err = client.Submit(ctx, inPersonSubmission(t))
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, ReasonUnavailable, subErr.Reason)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Submit_RejectionsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	var accept atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if accept.Load() {
			respond(w, http.StatusOK, `{"status":"success","order_id":"7","totals":{"total":10.00}}`)
			return
		}
		respond(w, http.StatusBadRequest, `{"status":"error","message":"unknown product: 9"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := client.Submit(ctx, inPersonSubmission(t))
		var subErr *SubmissionError
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, ReasonHTTPStatus, subErr.Reason)
		assert.Equal(t, "unknown product: 9", subErr.Message)
	}

	accept.Store(true)
	result, err := client.Submit(ctx, inPersonSubmission(t))

	require.NoError(t, err)
	assert.Equal(t, "7", result.OrderID)
	assert.Equal(t, int32(7), calls.Load())
}

func TestBackendHealthy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"success", nil, true},
		{"rejected", &SubmissionError{Reason: ReasonRejected, StatusCode: http.StatusOK}, true},
		{"bad request", &SubmissionError{Reason: ReasonHTTPStatus, StatusCode: http.StatusBadRequest}, true},
		{"server error", &SubmissionError{Reason: ReasonHTTPStatus, StatusCode: http.StatusInternalServerError}, false},
		{"transport", &SubmissionError{Reason: ReasonTransport, Err: errors.New("connection refused")}, false},
		{"malformed", &SubmissionError{Reason: ReasonMalformedResponse, StatusCode: http.StatusOK}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackendHealthy(tt.err))
		})
	}
}

func TestSubmissionError_Error(t *testing.T) {
	withMsg := &SubmissionError{Reason: ReasonRejected, Message: "sold out", Err: errors.New("x")}
	withoutMsg := &SubmissionError{Reason: ReasonTransport, Err: errors.New("connection refused")}

	assert.Equal(t, "submission failed (rejected): sold out", withMsg.Error())
	assert.Equal(t, "submission failed (transport): connection refused", withoutMsg.Error())
}
