//go:build unit

package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"checkout-engine/internal/infra/gateway"
	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*config.GatewayConfig)) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.GatewayConfig{
		BaseURL:            srv.URL,
		KeyID:              "rzp_test_key",
		KeySecret:          "secret",
		Timeout:            time.Second,
		BreakerFailures:    2,
		BreakerOpenTimeout: time.Minute,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return gateway.NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var orderRequest = commands.GatewayOrderRequest{
	Amount:   90000,
	Currency: "INR",
	Receipt:  "intent-1",
	Notes:    map[string]string{"intent_id": "intent-1"},
}

func TestCreateOrder_Success(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 90000, body["amount"])
		assert.Equal(t, "intent-1", body["receipt"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"order_abc","entity":"order","amount":90000,"currency":"INR","receipt":"intent-1","status":"created"}`)
	})

	order, err := client.CreateOrder(context.Background(), orderRequest)

	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(90000), order.Amount)
	assert.Equal(t, "created", order.Status)
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "bad request is a rejection",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`,
			wantErr: commands.ErrGatewayRejected,
		},
		{
			name:    "server error is unavailable",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantErr: commands.ErrGatewayUnavailable,
		},
		{
			name:    "rate limit is unavailable",
			status:  http.StatusTooManyRequests,
			wantErr: commands.ErrGatewayUnavailable,
		},
		{
			name:    "order without id",
			status:  http.StatusOK,
			body:    `{"status":"created"}`,
			wantErr: commands.ErrGatewayUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.CreateOrder(context.Background(), orderRequest)

			require.Error(t, err)
			assert.True(t, errs.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCreateOrder_Timeout(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, func(c *config.GatewayConfig) { c.Timeout = 50 * time.Millisecond })

	_, err := client.CreateOrder(context.Background(), orderRequest)

	require.Error(t, err)
	assert.True(t, errs.IsRetryable(err))
}

func TestCreateOrder_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for range 2 {
		_, err := client.CreateOrder(context.Background(), orderRequest)
		require.True(t, errs.Is(err, commands.ErrGatewayUnavailable))
	}
	_, err := client.CreateOrder(context.Background(), orderRequest)

	assert.True(t, errs.Is(err, commands.ErrGatewayUnavailable))
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the gateway")
}

func TestCreateOrder_RejectionsKeepBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	for range 4 {
		_, err := client.CreateOrder(context.Background(), orderRequest)
		require.True(t, errs.Is(err, commands.ErrGatewayRejected))
	}

	assert.Equal(t, int32(4), calls.Load())
}
