package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"

	"github.com/sony/gobreaker/v2"
)

const (
	ordersPath      = "/v1/orders"
	maxErrorBody    = 4 << 10
	breakerName     = "payment-gateway"
	defaultFailures = 5
)

// Client creates orders on a Razorpay-compatible gateway. Calls go through a
// circuit breaker so an unreachable gateway fails checkouts fast.
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*commands.GatewayOrder]
	logger    *slog.Logger
}

func NewClient(cfg config.GatewayConfig, logger *slog.Logger) *Client {
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = defaultFailures
	}

	breaker := gobreaker.NewCircuitBreaker[*commands.GatewayOrder](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures) // #nosec G115 -- small positive config value
		},
		// A rejected order means the gateway is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || !errs.Is(err, commands.ErrGatewayUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit breaker changed state",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		http:      &http.Client{Timeout: cfg.Timeout},
		breaker:   breaker,
		logger:    logger,
	}
}

type createOrderPayload struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderPayload struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorPayload struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateOrder(ctx context.Context, req commands.GatewayOrderRequest) (*commands.GatewayOrder, error) {
	order, err := c.breaker.Execute(func() (*commands.GatewayOrder, error) {
		return c.createOrder(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errs.Wrapf(commands.ErrGatewayUnavailable, "circuit %s", c.breaker.State())
	}
	return order, err
}

func (c *Client) createOrder(ctx context.Context, req commands.GatewayOrderRequest) (*commands.GatewayOrder, error) {
	endpoint, err := url.JoinPath(c.baseURL, ordersPath)
	if err != nil {
		return nil, errs.Wrap(err, "build gateway url")
	}
	body, err := json.Marshal(createOrderPayload{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, errs.Wrap(err, "encode gateway order")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errs.Wrapf(commands.ErrGatewayUnavailable, "create order: %v", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("gateway create order",
		"status", resp.StatusCode,
		"receipt", req.Receipt,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.Wrapf(commands.ErrGatewayUnavailable, "create order: status %d: %s", resp.StatusCode, describeError(resp.Body))
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, errs.Wrapf(commands.ErrGatewayRejected, "create order: status %d: %s", resp.StatusCode, describeError(resp.Body))
	}

	var payload orderPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errs.Wrapf(commands.ErrGatewayUnavailable, "decode gateway order: %v", err)
	}
	if payload.ID == "" {
		return nil, errs.Wrap(commands.ErrGatewayUnavailable, "gateway order without id")
	}

	return &commands.GatewayOrder{
		ID:       payload.ID,
		Amount:   payload.Amount,
		Currency: payload.Currency,
		Status:   payload.Status,
	}, nil
}

func describeError(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	var p errorPayload
	if err := json.Unmarshal(raw, &p); err == nil && p.Error.Description != "" {
		return fmt.Sprintf("%s: %s", p.Error.Code, p.Error.Description)
	}
	return strings.TrimSpace(string(raw))
}
