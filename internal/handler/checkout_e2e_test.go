//go:build integration

package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	nethttptest "net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"checkout-engine/cmd/bootstrap"
	"checkout-engine/cmd/bootstrap/components"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/user"
	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/handler/middleware"
	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/testutil/authtest"
	"checkout-engine/internal/testutil/dbtest"
	"checkout-engine/internal/testutil/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/fx"
)

// ------------------------------------------------------------
// 決済ゲートウェイのスタブ（POST /v1/orders のみ）
// ------------------------------------------------------------
func newGatewayStub(t *testing.T) *nethttptest.Server {
	t.Helper()
	var seq atomic.Int64

	srv := nethttptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       fmt.Sprintf("order_e2e_%d", seq.Add(1)),
			"entity":   "order",
			"amount":   req.Amount,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ------------------------------------------------------------
// アプリケーション全体をfxで組み立てる
// ------------------------------------------------------------
func buildApp(t *testing.T, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	t.Helper()
	var router *gin.Engine

	app := fx.New(
		fx.Provide(
			func() *pgxpool.Pool { return pool },
			func() config.Config { return cfg },
			func() *middleware.Logger { return middleware.NewLogger(cfg.Log) },
			func(logger *middleware.Logger) *slog.Logger { return logger.GetSlogLogger() },
			func() *gin.Engine { return gin.New() },
		),
		bootstrap.JWTModule,
		bootstrap.InfraModule,
		components.PersistenceModule,
		components.UseCaseModule,
		components.HandlerModule,
		fx.Populate(&router),
		fx.NopLogger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx), "fxアプリケーションの起動に失敗")

	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := app.Stop(stopCtx); err != nil {
			slog.Warn("fxアプリケーションの停止に失敗しました", "error", err.Error())
		}
	})
	return router
}

type CheckoutE2ESuite struct {
	suite.Suite
	router *gin.Engine
	db     *pgxpool.Pool
	cfg    config.Config
	jwt    *authtest.JWTHelper
}

func TestCheckoutE2ESuite(t *testing.T) {
	suite.Run(t, new(CheckoutE2ESuite))
}

func (s *CheckoutE2ESuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	pool, dbCfg := dbtest.NewDatabase(s.T())

	cfg := config.NewTestConfig()
	cfg.DB = dbCfg
	cfg.Gateway.BaseURL = newGatewayStub(s.T()).URL

	s.db = pool
	s.cfg = cfg
	s.jwt = authtest.NewJWTHelper(cfg.JWT)
	s.router = buildApp(s.T(), pool, cfg)
}

func (s *CheckoutE2ESuite) checkout(token string) resdto.CheckoutResponse {
	productID := dbtest.CreateTestProduct(s.T(), s.db, "Mechanical keyboard", 1000, "INR")

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/api/cart/items",
		map[string]any{"productId": productID.String(), "quantity": 2}, token)
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)

	var created resdto.CheckoutResponse
	rec = httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/payment/create-order-from-cart", nil, token)
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &created)
	return created
}

func (s *CheckoutE2ESuite) webhookBody(gatewayOrderID, gatewayPaymentID string) []byte {
	return fmt.Appendf(nil,
		`{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":2000,"status":"captured"}}}}`,
		gatewayPaymentID, gatewayOrderID)
}

func (s *CheckoutE2ESuite) countOrders(intentID uuid.UUID) int {
	var n int
	err := s.db.QueryRow(context.Background(),
		"SELECT count(*) FROM orders WHERE payment_intent_id = $1", intentID).Scan(&n)
	s.Require().NoError(err)
	return n
}

func (s *CheckoutE2ESuite) TestClientVerifyThenWebhook() {
	buyerID := uuid.New()
	token := s.jwt.GenerateToken(s.T(), buyerID, user.RoleBuyer)

	created := s.checkout(token)
	s.Equal(int64(2000), created.Amount)
	s.Equal("INR", created.Currency)
	s.NotEmpty(created.GatewayOrderID)

	s.Run("repeat checkout replays the live intent", func() {
		var replayed resdto.CheckoutResponse
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/payment/create-order-from-cart", nil, token)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &replayed)
		s.True(replayed.Replayed)
		s.Equal(created.IntentID, replayed.IntentID)
	})

	s.Run("cart is frozen while payment is pending", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/api/cart/coupon", nil, token)
		httptest.AssertErrorCode(s.T(), rec, http.StatusConflict, "CART_FROZEN")
	})

	paymentID := "pay_e2e_client"
	signature := payment.NewClientSignatureVerifier(s.cfg.Gateway.KeySecret).Sign(created.GatewayOrderID, paymentID)

	var verified resdto.VerifyResponse
	s.Run("client verify confirms and creates the order", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/payment/verify", map[string]string{
			"gatewayOrderId":   created.GatewayOrderID,
			"gatewayPaymentId": paymentID,
			"signature":        signature,
		}, token)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &verified)
		s.True(verified.Success)
		s.False(verified.AlreadyConfirmed)
		s.Require().NotNil(verified.OrderID)
	})

	s.Run("late webhook is acknowledged as a duplicate", func() {
		body := s.webhookBody(created.GatewayOrderID, paymentID)
		sig := payment.NewWebhookSignatureVerifier(s.cfg.Gateway.WebhookSecret).Sign(body)

		var ack resdto.WebhookResponse
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, "/webhooks/gateway", body,
			map[string]string{"X-Razorpay-Signature": sig})
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &ack)
		s.Equal("duplicate", ack.Outcome)
		s.Equal(1, s.countOrders(created.IntentID))
	})

	s.Run("the order is visible to its buyer only", func() {
		s.Require().NotNil(verified.OrderID)
		path := "/api/orders/" + verified.OrderID.String()

		var got resdto.OrderResponse
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, path, nil, token)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &got)
		s.Equal(int64(2000), got.Total)
		s.Equal(created.IntentID, got.PaymentIntentID)

		stranger := s.jwt.GenerateToken(s.T(), uuid.New(), user.RoleBuyer)
		rec = httptest.PerformRequest(s.T(), s.router, http.MethodGet, path, nil, stranger)
		httptest.AssertErrorCode(s.T(), rec, http.StatusForbidden, "ORDER_NOT_OWNED")
	})

	s.Run("operators see no anomalies", func() {
		operator := s.jwt.GenerateToken(s.T(), uuid.New(), user.RoleOperator)

		var page resdto.AnomalyListResponse
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/admin/reconciliation/anomalies", nil, operator)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &page)
		s.Empty(page.Items)
	})
}

func (s *CheckoutE2ESuite) TestWebhookFirst() {
	token := s.jwt.GenerateToken(s.T(), uuid.New(), user.RoleBuyer)
	created := s.checkout(token)

	paymentID := "pay_e2e_hook"
	body := s.webhookBody(created.GatewayOrderID, paymentID)
	sig := payment.NewWebhookSignatureVerifier(s.cfg.Gateway.WebhookSecret).Sign(body)
	headers := map[string]string{"X-Razorpay-Signature": sig}

	s.Run("forged signature is refused", func() {
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, "/webhooks/gateway", body,
			map[string]string{"X-Razorpay-Signature": strings.Repeat("0", len(sig))})
		httptest.AssertErrorCode(s.T(), rec, http.StatusUnauthorized, "INVALID_WEBHOOK_SIGNATURE")
		s.Equal(0, s.countOrders(created.IntentID))
	})

	s.Run("webhook confirms and redelivery is a duplicate", func() {
		var first, second resdto.WebhookResponse
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, "/webhooks/gateway", body, headers)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &first)
		s.Equal("confirmed", first.Outcome)

		rec = httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, "/webhooks/gateway", body, headers)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &second)
		s.Equal("duplicate", second.Outcome)
		s.Equal(first.OrderID, second.OrderID)
		s.Equal(1, s.countOrders(created.IntentID))
	})

	s.Run("client verify afterwards reports alreadyConfirmed", func() {
		signature := payment.NewClientSignatureVerifier(s.cfg.Gateway.KeySecret).Sign(created.GatewayOrderID, paymentID)

		var verified resdto.VerifyResponse
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/payment/verify", map[string]string{
			"gatewayOrderId":   created.GatewayOrderID,
			"gatewayPaymentId": paymentID,
			"signature":        signature,
		}, token)
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &verified)
		s.True(verified.AlreadyConfirmed)
		s.Equal(1, s.countOrders(created.IntentID))
	})

	s.Run("webhook for an unknown gateway order is acknowledged", func() {
		unknown := s.webhookBody("order_missing", "pay_x")
		unknownSig := payment.NewWebhookSignatureVerifier(s.cfg.Gateway.WebhookSecret).Sign(unknown)

		var ack resdto.WebhookResponse
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, "/webhooks/gateway", unknown,
			map[string]string{"X-Razorpay-Signature": unknownSig})
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &ack)
		s.Equal("rejected", ack.Outcome)
		s.Equal("INTENT_NOT_FOUND", ack.Code)
	})
}
