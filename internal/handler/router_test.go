//go:build unit

package handler_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/user"
	"checkout-engine/internal/handler"
	"checkout-engine/internal/handler/api"
	"checkout-engine/internal/handler/middleware"
	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/testutil/authtest"
	"checkout-engine/internal/testutil/httptest"
	mockcommands "checkout-engine/internal/testutil/mock/commands"
	mockqueries "checkout-engine/internal/testutil/mock/queries"
	"checkout-engine/internal/usecase"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RouterTestSuite struct {
	suite.Suite
	router        *gin.Engine
	mockCtrl      *gomock.Controller
	mockReconcile *mockcommands.MockReconcileCommands
	mockRecon     *mockqueries.MockReconciliationQueries
	jwt           *authtest.JWTHelper
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	cfg := config.NewTestConfig()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockReconcile = mockcommands.NewMockReconcileCommands(s.mockCtrl)
	s.mockRecon = mockqueries.NewMockReconciliationQueries(s.mockCtrl)
	s.jwt = authtest.NewJWTHelper(cfg.JWT)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := handler.Handlers{
		Auth:    api.NewAuthHandler(),
		Cart:    api.NewCartHandler(mockcommands.NewMockCartCommands(s.mockCtrl), mockqueries.NewMockCartQueries(s.mockCtrl)),
		Payment: api.NewPaymentHandler(mockcommands.NewMockCheckoutCommands(s.mockCtrl), s.mockReconcile, mockqueries.NewMockPaymentQueries(s.mockCtrl)),
		Webhook: api.NewWebhookHandler(s.mockReconcile, logger),
		Order:   api.NewOrderHandler(mockqueries.NewMockOrderQueries(s.mockCtrl)),
		Admin:   api.NewAdminHandler(s.mockReconcile, s.mockRecon, logger),
	}
	authMiddleware := middleware.NewAuthMiddleware(usecase.NewTokenValidator(s.jwt.Service(s.T())))

	s.router = gin.New()
	handler.NewRouter(s.router, cfg, middleware.NewLogger(cfg.Log), handlers, authMiddleware)
}

func (s *RouterTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) token(role user.Role) string {
	return s.jwt.GenerateToken(s.T(), uuid.New(), role)
}

func (s *RouterTestSuite) TestHealth() {
	rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/health", nil, "")

	var body map[string]string
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Equal("ok", body["status"])
}

func (s *RouterTestSuite) TestRequestID() {
	s.Run("echoes the caller's request id", func() {
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodGet, "/health", nil, map[string]string{"X-Request-ID": "trace-42"})
		httptest.AssertHeaders(s.T(), rec, map[string]string{"X-Request-ID": "trace-42"})
	})

	s.Run("generates one otherwise", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/health", nil, "")
		s.NotEmpty(rec.Header().Get("X-Request-ID"))
	})
}

// ================================================================================
// TestAuthentication
// ================================================================================

func (s *RouterTestSuite) TestAuthentication() {
	s.Run("success: me reflects the token", func() {
		userID := uuid.New()
		token := s.jwt.GenerateToken(s.T(), userID, user.RoleOperator)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/auth/me", nil, token)

		var body api.MeResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(userID.String(), body.UserID)
		s.Equal("operator", body.Role)
		s.True(body.CanOperate)
	})

	s.Run("error: 401 without a token", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/auth/me", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Access token required")
	})

	s.Run("error: 401 with a token signed by someone else", func() {
		forged := authtest.NewJWTHelper(config.JWTConfig{Secret: "other-secret", Duration: "1h"}).
			GenerateToken(s.T(), uuid.New(), user.RoleAdmin)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/auth/me", nil, forged)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Invalid or expired token")
	})

	s.Run("error: 401 with an expired token", func() {
		expired := s.jwt.CreateExpiredToken(s.T(), uuid.New(), user.RoleBuyer)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/payment/create-order-from-cart", nil, expired)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Invalid or expired token")
	})

	s.Run("webhook needs no bearer token", func() {
		s.mockReconcile.EXPECT().HandleGatewayWebhook(gomock.Any(), gomock.Any(), "sig").
			Return(&commands.WebhookResult{Outcome: commands.WebhookIgnored}, nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, "/webhooks/gateway", []byte(`{"event":"refund.created"}`),
			map[string]string{"X-Razorpay-Signature": "sig"})
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})
}

// ================================================================================
// TestRoleEnforcement
// ================================================================================

func (s *RouterTestSuite) TestRoleEnforcement() {
	anomalies := "/admin/reconciliation/anomalies"
	materialize := "/admin/reconciliation/intents/" + uuid.NewString() + "/materialize"

	s.Run("buyers cannot reach reconciliation tooling", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, anomalies, nil, s.token(user.RoleBuyer))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "Insufficient permissions")
	})

	s.Run("operators can list anomalies", func() {
		s.mockRecon.EXPECT().ListAnomalies(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]*queries.AnomalyView{}, nil, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, anomalies, nil, s.token(user.RoleOperator))
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("operators cannot materialize", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, materialize, nil, s.token(user.RoleOperator))
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "Insufficient permissions")
	})

	s.Run("admins can materialize", func() {
		s.mockReconcile.EXPECT().RematerializeIntent(gomock.Any(), gomock.Any()).
			Return(&commands.ConfirmationResult{IntentID: uuid.New(), Status: payment.StatusConfirmed, AlreadyConfirmed: true}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, materialize, nil, s.token(user.RoleAdmin))
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})
}
