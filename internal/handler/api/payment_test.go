//go:build unit

package api_test

import (
	"net/http"
	"testing"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/user"
	"checkout-engine/internal/handler/api"
	reqdto "checkout-engine/internal/handler/dto/request"
	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/testutil/httptest"
	mockcommands "checkout-engine/internal/testutil/mock/commands"
	mockqueries "checkout-engine/internal/testutil/mock/queries"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PaymentHandlerTestSuite struct {
	suite.Suite
	router        *gin.Engine
	mockCtrl      *gomock.Controller
	mockCheckout  *mockcommands.MockCheckoutCommands
	mockReconcile *mockcommands.MockReconcileCommands
	mockPayments  *mockqueries.MockPaymentQueries
	mockOrders    *mockqueries.MockOrderQueries
	buyerID       uuid.UUID
}

func (s *PaymentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockCheckout = mockcommands.NewMockCheckoutCommands(s.mockCtrl)
	s.mockReconcile = mockcommands.NewMockReconcileCommands(s.mockCtrl)
	s.mockPayments = mockqueries.NewMockPaymentQueries(s.mockCtrl)
	s.mockOrders = mockqueries.NewMockOrderQueries(s.mockCtrl)
	s.buyerID = uuid.New()

	paymentHandler := api.NewPaymentHandler(s.mockCheckout, s.mockReconcile, s.mockPayments)
	orderHandler := api.NewOrderHandler(s.mockOrders)

	auth := fakeAuth(s.buyerID, user.RoleBuyer)
	s.router.POST("/payment/create-order-from-cart", auth, paymentHandler.CreateOrderFromCart)
	s.router.POST("/payment/verify", auth, paymentHandler.Verify)
	s.router.GET("/payment/intents/:id", auth, paymentHandler.GetIntent)
	s.router.GET("/api/orders/:id", auth, orderHandler.Get)
}

func (s *PaymentHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestPaymentHandlerSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlerTestSuite))
}

func (s *PaymentHandlerTestSuite) checkoutResult(replayed bool) *commands.CheckoutResult {
	r := &commands.CheckoutResult{
		IntentID:       uuid.New(),
		GatewayOrderID: "order_Nx81",
		GatewayKeyID:   "rzp_test_key",
		Amount:         1800,
		Currency:       "INR",
		Status:         payment.StatusAwaitingConfirmation,
		ExpiresAt:      time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		Replayed:       replayed,
	}
	r.Pricing.Subtotal = 2000
	r.Pricing.Discount = 200
	r.Pricing.Total = 1800
	return r
}

// ================================================================================
// TestCreateOrderFromCart
// ================================================================================

func (s *PaymentHandlerTestSuite) TestCreateOrderFromCart() {
	url := "/payment/create-order-from-cart"

	s.Run("success: 201 Created for a new intent", func() {
		result := s.checkoutResult(false)
		s.mockCheckout.EXPECT().CreateOrderFromCart(gomock.Any(), s.buyerID).Return(result, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		var body resdto.CheckoutResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(result.IntentID, body.IntentID)
		s.Equal("order_Nx81", body.GatewayOrderID)
		s.Equal("rzp_test_key", body.KeyID)
		s.Equal(int64(1800), body.Amount)
		s.Equal(int64(200), body.Discount)
		s.False(body.Replayed)
	})

	s.Run("success: 200 OK when the live intent is replayed", func() {
		s.mockCheckout.EXPECT().CreateOrderFromCart(gomock.Any(), s.buyerID).Return(s.checkoutResult(true), nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		var body resdto.CheckoutResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.True(body.Replayed)
	})

	s.Run("error: maps usecase errors to proper statuses", func() {
		testCases := []struct {
			name           string
			commandsError  error
			expectedStatus int
			expectedCode   string
			retryable      bool
		}{
			{name: "no cart", commandsError: cart.ErrCartNotFound, expectedStatus: http.StatusNotFound, expectedCode: "CART_NOT_FOUND"},
			{name: "empty cart", commandsError: cart.ErrCartEmpty, expectedStatus: http.StatusBadRequest, expectedCode: "CART_EMPTY"},
			{name: "already paid", commandsError: commands.ErrCartAlreadyPaid, expectedStatus: http.StatusConflict, expectedCode: "CART_ALREADY_PAID"},
			{name: "concurrent checkout", commandsError: commands.ErrCheckoutInProgress, expectedStatus: http.StatusConflict, expectedCode: "CHECKOUT_IN_PROGRESS"},
			{name: "gateway rejected", commandsError: commands.ErrGatewayRejected, expectedStatus: http.StatusUnprocessableEntity, expectedCode: "GATEWAY_REJECTED"},
			{
				name:           "gateway unavailable",
				commandsError:  errs.Wrap(commands.ErrGatewayUnavailable, "create order"),
				expectedStatus: http.StatusServiceUnavailable,
				expectedCode:   "GATEWAY_UNAVAILABLE",
				retryable:      true,
			},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockCheckout.EXPECT().CreateOrderFromCart(gomock.Any(), s.buyerID).Return(nil, tc.commandsError).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
				body := httptest.AssertErrorResponse(s.T(), rec, tc.expectedStatus, "")
				s.Equal(tc.expectedCode, body.Error.Code)
				s.Equal(tc.retryable, body.Error.Retryable)
			})
		}
	})

	s.Run("error: 401 Unauthorized when unauthenticated", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Unauthorized")
	})
}

// ================================================================================
// TestVerify
// ================================================================================

func (s *PaymentHandlerTestSuite) TestVerify() {
	url := "/payment/verify"
	reqBody := reqdto.VerifyPaymentRequest{
		GatewayOrderID:   "order_Nx81",
		GatewayPaymentID: "pay_Q2",
		Signature:        "5f1c",
	}
	intentID := uuid.New()
	orderID := uuid.New()

	s.Run("success: confirms the intent and returns the order", func() {
		s.mockReconcile.EXPECT().VerifyClientPayment(gomock.Any(), s.buyerID, reqBody.ToCommand()).
			Return(&commands.ConfirmationResult{IntentID: intentID, OrderID: &orderID, Status: payment.StatusConfirmed}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body resdto.VerifyResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.True(body.Success)
		s.Equal(intentID, body.IntentID)
		s.Require().NotNil(body.OrderID)
		s.Equal(orderID, *body.OrderID)
		s.False(body.AlreadyConfirmed)
	})

	s.Run("success: reports a payment the webhook already confirmed", func() {
		s.mockReconcile.EXPECT().VerifyClientPayment(gomock.Any(), s.buyerID, gomock.Any()).
			Return(&commands.ConfirmationResult{IntentID: intentID, OrderID: &orderID, Status: payment.StatusConfirmed, AlreadyConfirmed: true}, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body resdto.VerifyResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.True(body.AlreadyConfirmed)
	})

	s.Run("error: 400 when callback fields are missing", func() {
		for _, field := range []string{"gatewayOrderId", "gatewayPaymentId", "signature"} {
			s.Run(field, func() {
				requestMap := httptest.DtoMap(s.T(), reqBody, httptest.Field(field, nil))
				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "bearer-token")
				httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request format")
			})
		}
	})

	s.Run("error: maps usecase errors to proper statuses", func() {
		testCases := []struct {
			name           string
			commandsError  error
			expectedStatus int
			expectedCode   string
			retryable      bool
		}{
			{name: "bad signature", commandsError: payment.ErrInvalidSignature, expectedStatus: http.StatusUnauthorized, expectedCode: "INVALID_SIGNATURE"},
			{name: "unknown gateway order", commandsError: payment.ErrIntentNotFound, expectedStatus: http.StatusNotFound, expectedCode: "INTENT_NOT_FOUND"},
			{name: "another buyer's intent", commandsError: payment.ErrIntentNotOwned, expectedStatus: http.StatusForbidden, expectedCode: "INTENT_NOT_OWNED"},
			{name: "expired intent", commandsError: payment.ErrIntentExpired, expectedStatus: http.StatusConflict, expectedCode: "INTENT_EXPIRED"},
			{name: "contended confirmation", commandsError: commands.ErrConfirmationContended, expectedStatus: http.StatusServiceUnavailable, expectedCode: "CONFIRMATION_CONTENDED", retryable: true},
			{name: "order materialization failed", commandsError: commands.ErrMaterializationFailed, expectedStatus: http.StatusInternalServerError, expectedCode: "INCONSISTENT_STATE"},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockReconcile.EXPECT().VerifyClientPayment(gomock.Any(), s.buyerID, gomock.Any()).Return(nil, tc.commandsError).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
				body := httptest.AssertErrorResponse(s.T(), rec, tc.expectedStatus, "")
				s.Equal(tc.expectedCode, body.Error.Code)
				s.Equal(tc.retryable, body.Error.Retryable)
			})
		}
	})
}

// ================================================================================
// TestGetIntent / TestGetOrder
// ================================================================================

func (s *PaymentHandlerTestSuite) TestGetIntent() {
	intentID := uuid.New()

	s.Run("success: returns the intent", func() {
		view := &queries.IntentView{
			ID:             intentID,
			UserID:         s.buyerID,
			Amount:         1800,
			Currency:       "INR",
			Status:         "AWAITING_CONFIRMATION",
			GatewayOrderID: ptr("order_Nx81"),
		}
		s.mockPayments.EXPECT().GetIntent(gomock.Any(), intentID, s.buyerID, user.RoleBuyer).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/payment/intents/"+intentID.String(), nil, "bearer-token")

		var body resdto.IntentResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(intentID, body.ID)
		s.Equal("AWAITING_CONFIRMATION", body.Status)
		s.Require().NotNil(body.GatewayOrderID)
		s.Equal("order_Nx81", *body.GatewayOrderID)
	})

	s.Run("error: 403 for another buyer's intent", func() {
		s.mockPayments.EXPECT().GetIntent(gomock.Any(), intentID, s.buyerID, user.RoleBuyer).Return(nil, payment.ErrIntentNotOwned).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/payment/intents/"+intentID.String(), nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusForbidden, "INTENT_NOT_OWNED")
	})

	s.Run("error: 400 on a malformed id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/payment/intents/123", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid id")
	})
}

func (s *PaymentHandlerTestSuite) TestGetOrder() {
	orderID := uuid.New()

	s.Run("success: returns the order", func() {
		view := &queries.OrderView{
			ID:       orderID,
			BuyerID:  s.buyerID,
			Status:   "PAID",
			Currency: "INR",
			Subtotal: 2000,
			Discount: 200,
			Total:    1800,
			Lines: []queries.OrderLineView{
				{ProductID: uuid.New(), Name: "Mechanical keyboard", Quantity: 2, UnitPrice: 1000, LineTotal: 2000, Discount: 200},
			},
		}
		s.mockOrders.EXPECT().GetOrder(gomock.Any(), orderID, s.buyerID, user.RoleBuyer).Return(view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/orders/"+orderID.String(), nil, "bearer-token")

		var body resdto.OrderResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(orderID, body.ID)
		s.Equal(int64(1800), body.Total)
		s.Require().Len(body.Lines, 1)
		s.Equal(int64(200), body.Lines[0].Discount)
	})

	s.Run("error: 403 for another buyer's order", func() {
		s.mockOrders.EXPECT().GetOrder(gomock.Any(), orderID, s.buyerID, user.RoleBuyer).Return(nil, order.ErrOrderNotOwned).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/orders/"+orderID.String(), nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusForbidden, "ORDER_NOT_OWNED")
	})

	s.Run("error: 404 for an unknown order", func() {
		s.mockOrders.EXPECT().GetOrder(gomock.Any(), orderID, s.buyerID, user.RoleBuyer).Return(nil, order.ErrOrderNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/orders/"+orderID.String(), nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusNotFound, "ORDER_NOT_FOUND")
	})
}
