//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/user"
	"checkout-engine/internal/handler/api"
	reqdto "checkout-engine/internal/handler/dto/request"
	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/testutil/httptest"
	mockcommands "checkout-engine/internal/testutil/mock/commands"
	mockqueries "checkout-engine/internal/testutil/mock/queries"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"
	"checkout-engine/internal/usecase/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CartHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *mockcommands.MockCartCommands
	mockQueries  *mockqueries.MockCartQueries
	buyerID      uuid.UUID
	view         *queries.CartView
}

func (s *CartHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = mockcommands.NewMockCartCommands(s.mockCtrl)
	s.mockQueries = mockqueries.NewMockCartQueries(s.mockCtrl)
	s.buyerID = uuid.New()

	productID := uuid.New()
	s.view = &queries.CartView{
		ID:       uuid.New(),
		Status:   "OPEN",
		Currency: "INR",
		Lines: []queries.PricedLineView{
			{ProductID: productID, Name: "Mechanical keyboard", Quantity: 2, UnitPrice: 1000, LineTotal: 2000},
		},
		Subtotal:  2000,
		Total:     2000,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	h := api.NewCartHandler(s.mockCommands, s.mockQueries)
	g := s.router.Group("/api/cart", fakeAuth(s.buyerID, user.RoleBuyer))
	g.GET("", h.Get)
	g.POST("/items", h.AddItem)
	g.DELETE("/items/:productId", h.RemoveItem)
	g.PUT("/coupon", h.ApplyCoupon)
	g.DELETE("/coupon", h.ClearCoupon)
}

func (s *CartHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestCartHandlerSuite(t *testing.T) {
	suite.Run(t, new(CartHandlerTestSuite))
}

type testCaseCart struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

// ================================================================================
// TestGet
// ================================================================================

func (s *CartHandlerTestSuite) TestGet() {
	s.Run("success: returns the priced cart", func() {
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/cart", nil, "bearer-token")

		var body resdto.CartResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(s.view.ID, body.ID)
		s.Equal(int64(2000), body.Total)
		s.Require().Len(body.Lines, 1)
		s.Equal(int64(1000), body.Lines[0].UnitPrice)
	})

	s.Run("error: 404 when the buyer has no active cart", func() {
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(nil, cart.ErrCartNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/cart", nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusNotFound, "CART_NOT_FOUND")
	})

	s.Run("error: 401 Unauthorized when unauthenticated", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/api/cart", nil, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Unauthorized")
	})
}

// ================================================================================
// TestAddItem
// ================================================================================

func (s *CartHandlerTestSuite) TestAddItem() {
	url := "/api/cart/items"
	productID := uuid.New()
	reqBody := reqdto.AddCartItemRequest{ProductID: productID.String(), Quantity: 2}

	bound := []testCaseCart{
		{name: "quantity boundary OK (1)", mutate: httptest.Field("quantity", 1), expectCode: http.StatusOK},
		{name: "quantity boundary OK (99)", mutate: httptest.Field("quantity", 99), expectCode: http.StatusOK},
		{name: "quantity boundary invalid (0)", mutate: httptest.Field("quantity", 0), expectCode: http.StatusBadRequest},
		{name: "quantity boundary invalid (100)", mutate: httptest.Field("quantity", 100), expectCode: http.StatusBadRequest},
	}

	malformed := []testCaseCart{
		{name: "missing field: productId (required)", mutate: httptest.Field("productId", nil), expectCode: http.StatusBadRequest},
		{name: "productId is not a uuid", mutate: httptest.Field("productId", "keyboard"), expectCode: http.StatusBadRequest},
		{name: "variantId is not a uuid", mutate: httptest.Field("variantId", "blue"), expectCode: http.StatusBadRequest},
	}

	s.Run("success: adds the line and returns the cart", func() {
		expected := commands.AddItemRequest{ProductID: productID, Quantity: 2}
		gomock.InOrder(
			s.mockCommands.EXPECT().AddItem(gomock.Any(), s.buyerID, expected).Return(nil).Times(1),
			s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1),
		)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body resdto.CartResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal(s.view.ID, body.ID)
	})

	s.Run("success: forwards the variant", func() {
		variantID := uuid.New()
		expected := commands.AddItemRequest{ProductID: productID, VariantID: &variantID, Quantity: 2}
		s.mockCommands.EXPECT().AddItem(gomock.Any(), s.buyerID, expected).Return(nil).Times(1)
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1)

		requestMap := httptest.DtoMap(s.T(), reqBody, httptest.Field("variantId", variantID.String()))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "bearer-token")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("error: 400 Bad Request on validation errors", func() {
		for _, group := range [][]testCaseCart{bound, malformed} {
			for _, tc := range group {
				s.Run(tc.name, func() {
					requestMap := httptest.DtoMap(s.T(), reqBody, tc.mutate)

					if tc.expectCode == http.StatusOK {
						s.mockCommands.EXPECT().AddItem(gomock.Any(), s.buyerID, gomock.Any()).Return(nil).Times(1)
						s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1)
					}
					rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "bearer-token")
					if tc.expectCode == http.StatusOK {
						httptest.AssertSuccessResponse(s.T(), rec, tc.expectCode, nil)
					} else {
						httptest.AssertErrorResponse(s.T(), rec, tc.expectCode, "Invalid request format")
					}
				})
			}
		}
	})

	s.Run("error: maps usecase errors to proper statuses", func() {
		testCases := []struct {
			name           string
			commandsError  error
			expectedStatus int
			expectedCode   string
		}{
			{name: "frozen cart", commandsError: cart.ErrCartFrozen, expectedStatus: http.StatusConflict, expectedCode: "CART_FROZEN"},
			{name: "unknown product", commandsError: shared.ErrProductNotFound, expectedStatus: http.StatusNotFound, expectedCode: "PRODUCT_NOT_FOUND"},
			{name: "inactive product", commandsError: shared.ErrProductUnavailable, expectedStatus: http.StatusUnprocessableEntity, expectedCode: "PRODUCT_UNAVAILABLE"},
			{name: "currency mismatch", commandsError: commands.ErrCurrencyMismatch, expectedStatus: http.StatusUnprocessableEntity, expectedCode: "CURRENCY_MISMATCH"},
		}

		for _, tc := range testCases {
			s.Run(tc.name, func() {
				s.mockCommands.EXPECT().AddItem(gomock.Any(), s.buyerID, gomock.Any()).Return(tc.commandsError).Times(1)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
				httptest.AssertErrorCode(s.T(), rec, tc.expectedStatus, tc.expectedCode)
			})
		}
	})

	s.Run("error: 500 hides unexpected errors", func() {
		s.mockCommands.EXPECT().AddItem(gomock.Any(), s.buyerID, gomock.Any()).Return(errors.New("connection reset")).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		body := httptest.AssertErrorResponse(s.T(), rec, http.StatusInternalServerError, "Internal server error")
		s.NotContains(body.Error.Message, "connection reset")
	})
}

// ================================================================================
// TestRemoveItem
// ================================================================================

func (s *CartHandlerTestSuite) TestRemoveItem() {
	productID := uuid.New()

	s.Run("success: removes the plain product line", func() {
		s.mockCommands.EXPECT().RemoveItem(gomock.Any(), s.buyerID, productID, (*uuid.UUID)(nil)).Return(nil).Times(1)
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/api/cart/items/"+productID.String(), nil, "bearer-token")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("success: removes the variant line", func() {
		variantID := uuid.New()
		s.mockCommands.EXPECT().RemoveItem(gomock.Any(), s.buyerID, productID, &variantID).Return(nil).Times(1)
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1)

		path := "/api/cart/items/" + productID.String() + "?variantId=" + variantID.String()
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, path, nil, "bearer-token")
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, nil)
	})

	s.Run("error: 400 on malformed ids", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/api/cart/items/not-a-uuid", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid id")

		rec = httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/api/cart/items/"+productID.String()+"?variantId=x", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid variantId")
	})

	s.Run("error: 404 when the line is absent", func() {
		s.mockCommands.EXPECT().RemoveItem(gomock.Any(), s.buyerID, productID, gomock.Nil()).Return(cart.ErrLineNotFound).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/api/cart/items/"+productID.String(), nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusNotFound, "CART_LINE_NOT_FOUND")
	})
}

// ================================================================================
// TestCoupon
// ================================================================================

func (s *CartHandlerTestSuite) TestCoupon() {
	url := "/api/cart/coupon"

	s.Run("success: applies a trimmed code", func() {
		withCoupon := *s.view
		withCoupon.CouponCode = ptr("PERCENT10")
		withCoupon.Discount = 200
		withCoupon.Total = 1800
		s.mockCommands.EXPECT().ApplyCoupon(gomock.Any(), s.buyerID, "PERCENT10").Return(nil).Times(1)
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(&withCoupon, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPut, url, reqdto.ApplyCouponRequest{Code: "  PERCENT10 "}, "bearer-token")

		var body resdto.CartResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Require().NotNil(body.CouponCode)
		s.Equal("PERCENT10", *body.CouponCode)
		s.Equal(int64(1800), body.Total)
	})

	s.Run("error: 400 when the code is missing", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPut, url, map[string]any{}, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid request format")
	})

	s.Run("error: 422 when the coupon has expired", func() {
		s.mockCommands.EXPECT().ApplyCoupon(gomock.Any(), s.buyerID, "OLD").Return(coupon.ErrCouponExpired).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPut, url, reqdto.ApplyCouponRequest{Code: "OLD"}, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusUnprocessableEntity, "COUPON_EXPIRED")
	})

	s.Run("success: clears the coupon", func() {
		s.mockCommands.EXPECT().ClearCoupon(gomock.Any(), s.buyerID).Return(nil).Times(1)
		s.mockQueries.EXPECT().GetCart(gomock.Any(), s.buyerID).Return(s.view, nil).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, url, nil, "bearer-token")

		var body resdto.CartResponse
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Nil(body.CouponCode)
	})

	s.Run("error: 409 while the cart is frozen", func() {
		s.mockCommands.EXPECT().ClearCoupon(gomock.Any(), s.buyerID).Return(cart.ErrCartFrozen).Times(1)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, url, nil, "bearer-token")
		httptest.AssertErrorCode(s.T(), rec, http.StatusConflict, "CART_FROZEN")
	})
}
