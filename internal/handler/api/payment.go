package api

import (
	"net/http"

	reqdto "checkout-engine/internal/handler/dto/request"
	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	checkout  commands.CheckoutCommands
	reconcile commands.ReconcileCommands
	queries   queries.PaymentQueries
}

func NewPaymentHandler(checkout commands.CheckoutCommands, reconcile commands.ReconcileCommands, qry queries.PaymentQueries) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, reconcile: reconcile, queries: qry}
}

// @Summary Create gateway order from cart
// @Description Freezes the active cart, reserves its coupon and registers the payment with the gateway.
// @Description Repeating the call while an intent is live returns that intent with replayed=true.
// @Tags payment
// @Produce json
// @Security BearerAuth
// @Success 201 {object} resdto.CheckoutResponse
// @Success 200 {object} resdto.CheckoutResponse "replayed"
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /payment/create-order-from-cart [post]
func (h *PaymentHandler) CreateOrderFromCart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	result, err := h.checkout.CreateOrderFromCart(c.Request.Context(), p.UserID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromCheckoutResult(result))
}

// @Summary Verify payment
// @Description Client-verify channel. A payment that was already confirmed by the webhook returns alreadyConfirmed=true.
// @Tags payment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.VerifyPaymentRequest true "Gateway callback fields"
// @Success 200 {object} resdto.VerifyResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 500 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /payment/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req reqdto.VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.reconcile.VerifyClientPayment(c.Request.Context(), p.UserID, req.ToCommand())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromConfirmation(result))
}

// @Summary Get payment intent
// @Tags payment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Intent ID"
// @Success 200 {object} resdto.IntentResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /payment/intents/{id} [get]
func (h *PaymentHandler) GetIntent(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.queries.GetIntent(c.Request.Context(), id, p.UserID, p.Role)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromIntentView(view)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
