package api

import (
	"errors"
	"log/slog"
	"net/http"

	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const (
	headerWebhookSignature = "X-Razorpay-Signature"
	maxWebhookBody         = 1 << 20
)

var errWebhookBody = errs.New("webhook body could not be read")

type WebhookHandler struct {
	reconcile commands.ReconcileCommands
	logger    *slog.Logger
}

func NewWebhookHandler(reconcile commands.ReconcileCommands, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{reconcile: reconcile, logger: logger}
}

// @Summary Gateway webhook
// @Description Authenticated by the signature over the raw body, not by a bearer token.
// @Description Permanent rejections are acknowledged with 200 so the gateway stops redelivering.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 of the raw body"
// @Success 200 {object} resdto.WebhookResponse
// @Failure 401 {object} httperr.Response
// @Failure 500 {object} httperr.Response
// @Failure 503 {object} httperr.Response
// @Router /webhooks/gateway [post]
func (h *WebhookHandler) Handle(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	rawBody, err := c.GetRawData()
	if err != nil {
		httperr.BadRequest(c, errs.Wrap(errWebhookBody, err.Error()), "Unreadable body")
		return
	}

	result, err := h.reconcile.HandleGatewayWebhook(c.Request.Context(), rawBody, c.GetHeader(headerWebhookSignature))
	if err == nil {
		c.JSON(http.StatusOK, resdto.FromWebhookResult(result))
		return
	}

	if acknowledgeable(err) {
		h.logger.Warn("webhook rejected",
			"error", err.Error(),
			"request_id", c.GetString("request_id"))
		c.JSON(http.StatusOK, resdto.WebhookRejected(err))
		return
	}
	httperr.Abort(c, err)
}

// acknowledgeable errors will not change on redelivery.
func acknowledgeable(err error) bool {
	return errors.Is(err, errs.ErrValidation) ||
		errors.Is(err, errs.ErrNotFound) ||
		errors.Is(err, errs.ErrConflict) ||
		errors.Is(err, errs.ErrBusinessRule)
}
