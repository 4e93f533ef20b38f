package api

import (
	"log/slog"
	"net/http"

	reqdto "checkout-engine/internal/handler/dto/request"
	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

var errInvalidQuery = errs.New("invalid query parameters")

// AdminHandler serves reconciliation tooling for operators.
type AdminHandler struct {
	reconcile commands.ReconcileCommands
	queries   queries.ReconciliationQueries
	logger    *slog.Logger
}

func NewAdminHandler(reconcile commands.ReconcileCommands, qry queries.ReconciliationQueries, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{reconcile: reconcile, queries: qry, logger: logger}
}

// @Summary List reconciliation anomalies
// @Description Confirmed payment intents that have no order, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param cursor query string false "Opaque cursor from the previous page"
// @Param limit query int false "Page size (1-200)"
// @Success 200 {object} resdto.AnomalyListResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /admin/reconciliation/anomalies [get]
func (h *AdminHandler) ListAnomalies(c *gin.Context) {
	var req reqdto.AnomalyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httperr.BadRequest(c, errs.Wrap(errInvalidQuery, err.Error()), "Invalid query parameters")
		return
	}

	var cursor *queries.Cursor
	if req.Cursor != "" {
		cursor = &queries.Cursor{After: req.Cursor}
	}
	rows, next, err := h.queries.ListAnomalies(c.Request.Context(), cursor, req.Limit)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromAnomalies(rows, next)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Confirmation audit trail
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param gatewayOrderId path string true "Gateway order ID"
// @Success 200 {array} resdto.AuditEntryResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /admin/reconciliation/audit/{gatewayOrderId} [get]
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	rows, err := h.queries.AuditTrail(c.Request.Context(), c.Param("gatewayOrderId"), 0)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromAuditEntries(rows)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Materialize a confirmed intent
// @Description Re-runs order materialization for a CONFIRMED intent without an order. Idempotent.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Intent ID"
// @Success 200 {object} resdto.VerifyResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 500 {object} httperr.Response
// @Router /admin/reconciliation/intents/{id}/materialize [post]
func (h *AdminHandler) Materialize(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	operator, _ := principal(c)

	result, err := h.reconcile.RematerializeIntent(c.Request.Context(), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	h.logger.Info("operator materialized intent",
		"intent_id", id,
		"operator_id", operator.UserID,
		"order_id", result.OrderID)
	c.JSON(http.StatusOK, resdto.FromConfirmation(result))
}
