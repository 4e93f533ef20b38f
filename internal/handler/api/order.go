package api

import (
	"net/http"

	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	queries queries.OrderQueries
}

func NewOrderHandler(qry queries.OrderQueries) *OrderHandler {
	return &OrderHandler{queries: qry}
}

// @Summary Get order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 400 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	view, err := h.queries.GetOrder(c.Request.Context(), id, p.UserID, p.Role)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromOrderView(view)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
