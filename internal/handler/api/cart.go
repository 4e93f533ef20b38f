package api

import (
	"net/http"

	reqdto "checkout-engine/internal/handler/dto/request"
	resdto "checkout-engine/internal/handler/dto/response"
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	commands commands.CartCommands
	queries  queries.CartQueries
}

func NewCartHandler(cmd commands.CartCommands, qry queries.CartQueries) *CartHandler {
	return &CartHandler{commands: cmd, queries: qry}
}

// @Summary Get cart
// @Description Active cart of the current buyer with a live pricing preview
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.CartResponse
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	h.respondWithCart(c, p.UserID)
}

// @Summary Add cart item
// @Description Adds a product (optionally a variant) or increases its quantity
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.AddCartItemRequest true "Item"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req reqdto.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		httperr.BadRequest(c, errs.Wrap(errInvalidBody, err.Error()), "Invalid request format")
		return
	}

	if err := h.commands.AddItem(c.Request.Context(), p.UserID, cmd); err != nil {
		httperr.Abort(c, err)
		return
	}
	h.respondWithCart(c, p.UserID)
}

// @Summary Remove cart item
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param productId path string true "Product ID"
// @Param variantId query string false "Variant ID"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /api/cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}
	variant := c.Query("variantId")
	variantID, err := reqdto.ParseOptionalUUID(&variant)
	if err != nil {
		httperr.BadRequest(c, errs.Wrap(errInvalidID, err.Error()), "Invalid variantId")
		return
	}

	if err := h.commands.RemoveItem(c.Request.Context(), p.UserID, productID, variantID); err != nil {
		httperr.Abort(c, err)
		return
	}
	h.respondWithCart(c, p.UserID)
}

// @Summary Apply coupon
// @Description Attaches a coupon code; eligibility is re-evaluated at checkout
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.ApplyCouponRequest true "Coupon"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 422 {object} httperr.Response
// @Router /api/cart/coupon [put]
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req reqdto.ApplyCouponRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.commands.ApplyCoupon(c.Request.Context(), p.UserID, req.GetCode()); err != nil {
		httperr.Abort(c, err)
		return
	}
	h.respondWithCart(c, p.UserID)
}

// @Summary Clear coupon
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.CartResponse
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /api/cart/coupon [delete]
func (h *CartHandler) ClearCoupon(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.commands.ClearCoupon(c.Request.Context(), p.UserID); err != nil {
		httperr.Abort(c, err)
		return
	}
	h.respondWithCart(c, p.UserID)
}

func (h *CartHandler) respondWithCart(c *gin.Context, userID uuid.UUID) {
	view, err := h.queries.GetCart(c.Request.Context(), userID)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	resp, err := resdto.FromCartView(view)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
