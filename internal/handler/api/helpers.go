package api

import (
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/handler/middleware"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	errInvalidBody = errs.New("invalid request body")
	errInvalidID   = errs.New("invalid id")
	errNoPrincipal = errs.New("principal missing from context")
)

// principal aborts with 500 when the route was not mounted behind RequireAuth.
func principal(c *gin.Context) (usecase.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		httperr.Abort(c, errNoPrincipal)
	}
	return p, ok
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httperr.BadRequest(c, errs.Wrap(errInvalidID, err.Error()), "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		httperr.BadRequest(c, errs.Wrap(errInvalidBody, err.Error()), "Invalid request format")
		return false
	}
	return true
}
