package api

import (
	"net/http"

	"checkout-engine/internal/handler/middleware"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type MeResponse struct {
	UserID     string `json:"userId"`
	Role       string `json:"role"`
	CanOperate bool   `json:"canOperate"`
}

// @Summary Get current principal
// @Description Identity carried by the bearer token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} api.MeResponse
// @Failure 401 {object} httperr.Response
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "User not authenticated"}})
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		UserID:     principal.UserID.String(),
		Role:       principal.Role.String(),
		CanOperate: principal.Role.CanOperate(),
	})
}
