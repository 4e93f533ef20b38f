package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"checkout-engine/internal/domain/user"
	"checkout-engine/internal/handler/httperr"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuthMiddleware struct {
	tokenValidator usecase.TokenValidator
}

const (
	ctxUserIDKey   = "user_id"
	ctxUserRoleKey = "user_role"
)

var (
	errTokenRequired    = errs.New("access token required")
	errTokenRejected    = errs.New("invalid or expired token")
	errInsufficientRole = errs.New("insufficient permissions")
	errMissingPrincipal = errs.New("role check used without authentication")
)

var roleHierarchy = map[user.Role]int{
	user.RoleBuyer:    1,
	user.RoleOperator: 2,
	user.RoleAdmin:    3,
}

func NewAuthMiddleware(tokenValidator usecase.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		tokenValidator: tokenValidator,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			httperr.AbortWithError(c, http.StatusUnauthorized, errTokenRequired, "Access token required", nil)
			return
		}

		principal, err := m.tokenValidator.ValidateToken(token)
		if err != nil {
			slog.Warn("Token validation failed in auth middleware",
				"error", err.Error(),
				"path", c.Request.URL.Path,
				"security_event", true)
			httperr.AbortWithError(c, http.StatusUnauthorized, errTokenRejected, "Invalid or expired token", nil)
			return
		}

		c.Set(ctxUserIDKey, principal.UserID)
		c.Set(ctxUserRoleKey, principal.Role)
		c.Set("jwt_claims", map[string]any{
			"user_id": principal.UserID.String(),
			"role":    string(principal.Role),
		})
		c.Next()
	}
}

func hasMinimumRole(userRole, minRole user.Role) bool {
	userLevel, userExists := roleHierarchy[userRole]
	minLevel, minExists := roleHierarchy[minRole]
	return userExists && minExists && userLevel >= minLevel
}

// RequireRoleAtLeast must run after RequireAuth.
func (m *AuthMiddleware) RequireRoleAtLeast(minRole user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			httperr.AbortWithError(c, http.StatusInternalServerError, errMissingPrincipal, "Internal server error", nil)
			return
		}

		if !hasMinimumRole(role, minRole) {
			slog.Warn("Role check failed",
				"role", string(role),
				"required", string(minRole),
				"path", c.Request.URL.Path,
				"security_event", true)
			httperr.AbortWithError(c, http.StatusForbidden, errInsufficientRole, "Insufficient permissions", nil)
			return
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(ctxUserIDKey)
	if !exists {
		return uuid.Nil, false
	}

	id, ok := userID.(uuid.UUID)
	return id, ok
}

func GetUserRole(c *gin.Context) (user.Role, bool) {
	userRole, exists := c.Get(ctxUserRoleKey)
	if !exists {
		return "", false
	}

	role, ok := userRole.(user.Role)
	return role, ok
}

// GetPrincipal returns both halves of the authenticated identity.
func GetPrincipal(c *gin.Context) (usecase.Principal, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return usecase.Principal{}, false
	}
	role, ok := GetUserRole(c)
	if !ok {
		return usecase.Principal{}, false
	}
	return usecase.Principal{UserID: id, Role: role}, true
}
