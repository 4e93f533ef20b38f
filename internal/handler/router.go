package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	"checkout-engine/internal/domain/user"
	"checkout-engine/internal/handler/api"
	"checkout-engine/internal/handler/middleware"
	"checkout-engine/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	fx.In

	Auth    *api.AuthHandler
	Cart    *api.CartHandler
	Payment *api.PaymentHandler
	Webhook *api.WebhookHandler
	Order   *api.OrderHandler
	Admin   *api.AdminHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *middleware.Logger, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, h, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *middleware.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(logger.LoggingMiddleware())
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Signature-authenticated; no bearer token.
	engine.POST("/webhooks/gateway", h.Webhook.Handle)

	apiGroup := engine.Group("/api")
	apiGroup.Use(authMiddleware.RequireAuth())
	{
		addRoutes(apiGroup, []route{
			{Method: http.MethodGet, Path: "/auth/me", Handler: h.Auth.Me},
			{Method: http.MethodGet, Path: "/orders/:id", Handler: h.Order.Get},
		})

		cart := apiGroup.Group("/cart")
		addRoutes(cart, []route{
			{Method: http.MethodGet, Path: "", Handler: h.Cart.Get},
			{Method: http.MethodPost, Path: "/items", Handler: h.Cart.AddItem},
			{Method: http.MethodDelete, Path: "/items/:productId", Handler: h.Cart.RemoveItem},
			{Method: http.MethodPut, Path: "/coupon", Handler: h.Cart.ApplyCoupon},
			{Method: http.MethodDelete, Path: "/coupon", Handler: h.Cart.ClearCoupon},
		})
	}

	payment := engine.Group("/payment")
	payment.Use(authMiddleware.RequireAuth())
	{
		addRoutes(payment, []route{
			{Method: http.MethodPost, Path: "/create-order-from-cart", Handler: h.Payment.CreateOrderFromCart},
			{Method: http.MethodPost, Path: "/verify", Handler: h.Payment.Verify},
			{Method: http.MethodGet, Path: "/intents/:id", Handler: h.Payment.GetIntent},
		})
	}

	admin := engine.Group("/admin/reconciliation")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRoleAtLeast(user.RoleOperator))
	{
		addRoutes(admin, []route{
			{Method: http.MethodGet, Path: "/anomalies", Handler: h.Admin.ListAnomalies},
			{Method: http.MethodGet, Path: "/audit/:gatewayOrderId", Handler: h.Admin.AuditTrail},
			{
				Method:  http.MethodPost,
				Path:    "/intents/:id/materialize",
				Handler: h.Admin.Materialize,
				Mw:      []gin.HandlerFunc{authMiddleware.RequireRoleAtLeast(user.RoleAdmin)},
			},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
