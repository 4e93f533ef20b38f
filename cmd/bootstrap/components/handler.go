package components

import (
	"checkout-engine/internal/handler"
	"checkout-engine/internal/handler/api"
	"checkout-engine/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewCartHandler,
		api.NewPaymentHandler,
		api.NewWebhookHandler,
		api.NewOrderHandler,
		api.NewAdminHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
