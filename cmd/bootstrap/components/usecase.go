package components

import (
	"time"

	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/usecase"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"
	"checkout-engine/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseValidatorsModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	commands.NewCouponLedger,
	func(cfg config.Config) *payment.ClientSignatureVerifier {
		return payment.NewClientSignatureVerifier(cfg.Gateway.KeySecret)
	},
	func(cfg config.Config) *payment.WebhookSignatureVerifier {
		return payment.NewWebhookSignatureVerifier(cfg.Gateway.WebhookSecret)
	},
	func(cfg config.Config) commands.CheckoutSettings {
		return commands.CheckoutSettings{
			IntentTTL:      cfg.Checkout.IntentTTL,
			GatewayTimeout: cfg.Gateway.Timeout,
			GatewayKeyID:   cfg.Gateway.KeyID,
			SweepBatch:     cfg.Checkout.SweepBatch,
		}
	},
	func(cfg config.Config) commands.ReconcileSettings {
		return commands.ReconcileSettings{
			AdvisoryLock: cfg.Reconcile.LockMode == config.LockModePostgres,
		}
	},
	func(cfg config.Config) commands.RelaySettings {
		return commands.RelaySettings{
			Batch:       cfg.Kafka.RelayBatch,
			MaxAttempts: cfg.Kafka.MaxAttempts,
			BaseBackoff: time.Second,
			MaxBackoff:  5 * time.Minute,
		}
	},
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		func(uow shared.UnitOfWork, ledger commands.CouponLedger, clk clock.Clock, cfg config.Config) (commands.CartCommands, error) {
			currency, err := money.NewCurrency(cfg.Checkout.Currency)
			if err != nil {
				return nil, err
			}
			return commands.NewCartUseCase(uow, ledger, clk, currency), nil
		},
		commands.NewCheckoutUseCase,
		commands.NewOrderMaterializer,
		commands.NewReconcileUseCase,
		commands.NewOutboxRelay,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewCartQueries,
		queries.NewOrderQueries,
		queries.NewPaymentQueries,
		queries.NewReconciliationQueries,
	),
)

var usecaseValidatorsModule = fx.Module("usecase/validators",
	fx.Provide(
		usecase.NewTokenValidator,
	),
)
