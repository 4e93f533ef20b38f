package bootstrap

import (
	"context"
	"log/slog"

	"checkout-engine/internal/infra/events"
	"checkout-engine/internal/infra/gateway"
	"checkout-engine/internal/infra/lock"
	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/usecase/commands"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// InfraModule provides the out-of-process collaborators: the payment
// gateway, the confirmation lock and the event publisher.
var InfraModule = fx.Module("infra",
	fx.Provide(
		fx.Annotate(
			NewPaymentGateway,
			fx.As(new(commands.PaymentGateway)),
		),
		NewIntentLocker,
		NewEventPublisher,
	),
)

func NewPaymentGateway(cfg config.Config, logger *slog.Logger) *gateway.Client {
	return gateway.NewClient(cfg.Gateway, logger)
}

// NewIntentLocker picks the lock backend. In postgres mode the locking
// happens inside the confirmation transaction, so no process lock is needed.
func NewIntentLocker(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) commands.IntentLocker {
	if cfg.Reconcile.LockMode != config.LockModeRedis {
		return commands.NewNoopLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("Redisに接続できません。ロック取得時に再試行します", "addr", cfg.Redis.Addr, "error", err)
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	return lock.NewRedisLocker(client, lock.Settings{TTL: cfg.Reconcile.LockTTL}, logger)
}

func NewEventPublisher(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) commands.EventPublisher {
	if !cfg.Kafka.Enabled() {
		logger.Info("Kafkaが未設定のため、イベントはログにのみ出力します")
		return events.NewLogPublisher(logger)
	}

	publisher := events.NewKafkaPublisher(cfg.Kafka, logger)
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}
