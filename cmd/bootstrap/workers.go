package bootstrap

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"checkout-engine/internal/pkg/config"
	"checkout-engine/internal/usecase/commands"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("workers",
	fx.Invoke(
		startExpirySweeper,
		startOutboxRelay,
	),
)

func startExpirySweeper(lc fx.Lifecycle, cfg config.Config, checkout commands.CheckoutCommands, logger *slog.Logger) {
	runPeriodically(lc, "expiry-sweeper", cfg.Checkout.SweepInterval, logger, func(ctx context.Context) (int, error) {
		return checkout.ExpireStale(ctx)
	})
}

func startOutboxRelay(lc fx.Lifecycle, cfg config.Config, relay commands.OutboxRelay, logger *slog.Logger) {
	runPeriodically(lc, "outbox-relay", cfg.Kafka.RelayInterval, logger, relay.RelayDue)
}

// runPeriodically ties a ticker loop to the fx lifecycle. Stop cancels the
// in-flight run and waits for it.
func runPeriodically(lc fx.Lifecycle, name string, interval time.Duration, logger *slog.Logger, run func(ctx context.Context) (int, error)) {
	if interval <= 0 {
		logger.Info("ワーカーは無効です", "worker", name)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := run(ctx)
						if err != nil && ctx.Err() == nil {
							logger.Error("ワーカーの実行に失敗しました", "worker", name, "error", err)
							continue
						}
						if n > 0 {
							logger.Info("ワーカーが処理しました", "worker", name, "count", n)
						}
					}
				}
			}()
			logger.Info("ワーカーを起動しました", "worker", name, "interval", interval)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
