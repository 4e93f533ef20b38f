package commands

import (
	"context"
	"log/slog"
	"time"

	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type RelaySettings struct {
	Batch       int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// OutboxRelay delivers queued outbox events to the event publisher.
type OutboxRelay interface {
	RelayDue(ctx context.Context) (int, error)
}

type outboxRelay struct {
	uow       shared.UnitOfWork
	publisher EventPublisher
	clock     clock.Clock
	settings  RelaySettings
	logger    *slog.Logger
}

func NewOutboxRelay(uow shared.UnitOfWork, publisher EventPublisher, clk clock.Clock, settings RelaySettings, logger *slog.Logger) OutboxRelay {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 10
	}
	if settings.BaseBackoff <= 0 {
		settings.BaseBackoff = time.Second
	}
	if settings.MaxBackoff <= 0 {
		settings.MaxBackoff = 5 * time.Minute
	}
	return &outboxRelay{uow: uow, publisher: publisher, clock: clk, settings: settings, logger: logger}
}

// RelayDue claims one batch with row locks held for the duration of the
// publish, so concurrent relays never deliver the same event twice.
// Publishing is at-least-once: consumers dedupe on the event id.
func (r *outboxRelay) RelayDue(ctx context.Context) (int, error) {
	published := 0
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := r.clock.Now()
		events, err := tx.Outbox().ClaimDue(ctx, now, r.settings.Batch)
		if err != nil || len(events) == 0 {
			return err
		}

		if pubErr := r.publisher.Publish(ctx, events); pubErr != nil {
			r.logger.Warn("outbox publish failed", "events", len(events), "error", pubErr.Error())
			for _, e := range events {
				if err := tx.Outbox().MarkRetry(ctx, e.ID, pubErr.Error(), now.Add(r.backoff(e.Attempts)), r.settings.MaxAttempts); err != nil {
					return err
				}
			}
			return nil
		}

		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		if err := tx.Outbox().MarkPublished(ctx, ids, now); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.logger.Info("outbox events published", "count", published)
	}
	return published, nil
}

func (r *outboxRelay) backoff(attempts int) time.Duration {
	d := r.settings.BaseBackoff
	for i := 0; i < attempts && d < r.settings.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, r.settings.MaxBackoff)
}
