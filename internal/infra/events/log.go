package events

import (
	"context"
	"log/slog"

	"checkout-engine/internal/usecase/shared"
)

// LogPublisher stands in for a broker in local setups: events are written to
// the structured log and counted as delivered.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events []shared.OutboxEvent) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "domain event",
			"event_id", e.ID.String(),
			"kind", e.Kind,
			"aggregate_id", e.AggregateID.String(),
			"payload", string(e.Payload))
	}
	return nil
}
