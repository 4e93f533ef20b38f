package repository

import (
	"context"
	"time"

	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OutboxRepository struct {
	db db.DBTX
}

func NewOutboxRepository(db db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, e shared.OutboxEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO outbox_events (id, kind, aggregate_id, payload, status, attempts, run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Kind, e.AggregateID, e.Payload, shared.OutboxQueued, e.Attempts, pgconv.TimeToPgtype(e.RunAt))
	if err != nil {
		return infra.WrapRepoErr("failed to enqueue outbox event", err)
	}
	return nil
}

// ClaimDue locks due rows for the rest of the transaction so concurrent relays
// never publish the same event twice within one pass.
func (r *OutboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]shared.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, kind, aggregate_id, payload, attempts, run_at
		FROM outbox_events
		WHERE status = 'queued' AND run_at <= $1
		ORDER BY run_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		pgconv.TimeToPgtype(now), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim outbox events", err)
	}
	defer rows.Close()

	var events []shared.OutboxEvent
	for rows.Next() {
		var (
			e        shared.OutboxEvent
			attempts int32
			runAt    pgtype.Timestamptz
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.AggregateID, &e.Payload, &attempts, &runAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan outbox event", err)
		}
		e.Attempts = int(attempts)
		e.RunAt = runAt.Time
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read outbox events", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []uuid.UUID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET status = 'published', published_at = $2
		WHERE id = ANY($1)`,
		ids, pgconv.TimeToPgtype(now))
	if err != nil {
		return infra.WrapRepoErr("failed to mark outbox events published", err)
	}
	return nil
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, lastError string, runAt time.Time, maxAttempts int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbox_events
		SET attempts = attempts + 1,
		    last_error = $2,
		    run_at = $3,
		    status = CASE WHEN attempts + 1 >= $4 THEN 'failed' ELSE 'queued' END
		WHERE id = $1`,
		id, lastError, pgconv.TimeToPgtype(runAt), maxAttempts)
	if err != nil {
		return infra.WrapRepoErr("failed to schedule outbox retry", err)
	}
	return nil
}
