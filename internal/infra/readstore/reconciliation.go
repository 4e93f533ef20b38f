package readstore

import (
	"context"
	"time"

	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Confirmed intents with no order, newest first, with the latest
// materialization failure recorded for each.
const selectAnomaliesSQL = `
	SELECT pi.id, pi.user_id, pi.gateway_order_id, pi.amount, pi.currency, pi.confirmed_at,
	       last_err.detail, last_err.occurred_at
	FROM payment_intents pi
	LEFT JOIN orders o ON o.payment_intent_id = pi.id
	LEFT JOIN LATERAL (
		SELECT a.detail, a.occurred_at
		FROM confirmation_audit a
		WHERE a.payment_intent_id = pi.id AND a.outcome = 'materialize_error'
		ORDER BY a.occurred_at DESC, a.id DESC
		LIMIT 1
	) last_err ON true
	WHERE pi.status = 'CONFIRMED' AND o.id IS NULL`

type ReconciliationReadStore struct {
	db db.DBTX
}

func NewReconciliationReadStore(db db.DBTX) *ReconciliationReadStore {
	return &ReconciliationReadStore{db: db}
}

func (r *ReconciliationReadStore) ConfirmedWithoutOrderFirstPage(ctx context.Context, limit int32) ([]*queries.AnomalyView, error) {
	rows, err := r.db.Query(ctx, selectAnomaliesSQL+`
		ORDER BY pi.confirmed_at DESC, pi.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reconciliation anomalies first page", err)
	}
	return scanAnomalies(rows)
}

func (r *ReconciliationReadStore) ConfirmedWithoutOrderKeyset(ctx context.Context, lastConfirmedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.AnomalyView, error) {
	rows, err := r.db.Query(ctx, selectAnomaliesSQL+`
		  AND (pi.confirmed_at, pi.id) < ($1, $2)
		ORDER BY pi.confirmed_at DESC, pi.id DESC
		LIMIT $3`, pgconv.TimeToPgtype(lastConfirmedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reconciliation anomalies keyset", err)
	}
	return scanAnomalies(rows)
}

func scanAnomalies(rows pgx.Rows) ([]*queries.AnomalyView, error) {
	defer rows.Close()

	result := []*queries.AnomalyView{}
	for rows.Next() {
		var (
			v                        queries.AnomalyView
			confirmedAt, lastErrorAt pgtype.Timestamptz
			lastError                pgtype.Text
		)
		if err := rows.Scan(&v.IntentID, &v.UserID, &v.GatewayOrderID, &v.Amount, &v.Currency,
			&confirmedAt, &lastError, &lastErrorAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan reconciliation anomaly", err)
		}
		v.ConfirmedAt = confirmedAt.Time
		v.LastError = pgconv.StringPtrFromPgtype(lastError)
		v.LastErrorAt = pgconv.TimePtrFromPgtype(lastErrorAt)
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read reconciliation anomalies", err)
	}
	return result, nil
}

func (r *ReconciliationReadStore) AuditByGatewayOrder(ctx context.Context, gatewayOrderID string, limit int32) ([]*queries.AuditEntryView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, gateway_order_id, payment_intent_id, channel, outcome, detail, occurred_at
		FROM confirmation_audit
		WHERE gateway_order_id = $1
		ORDER BY occurred_at, id
		LIMIT $2`, gatewayOrderID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find confirmation audit", err)
	}
	defer rows.Close()

	result := []*queries.AuditEntryView{}
	for rows.Next() {
		var (
			v          queries.AuditEntryView
			intentID   pgtype.UUID
			occurredAt pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.GatewayOrderID, &intentID, &v.Channel, &v.Outcome, &v.Detail, &occurredAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan confirmation audit", err)
		}
		v.PaymentIntentID = pgconv.UUIDPtrFromPgtype(intentID)
		v.OccurredAt = occurredAt.Time
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read confirmation audit", err)
	}
	return result, nil
}
