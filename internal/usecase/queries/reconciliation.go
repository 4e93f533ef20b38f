package queries

import (
	"context"
	"strings"
	"time"

	"checkout-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrGatewayOrderRequired = errs.NewReason("GATEWAY_ORDER_REQUIRED", errs.ErrValidation, "gateway_order_id is required")

type ReconciliationReadStore interface {
	ConfirmedWithoutOrderFirstPage(ctx context.Context, limit int32) ([]*AnomalyView, error)
	ConfirmedWithoutOrderKeyset(ctx context.Context, lastConfirmedAt time.Time, lastID uuid.UUID, limit int32) ([]*AnomalyView, error)
	AuditByGatewayOrder(ctx context.Context, gatewayOrderID string, limit int32) ([]*AuditEntryView, error)
}

// ReconciliationQueries backs the operator view of payments that were
// confirmed but never turned into an order.
type ReconciliationQueries interface {
	ListAnomalies(ctx context.Context, cursor *Cursor, limit int) ([]*AnomalyView, *Cursor, error)
	AuditTrail(ctx context.Context, gatewayOrderID string, limit int) ([]*AuditEntryView, error)
}

type reconciliationQueriesImpl struct {
	readStore ReconciliationReadStore
}

func NewReconciliationQueries(readStore ReconciliationReadStore) ReconciliationQueries {
	return &reconciliationQueriesImpl{readStore: readStore}
}

func (q *reconciliationQueriesImpl) ListAnomalies(ctx context.Context, cursor *Cursor, limit int) ([]*AnomalyView, *Cursor, error) {
	limit = ValidateLimit(limit)
	var rows []*AnomalyView
	var err error
	if cursor == nil || cursor.After == "" {
		rows, err = q.readStore.ConfirmedWithoutOrderFirstPage(ctx, int32(limit+1))
	} else {
		lastConfirmedAt, lastID, derr := DecodeAfterCursor(cursor.After)
		if derr != nil {
			return nil, nil, derr
		}
		rows, err = q.readStore.ConfirmedWithoutOrderKeyset(ctx, lastConfirmedAt, lastID, int32(limit+1))
	}
	if err != nil {
		return nil, nil, err
	}
	var next *Cursor
	if len(rows) > limit {
		last := rows[limit-1]
		next = &Cursor{After: EncodeAfterCursor(last.ConfirmedAt, last.IntentID)}
		rows = rows[:limit]
	}
	return rows, next, nil
}

func (q *reconciliationQueriesImpl) AuditTrail(ctx context.Context, gatewayOrderID string, limit int) ([]*AuditEntryView, error) {
	gatewayOrderID = strings.TrimSpace(gatewayOrderID)
	if gatewayOrderID == "" {
		return nil, ErrGatewayOrderRequired
	}
	return q.readStore.AuditByGatewayOrder(ctx, gatewayOrderID, int32(ValidateLimit(limit)))
}
