package repository

import (
	"context"

	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/shared"
)

type AuditRepository struct {
	db db.DBTX
}

func NewAuditRepository(db db.DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, e shared.AuditEntry) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO confirmation_audit (gateway_order_id, payment_intent_id, channel, outcome, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.GatewayOrderID, pgconv.UUIDPtrToPgtype(e.IntentID), string(e.Channel), string(e.Outcome),
		e.Detail, pgconv.TimeToPgtype(e.OccurredAt))
	if err != nil {
		return infra.WrapRepoErr("failed to record confirmation audit", err)
	}
	return nil
}
