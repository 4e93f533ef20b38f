package readstore

import (
	"context"

	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type IntentReadStore struct {
	db db.DBTX
}

func NewIntentReadStore(db db.DBTX) *IntentReadStore {
	return &IntentReadStore{db: db}
}

func (r *IntentReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.IntentView, error) {
	var (
		v                                           queries.IntentView
		gatewayOrderID, confirmedVia, failureReason pgtype.Text
		orderID                                     pgtype.UUID
		createdAt, expiresAt, confirmedAt           pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT pi.id, pi.user_id, pi.cart_id, pi.amount, pi.currency, pi.status,
		       pi.gateway_order_id, pi.confirmed_via, pi.failure_reason, o.id,
		       pi.created_at, pi.expires_at, pi.confirmed_at
		FROM payment_intents pi
		LEFT JOIN orders o ON o.payment_intent_id = pi.id
		WHERE pi.id = $1`, id).
		Scan(&v.ID, &v.UserID, &v.CartID, &v.Amount, &v.Currency, &v.Status,
			&gatewayOrderID, &confirmedVia, &failureReason, &orderID,
			&createdAt, &expiresAt, &confirmedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, payment.ErrIntentNotFound
		}
		return nil, infra.WrapRepoErr("failed to find payment intent by ID", err)
	}

	v.GatewayOrderID = pgconv.StringPtrFromPgtype(gatewayOrderID)
	v.ConfirmedVia = pgconv.StringPtrFromPgtype(confirmedVia)
	v.FailureReason = pgconv.StringPtrFromPgtype(failureReason)
	v.OrderID = pgconv.UUIDPtrFromPgtype(orderID)
	v.CreatedAt = createdAt.Time
	v.ExpiresAt = expiresAt.Time
	v.ConfirmedAt = pgconv.TimePtrFromPgtype(confirmedAt)
	return &v, nil
}
