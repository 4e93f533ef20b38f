package repository

import (
	"context"
	"time"

	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const intentColumns = `
	id, user_id, cart_id, amount, currency, coupon_code, status, gateway_order_id,
	gateway_payment_id, confirmed_via, failure_reason, created_at, updated_at, expires_at, confirmed_at`

type IntentRepository struct {
	db db.DBTX
}

func NewIntentRepository(db db.DBTX) *IntentRepository {
	return &IntentRepository{db: db}
}

func (r *IntentRepository) Insert(ctx context.Context, in *payment.Intent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_intents (`+intentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		in.ID(), in.UserID(), in.CartID(), in.Amount(), in.Currency().String(),
		pgconv.StringPtrToPgtype(in.CouponCode()), string(in.Status()),
		pgconv.StringPtrToPgtype(in.GatewayOrderID()), pgconv.StringPtrToPgtype(in.GatewayPaymentID()),
		channelToPgtype(in.ConfirmedVia()), pgconv.StringPtrToPgtype(in.FailureReason()),
		pgconv.TimeToPgtype(in.CreatedAt()), pgconv.TimeToPgtype(in.UpdatedAt()),
		pgconv.TimeToPgtype(in.ExpiresAt()), pgconv.TimePtrToPgtype(in.ConfirmedAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to insert payment intent", err)
	}
	return nil
}

func (r *IntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Intent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id)
	return scanIntentRow(row)
}

func (r *IntentRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*payment.Intent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE gateway_order_id = $1`, gatewayOrderID)
	return scanIntentRow(row)
}

func (r *IntentRepository) ListByCart(ctx context.Context, cartID uuid.UUID) ([]*payment.Intent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE cart_id = $1
		ORDER BY created_at DESC`, cartID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list payment intents", err)
	}
	defer rows.Close()

	var intents []*payment.Intent
	for rows.Next() {
		in, err := scanIntentRow(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, in)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read payment intents", err)
	}
	return intents, nil
}

func (r *IntentRepository) MarkAwaiting(ctx context.Context, id uuid.UUID, gatewayOrderID string, now time.Time) (bool, error) {
	return r.conditional(ctx, "failed to attach gateway order", `
		UPDATE payment_intents
		SET status = 'AWAITING_CONFIRMATION', gateway_order_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'CREATED'`,
		id, gatewayOrderID, pgconv.TimeToPgtype(now))
}

func (r *IntentRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	return r.conditional(ctx, "failed to mark payment intent failed", `
		UPDATE payment_intents
		SET status = 'FAILED', failure_reason = $2, updated_at = $3
		WHERE id = $1 AND status IN ('CREATED', 'AWAITING_CONFIRMATION')`,
		id, reason, pgconv.TimeToPgtype(now))
}

func (r *IntentRepository) Expire(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return r.conditional(ctx, "failed to expire payment intent", `
		UPDATE payment_intents
		SET status = 'EXPIRED', updated_at = $2
		WHERE id = $1 AND status IN ('CREATED', 'AWAITING_CONFIRMATION')`,
		id, pgconv.TimeToPgtype(now))
}

func (r *IntentRepository) conditional(ctx context.Context, msg, sql string, args ...any) (bool, error) {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, infra.WrapRepoErr(msg, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ConfirmByGatewayOrderID is a compare-and-set on status. Postgres re-checks
// the WHERE clause after waiting on a concurrent writer, so exactly one caller
// sees a returned row.
func (r *IntentRepository) ConfirmByGatewayOrderID(ctx context.Context, p shared.ConfirmParams) (*payment.Intent, bool, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE payment_intents
		SET status = 'CONFIRMED',
		    gateway_payment_id = $2,
		    confirmed_via = $3,
		    confirmed_at = $4,
		    updated_at = $4
		WHERE gateway_order_id = $1 AND status IN ('CREATED', 'AWAITING_CONFIRMATION')
		RETURNING `+intentColumns,
		p.GatewayOrderID, p.GatewayPaymentID, string(p.Channel), pgconv.TimeToPgtype(p.Now))
	in, err := scanIntentRow(row)
	if err != nil {
		if errs.Is(err, payment.ErrIntentNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return in, true, nil
}

// ExpireDue sweeps live intents past their deadline. Rows locked by an
// in-flight confirmation are skipped and picked up on a later pass.
func (r *IntentRepository) ExpireDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE payment_intents
		SET status = 'EXPIRED', updated_at = $1
		WHERE id IN (
			SELECT id FROM payment_intents
			WHERE status IN ('CREATED', 'AWAITING_CONFIRMATION') AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		pgconv.TimeToPgtype(now), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to expire due payment intents", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read expired payment intents", err)
	}
	return ids, nil
}

func scanIntentRow(row pgx.Row) (*payment.Intent, error) {
	var (
		id, userID, cartID              uuid.UUID
		amount                          int64
		currency, status                string
		couponCode, gatewayOrderID      pgtype.Text
		gatewayPaymentID, confirmedVia  pgtype.Text
		failureReason                   pgtype.Text
		createdAt, updatedAt, expiresAt pgtype.Timestamptz
		confirmedAt                     pgtype.Timestamptz
	)
	err := row.Scan(&id, &userID, &cartID, &amount, &currency, &couponCode, &status, &gatewayOrderID,
		&gatewayPaymentID, &confirmedVia, &failureReason, &createdAt, &updatedAt, &expiresAt, &confirmedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, payment.ErrIntentNotFound
		}
		return nil, infra.WrapRepoErr("failed to scan payment intent", err)
	}

	var via *payment.Channel
	if confirmedVia.Valid {
		c := payment.Channel(confirmedVia.String)
		via = &c
	}
	return payment.ReconstructIntent(payment.IntentParams{
		ID:               id,
		UserID:           userID,
		CartID:           cartID,
		Amount:           amount,
		Currency:         money.Currency(currency),
		CouponCode:       pgconv.StringPtrFromPgtype(couponCode),
		Status:           payment.Status(status),
		GatewayOrderID:   pgconv.StringPtrFromPgtype(gatewayOrderID),
		GatewayPaymentID: pgconv.StringPtrFromPgtype(gatewayPaymentID),
		ConfirmedVia:     via,
		FailureReason:    pgconv.StringPtrFromPgtype(failureReason),
		CreatedAt:        createdAt.Time,
		UpdatedAt:        updatedAt.Time,
		ExpiresAt:        expiresAt.Time,
		ConfirmedAt:      pgconv.TimePtrFromPgtype(confirmedAt),
	}), nil
}

func channelToPgtype(c *payment.Channel) pgtype.Text {
	if c == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: string(*c), Valid: true}
}
