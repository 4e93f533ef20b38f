package repository

import (
	"context"
	"encoding/json"
	"time"

	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type RedemptionRepository struct {
	db db.DBTX
}

func NewRedemptionRepository(db db.DBTX) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// CountLive derives usage from the ledger rows that still hold a unit.
func (r *RedemptionRepository) CountLive(ctx context.Context, couponID, userID uuid.UUID) (int, int, error) {
	var global, perUser int32
	err := r.db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE user_id = $2)
		FROM coupon_redemptions
		WHERE coupon_id = $1 AND status IN ('RESERVED', 'CONFIRMED')`,
		couponID, userID).Scan(&global, &perUser)
	if err != nil {
		return 0, 0, infra.WrapRepoErr("failed to count coupon usage", err)
	}
	return int(global), int(perUser), nil
}

func (r *RedemptionRepository) Insert(ctx context.Context, red *coupon.Redemption) error {
	terms, err := json.Marshal(red.Terms())
	if err != nil {
		return infra.WrapRepoErr("failed to encode coupon terms", err, infra.KindDBFailure)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO coupon_redemptions (id, coupon_id, user_id, payment_intent_id, status, coupon_terms, reserved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		red.ID(), red.CouponID(), red.UserID(), red.IntentID(), string(red.Status()), terms, pgconv.TimeToPgtype(red.ReservedAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to insert coupon reservation", err)
	}
	return nil
}

func (r *RedemptionRepository) FindByIntent(ctx context.Context, intentID uuid.UUID) (*coupon.Redemption, error) {
	var (
		id, couponID, userID, storedIntentID uuid.UUID
		orderID                              pgtype.UUID
		status                               string
		rawTerms                             []byte
		reservedAt, settledAt                pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, coupon_id, user_id, payment_intent_id, order_id, status, coupon_terms, reserved_at, settled_at
		FROM coupon_redemptions
		WHERE payment_intent_id = $1`, intentID).
		Scan(&id, &couponID, &userID, &storedIntentID, &orderID, &status, &rawTerms, &reservedAt, &settledAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, coupon.ErrRedemptionNotFound
		}
		return nil, infra.WrapRepoErr("failed to get coupon reservation", err)
	}
	var terms coupon.Terms
	if err := json.Unmarshal(rawTerms, &terms); err != nil {
		return nil, infra.WrapRepoErr("corrupt coupon terms", err, infra.KindDBFailure)
	}
	return coupon.ReconstructRedemption(id, couponID, userID, storedIntentID,
		pgconv.UUIDPtrFromPgtype(orderID), coupon.RedemptionStatus(status),
		terms, reservedAt.Time, pgconv.TimePtrFromPgtype(settledAt)), nil
}

// MarkConfirmed and MarkReleased only move RESERVED rows; false means another
// caller already settled the reservation.
func (r *RedemptionRepository) MarkConfirmed(ctx context.Context, intentID, orderID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE coupon_redemptions
		SET status = 'CONFIRMED', order_id = $2, settled_at = $3
		WHERE payment_intent_id = $1 AND status = 'RESERVED'`,
		intentID, orderID, pgconv.TimeToPgtype(now))
	if err != nil {
		return false, infra.WrapRepoErr("failed to confirm coupon reservation", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RedemptionRepository) MarkReleased(ctx context.Context, intentID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE coupon_redemptions
		SET status = 'RELEASED', settled_at = $2
		WHERE payment_intent_id = $1 AND status = 'RESERVED'`,
		intentID, pgconv.TimeToPgtype(now))
	if err != nil {
		return false, infra.WrapRepoErr("failed to release coupon reservation", err)
	}
	return tag.RowsAffected() == 1, nil
}
