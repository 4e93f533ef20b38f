package commands

import (
	"context"
	"time"

	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReserveRequest struct {
	Code     coupon.Code
	UserID   uuid.UUID
	IntentID uuid.UUID
	Subtotal int64
	Items    []coupon.Item
	Now      time.Time
}

// CouponLedger tracks coupon usage as redemption rows. Every method runs inside
// the caller's transaction; TryReserve expects a serializable one.
type CouponLedger interface {
	TryReserve(ctx context.Context, tx shared.Tx, req ReserveRequest) (*coupon.Redemption, error)
	Confirm(ctx context.Context, tx shared.Tx, intentID, orderID uuid.UUID, now time.Time) error
	Release(ctx context.Context, tx shared.Tx, intentID uuid.UUID, now time.Time) error
}

type couponLedger struct{}

func NewCouponLedger() CouponLedger {
	return &couponLedger{}
}

// TryReserve re-validates the coupon under a row lock, derives usage from live
// redemption rows and records a RESERVED row. Losers of a race observe the
// winner's row and get an ErrCouponExhausted rejection.
func (l *couponLedger) TryReserve(ctx context.Context, tx shared.Tx, req ReserveRequest) (*coupon.Redemption, error) {
	c, err := tx.Coupons().LockByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if err := c.CheckApplicable(req.Now, req.Subtotal, req.Items); err != nil {
		return nil, err
	}

	global, perUser, err := tx.Redemptions().CountLive(ctx, c.ID(), req.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.CheckLimits(global, perUser); err != nil {
		return nil, err
	}

	r := coupon.NewReservation(c, req.UserID, req.IntentID, req.Now)
	if err := tx.Redemptions().Insert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (l *couponLedger) Confirm(ctx context.Context, tx shared.Tx, intentID, orderID uuid.UUID, now time.Time) error {
	ok, err := tx.Redemptions().MarkConfirmed(ctx, intentID, orderID, now)
	if err != nil || ok {
		return err
	}
	r, err := tx.Redemptions().FindByIntent(ctx, intentID)
	if err != nil {
		return err
	}
	if r.Status() == coupon.RedemptionConfirmed && r.OrderID() != nil && *r.OrderID() == orderID {
		return nil
	}
	return errs.Wrapf(coupon.ErrRedemptionSettled, "confirm reservation for intent %s (status %s)", intentID, r.Status())
}

// Release is idempotent: a missing or already released reservation is fine,
// a confirmed one is never given back.
func (l *couponLedger) Release(ctx context.Context, tx shared.Tx, intentID uuid.UUID, now time.Time) error {
	ok, err := tx.Redemptions().MarkReleased(ctx, intentID, now)
	if err != nil || ok {
		return err
	}
	r, err := tx.Redemptions().FindByIntent(ctx, intentID)
	if err != nil {
		if errs.Is(err, coupon.ErrRedemptionNotFound) {
			return nil
		}
		return err
	}
	if r.Status() == coupon.RedemptionConfirmed {
		return errs.Wrapf(coupon.ErrRedemptionSettled, "release reservation for intent %s", intentID)
	}
	return nil
}
