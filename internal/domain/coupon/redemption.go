package coupon

import (
	"time"

	"github.com/google/uuid"
)

type RedemptionStatus string

const (
	RedemptionReserved  RedemptionStatus = "RESERVED"
	RedemptionConfirmed RedemptionStatus = "CONFIRMED"
	RedemptionReleased  RedemptionStatus = "RELEASED"
)

// Redemption is one row of the usage ledger. Usage counts are always derived
// from RESERVED and CONFIRMED rows, never from a counter column.
type Redemption struct {
	id         uuid.UUID
	couponID   uuid.UUID
	userID     uuid.UUID
	intentID   uuid.UUID
	orderID    *uuid.UUID
	status     RedemptionStatus
	terms      Terms
	reservedAt time.Time
	settledAt  *time.Time
}

func NewReservation(c *Coupon, userID, intentID uuid.UUID, now time.Time) *Redemption {
	return &Redemption{
		id:         uuid.New(),
		couponID:   c.ID(),
		userID:     userID,
		intentID:   intentID,
		status:     RedemptionReserved,
		terms:      c.Terms(),
		reservedAt: now,
	}
}

func ReconstructRedemption(
	id, couponID, userID, intentID uuid.UUID,
	orderID *uuid.UUID,
	status RedemptionStatus,
	terms Terms,
	reservedAt time.Time,
	settledAt *time.Time,
) *Redemption {
	return &Redemption{
		id:         id,
		couponID:   couponID,
		userID:     userID,
		intentID:   intentID,
		orderID:    orderID,
		status:     status,
		terms:      terms,
		reservedAt: reservedAt,
		settledAt:  settledAt,
	}
}

func (s RedemptionStatus) CountsTowardLimit() bool {
	return s == RedemptionReserved || s == RedemptionConfirmed
}

// ReservedCoupon is the coupon exactly as it priced the intent at reservation time.
func (r *Redemption) ReservedCoupon() (*Coupon, error) {
	return r.terms.CouponAt(r.couponID, r.reservedAt)
}

func (r *Redemption) ID() uuid.UUID            { return r.id }
func (r *Redemption) CouponID() uuid.UUID      { return r.couponID }
func (r *Redemption) UserID() uuid.UUID        { return r.userID }
func (r *Redemption) IntentID() uuid.UUID      { return r.intentID }
func (r *Redemption) OrderID() *uuid.UUID      { return r.orderID }
func (r *Redemption) Status() RedemptionStatus { return r.status }
func (r *Redemption) Terms() Terms             { return r.terms }
func (r *Redemption) ReservedAt() time.Time    { return r.reservedAt }
func (r *Redemption) SettledAt() *time.Time    { return r.settledAt }
