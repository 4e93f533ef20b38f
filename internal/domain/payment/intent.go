package payment

import (
	"strings"
	"time"

	"checkout-engine/internal/domain/money"

	"github.com/google/uuid"
)

// Intent is the local record of a gateway payment attempt for one frozen cart.
type Intent struct {
	id               uuid.UUID
	userID           uuid.UUID
	cartID           uuid.UUID
	amount           int64
	currency         money.Currency
	couponCode       *string
	status           Status
	gatewayOrderID   *string
	gatewayPaymentID *string
	confirmedVia     *Channel
	failureReason    *string
	createdAt        time.Time
	updatedAt        time.Time
	expiresAt        time.Time
	confirmedAt      *time.Time
}

type IntentParams struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	CartID           uuid.UUID
	Amount           int64
	Currency         money.Currency
	CouponCode       *string
	Status           Status
	GatewayOrderID   *string
	GatewayPaymentID *string
	ConfirmedVia     *Channel
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExpiresAt        time.Time
	ConfirmedAt      *time.Time
}

func NewIntent(userID, cartID uuid.UUID, amount int64, currency money.Currency, couponCode *string, now time.Time, ttl time.Duration) (*Intent, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Intent{
		id:         uuid.New(),
		userID:     userID,
		cartID:     cartID,
		amount:     amount,
		currency:   currency,
		couponCode: couponCode,
		status:     StatusCreated,
		createdAt:  now,
		updatedAt:  now,
		expiresAt:  now.Add(ttl),
	}, nil
}

func ReconstructIntent(p IntentParams) *Intent {
	return &Intent{
		id:               p.ID,
		userID:           p.UserID,
		cartID:           p.CartID,
		amount:           p.Amount,
		currency:         p.Currency,
		couponCode:       p.CouponCode,
		status:           p.Status,
		gatewayOrderID:   p.GatewayOrderID,
		gatewayPaymentID: p.GatewayPaymentID,
		confirmedVia:     p.ConfirmedVia,
		failureReason:    p.FailureReason,
		createdAt:        p.CreatedAt,
		updatedAt:        p.UpdatedAt,
		expiresAt:        p.ExpiresAt,
		confirmedAt:      p.ConfirmedAt,
	}
}

func (i *Intent) transition(next Status, now time.Time) error {
	if !i.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	i.status = next
	i.updatedAt = now
	return nil
}

func (i *Intent) MarkAwaiting(gatewayOrderID string, now time.Time) error {
	if strings.TrimSpace(gatewayOrderID) == "" {
		return ErrInvalidTransition
	}
	if err := i.transition(StatusAwaitingConfirmation, now); err != nil {
		return err
	}
	i.gatewayOrderID = &gatewayOrderID
	return nil
}

func (i *Intent) Confirm(gatewayPaymentID string, via Channel, now time.Time) error {
	if err := i.transition(StatusConfirmed, now); err != nil {
		return err
	}
	i.gatewayPaymentID = &gatewayPaymentID
	i.confirmedVia = &via
	i.confirmedAt = &now
	return nil
}

func (i *Intent) Fail(reason string, now time.Time) error {
	if err := i.transition(StatusFailed, now); err != nil {
		return err
	}
	i.failureReason = &reason
	return nil
}

func (i *Intent) Expire(now time.Time) error {
	return i.transition(StatusExpired, now)
}

// IsExpiredAt reports whether a live intent has outlived its TTL. The sweeper
// may not have flipped the status yet.
func (i *Intent) IsExpiredAt(now time.Time) bool {
	return i.status == StatusExpired || (i.status.IsLive() && !now.Before(i.expiresAt))
}

// ConfirmationError explains why a confirmation for this intent cannot be applied.
func (i *Intent) ConfirmationError() error {
	switch i.status {
	case StatusExpired:
		return ErrIntentExpired
	case StatusFailed:
		return ErrIntentNotConfirmable
	}
	return nil
}

func (i *Intent) ID() uuid.UUID                 { return i.id }
func (i *Intent) UserID() uuid.UUID             { return i.userID }
func (i *Intent) CartID() uuid.UUID             { return i.cartID }
func (i *Intent) Amount() int64                 { return i.amount }
func (i *Intent) Currency() money.Currency      { return i.currency }
func (i *Intent) CouponCode() *string           { return i.couponCode }
func (i *Intent) Status() Status                { return i.status }
func (i *Intent) GatewayOrderID() *string       { return i.gatewayOrderID }
func (i *Intent) GatewayPaymentID() *string     { return i.gatewayPaymentID }
func (i *Intent) ConfirmedVia() *Channel        { return i.confirmedVia }
func (i *Intent) FailureReason() *string        { return i.failureReason }
func (i *Intent) CreatedAt() time.Time          { return i.createdAt }
func (i *Intent) UpdatedAt() time.Time          { return i.updatedAt }
func (i *Intent) ExpiresAt() time.Time          { return i.expiresAt }
func (i *Intent) ConfirmedAt() *time.Time       { return i.confirmedAt }
func (i *Intent) OwnedBy(userID uuid.UUID) bool { return i.userID == userID }
