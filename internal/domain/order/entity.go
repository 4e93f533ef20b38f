package order

import (
	"slices"
	"time"

	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/pricing"

	"github.com/google/uuid"
)

// Line is an immutable snapshot of a cart line at confirmation time.
type Line struct {
	ProductID  uuid.UUID
	VariantID  *uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  int64
	LineTotal  int64
	Discount   int64
}

type Order struct {
	id              uuid.UUID
	buyerID         uuid.UUID
	cartID          uuid.UUID
	paymentIntentID uuid.UUID
	lines           []Line
	subtotal        int64
	discount        int64
	total           int64
	currency        money.Currency
	couponCode      *string
	status          Status
	createdAt       time.Time
	updatedAt       time.Time
}

type Params struct {
	ID              uuid.UUID
	BuyerID         uuid.UUID
	CartID          uuid.UUID
	PaymentIntentID uuid.UUID
	Lines           []Line
	Subtotal        int64
	Discount        int64
	Total           int64
	Currency        money.Currency
	CouponCode      *string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPaidOrder materialises an order from a confirmed intent and the
// re-evaluated price of its frozen cart. The evaluation must reproduce the
// amount the buyer was charged.
func NewPaidOrder(intent *payment.Intent, ev pricing.Evaluation, now time.Time) (*Order, error) {
	if intent.Status() != payment.StatusConfirmed {
		return nil, ErrIntentNotConfirmed
	}
	if ev.Rejection != nil {
		return nil, ErrPricingRejected
	}
	if ev.Total != intent.Amount() || ev.Currency != intent.Currency() {
		return nil, ErrAmountMismatch
	}

	lines := make([]Line, len(ev.Lines))
	for i, l := range ev.Lines {
		lines[i] = Line{
			ProductID:  l.ProductID,
			VariantID:  l.VariantID,
			CategoryID: l.CategoryID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.LineTotal,
			Discount:   l.Discount,
		}
	}

	var code *string
	if ev.HasDiscount() && ev.CouponCode != nil {
		c := ev.CouponCode.String()
		code = &c
	}

	return &Order{
		id:              uuid.New(),
		buyerID:         intent.UserID(),
		cartID:          intent.CartID(),
		paymentIntentID: intent.ID(),
		lines:           lines,
		subtotal:        ev.Subtotal,
		discount:        ev.Discount,
		total:           ev.Total,
		currency:        ev.Currency,
		couponCode:      code,
		status:          StatusPaid,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

func Reconstruct(p Params) *Order {
	return &Order{
		id:              p.ID,
		buyerID:         p.BuyerID,
		cartID:          p.CartID,
		paymentIntentID: p.PaymentIntentID,
		lines:           p.Lines,
		subtotal:        p.Subtotal,
		discount:        p.Discount,
		total:           p.Total,
		currency:        p.Currency,
		couponCode:      p.CouponCode,
		status:          p.Status,
		createdAt:       p.CreatedAt,
		updatedAt:       p.UpdatedAt,
	}
}

func (o *Order) TransitionTo(next Status, now time.Time) error {
	if !o.status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.status = next
	o.updatedAt = now
	return nil
}

func (o *Order) ID() uuid.UUID              { return o.id }
func (o *Order) BuyerID() uuid.UUID         { return o.buyerID }
func (o *Order) CartID() uuid.UUID          { return o.cartID }
func (o *Order) PaymentIntentID() uuid.UUID { return o.paymentIntentID }
func (o *Order) Lines() []Line              { return slices.Clone(o.lines) }
func (o *Order) Subtotal() int64            { return o.subtotal }
func (o *Order) Discount() int64            { return o.discount }
func (o *Order) Total() int64               { return o.total }
func (o *Order) Currency() money.Currency   { return o.currency }
func (o *Order) CouponCode() *string        { return o.couponCode }
func (o *Order) Status() Status             { return o.status }
func (o *Order) CreatedAt() time.Time       { return o.createdAt }
func (o *Order) UpdatedAt() time.Time       { return o.updatedAt }
