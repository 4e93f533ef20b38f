package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/pricing"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

const EventOrderPaid = "order.paid"

// OrderPaidEvent is the outbox payload handed to downstream consumers
// (fulfilment, stock) once an order exists.
type OrderPaidEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	PaymentIntentID uuid.UUID       `json:"payment_intent_id"`
	Total           int64           `json:"total"`
	Discount        int64           `json:"discount"`
	Currency        string          `json:"currency"`
	CouponCode      *string         `json:"coupon_code,omitempty"`
	Lines           []OrderPaidLine `json:"lines"`
	PaidAt          time.Time       `json:"paid_at"`
}

type OrderPaidLine struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

type OrderMaterializer interface {
	// Materialize turns a CONFIRMED intent into its order. Calling it again
	// for the same intent returns the existing order id.
	Materialize(ctx context.Context, intentID uuid.UUID) (uuid.UUID, error)
}

type orderMaterializer struct {
	uow    shared.UnitOfWork
	ledger CouponLedger
	clock  clock.Clock
	logger *slog.Logger
}

func NewOrderMaterializer(uow shared.UnitOfWork, ledger CouponLedger, clk clock.Clock, logger *slog.Logger) OrderMaterializer {
	return &orderMaterializer{uow: uow, ledger: ledger, clock: clk, logger: logger}
}

func (m *orderMaterializer) Materialize(ctx context.Context, intentID uuid.UUID) (uuid.UUID, error) {
	var (
		orderID uuid.UUID
		created bool
	)
	err := m.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := m.clock.Now()

		intent, err := tx.Intents().FindByID(ctx, intentID)
		if err != nil {
			return err
		}
		if intent.Status() != payment.StatusConfirmed {
			return order.ErrIntentNotConfirmed
		}

		existing, err := tx.Orders().FindIDByIntent(ctx, intentID)
		switch {
		case err == nil:
			orderID = existing
			return nil
		case !errs.Is(err, order.ErrOrderNotFound):
			return err
		}

		c, err := tx.Carts().FindByID(ctx, intent.CartID())
		if err != nil {
			return err
		}
		ev, err := priceIntent(ctx, tx, c, intent)
		if err != nil {
			return err
		}
		o, err := order.NewPaidOrder(intent, ev, now)
		if err != nil {
			return errs.Wrapf(err, "materialize intent %s", intentID)
		}

		id, inserted, err := tx.Orders().InsertIfAbsent(ctx, o)
		if err != nil {
			return err
		}
		orderID = id
		if !inserted {
			return nil
		}
		created = true

		if o.Discount() > 0 {
			if err := m.ledger.Confirm(ctx, tx, intentID, id, now); err != nil {
				return err
			}
		}
		if !c.IsCheckedOut() {
			if err := c.MarkCheckedOut(now); err != nil {
				return err
			}
			if err := tx.Carts().SaveStatus(ctx, c); err != nil {
				return err
			}
		}

		payload, err := json.Marshal(orderPaidEvent(o, now))
		if err != nil {
			return errs.Wrap(err, "encode order.paid event")
		}
		return tx.Outbox().Enqueue(ctx, shared.OutboxEvent{
			ID:          uuid.New(),
			Kind:        EventOrderPaid,
			AggregateID: id,
			Payload:     payload,
			RunAt:       now,
		})
	})
	if err != nil {
		return uuid.Nil, err
	}

	if created {
		m.logger.Info("order materialized", "order_id", orderID, "intent_id", intentID)
	}
	return orderID, nil
}

// priceIntent re-evaluates a frozen cart the way it was priced for the intent.
// The coupon comes from the terms captured on its reservation, never from the
// live coupon row, which may have been edited or deactivated since checkout.
func priceIntent(ctx context.Context, tx shared.Tx, c *cart.Cart, intent *payment.Intent) (pricing.Evaluation, error) {
	in := pricing.Input{
		Currency: c.Currency(),
		Lines:    c.Lines(),
		Now:      intent.CreatedAt(),
	}
	if intent.CouponCode() != nil {
		r, err := tx.Redemptions().FindByIntent(ctx, intent.ID())
		if err != nil {
			return pricing.Evaluation{}, errs.Wrapf(err, "coupon reservation for intent %s", intent.ID())
		}
		cp, err := r.ReservedCoupon()
		if err != nil {
			return pricing.Evaluation{}, errs.Wrapf(err, "coupon terms for intent %s", intent.ID())
		}
		code := cp.Code()
		in.CouponCode = &code
		in.Coupon = cp
		in.Now = r.ReservedAt()
	}
	return pricing.Evaluate(in), nil
}

func orderPaidEvent(o *order.Order, now time.Time) OrderPaidEvent {
	lines := o.Lines()
	out := make([]OrderPaidLine, len(lines))
	for i, l := range lines {
		out[i] = OrderPaidLine{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity}
	}
	return OrderPaidEvent{
		OrderID:         o.ID(),
		BuyerID:         o.BuyerID(),
		PaymentIntentID: o.PaymentIntentID(),
		Total:           o.Total(),
		Discount:        o.Discount(),
		Currency:        o.Currency().String(),
		CouponCode:      o.CouponCode(),
		Lines:           out,
		PaidAt:          now,
	}
}
