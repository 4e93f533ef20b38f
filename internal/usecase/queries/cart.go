package queries

import (
	"context"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/pricing"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type CartQueries interface {
	// GetCart returns the buyer's active cart priced as of now.
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
}

type cartQueriesImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewCartQueries(uow shared.UnitOfWork, clk clock.Clock) CartQueries {
	return &cartQueriesImpl{uow: uow, clock: clk}
}

func (q *cartQueriesImpl) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	var view *CartView
	err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		c, err := tx.Carts().FindActiveByOwner(ctx, userID)
		if err != nil {
			return err
		}

		in := pricing.Input{
			Currency:   c.Currency(),
			Lines:      c.Lines(),
			CouponCode: c.CouponCode(),
			Now:        q.clock.Now(),
		}
		if code := c.CouponCode(); code != nil {
			cp, err := tx.Coupons().FindByCode(ctx, *code)
			switch {
			case err == nil:
				in.Coupon = cp
			case !errs.Is(err, coupon.ErrCouponNotFound):
				return err
			}
		}

		view = toCartView(c, pricing.Evaluate(in))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func toCartView(c *cart.Cart, ev pricing.Evaluation) *CartView {
	lines := make([]PricedLineView, len(ev.Lines))
	for i, l := range ev.Lines {
		lines[i] = PricedLineView{
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

	v := &CartView{
		ID:        c.ID(),
		Status:    string(c.Status()),
		Currency:  c.Currency().String(),
		Lines:     lines,
		Subtotal:  ev.Subtotal,
		Discount:  ev.Discount,
		Total:     ev.Total,
		UpdatedAt: c.UpdatedAt(),
	}
	if code := c.CouponCode(); code != nil {
		s := code.String()
		v.CouponCode = &s
	}
	if ev.Rejection != nil {
		if reason, ok := errs.ReasonOf(ev.Rejection); ok {
			s := string(reason)
			v.CouponRejection = &s
		}
	}
	return v
}
