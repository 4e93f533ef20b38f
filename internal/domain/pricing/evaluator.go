// Package pricing computes cart totals and coupon discounts. Evaluate is a pure
// function: the same lines, coupon and instant always produce the same result.
package pricing

import (
	"cmp"
	"slices"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Input struct {
	Currency money.Currency
	Lines    []cart.Line
	// CouponCode is what the buyer entered. Coupon is nil when the code did not resolve.
	CouponCode *coupon.Code
	Coupon     *coupon.Coupon
	Now        time.Time
}

type LineBreakdown struct {
	ProductID  uuid.UUID
	VariantID  *uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  int64
	LineTotal  int64
	Discount   int64
	NetTotal   int64
	Eligible   bool
}

type Evaluation struct {
	Currency   money.Currency
	Subtotal   int64
	Discount   int64
	Total      int64
	CouponCode *coupon.Code
	Lines      []LineBreakdown
	// Rejection is set when a coupon was entered but could not be applied.
	Rejection error
}

func (e Evaluation) HasDiscount() bool {
	return e.Rejection == nil && e.Discount > 0
}

func Evaluate(in Input) Evaluation {
	ev := Evaluation{
		Currency:   in.Currency,
		CouponCode: in.CouponCode,
		Lines:      make([]LineBreakdown, len(in.Lines)),
	}

	items := make([]coupon.Item, len(in.Lines))
	for i, l := range in.Lines {
		total := l.Total()
		ev.Subtotal += total
		ev.Lines[i] = LineBreakdown{
			ProductID:  l.ProductID(),
			VariantID:  l.VariantID(),
			CategoryID: l.CategoryID(),
			Name:       l.Name(),
			Quantity:   l.Quantity(),
			UnitPrice:  l.UnitPrice(),
			LineTotal:  total,
			NetTotal:   total,
		}
		items[i] = coupon.Item{ProductID: l.ProductID(), CategoryID: l.CategoryID()}
	}
	ev.Total = ev.Subtotal

	if in.CouponCode == nil {
		return ev
	}
	if in.Coupon == nil {
		ev.Rejection = coupon.ErrCouponNotFound
		return ev
	}
	if err := in.Coupon.CheckApplicable(in.Now, ev.Subtotal, items); err != nil {
		ev.Rejection = err
		return ev
	}

	// Restricted coupons discount only the eligible part of the cart.
	var eligible int64
	for i, it := range items {
		ev.Lines[i].Eligible = in.Coupon.Covers(it)
		if ev.Lines[i].Eligible {
			eligible += ev.Lines[i].LineTotal
		}
	}
	ev.Discount = in.Coupon.DiscountFor(eligible)
	ev.Total = max(ev.Subtotal-ev.Discount, 0)
	allocate(ev.Lines, ev.Discount)
	return ev
}

// allocate spreads the discount over eligible lines in proportion to their
// totals using the largest-remainder method, so allocations sum exactly to
// the discount and no line goes below zero.
func allocate(lines []LineBreakdown, discount int64) {
	if discount <= 0 {
		return
	}
	var base int64
	for _, l := range lines {
		if l.Eligible {
			base += l.LineTotal
		}
	}
	if base == 0 {
		return
	}

	type share struct {
		idx int
		rem decimal.Decimal
	}
	var (
		shares    []share
		allocated int64
		total     = decimal.NewFromInt(discount)
		divisor   = decimal.NewFromInt(base)
	)
	for i, l := range lines {
		if !l.Eligible || l.LineTotal == 0 {
			continue
		}
		q, r := total.Mul(decimal.NewFromInt(l.LineTotal)).QuoRem(divisor, 0)
		lines[i].Discount = q.IntPart()
		allocated += lines[i].Discount
		shares = append(shares, share{idx: i, rem: r})
	}

	slices.SortStableFunc(shares, func(a, b share) int {
		return cmp.Compare(0, a.rem.Cmp(b.rem))
	})
	for left := discount - allocated; left > 0; {
		progressed := false
		for _, s := range shares {
			if left == 0 {
				break
			}
			if lines[s.idx].Discount < lines[s.idx].LineTotal {
				lines[s.idx].Discount++
				left--
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	for i := range lines {
		lines[i].NetTotal = lines[i].LineTotal - lines[i].Discount
	}
}
