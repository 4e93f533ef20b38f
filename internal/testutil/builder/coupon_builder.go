//go:build unit || integration

package builder

import (
	"time"

	"checkout-engine/internal/domain/coupon"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CouponBuilder struct {
	ID                    uuid.UUID
	Code                  string
	Kind                  coupon.Kind
	Percent               decimal.Decimal
	FixedAmount           int64
	MaximumDiscount       *int64
	MinimumOrderValue     int64
	ValidFrom             time.Time
	ValidUntil            time.Time
	GlobalUsageLimit      *int
	PerUserLimit          *int
	IsActive              bool
	RestrictedProductIDs  []uuid.UUID
	RestrictedCategoryIDs []uuid.UUID
}

var ReferenceTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewCouponBuilder defaults to PERCENT10: 10% off, active around ReferenceTime, no limits.
func NewCouponBuilder() *CouponBuilder {
	return &CouponBuilder{
		ID:         uuid.New(),
		Code:       "PERCENT10",
		Kind:       coupon.KindPercentage,
		Percent:    decimal.NewFromInt(10),
		ValidFrom:  ReferenceTime.Add(-24 * time.Hour),
		ValidUntil: ReferenceTime.Add(24 * time.Hour),
		IsActive:   true,
	}
}

func (b *CouponBuilder) With(mutate func(*CouponBuilder)) *CouponBuilder {
	mutate(b)
	return b
}

func (b *CouponBuilder) Fixed(code string, amount int64) *CouponBuilder {
	b.Code = code
	b.Kind = coupon.KindFixed
	b.FixedAmount = amount
	return b
}

func (b *CouponBuilder) Percentage(code string, percent int64, maximum *int64) *CouponBuilder {
	b.Code = code
	b.Kind = coupon.KindPercentage
	b.Percent = decimal.NewFromInt(percent)
	b.MaximumDiscount = maximum
	return b
}

func (b *CouponBuilder) WithGlobalLimit(n int) *CouponBuilder {
	b.GlobalUsageLimit = &n
	return b
}

func (b *CouponBuilder) WithPerUserLimit(n int) *CouponBuilder {
	b.PerUserLimit = &n
	return b
}

func (b *CouponBuilder) BuildDomain() (*coupon.Coupon, error) {
	var (
		discount coupon.Discount
		err      error
	)
	if b.Kind == coupon.KindFixed {
		discount, err = coupon.NewFixedDiscount(b.FixedAmount)
	} else {
		discount, err = coupon.NewPercentageDiscount(b.Percent, b.MaximumDiscount)
	}
	if err != nil {
		return nil, err
	}
	return coupon.NewCoupon(coupon.Params{
		ID:                    b.ID,
		Code:                  coupon.Code(b.Code),
		Discount:              discount,
		MinimumOrderValue:     b.MinimumOrderValue,
		ValidFrom:             b.ValidFrom,
		ValidUntil:            b.ValidUntil,
		GlobalUsageLimit:      b.GlobalUsageLimit,
		PerUserLimit:          b.PerUserLimit,
		IsActive:              b.IsActive,
		RestrictedProductIDs:  b.RestrictedProductIDs,
		RestrictedCategoryIDs: b.RestrictedCategoryIDs,
		CreatedAt:             b.ValidFrom,
	})
}

func (b *CouponBuilder) MustBuild() *coupon.Coupon {
	c, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return c
}

func Int64(v int64) *int64 { return &v }
