package coupon

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Terms is the pricing side of a coupon, captured on the reservation so a paid
// intent can be re-priced after the coupon row has been edited or switched off.
type Terms struct {
	Code                  Code            `json:"code"`
	Kind                  Kind            `json:"kind"`
	Value                 decimal.Decimal `json:"value"`
	MaximumDiscount       *int64          `json:"maximum_discount,omitempty"`
	MinimumOrderValue     int64           `json:"minimum_order_value"`
	RestrictedProductIDs  []uuid.UUID     `json:"restricted_product_ids,omitempty"`
	RestrictedCategoryIDs []uuid.UUID     `json:"restricted_category_ids,omitempty"`
}

func (c *Coupon) Terms() Terms {
	return Terms{
		Code:                  c.code,
		Kind:                  c.discount.kind,
		Value:                 c.discount.Value(),
		MaximumDiscount:       c.discount.maximum,
		MinimumOrderValue:     c.minimumOrderValue,
		RestrictedProductIDs:  slices.Clone(c.restrictedProductIDs),
		RestrictedCategoryIDs: slices.Clone(c.restrictedCategoryIDs),
	}
}

// CouponAt rebuilds the coupon as an active one whose window is the single
// instant at. Activity and validity were already checked when the terms were
// captured; minimum and restrictions still apply.
func (t Terms) CouponAt(id uuid.UUID, at time.Time) (*Coupon, error) {
	var (
		discount Discount
		err      error
	)
	switch t.Kind {
	case KindPercentage:
		discount, err = NewPercentageDiscount(t.Value, t.MaximumDiscount)
	case KindFixed:
		discount, err = NewFixedDiscount(t.Value.IntPart())
	default:
		err = ErrInvalidDiscountKind
	}
	if err != nil {
		return nil, err
	}
	return NewCoupon(Params{
		ID:                    id,
		Code:                  t.Code,
		Discount:              discount,
		MinimumOrderValue:     t.MinimumOrderValue,
		ValidFrom:             at,
		ValidUntil:            at,
		IsActive:              true,
		RestrictedProductIDs:  t.RestrictedProductIDs,
		RestrictedCategoryIDs: t.RestrictedCategoryIDs,
	})
}
