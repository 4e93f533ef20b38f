package coupon

import (
	"regexp"
	"strings"

	"checkout-engine/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCouponCode      = errs.NewReason("INVALID_COUPON_CODE", errs.ErrValidation, "invalid coupon code format")
	ErrInvalidDiscountKind    = errs.NewReason("INVALID_DISCOUNT_KIND", errs.ErrValidation, "discount kind must be percentage or fixed")
	ErrInvalidDiscountAmount  = errs.NewReason("INVALID_DISCOUNT_AMOUNT", errs.ErrValidation, "fixed discount must be a positive amount")
	ErrInvalidDiscountPercent = errs.NewReason("INVALID_DISCOUNT_PERCENT", errs.ErrValidation, "percentage discount must be greater than 0 and at most 100")
	ErrInvalidLimit           = errs.NewReason("INVALID_COUPON_LIMIT", errs.ErrValidation, "coupon limits must be positive")
	ErrInvalidValidityWindow  = errs.NewReason("INVALID_VALIDITY_WINDOW", errs.ErrValidation, "validUntil must not precede validFrom")
)

var couponCodeRegex = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

var hundred = decimal.NewFromInt(100)

type Code string

func NewCode(code string) (Code, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if !couponCodeRegex.MatchString(code) {
		return Code(""), ErrInvalidCouponCode
	}
	return Code(code), nil
}

func (c Code) String() string {
	return string(c)
}

type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

func NewKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindPercentage, KindFixed:
		return k, nil
	}
	return "", ErrInvalidDiscountKind
}

// Discount is either a percentage of the subtotal or a fixed amount in minor units.
type Discount struct {
	kind    Kind
	percent decimal.Decimal
	amount  int64
	maximum *int64
}

func NewPercentageDiscount(percent decimal.Decimal, maximum *int64) (Discount, error) {
	if !percent.IsPositive() || percent.GreaterThan(hundred) {
		return Discount{}, ErrInvalidDiscountPercent
	}
	if maximum != nil && *maximum < 0 {
		return Discount{}, ErrInvalidDiscountAmount
	}
	return Discount{kind: KindPercentage, percent: percent, maximum: maximum}, nil
}

func NewFixedDiscount(amount int64) (Discount, error) {
	if amount <= 0 {
		return Discount{}, ErrInvalidDiscountAmount
	}
	return Discount{kind: KindFixed, amount: amount}, nil
}

func (d Discount) Kind() Kind               { return d.kind }
func (d Discount) Percent() decimal.Decimal { return d.percent }
func (d Discount) Amount() int64            { return d.amount }
func (d Discount) Maximum() *int64          { return d.maximum }

// Value is the percentage for percentage discounts or the amount for fixed ones.
func (d Discount) Value() decimal.Decimal {
	if d.kind == KindPercentage {
		return d.percent
	}
	return decimal.NewFromInt(d.amount)
}

// AmountFor returns the discount for a subtotal in minor units. Percentages are
// rounded half-up to a whole minor unit before the cap is applied. The result
// never exceeds the subtotal.
func (d Discount) AmountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var amount int64
	switch d.kind {
	case KindPercentage:
		amount = decimal.NewFromInt(subtotal).
			Mul(d.percent).
			Div(hundred).
			Round(0).
			IntPart()
		if d.maximum != nil && amount > *d.maximum {
			amount = *d.maximum
		}
	case KindFixed:
		amount = d.amount
	}
	return min(amount, subtotal)
}
