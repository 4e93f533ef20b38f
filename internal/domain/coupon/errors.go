package coupon

import (
	"errors"

	"checkout-engine/internal/pkg/errs"
)

// ErrCouponExhausted marks limit rejections, including the losers of a
// concurrent reservation race.
var ErrCouponExhausted = errors.New("coupon exhausted")

var (
	ErrCouponNotFound          = errs.NewReason("COUPON_NOT_FOUND", errs.ErrBusinessRule, "coupon not found")
	ErrCouponExpired           = errs.NewReason("COUPON_EXPIRED", errs.ErrBusinessRule, "coupon has expired")
	ErrCouponNotYetActive      = errs.NewReason("COUPON_NOT_YET_ACTIVE", errs.ErrBusinessRule, "coupon is not yet active")
	ErrCouponInactive          = errs.NewReason("COUPON_INACTIVE", errs.ErrBusinessRule, "coupon is inactive")
	ErrMinimumOrderValueNotMet = errs.NewReason("MINIMUM_ORDER_VALUE_NOT_MET", errs.ErrBusinessRule, "order subtotal is below the coupon minimum")
	ErrProductNotEligible      = errs.NewReason("PRODUCT_NOT_ELIGIBLE", errs.ErrBusinessRule, "no cart line is eligible for this coupon")
	ErrPerUserLimitReached     = errs.NewReason("PER_USER_LIMIT_REACHED", errs.ErrConflict, "coupon per-user limit reached", ErrCouponExhausted)
	ErrGlobalLimitReached      = errs.NewReason("GLOBAL_LIMIT_REACHED", errs.ErrConflict, "coupon global limit reached", ErrCouponExhausted)

	ErrRedemptionNotFound = errs.NewReason("REDEMPTION_NOT_FOUND", errs.ErrNotFound, "coupon reservation not found")
	ErrRedemptionSettled  = errs.NewReason("REDEMPTION_SETTLED", errs.ErrConflict, "coupon reservation is no longer reserved")
)
