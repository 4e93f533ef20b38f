package coupon

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Params struct {
	ID                    uuid.UUID
	Code                  Code
	Discount              Discount
	MinimumOrderValue     int64
	ValidFrom             time.Time
	ValidUntil            time.Time
	GlobalUsageLimit      *int
	PerUserLimit          *int
	IsActive              bool
	RestrictedProductIDs  []uuid.UUID
	RestrictedCategoryIDs []uuid.UUID
	CreatedAt             time.Time
}

type Coupon struct {
	id                    uuid.UUID
	code                  Code
	discount              Discount
	minimumOrderValue     int64
	validFrom             time.Time
	validUntil            time.Time
	globalUsageLimit      *int
	perUserLimit          *int
	isActive              bool
	restrictedProductIDs  []uuid.UUID
	restrictedCategoryIDs []uuid.UUID
	createdAt             time.Time
}

// Item is the part of a cart line a coupon restriction looks at.
type Item struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
}

func NewCoupon(p Params) (*Coupon, error) {
	if _, err := NewCode(p.Code.String()); err != nil {
		return nil, err
	}
	if p.Discount.kind == "" {
		return nil, ErrInvalidDiscountKind
	}
	if p.MinimumOrderValue < 0 {
		return nil, ErrInvalidDiscountAmount
	}
	if p.ValidUntil.Before(p.ValidFrom) {
		return nil, ErrInvalidValidityWindow
	}
	if (p.GlobalUsageLimit != nil && *p.GlobalUsageLimit <= 0) || (p.PerUserLimit != nil && *p.PerUserLimit <= 0) {
		return nil, ErrInvalidLimit
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return &Coupon{
		id:                    p.ID,
		code:                  p.Code,
		discount:              p.Discount,
		minimumOrderValue:     p.MinimumOrderValue,
		validFrom:             p.ValidFrom,
		validUntil:            p.ValidUntil,
		globalUsageLimit:      p.GlobalUsageLimit,
		perUserLimit:          p.PerUserLimit,
		isActive:              p.IsActive,
		restrictedProductIDs:  slices.Clone(p.RestrictedProductIDs),
		restrictedCategoryIDs: slices.Clone(p.RestrictedCategoryIDs),
		createdAt:             p.CreatedAt,
	}, nil
}

func (c *Coupon) IsRestricted() bool {
	return len(c.restrictedProductIDs) > 0 || len(c.restrictedCategoryIDs) > 0
}

// Covers reports whether the item falls inside the restriction set. An
// unrestricted coupon covers everything.
func (c *Coupon) Covers(item Item) bool {
	if !c.IsRestricted() {
		return true
	}
	if slices.Contains(c.restrictedProductIDs, item.ProductID) {
		return true
	}
	return item.CategoryID != nil && slices.Contains(c.restrictedCategoryIDs, *item.CategoryID)
}

// CheckApplicable validates the coupon against a cart. Checks run in a fixed
// order so the same cart always yields the same rejection reason.
func (c *Coupon) CheckApplicable(now time.Time, subtotal int64, items []Item) error {
	if !c.isActive {
		return ErrCouponInactive
	}
	if now.Before(c.validFrom) {
		return ErrCouponNotYetActive
	}
	if now.After(c.validUntil) {
		return ErrCouponExpired
	}
	if subtotal < c.minimumOrderValue {
		return ErrMinimumOrderValueNotMet
	}
	if c.IsRestricted() && !slices.ContainsFunc(items, c.Covers) {
		return ErrProductNotEligible
	}
	return nil
}

// CheckLimits compares live redemption counts against the configured caps.
func (c *Coupon) CheckLimits(globalUsed, userUsed int) error {
	if c.perUserLimit != nil && userUsed >= *c.perUserLimit {
		return ErrPerUserLimitReached
	}
	if c.globalUsageLimit != nil && globalUsed >= *c.globalUsageLimit {
		return ErrGlobalLimitReached
	}
	return nil
}

func (c *Coupon) DiscountFor(subtotal int64) int64 {
	return c.discount.AmountFor(subtotal)
}

func (c *Coupon) ID() uuid.UUID                      { return c.id }
func (c *Coupon) Code() Code                         { return c.code }
func (c *Coupon) Discount() Discount                 { return c.discount }
func (c *Coupon) MinimumOrderValue() int64           { return c.minimumOrderValue }
func (c *Coupon) ValidFrom() time.Time               { return c.validFrom }
func (c *Coupon) ValidUntil() time.Time              { return c.validUntil }
func (c *Coupon) GlobalUsageLimit() *int             { return c.globalUsageLimit }
func (c *Coupon) PerUserLimit() *int                 { return c.perUserLimit }
func (c *Coupon) IsActive() bool                     { return c.isActive }
func (c *Coupon) RestrictedProductIDs() []uuid.UUID  { return slices.Clone(c.restrictedProductIDs) }
func (c *Coupon) RestrictedCategoryIDs() []uuid.UUID { return slices.Clone(c.restrictedCategoryIDs) }
func (c *Coupon) CreatedAt() time.Time               { return c.createdAt }
