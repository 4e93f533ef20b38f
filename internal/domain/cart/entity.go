package cart

import (
	"slices"
	"time"

	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrCartFrozen     = errs.NewReason("CART_FROZEN", errs.ErrConflict, "cart is frozen for checkout")
	ErrCartCheckedOut = errs.NewReason("CART_CHECKED_OUT", errs.ErrConflict, "cart has already been checked out")
	ErrCartNotFrozen  = errs.NewReason("CART_NOT_FROZEN", errs.ErrConflict, "cart is not frozen")
	ErrCartEmpty      = errs.NewReason("CART_EMPTY", errs.ErrValidation, "cart has no lines")
	ErrLineNotFound   = errs.NewReason("CART_LINE_NOT_FOUND", errs.ErrNotFound, "cart line not found")
	ErrCartNotFound   = errs.NewReason("CART_NOT_FOUND", errs.ErrNotFound, "cart not found")
)

type Cart struct {
	id         uuid.UUID
	ownerID    uuid.UUID
	status     Status
	currency   money.Currency
	lines      []Line
	couponCode *coupon.Code
	createdAt  time.Time
	updatedAt  time.Time
}

func NewCart(id, ownerID uuid.UUID, currency money.Currency, now time.Time) *Cart {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Cart{
		id:        id,
		ownerID:   ownerID,
		status:    StatusOpen,
		currency:  currency,
		createdAt: now,
		updatedAt: now,
	}
}

func ReconstructCart(
	id, ownerID uuid.UUID,
	status Status,
	currency money.Currency,
	lines []Line,
	couponCode *coupon.Code,
	createdAt, updatedAt time.Time,
) *Cart {
	return &Cart{
		id:         id,
		ownerID:    ownerID,
		status:     status,
		currency:   currency,
		lines:      lines,
		couponCode: couponCode,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (c *Cart) ensureMutable() error {
	switch c.status {
	case StatusFrozen:
		return ErrCartFrozen
	case StatusCheckedOut:
		return ErrCartCheckedOut
	}
	return nil
}

// AddLine merges quantities when the same product variant is already present
// and refreshes the unit price snapshot to the latest lookup.
func (c *Cart) AddLine(line Line, now time.Time) error {
	if err := c.ensureMutable(); err != nil {
		return err
	}
	for i, existing := range c.lines {
		if !existing.SameItem(line.productID, line.variantID) {
			continue
		}
		merged, err := NewLine(line.productID, line.variantID, line.categoryID, line.name, existing.quantity+line.quantity, line.unitPrice)
		if err != nil {
			return err
		}
		c.lines[i] = merged
		c.updatedAt = now
		return nil
	}
	if len(c.lines) >= MaxLines {
		return ErrTooManyLines
	}
	c.lines = append(c.lines, line)
	c.updatedAt = now
	return nil
}

func (c *Cart) RemoveLine(productID uuid.UUID, variantID *uuid.UUID, now time.Time) error {
	if err := c.ensureMutable(); err != nil {
		return err
	}
	idx := slices.IndexFunc(c.lines, func(l Line) bool { return l.SameItem(productID, variantID) })
	if idx < 0 {
		return ErrLineNotFound
	}
	c.lines = slices.Delete(c.lines, idx, idx+1)
	c.updatedAt = now
	return nil
}

func (c *Cart) ApplyCoupon(code coupon.Code, now time.Time) error {
	if err := c.ensureMutable(); err != nil {
		return err
	}
	c.couponCode = &code
	c.updatedAt = now
	return nil
}

func (c *Cart) ClearCoupon(now time.Time) error {
	if err := c.ensureMutable(); err != nil {
		return err
	}
	c.couponCode = nil
	c.updatedAt = now
	return nil
}

// Freeze locks the cart contents for checkout. Freezing a frozen cart is a no-op.
func (c *Cart) Freeze(now time.Time) error {
	switch c.status {
	case StatusFrozen:
		return nil
	case StatusCheckedOut:
		return ErrCartCheckedOut
	}
	if len(c.lines) == 0 {
		return ErrCartEmpty
	}
	c.status = StatusFrozen
	c.updatedAt = now
	return nil
}

// Reopen unlocks a frozen cart whose checkout attempts all ended without payment.
func (c *Cart) Reopen(now time.Time) error {
	if c.status != StatusFrozen {
		return ErrCartNotFrozen
	}
	c.status = StatusOpen
	c.updatedAt = now
	return nil
}

func (c *Cart) MarkCheckedOut(now time.Time) error {
	if c.status != StatusFrozen {
		return ErrCartNotFrozen
	}
	c.status = StatusCheckedOut
	c.updatedAt = now
	return nil
}

func (c *Cart) Subtotal() int64 {
	var sum int64
	for _, l := range c.lines {
		sum += l.Total()
	}
	return sum
}

func (c *Cart) ID() uuid.UUID             { return c.id }
func (c *Cart) OwnerID() uuid.UUID        { return c.ownerID }
func (c *Cart) Status() Status            { return c.status }
func (c *Cart) Currency() money.Currency  { return c.currency }
func (c *Cart) Lines() []Line             { return slices.Clone(c.lines) }
func (c *Cart) CouponCode() *coupon.Code  { return c.couponCode }
func (c *Cart) IsFrozen() bool            { return c.status == StatusFrozen }
func (c *Cart) IsCheckedOut() bool        { return c.status == StatusCheckedOut }
func (c *Cart) CreatedAt() time.Time      { return c.createdAt }
func (c *Cart) UpdatedAt() time.Time      { return c.updatedAt }
func (c *Cart) OwnedBy(id uuid.UUID) bool { return c.ownerID == id }
