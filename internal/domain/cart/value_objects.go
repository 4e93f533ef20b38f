package cart

import (
	"strings"

	"checkout-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

const (
	MinQuantity  = 1
	MaxQuantity  = 99
	MaxLines     = 100
	MaxUnitPrice = int64(1_000_000_000)
)

var (
	ErrInvalidQuantity  = errs.NewReason("INVALID_QUANTITY", errs.ErrValidation, "quantity must be between 1 and 99")
	ErrInvalidUnitPrice = errs.NewReason("INVALID_UNIT_PRICE", errs.ErrValidation, "unit price must be a non-negative amount")
	ErrInvalidProduct   = errs.NewReason("INVALID_PRODUCT", errs.ErrValidation, "product id is required")
	ErrTooManyLines     = errs.NewReason("TOO_MANY_LINES", errs.ErrValidation, "cart has too many lines")
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusFrozen     Status = "FROZEN"
	StatusCheckedOut Status = "CHECKED_OUT"
)

// Line captures the catalog price at the time the product was added.
type Line struct {
	productID  uuid.UUID
	variantID  *uuid.UUID
	categoryID *uuid.UUID
	name       string
	quantity   int
	unitPrice  int64
}

func NewLine(productID uuid.UUID, variantID, categoryID *uuid.UUID, name string, quantity int, unitPrice int64) (Line, error) {
	if productID == uuid.Nil {
		return Line{}, ErrInvalidProduct
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return Line{}, ErrInvalidQuantity
	}
	if unitPrice < 0 || unitPrice > MaxUnitPrice {
		return Line{}, ErrInvalidUnitPrice
	}
	return Line{
		productID:  productID,
		variantID:  variantID,
		categoryID: categoryID,
		name:       strings.TrimSpace(name),
		quantity:   quantity,
		unitPrice:  unitPrice,
	}, nil
}

func (l Line) ProductID() uuid.UUID   { return l.productID }
func (l Line) VariantID() *uuid.UUID  { return l.variantID }
func (l Line) CategoryID() *uuid.UUID { return l.categoryID }
func (l Line) Name() string           { return l.name }
func (l Line) Quantity() int          { return l.quantity }
func (l Line) UnitPrice() int64       { return l.unitPrice }

func (l Line) Total() int64 {
	return l.unitPrice * int64(l.quantity)
}

// SameItem reports whether both lines refer to the same product variant.
func (l Line) SameItem(productID uuid.UUID, variantID *uuid.UUID) bool {
	if l.productID != productID {
		return false
	}
	if l.variantID == nil || variantID == nil {
		return l.variantID == nil && variantID == nil
	}
	return *l.variantID == *variantID
}
