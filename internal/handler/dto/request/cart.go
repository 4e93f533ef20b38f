package request

import (
	"strings"

	"checkout-engine/internal/usecase/commands"

	"github.com/google/uuid"
)

type AddCartItemRequest struct {
	ProductID string  `json:"productId" binding:"required,uuid"`
	VariantID *string `json:"variantId,omitempty" binding:"omitempty,uuid"`
	Quantity  int     `json:"quantity" binding:"required,min=1,max=99"`
}

func (r *AddCartItemRequest) ToCommand() (commands.AddItemRequest, error) {
	productID, err := uuid.Parse(r.ProductID)
	if err != nil {
		return commands.AddItemRequest{}, err
	}
	variantID, err := ParseOptionalUUID(r.VariantID)
	if err != nil {
		return commands.AddItemRequest{}, err
	}
	return commands.AddItemRequest{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  r.Quantity,
	}, nil
}

type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,max=32"`
}

func (r *ApplyCouponRequest) GetCode() string {
	return strings.TrimSpace(r.Code)
}

func ParseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
