package response

import (
	"time"

	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CartLineResponse struct {
	ProductID  uuid.UUID  `json:"productId"`
	VariantID  *uuid.UUID `json:"variantId,omitempty"`
	CategoryID *uuid.UUID `json:"categoryId,omitempty"`
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	UnitPrice  int64      `json:"unitPrice"`
	LineTotal  int64      `json:"lineTotal"`
	Discount   int64      `json:"discount"`
}

type CartResponse struct {
	ID              uuid.UUID          `json:"id"`
	Status          string             `json:"status"`
	Currency        string             `json:"currency"`
	CouponCode      *string            `json:"couponCode,omitempty"`
	CouponRejection *string            `json:"couponRejection,omitempty"`
	Lines           []CartLineResponse `json:"lines"`
	Subtotal        int64              `json:"subtotal"`
	Discount        int64              `json:"discount"`
	Total           int64              `json:"total"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func FromCartView(v *queries.CartView) (*CartResponse, error) {
	var resp CartResponse
	if err := copier.Copy(&resp, v); err != nil {
		return nil, err
	}
	if resp.Lines == nil {
		resp.Lines = []CartLineResponse{}
	}
	return &resp, nil
}
