package response

import (
	"time"

	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type OrderLineResponse struct {
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Name      string     `json:"name"`
	Quantity  int32      `json:"quantity"`
	UnitPrice int64      `json:"unitPrice"`
	LineTotal int64      `json:"lineTotal"`
	Discount  int64      `json:"discount"`
}

type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	PaymentIntentID uuid.UUID           `json:"paymentIntentId"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	Subtotal        int64               `json:"subtotal"`
	Discount        int64               `json:"discount"`
	Total           int64               `json:"total"`
	CouponCode      *string             `json:"couponCode,omitempty"`
	Lines           []OrderLineResponse `json:"lines"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func FromOrderView(v *queries.OrderView) (*OrderResponse, error) {
	var resp OrderResponse
	if err := copier.Copy(&resp, v); err != nil {
		return nil, err
	}
	return &resp, nil
}
