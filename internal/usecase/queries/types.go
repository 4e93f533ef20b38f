package queries

//go:generate mockgen -destination=../../testutil/mock/queries/queries_mock.go -package=mockqueries checkout-engine/internal/usecase/queries CartQueries,OrderQueries,PaymentQueries,ReconciliationQueries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)

type PricedLineView struct {
	ProductID  uuid.UUID  `json:"product_id"`
	VariantID  *uuid.UUID `json:"variant_id,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Name       string     `json:"name"`
	Quantity   int        `json:"quantity"`
	UnitPrice  int64      `json:"unit_price"`
	LineTotal  int64      `json:"line_total"`
	Discount   int64      `json:"discount"`
}

type CartView struct {
	ID         uuid.UUID        `json:"id"`
	Status     string           `json:"status"`
	Currency   string           `json:"currency"`
	CouponCode *string          `json:"coupon_code,omitempty"`
	Lines      []PricedLineView `json:"lines"`
	Subtotal   int64            `json:"subtotal"`
	Discount   int64            `json:"discount"`
	Total      int64            `json:"total"`
	// CouponRejection is the reason code when the applied coupon does not apply.
	CouponRejection *string   `json:"coupon_rejection,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type OrderLineView struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name"`
	Quantity  int32      `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
	LineTotal int64      `json:"line_total"`
	Discount  int64      `json:"discount"`
}

type OrderView struct {
	ID              uuid.UUID       `json:"id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	PaymentIntentID uuid.UUID       `json:"payment_intent_id"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	Subtotal        int64           `json:"subtotal"`
	Discount        int64           `json:"discount"`
	Total           int64           `json:"total"`
	CouponCode      *string         `json:"coupon_code,omitempty"`
	Lines           []OrderLineView `json:"lines"`
	CreatedAt       time.Time       `json:"created_at"`
}

type IntentView struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	CartID         uuid.UUID  `json:"cart_id"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	GatewayOrderID *string    `json:"gateway_order_id,omitempty"`
	ConfirmedVia   *string    `json:"confirmed_via,omitempty"`
	FailureReason  *string    `json:"failure_reason,omitempty"`
	OrderID        *uuid.UUID `json:"order_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
}

// AnomalyView is a CONFIRMED intent that has no order yet.
type AnomalyView struct {
	IntentID       uuid.UUID  `json:"intent_id"`
	UserID         uuid.UUID  `json:"user_id"`
	GatewayOrderID string     `json:"gateway_order_id"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	ConfirmedAt    time.Time  `json:"confirmed_at"`
	LastError      *string    `json:"last_error,omitempty"`
	LastErrorAt    *time.Time `json:"last_error_at,omitempty"`
}

type AuditEntryView struct {
	ID              int64      `json:"id"`
	GatewayOrderID  string     `json:"gateway_order_id"`
	PaymentIntentID *uuid.UUID `json:"payment_intent_id,omitempty"`
	Channel         string     `json:"channel"`
	Outcome         string     `json:"outcome"`
	Detail          string     `json:"detail,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}
