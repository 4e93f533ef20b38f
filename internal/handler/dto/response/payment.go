package response

import (
	"time"

	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/commands"
	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CheckoutResponse struct {
	IntentID        uuid.UUID `json:"intentId"`
	GatewayOrderID  string    `json:"gatewayOrderId"`
	KeyID           string    `json:"keyId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Subtotal        int64     `json:"subtotal"`
	Discount        int64     `json:"discount"`
	CouponCode      *string   `json:"couponCode,omitempty"`
	CouponRejection *string   `json:"couponRejection,omitempty"`
	Replayed        bool      `json:"replayed"`
}

func FromCheckoutResult(r *commands.CheckoutResult) *CheckoutResponse {
	resp := &CheckoutResponse{
		IntentID:       r.IntentID,
		GatewayOrderID: r.GatewayOrderID,
		KeyID:          r.GatewayKeyID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Status:         string(r.Status),
		ExpiresAt:      r.ExpiresAt,
		Subtotal:       r.Pricing.Subtotal,
		Discount:       r.Pricing.Discount,
		Replayed:       r.Replayed,
	}
	if code := r.Pricing.CouponCode; code != nil {
		s := code.String()
		resp.CouponCode = &s
	}
	if reason, ok := errs.ReasonOf(r.Pricing.Rejection); ok {
		s := string(reason)
		resp.CouponRejection = &s
	}
	return resp
}

type VerifyResponse struct {
	Success          bool       `json:"success"`
	IntentID         uuid.UUID  `json:"intentId"`
	OrderID          *uuid.UUID `json:"orderId,omitempty"`
	Status           string     `json:"status"`
	AlreadyConfirmed bool       `json:"alreadyConfirmed"`
}

func FromConfirmation(r *commands.ConfirmationResult) *VerifyResponse {
	return &VerifyResponse{
		Success:          true,
		IntentID:         r.IntentID,
		OrderID:          r.OrderID,
		Status:           string(r.Status),
		AlreadyConfirmed: r.AlreadyConfirmed,
	}
}

// WebhookResponse is always sent with 200 once the signature checks out, so
// the gateway stops redelivering. Rejections carry a reason code.
type WebhookResponse struct {
	Event    string     `json:"event,omitempty"`
	Outcome  string     `json:"outcome"`
	Code     string     `json:"code,omitempty"`
	IntentID *uuid.UUID `json:"intentId,omitempty"`
	OrderID  *uuid.UUID `json:"orderId,omitempty"`
}

func FromWebhookResult(r *commands.WebhookResult) *WebhookResponse {
	return &WebhookResponse{
		Event:    r.Event,
		Outcome:  string(r.Outcome),
		IntentID: r.IntentID,
		OrderID:  r.OrderID,
	}
}

func WebhookRejected(err error) *WebhookResponse {
	resp := &WebhookResponse{Outcome: "rejected"}
	if reason, ok := errs.ReasonOf(err); ok {
		resp.Code = string(reason)
	}
	return resp
}

type IntentResponse struct {
	ID             uuid.UUID  `json:"id"`
	CartID         uuid.UUID  `json:"cartId"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	GatewayOrderID *string    `json:"gatewayOrderId,omitempty"`
	ConfirmedVia   *string    `json:"confirmedVia,omitempty"`
	FailureReason  *string    `json:"failureReason,omitempty"`
	OrderID        *uuid.UUID `json:"orderId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
}

func FromIntentView(v *queries.IntentView) (*IntentResponse, error) {
	var resp IntentResponse
	if err := copier.Copy(&resp, v); err != nil {
		return nil, err
	}
	return &resp, nil
}
