package request

import (
	"checkout-engine/internal/usecase/commands"
)

// VerifyPaymentRequest is what the checkout page posts after the gateway
// redirects the buyer back.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required,max=64"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required,max=64"`
	Signature        string `json:"signature" binding:"required,max=128"`
}

func (r *VerifyPaymentRequest) ToCommand() commands.VerifyPaymentRequest {
	return commands.VerifyPaymentRequest{
		GatewayOrderID:   r.GatewayOrderID,
		GatewayPaymentID: r.GatewayPaymentID,
		Signature:        r.Signature,
	}
}

type AnomalyListRequest struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
}
