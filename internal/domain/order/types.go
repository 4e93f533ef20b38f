package order

import "checkout-engine/internal/pkg/errs"

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusProcessing     Status = "PROCESSING"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing:     {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:        {StatusDelivered, StatusRefunded},
	StatusDelivered:      {StatusRefunded},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; ok || st == StatusCancelled || st == StatusRefunded {
		return st, nil
	}
	return "", ErrInvalidStatus
}

var (
	ErrInvalidStatus      = errs.NewReason("INVALID_ORDER_STATUS", errs.ErrValidation, "unknown order status")
	ErrInvalidTransition  = errs.NewReason("INVALID_ORDER_TRANSITION", errs.ErrConflict, "order cannot move to the requested status")
	ErrOrderNotFound      = errs.NewReason("ORDER_NOT_FOUND", errs.ErrNotFound, "order not found")
	ErrOrderNotOwned      = errs.NewReason("ORDER_NOT_OWNED", errs.ErrForbidden, "order belongs to another buyer")
	ErrIntentNotConfirmed = errs.NewReason("INTENT_NOT_CONFIRMED", errs.ErrConflict, "orders can only be created from a confirmed payment intent")
	ErrAmountMismatch     = errs.NewReason("AMOUNT_MISMATCH", errs.ErrInconsistent, "re-evaluated total differs from the charged amount")
	ErrPricingRejected    = errs.NewReason("PRICING_REJECTED", errs.ErrInconsistent, "frozen cart no longer prices cleanly")
)
