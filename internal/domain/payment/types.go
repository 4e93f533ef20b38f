package payment

import "checkout-engine/internal/pkg/errs"

type Status string

const (
	StatusCreated              Status = "CREATED"
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusConfirmed            Status = "CONFIRMED"
	StatusFailed               Status = "FAILED"
	StatusExpired              Status = "EXPIRED"
)

var transitions = map[Status][]Status{
	StatusCreated:              {StatusAwaitingConfirmation, StatusConfirmed, StatusFailed, StatusExpired},
	StatusAwaitingConfirmation: {StatusConfirmed, StatusExpired},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsLive reports whether a confirmation may still be accepted.
func (s Status) IsLive() bool {
	return s == StatusCreated || s == StatusAwaitingConfirmation
}

func (s Status) IsTerminal() bool {
	return !s.IsLive()
}

// ConfirmableStatuses is the guard set of the conditional confirmation update.
func ConfirmableStatuses() []Status {
	return []Status{StatusCreated, StatusAwaitingConfirmation}
}

// Channel identifies how a confirmation reached the system.
type Channel string

const (
	ChannelClientVerify Channel = "client_verify"
	ChannelWebhook      Channel = "webhook"
	ChannelOperator     Channel = "operator"
)

var (
	ErrInvalidTransition       = errs.NewReason("INVALID_INTENT_TRANSITION", errs.ErrConflict, "payment intent cannot move to the requested status")
	ErrIntentNotFound          = errs.NewReason("INTENT_NOT_FOUND", errs.ErrNotFound, "payment intent not found")
	ErrIntentExpired           = errs.NewReason("INTENT_EXPIRED", errs.ErrConflict, "payment intent has expired")
	ErrIntentNotConfirmable    = errs.NewReason("INTENT_NOT_CONFIRMABLE", errs.ErrConflict, "payment intent can no longer be confirmed")
	ErrIntentNotOwned          = errs.NewReason("INTENT_NOT_OWNED", errs.ErrForbidden, "payment intent belongs to another buyer")
	ErrInvalidAmount           = errs.NewReason("INVALID_AMOUNT", errs.ErrValidation, "payable amount must be positive")
	ErrInvalidSignature        = errs.NewReason("INVALID_SIGNATURE", errs.ErrSecurity, "payment signature verification failed")
	ErrInvalidWebhookSignature = errs.NewReason("INVALID_WEBHOOK_SIGNATURE", errs.ErrSecurity, "webhook signature verification failed")
)
