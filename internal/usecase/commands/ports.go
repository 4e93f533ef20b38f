package commands

import (
	"context"

	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"
)

//go:generate mockgen -source=ports.go -destination=../../testutil/mock/commands/ports_mock.go -package=mockcommands

var (
	ErrGatewayUnavailable = errs.NewReason("GATEWAY_UNAVAILABLE", errs.ErrTransient, "payment gateway is unavailable")
	ErrGatewayRejected    = errs.NewReason("GATEWAY_REJECTED", errs.ErrBusinessRule, "payment gateway rejected the order")
	ErrLockUnavailable    = errs.NewReason("LOCK_UNAVAILABLE", errs.ErrTransient, "could not acquire the reconciliation lock")
)

type GatewayOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

// PaymentGateway creates gateway-side orders. Implementations must honour the
// context deadline and report timeouts and 5xx responses as ErrGatewayUnavailable.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
}

// IntentLocker serialises confirmations for one gateway order across processes.
type IntentLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, events []shared.OutboxEvent) error
}

type noopLocker struct{}

func NewNoopLocker() IntentLocker { return noopLocker{} }

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
