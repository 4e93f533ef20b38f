package shared

import (
	"time"

	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound    = errs.NewReason("PRODUCT_NOT_FOUND", errs.ErrNotFound, "product not found")
	ErrProductUnavailable = errs.NewReason("PRODUCT_UNAVAILABLE", errs.ErrBusinessRule, "product is not available for sale")
)

// Minimal snapshot for catalog price lookups at cart-build time
type ProductSnapshot struct {
	ID         uuid.UUID
	VariantID  *uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	UnitPrice  int64
	Currency   money.Currency
	IsActive   bool
}

type ConfirmParams struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Channel          payment.Channel
	Now              time.Time
}

type AuditOutcome string

const (
	AuditConfirmed        AuditOutcome = "confirmed"
	AuditDuplicate        AuditOutcome = "duplicate"
	AuditLateConfirmation AuditOutcome = "late_confirmation"
	AuditUnknownIntent    AuditOutcome = "unknown_intent"
	AuditPaymentFailed    AuditOutcome = "payment_failed"
	AuditMaterializeError AuditOutcome = "materialize_error"
	AuditRematerialized   AuditOutcome = "rematerialized"

	// AuditOrphanDuplicate is a repeat confirmation of an intent that is
	// CONFIRMED but still has no order.
	AuditOrphanDuplicate AuditOutcome = "duplicate_without_order"
)

type AuditEntry struct {
	GatewayOrderID string
	IntentID       *uuid.UUID
	Channel        payment.Channel
	Outcome        AuditOutcome
	Detail         string
	OccurredAt     time.Time
}

const (
	OutboxQueued    = "queued"
	OutboxPublished = "published"
	OutboxFailed    = "failed"
)

type OutboxEvent struct {
	ID          uuid.UUID
	Kind        string
	AggregateID uuid.UUID
	Payload     []byte
	Attempts    int
	RunAt       time.Time
}
