package shared

import (
	"context"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/payment"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Read-committed write transaction with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinSerializable: Serializable transaction for read-modify-write on shared counters
	WithinSerializable(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: Read-only transaction for multi-table consistent reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Carts() CartRepository
	Catalog() CatalogReader
	Coupons() CouponRepository
	Redemptions() RedemptionRepository
	Intents() IntentRepository
	Orders() OrderRepository
	Audit() AuditRepository
	Outbox() OutboxRepository
	// AdvisoryLock blocks until the transaction-scoped lock for key is held.
	AdvisoryLock(ctx context.Context, key string) error
}

type CartRepository interface {
	FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error)
	LockActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error)
	Save(ctx context.Context, c *cart.Cart) error
	SaveStatus(ctx context.Context, c *cart.Cart) error
}

type CatalogReader interface {
	ProductByID(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*ProductSnapshot, error)
}

type CouponRepository interface {
	FindByCode(ctx context.Context, code coupon.Code) (*coupon.Coupon, error)
	// LockByCode takes a row lock so concurrent reservations serialise on the coupon.
	LockByCode(ctx context.Context, code coupon.Code) (*coupon.Coupon, error)
}

type RedemptionRepository interface {
	CountLive(ctx context.Context, couponID, userID uuid.UUID) (global int, perUser int, err error)
	Insert(ctx context.Context, r *coupon.Redemption) error
	FindByIntent(ctx context.Context, intentID uuid.UUID) (*coupon.Redemption, error)
	MarkConfirmed(ctx context.Context, intentID, orderID uuid.UUID, now time.Time) (bool, error)
	MarkReleased(ctx context.Context, intentID uuid.UUID, now time.Time) (bool, error)
}

type IntentRepository interface {
	Insert(ctx context.Context, in *payment.Intent) error
	FindByID(ctx context.Context, id uuid.UUID) (*payment.Intent, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*payment.Intent, error)
	ListByCart(ctx context.Context, cartID uuid.UUID) ([]*payment.Intent, error)
	MarkAwaiting(ctx context.Context, id uuid.UUID, gatewayOrderID string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	Expire(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// ConfirmByGatewayOrderID is the single conditional write deciding the winner.
	// It returns the confirmed intent and true only for the caller whose update
	// moved the row out of a confirmable status.
	ConfirmByGatewayOrderID(ctx context.Context, p ConfirmParams) (*payment.Intent, bool, error)
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type OrderRepository interface {
	// InsertIfAbsent returns the existing order id when one already exists for the intent.
	InsertIfAbsent(ctx context.Context, o *order.Order) (uuid.UUID, bool, error)
	FindIDByIntent(ctx context.Context, intentID uuid.UUID) (uuid.UUID, error)
}

type AuditRepository interface {
	Record(ctx context.Context, e AuditEntry) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, e OutboxEvent) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, now time.Time) error
	MarkRetry(ctx context.Context, id uuid.UUID, lastError string, runAt time.Time, maxAttempts int) error
}
