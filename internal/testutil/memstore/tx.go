//go:build unit || integration

package memstore

import (
	"context"
	"slices"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type memTx struct {
	s *Store
}

func (t *memTx) Carts() shared.CartRepository             { return cartRepo{t.s} }
func (t *memTx) Catalog() shared.CatalogReader            { return catalogRepo{t.s} }
func (t *memTx) Coupons() shared.CouponRepository         { return couponRepo{t.s} }
func (t *memTx) Redemptions() shared.RedemptionRepository { return redemptionRepo{t.s} }
func (t *memTx) Intents() shared.IntentRepository         { return intentRepo{t.s} }
func (t *memTx) Orders() shared.OrderRepository           { return orderRepo{t.s} }
func (t *memTx) Audit() shared.AuditRepository            { return auditRepo{t.s} }
func (t *memTx) Outbox() shared.OutboxRepository          { return outboxRepo{t.s} }

func (t *memTx) AdvisoryLock(context.Context, string) error { return nil }

// --- carts ---

type cartRepo struct{ s *Store }

func (r cartRepo) FindActiveByOwner(_ context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	if c := r.s.activeCart(ownerID); c != nil {
		return cloneCart(c), nil
	}
	return nil, cart.ErrCartNotFound
}

func (r cartRepo) LockActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	return r.FindActiveByOwner(ctx, ownerID)
}

func (r cartRepo) FindByID(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	if c, ok := r.s.state.carts[id]; ok {
		return cloneCart(c), nil
	}
	return nil, cart.ErrCartNotFound
}

func (r cartRepo) Save(_ context.Context, c *cart.Cart) error {
	if existing := r.s.activeCart(c.OwnerID()); existing != nil && existing.ID() != c.ID() {
		return infra.WrapRepoErr("save cart", errDuplicate, infra.KindDuplicateKey)
	}
	r.s.state.carts[c.ID()] = cloneCart(c)
	return nil
}

func (r cartRepo) SaveStatus(_ context.Context, c *cart.Cart) error {
	stored, ok := r.s.state.carts[c.ID()]
	if !ok {
		return cart.ErrCartNotFound
	}
	r.s.state.carts[c.ID()] = cart.ReconstructCart(stored.ID(), stored.OwnerID(), c.Status(), stored.Currency(), stored.Lines(), stored.CouponCode(), stored.CreatedAt(), c.UpdatedAt())
	return nil
}

// --- catalog ---

type catalogRepo struct{ s *Store }

func (r catalogRepo) ProductByID(_ context.Context, productID uuid.UUID, variantID *uuid.UUID) (*shared.ProductSnapshot, error) {
	p, ok := r.s.state.products[keyOf(productID, variantID)]
	if !ok {
		return nil, shared.ErrProductNotFound
	}
	return &p, nil
}

// --- coupons ---

type couponRepo struct{ s *Store }

func (r couponRepo) FindByCode(_ context.Context, code coupon.Code) (*coupon.Coupon, error) {
	if c, ok := r.s.state.coupons[code]; ok {
		return c, nil
	}
	return nil, coupon.ErrCouponNotFound
}

func (r couponRepo) LockByCode(ctx context.Context, code coupon.Code) (*coupon.Coupon, error) {
	return r.FindByCode(ctx, code)
}

// --- redemptions, keyed by intent ---

type redemptionRepo struct{ s *Store }

func (r redemptionRepo) CountLive(_ context.Context, couponID, userID uuid.UUID) (int, int, error) {
	global, perUser := 0, 0
	for _, red := range r.s.state.redemptions {
		if red.CouponID() != couponID || !red.Status().CountsTowardLimit() {
			continue
		}
		global++
		if red.UserID() == userID {
			perUser++
		}
	}
	return global, perUser, nil
}

func (r redemptionRepo) Insert(_ context.Context, red *coupon.Redemption) error {
	if _, ok := r.s.state.redemptions[red.IntentID()]; ok {
		return infra.WrapRepoErr("insert redemption", errDuplicate, infra.KindDuplicateKey)
	}
	r.s.state.redemptions[red.IntentID()] = red
	return nil
}

func (r redemptionRepo) FindByIntent(_ context.Context, intentID uuid.UUID) (*coupon.Redemption, error) {
	if red, ok := r.s.state.redemptions[intentID]; ok {
		return red, nil
	}
	return nil, coupon.ErrRedemptionNotFound
}

func (r redemptionRepo) MarkConfirmed(_ context.Context, intentID, orderID uuid.UUID, now time.Time) (bool, error) {
	return r.settle(intentID, coupon.RedemptionConfirmed, &orderID, now), nil
}

func (r redemptionRepo) MarkReleased(_ context.Context, intentID uuid.UUID, now time.Time) (bool, error) {
	return r.settle(intentID, coupon.RedemptionReleased, nil, now), nil
}

func (r redemptionRepo) settle(intentID uuid.UUID, to coupon.RedemptionStatus, orderID *uuid.UUID, now time.Time) bool {
	red, ok := r.s.state.redemptions[intentID]
	if !ok || red.Status() != coupon.RedemptionReserved {
		return false
	}
	r.s.state.redemptions[intentID] = coupon.ReconstructRedemption(
		red.ID(), red.CouponID(), red.UserID(), red.IntentID(), orderID, to, red.Terms(), red.ReservedAt(), timePtr(now))
	return true
}

// --- intents ---

type intentRepo struct{ s *Store }

func (r intentRepo) Insert(_ context.Context, in *payment.Intent) error {
	if _, ok := r.s.state.intents[in.ID()]; ok {
		return infra.WrapRepoErr("insert intent", errDuplicate, infra.KindDuplicateKey)
	}
	r.s.state.intents[in.ID()] = cloneIntent(in)
	return nil
}

func (r intentRepo) FindByID(_ context.Context, id uuid.UUID) (*payment.Intent, error) {
	if in, ok := r.s.state.intents[id]; ok {
		return cloneIntent(in), nil
	}
	return nil, payment.ErrIntentNotFound
}

func (r intentRepo) FindByGatewayOrderID(_ context.Context, gatewayOrderID string) (*payment.Intent, error) {
	if in := r.byGatewayOrder(gatewayOrderID); in != nil {
		return cloneIntent(in), nil
	}
	return nil, payment.ErrIntentNotFound
}

func (r intentRepo) byGatewayOrder(gatewayOrderID string) *payment.Intent {
	for _, in := range r.s.state.intents {
		if id := in.GatewayOrderID(); id != nil && *id == gatewayOrderID {
			return in
		}
	}
	return nil
}

func (r intentRepo) ListByCart(_ context.Context, cartID uuid.UUID) ([]*payment.Intent, error) {
	var out []*payment.Intent
	for _, in := range r.s.state.intents {
		if in.CartID() == cartID {
			out = append(out, cloneIntent(in))
		}
	}
	slices.SortFunc(out, func(a, b *payment.Intent) int { return a.CreatedAt().Compare(b.CreatedAt()) })
	return out, nil
}

func (r intentRepo) update(id uuid.UUID, allowed []payment.Status, mutate func(*payment.Intent) error) (*payment.Intent, bool, error) {
	in, ok := r.s.state.intents[id]
	if !ok || !slices.Contains(allowed, in.Status()) {
		return nil, false, nil
	}
	next := cloneIntent(in)
	if err := mutate(next); err != nil {
		return nil, false, err
	}
	r.s.state.intents[id] = next
	return cloneIntent(next), true, nil
}

func (r intentRepo) MarkAwaiting(_ context.Context, id uuid.UUID, gatewayOrderID string, now time.Time) (bool, error) {
	if other := r.byGatewayOrder(gatewayOrderID); other != nil && other.ID() != id {
		return false, infra.WrapRepoErr("mark intent awaiting", errDuplicate, infra.KindDuplicateKey)
	}
	_, ok, err := r.update(id, []payment.Status{payment.StatusCreated}, func(in *payment.Intent) error {
		return in.MarkAwaiting(gatewayOrderID, now)
	})
	return ok, err
}

func (r intentRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string, now time.Time) (bool, error) {
	_, ok, err := r.update(id, []payment.Status{payment.StatusCreated}, func(in *payment.Intent) error {
		return in.Fail(reason, now)
	})
	return ok, err
}

func (r intentRepo) Expire(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	_, ok, err := r.update(id, payment.ConfirmableStatuses(), func(in *payment.Intent) error {
		return in.Expire(now)
	})
	return ok, err
}

func (r intentRepo) ConfirmByGatewayOrderID(_ context.Context, p shared.ConfirmParams) (*payment.Intent, bool, error) {
	in := r.byGatewayOrder(p.GatewayOrderID)
	if in == nil {
		return nil, false, nil
	}
	return r.update(in.ID(), payment.ConfirmableStatuses(), func(in *payment.Intent) error {
		return in.Confirm(p.GatewayPaymentID, p.Channel, p.Now)
	})
}

func (r intentRepo) ExpireDue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, in := range r.s.state.intents {
		if len(ids) == limit {
			break
		}
		if !in.Status().IsLive() || now.Before(in.ExpiresAt()) {
			continue
		}
		if _, ok, err := r.update(id, payment.ConfirmableStatuses(), func(in *payment.Intent) error {
			return in.Expire(now)
		}); err != nil {
			return nil, err
		} else if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// --- orders, keyed by intent ---

type orderRepo struct{ s *Store }

func (r orderRepo) InsertIfAbsent(_ context.Context, o *order.Order) (uuid.UUID, bool, error) {
	if r.s.OrderInsertErr != nil {
		return uuid.Nil, false, r.s.OrderInsertErr
	}
	if existing, ok := r.s.state.orders[o.PaymentIntentID()]; ok {
		return existing.ID(), false, nil
	}
	r.s.state.orders[o.PaymentIntentID()] = o
	return o.ID(), true, nil
}

func (r orderRepo) FindIDByIntent(_ context.Context, intentID uuid.UUID) (uuid.UUID, error) {
	if o, ok := r.s.state.orders[intentID]; ok {
		return o.ID(), nil
	}
	return uuid.Nil, order.ErrOrderNotFound
}

// --- audit and outbox ---

type auditRepo struct{ s *Store }

func (r auditRepo) Record(_ context.Context, e shared.AuditEntry) error {
	r.s.state.audit = append(r.s.state.audit, e)
	return nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Enqueue(_ context.Context, e shared.OutboxEvent) error {
	r.s.state.outbox = append(r.s.state.outbox, outboxRow{event: e, status: shared.OutboxQueued})
	return nil
}

func (r outboxRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]shared.OutboxEvent, error) {
	var out []shared.OutboxEvent
	for _, row := range r.s.state.outbox {
		if len(out) == limit {
			break
		}
		if row.status == shared.OutboxQueued && !now.Before(row.event.RunAt) {
			out = append(out, row.event)
		}
	}
	return out, nil
}

func (r outboxRepo) MarkPublished(_ context.Context, ids []uuid.UUID, _ time.Time) error {
	for i, row := range r.s.state.outbox {
		if slices.Contains(ids, row.event.ID) {
			r.s.state.outbox[i].status = shared.OutboxPublished
		}
	}
	return nil
}

func (r outboxRepo) MarkRetry(_ context.Context, id uuid.UUID, lastError string, runAt time.Time, maxAttempts int) error {
	for i, row := range r.s.state.outbox {
		if row.event.ID != id {
			continue
		}
		row.event.Attempts++
		row.event.RunAt = runAt
		row.lastError = lastError
		if row.event.Attempts >= maxAttempts {
			row.status = shared.OutboxFailed
		}
		r.s.state.outbox[i] = row
	}
	return nil
}
