//go:build unit || integration

// Package memstore is an in-memory shared.UnitOfWork for use case tests.
// Transactions run one at a time and roll back on error, which gives the
// same outcome as serializable isolation.
package memstore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

type productKey struct {
	productID uuid.UUID
	variantID uuid.UUID
}

type outboxRow struct {
	event     shared.OutboxEvent
	status    string
	lastError string
}

type state struct {
	carts       map[uuid.UUID]*cart.Cart
	products    map[productKey]shared.ProductSnapshot
	coupons     map[coupon.Code]*coupon.Coupon
	redemptions map[uuid.UUID]*coupon.Redemption
	intents     map[uuid.UUID]*payment.Intent
	orders      map[uuid.UUID]*order.Order
	audit       []shared.AuditEntry
	outbox      []outboxRow
}

func (s state) clone() state {
	return state{
		carts:       maps.Clone(s.carts),
		products:    maps.Clone(s.products),
		coupons:     maps.Clone(s.coupons),
		redemptions: maps.Clone(s.redemptions),
		intents:     maps.Clone(s.intents),
		orders:      maps.Clone(s.orders),
		audit:       slices.Clone(s.audit),
		outbox:      slices.Clone(s.outbox),
	}
}

type Store struct {
	mu    sync.Mutex
	state state

	// OrderInsertErr, when set, fails every order insert.
	OrderInsertErr error
	// Transactions counts committed and rolled back units of work.
	Transactions int
}

func New() *Store {
	return &Store{state: state{
		carts:       map[uuid.UUID]*cart.Cart{},
		products:    map[productKey]shared.ProductSnapshot{},
		coupons:     map[coupon.Code]*coupon.Coupon{},
		redemptions: map[uuid.UUID]*coupon.Redemption{},
		intents:     map[uuid.UUID]*payment.Intent{},
		orders:      map[uuid.UUID]*order.Order{},
	}}
}

var _ shared.UnitOfWork = (*Store)(nil)

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Transactions++
	snapshot := s.state.clone()
	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) WithinSerializable(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return s.Within(ctx, fn)
}

func (s *Store) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return s.Within(ctx, fn)
}

// --- seeding and inspection ---

func (s *Store) PutCart(c *cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.carts[c.ID()] = cloneCart(c)
}

func (s *Store) PutCoupon(c *coupon.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.coupons[c.Code()] = c
}

func (s *Store) PutProduct(p shared.ProductSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[keyOf(p.ID, p.VariantID)] = p
}

func (s *Store) PutIntent(in *payment.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.intents[in.ID()] = cloneIntent(in)
}

func (s *Store) Cart(id uuid.UUID) *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.state.carts[id]; ok {
		return cloneCart(c)
	}
	return nil
}

func (s *Store) CartOf(ownerID uuid.UUID) *cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.activeCart(ownerID); c != nil {
		return cloneCart(c)
	}
	return nil
}

func (s *Store) Intent(id uuid.UUID) *payment.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.state.intents[id]; ok {
		return cloneIntent(in)
	}
	return nil
}

func (s *Store) Intents() []*payment.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*payment.Intent, 0, len(s.state.intents))
	for _, in := range s.state.intents {
		out = append(out, cloneIntent(in))
	}
	return out
}

func (s *Store) Redemptions() []*coupon.Redemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.state.redemptions))
}

func (s *Store) Orders() []*order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.state.orders))
}

func (s *Store) Audit() []shared.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.audit)
}

func (s *Store) AuditOutcomes() []shared.AuditOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.AuditOutcome, len(s.state.audit))
	for i, e := range s.state.audit {
		out[i] = e.Outcome
	}
	return out
}

// OutboxStatuses maps outbox event ids to their delivery status.
func (s *Store) OutboxStatuses() map[uuid.UUID]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]string, len(s.state.outbox))
	for _, r := range s.state.outbox {
		out[r.event.ID] = r.status
	}
	return out
}

func (s *Store) OutboxEvents() []shared.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.OutboxEvent, len(s.state.outbox))
	for i, r := range s.state.outbox {
		out[i] = r.event
	}
	return out
}

func (s *Store) activeCart(ownerID uuid.UUID) *cart.Cart {
	var found *cart.Cart
	for _, c := range s.state.carts {
		if c.OwnerID() != ownerID || c.IsCheckedOut() {
			continue
		}
		found = c
	}
	return found
}

func keyOf(productID uuid.UUID, variantID *uuid.UUID) productKey {
	k := productKey{productID: productID}
	if variantID != nil {
		k.variantID = *variantID
	}
	return k
}

func cloneCart(c *cart.Cart) *cart.Cart {
	return cart.ReconstructCart(c.ID(), c.OwnerID(), c.Status(), c.Currency(), c.Lines(), c.CouponCode(), c.CreatedAt(), c.UpdatedAt())
}

func cloneIntent(in *payment.Intent) *payment.Intent {
	return payment.ReconstructIntent(payment.IntentParams{
		ID:               in.ID(),
		UserID:           in.UserID(),
		CartID:           in.CartID(),
		Amount:           in.Amount(),
		Currency:         in.Currency(),
		CouponCode:       in.CouponCode(),
		Status:           in.Status(),
		GatewayOrderID:   in.GatewayOrderID(),
		GatewayPaymentID: in.GatewayPaymentID(),
		ConfirmedVia:     in.ConfirmedVia(),
		FailureReason:    in.FailureReason(),
		CreatedAt:        in.CreatedAt(),
		UpdatedAt:        in.UpdatedAt(),
		ExpiresAt:        in.ExpiresAt(),
		ConfirmedAt:      in.ConfirmedAt(),
	})
}

var errDuplicate = errors.New("duplicate key")

func timePtr(t time.Time) *time.Time { return &t }
