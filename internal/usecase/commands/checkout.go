package commands

import (
	"context"
	"log/slog"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/pricing"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=checkout.go -destination=../../testutil/mock/commands/checkout_mock.go -package=mockcommands

var (
	ErrCartAlreadyPaid     = errs.NewReason("CART_ALREADY_PAID", errs.ErrConflict, "cart already has a confirmed payment")
	ErrCheckoutInProgress  = errs.NewReason("CHECKOUT_IN_PROGRESS", errs.ErrConflict, "a checkout for this cart is already being created")
	ErrNothingToPay        = errs.NewReason("NOTHING_TO_PAY", errs.ErrBusinessRule, "cart total is zero")
	ErrGatewayAmountChange = errs.NewReason("GATEWAY_AMOUNT_MISMATCH", errs.ErrBusinessRule, "gateway order amount differs from the intent")
)

type CheckoutSettings struct {
	IntentTTL      time.Duration
	GatewayTimeout time.Duration
	GatewayKeyID   string
	SweepBatch     int
}

type CheckoutResult struct {
	IntentID       uuid.UUID
	GatewayOrderID string
	GatewayKeyID   string
	Amount         int64
	Currency       string
	Status         payment.Status
	ExpiresAt      time.Time
	Pricing        pricing.Evaluation
	Replayed       bool
}

// CheckoutCommands is the payment intent manager.
type CheckoutCommands interface {
	CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*CheckoutResult, error)
	ExpireStale(ctx context.Context) (int, error)
}

type checkoutUseCaseImpl struct {
	uow      shared.UnitOfWork
	ledger   CouponLedger
	gateway  PaymentGateway
	clock    clock.Clock
	settings CheckoutSettings
	logger   *slog.Logger
}

func NewCheckoutUseCase(
	uow shared.UnitOfWork,
	ledger CouponLedger,
	gateway PaymentGateway,
	clk clock.Clock,
	settings CheckoutSettings,
	logger *slog.Logger,
) CheckoutCommands {
	return &checkoutUseCaseImpl{
		uow:      uow,
		ledger:   ledger,
		gateway:  gateway,
		clock:    clk,
		settings: settings,
		logger:   logger,
	}
}

// CreateOrderFromCart freezes the buyer's cart, prices it, reserves the coupon
// and registers the payment with the gateway. The gateway call happens outside
// any transaction; a failure there marks the intent FAILED and gives the
// coupon reservation back.
func (uc *checkoutUseCaseImpl) CreateOrderFromCart(ctx context.Context, userID uuid.UUID) (*CheckoutResult, error) {
	var (
		intent *payment.Intent
		ev     pricing.Evaluation
		replay bool
	)

	err := uc.uow.WithinSerializable(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()

		c, err := tx.Carts().LockActiveByOwner(ctx, userID)
		if err != nil {
			return err
		}

		existing, err := settleIntents(ctx, tx, uc.ledger, c.ID(), now)
		if err != nil {
			return err
		}

		if err := c.Freeze(now); err != nil {
			return err
		}
		if existing != nil {
			intent, replay = existing, true
			ev, err = priceIntent(ctx, tx, c, existing)
			return err
		}

		ev, err = evaluateCart(ctx, tx, c, now)
		if err != nil {
			return err
		}

		if ev.Rejection != nil {
			return ev.Rejection
		}
		if ev.Total <= 0 {
			return ErrNothingToPay
		}

		var code *string
		if ev.HasDiscount() {
			s := ev.CouponCode.String()
			code = &s
		}
		intent, err = payment.NewIntent(userID, c.ID(), ev.Total, c.Currency(), code, now, uc.settings.IntentTTL)
		if err != nil {
			return err
		}
		if err := tx.Intents().Insert(ctx, intent); err != nil {
			return err
		}

		if ev.HasDiscount() {
			if _, err := uc.ledger.TryReserve(ctx, tx, ReserveRequest{
				Code:     *ev.CouponCode,
				UserID:   userID,
				IntentID: intent.ID(),
				Subtotal: ev.Subtotal,
				Items:    couponItems(c),
				Now:      now,
			}); err != nil {
				return err
			}
		}

		return tx.Carts().SaveStatus(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	if replay {
		uc.logger.Info("checkout replayed existing intent", "intent_id", intent.ID(), "user_id", userID)
		return uc.result(intent, ev, true), nil
	}

	gatewayOrder, err := uc.createGatewayOrder(ctx, intent)
	if err != nil {
		uc.abandon(ctx, intent, err)
		return nil, err
	}

	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		ok, err := tx.Intents().MarkAwaiting(ctx, intent.ID(), gatewayOrder.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return payment.ErrIntentExpired
		}
		return intent.MarkAwaiting(gatewayOrder.ID, now)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("payment intent awaiting confirmation",
		"intent_id", intent.ID(),
		"gateway_order_id", gatewayOrder.ID,
		"amount", intent.Amount(),
		"currency", intent.Currency().String())

	return uc.result(intent, ev, false), nil
}

// settleIntents enforces one paid intent per cart and returns a live intent
// that can be handed back to the buyer. Live intents past their TTL are expired
// on the spot so a late confirmation cannot land and their coupon reservation
// does not block a retry.
func settleIntents(ctx context.Context, tx shared.Tx, ledger CouponLedger, cartID uuid.UUID, now time.Time) (*payment.Intent, error) {
	intents, err := tx.Intents().ListByCart(ctx, cartID)
	if err != nil {
		return nil, err
	}

	var live *payment.Intent
	for _, in := range intents {
		switch {
		case in.Status() == payment.StatusConfirmed:
			return nil, ErrCartAlreadyPaid
		case !in.Status().IsLive():
			continue
		case in.IsExpiredAt(now):
			if _, err := tx.Intents().Expire(ctx, in.ID(), now); err != nil {
				return nil, err
			}
			if err := ledger.Release(ctx, tx, in.ID(), now); err != nil {
				return nil, err
			}
		case in.GatewayOrderID() == nil:
			return nil, ErrCheckoutInProgress
		case live == nil:
			live = in
		}
	}
	return live, nil
}

func (uc *checkoutUseCaseImpl) createGatewayOrder(ctx context.Context, intent *payment.Intent) (*GatewayOrder, error) {
	gctx, cancel := context.WithTimeout(ctx, uc.settings.GatewayTimeout)
	defer cancel()

	order, err := uc.gateway.CreateOrder(gctx, GatewayOrderRequest{
		Amount:   intent.Amount(),
		Currency: intent.Currency().String(),
		Receipt:  intent.ID().String(),
		Notes: map[string]string{
			"intent_id": intent.ID().String(),
			"cart_id":   intent.CartID().String(),
		},
	})
	if err != nil {
		return nil, err
	}
	if order.Amount != intent.Amount() {
		return nil, errs.Wrapf(ErrGatewayAmountChange, "gateway order %s amount %d, intent amount %d", order.ID, order.Amount, intent.Amount())
	}
	return order, nil
}

// abandon runs on a detached context: the request may already be cancelled,
// but the reservation must still be given back.
func (uc *checkoutUseCaseImpl) abandon(ctx context.Context, intent *payment.Intent, cause error) {
	ctx = context.WithoutCancel(ctx)
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		ok, err := tx.Intents().MarkFailed(ctx, intent.ID(), cause.Error(), now)
		if err != nil || !ok {
			return err
		}
		return uc.ledger.Release(ctx, tx, intent.ID(), now)
	})
	if err != nil {
		uc.logger.Error("failed to abandon payment intent",
			"intent_id", intent.ID(),
			"cause", cause.Error(),
			"error", err.Error())
		return
	}
	uc.logger.Warn("payment intent failed at gateway",
		"intent_id", intent.ID(),
		"error", cause.Error())
}

// ExpireStale moves one batch of overdue live intents to EXPIRED and releases
// their coupon reservations.
func (uc *checkoutUseCaseImpl) ExpireStale(ctx context.Context) (int, error) {
	var expired []uuid.UUID
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		ids, err := tx.Intents().ExpireDue(ctx, now, uc.settings.SweepBatch)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := uc.ledger.Release(ctx, tx, id, now); err != nil {
				return err
			}
		}
		expired = ids
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) > 0 {
		uc.logger.Info("expired stale payment intents", "count", len(expired))
	}
	return len(expired), nil
}

func (uc *checkoutUseCaseImpl) result(intent *payment.Intent, ev pricing.Evaluation, replayed bool) *CheckoutResult {
	res := &CheckoutResult{
		IntentID:     intent.ID(),
		GatewayKeyID: uc.settings.GatewayKeyID,
		Amount:       intent.Amount(),
		Currency:     intent.Currency().String(),
		Status:       intent.Status(),
		ExpiresAt:    intent.ExpiresAt(),
		Pricing:      ev,
		Replayed:     replayed,
	}
	if id := intent.GatewayOrderID(); id != nil {
		res.GatewayOrderID = *id
	}
	return res
}

// evaluateCart prices a cart against its applied coupon. An unknown code is
// passed through so the evaluator reports it as a rejection.
func evaluateCart(ctx context.Context, tx shared.Tx, c *cart.Cart, now time.Time) (pricing.Evaluation, error) {
	in := pricing.Input{
		Currency:   c.Currency(),
		Lines:      c.Lines(),
		CouponCode: c.CouponCode(),
		Now:        now,
	}
	if code := c.CouponCode(); code != nil {
		cp, err := tx.Coupons().FindByCode(ctx, *code)
		switch {
		case err == nil:
			in.Coupon = cp
		case !errs.Is(err, coupon.ErrCouponNotFound):
			return pricing.Evaluation{}, err
		}
	}
	return pricing.Evaluate(in), nil
}

func couponItems(c *cart.Cart) []coupon.Item {
	lines := c.Lines()
	items := make([]coupon.Item, len(lines))
	for i, l := range lines {
		items[i] = coupon.Item{ProductID: l.ProductID(), CategoryID: l.CategoryID()}
	}
	return items
}
