package commands

import (
	"context"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=cart.go -destination=../../testutil/mock/commands/cart_mock.go -package=mockcommands

var ErrCurrencyMismatch = errs.NewReason("CURRENCY_MISMATCH", errs.ErrBusinessRule, "product is priced in a different currency than the cart")

type AddItemRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type CartCommands interface {
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) error
	ClearCoupon(ctx context.Context, userID uuid.UUID) error
}

type cartUseCaseImpl struct {
	uow      shared.UnitOfWork
	ledger   CouponLedger
	clock    clock.Clock
	currency money.Currency
}

func NewCartUseCase(uow shared.UnitOfWork, ledger CouponLedger, clk clock.Clock, currency money.Currency) CartCommands {
	return &cartUseCaseImpl{uow: uow, ledger: ledger, clock: clk, currency: currency}
}

func (uc *cartUseCaseImpl) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) error {
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		c, err := uc.mutableCart(ctx, tx, userID, now, true)
		if err != nil {
			return err
		}

		product, err := tx.Catalog().ProductByID(ctx, req.ProductID, req.VariantID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return shared.ErrProductUnavailable
		}
		if product.Currency != c.Currency() {
			return ErrCurrencyMismatch
		}

		line, err := cart.NewLine(product.ID, product.VariantID, product.CategoryID, product.Name, req.Quantity, product.UnitPrice)
		if err != nil {
			return err
		}
		if err := c.AddLine(line, now); err != nil {
			return err
		}
		return tx.Carts().Save(ctx, c)
	})
}

func (uc *cartUseCaseImpl) RemoveItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID) error {
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		c, err := uc.mutableCart(ctx, tx, userID, now, false)
		if err != nil {
			return err
		}
		if err := c.RemoveLine(productID, variantID, now); err != nil {
			return err
		}
		return tx.Carts().Save(ctx, c)
	})
}

// ApplyCoupon stores a code that exists. Whether it applies to the cart is
// decided when the cart is priced, so the buyer sees the rejection reason.
func (uc *cartUseCaseImpl) ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) error {
	normalized, err := coupon.NewCode(code)
	if err != nil {
		return err
	}
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		c, err := uc.mutableCart(ctx, tx, userID, now, false)
		if err != nil {
			return err
		}
		if _, err := tx.Coupons().FindByCode(ctx, normalized); err != nil {
			return err
		}
		if err := c.ApplyCoupon(normalized, now); err != nil {
			return err
		}
		return tx.Carts().Save(ctx, c)
	})
}

func (uc *cartUseCaseImpl) ClearCoupon(ctx context.Context, userID uuid.UUID) error {
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		c, err := uc.mutableCart(ctx, tx, userID, now, false)
		if err != nil {
			return err
		}
		if err := c.ClearCoupon(now); err != nil {
			return err
		}
		return tx.Carts().Save(ctx, c)
	})
}

// mutableCart loads the buyer's active cart under a row lock. A frozen cart
// whose checkout attempts all ended without payment is reopened; one with a
// live or confirmed intent stays frozen.
func (uc *cartUseCaseImpl) mutableCart(ctx context.Context, tx shared.Tx, userID uuid.UUID, now time.Time, create bool) (*cart.Cart, error) {
	c, err := tx.Carts().LockActiveByOwner(ctx, userID)
	if err != nil {
		if create && errs.Is(err, cart.ErrCartNotFound) {
			return cart.NewCart(uuid.New(), userID, uc.currency, now), nil
		}
		return nil, err
	}
	if !c.IsFrozen() {
		return c, nil
	}

	live, err := settleIntents(ctx, tx, uc.ledger, c.ID(), now)
	switch {
	case errs.Is(err, ErrCartAlreadyPaid), errs.Is(err, ErrCheckoutInProgress):
		return nil, cart.ErrCartFrozen
	case err != nil:
		return nil, err
	case live != nil:
		return nil, cart.ErrCartFrozen
	}
	if err := c.Reopen(now); err != nil {
		return nil, err
	}
	return c, nil
}
