//go:build unit

package commands_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/testutil/builder"
	"checkout-engine/internal/testutil/memstore"
	mockcommands "checkout-engine/internal/testutil/mock/commands"
	"checkout-engine/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testKeySecret     = "key-secret"
	testWebhookSecret = "webhook-secret"
	testIntentTTL     = 15 * time.Minute
)

type fixture struct {
	store     *memstore.Store
	clock     *clock.MockClock
	gateway   *mockcommands.MockPaymentGateway
	ledger    commands.CouponLedger
	checkout  commands.CheckoutCommands
	reconcile commands.ReconcileCommands
	carts     commands.CartCommands
	client    *payment.ClientSignatureVerifier
	webhook   *payment.WebhookSignatureVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		store:   memstore.New(),
		clock:   clock.NewMockClock(builder.ReferenceTime),
		gateway: mockcommands.NewMockPaymentGateway(ctrl),
		ledger:  commands.NewCouponLedger(),
		client:  payment.NewClientSignatureVerifier(testKeySecret),
		webhook: payment.NewWebhookSignatureVerifier(testWebhookSecret),
	}
	logger := discardLogger()

	f.checkout = commands.NewCheckoutUseCase(f.store, f.ledger, f.gateway, f.clock, commands.CheckoutSettings{
		IntentTTL:      testIntentTTL,
		GatewayTimeout: 5 * time.Second,
		GatewayKeyID:   "rzp_test_key",
		SweepBatch:     100,
	}, logger)
	materializer := commands.NewOrderMaterializer(f.store, f.ledger, f.clock, logger)
	f.reconcile = commands.NewReconcileUseCase(f.store, materializer, commands.NewNoopLocker(),
		f.client, f.webhook, f.clock, commands.ReconcileSettings{AdvisoryLock: true}, logger)
	f.carts = commands.NewCartUseCase(f.store, f.ledger, f.clock, "INR")
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gatewayEchoes makes the gateway accept every order and derive its id from the receipt.
func (f *fixture) gatewayEchoes() {
	f.gateway.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req commands.GatewayOrderRequest) (*commands.GatewayOrder, error) {
			return &commands.GatewayOrder{ID: gatewayOrderID(req.Receipt), Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
		}).AnyTimes()
}

func gatewayOrderID(receipt string) string {
	return "order_" + receipt
}

// seedCart stores an open 1000-minor-unit cart for a new buyer.
func (f *fixture) seedCart(t *testing.T, couponCode string) *cart.Cart {
	t.Helper()
	c, err := builder.NewCartBuilder().WithLine(250, 4).WithCoupon(couponCode).BuildDomain()
	require.NoError(t, err)
	f.store.PutCart(c)
	return c
}

func (f *fixture) seedCoupon(b *builder.CouponBuilder) *coupon.Coupon {
	c := b.MustBuild()
	f.store.PutCoupon(c)
	return c
}

// checkoutAwaiting runs a successful checkout and returns the gateway order id.
func (f *fixture) checkoutAwaiting(t *testing.T, buyer uuid.UUID) *commands.CheckoutResult {
	t.Helper()
	res, err := f.checkout.CreateOrderFromCart(context.Background(), buyer)
	require.NoError(t, err)
	require.Equal(t, payment.StatusAwaitingConfirmation, res.Status)
	return res
}

func (f *fixture) verifyRequest(gatewayOrderID, paymentID string) commands.VerifyPaymentRequest {
	return commands.VerifyPaymentRequest{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        f.client.Sign(gatewayOrderID, paymentID),
	}
}

func webhookBody(event, gatewayOrderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"entity":"event","event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":900,"currency":"INR","status":"captured"}}},"created_at":1772366400}`,
		event, paymentID, gatewayOrderID))
}
