package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
)

//go:generate mockgen -source=reconcile.go -destination=../../testutil/mock/commands/reconcile_mock.go -package=mockcommands

var (
	ErrInvalidVerifyPayload  = errs.NewReason("INVALID_VERIFY_PAYLOAD", errs.ErrValidation, "gateway order id, payment id and signature are required")
	ErrInvalidWebhookPayload = errs.NewReason("INVALID_WEBHOOK_PAYLOAD", errs.ErrValidation, "webhook payload is malformed")
	ErrMaterializationFailed = errs.NewReason("INCONSISTENT_STATE", errs.ErrInconsistent, "payment confirmed but the order could not be created")
	ErrConfirmationContended = errs.NewReason("CONFIRMATION_CONTENDED", errs.ErrTransient, "payment intent changed during confirmation")
)

// Webhook event names the coordinator reacts to.
const (
	EventPaymentCaptured  = "payment.captured"
	EventPaymentFailed    = "payment.failed"
	EventGatewayOrderPaid = "order.paid"
)

type WebhookOutcome string

const (
	WebhookConfirmed WebhookOutcome = "confirmed"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookRecorded  WebhookOutcome = "recorded"
	WebhookIgnored   WebhookOutcome = "ignored"
)

type VerifyPaymentRequest struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type ConfirmationResult struct {
	IntentID uuid.UUID
	OrderID  *uuid.UUID
	Status   payment.Status
	// AlreadyConfirmed is set for the losing channel; nothing was written.
	AlreadyConfirmed bool
}

type WebhookResult struct {
	Event    string
	Outcome  WebhookOutcome
	IntentID *uuid.UUID
	OrderID  *uuid.UUID
}

type ReconcileSettings struct {
	// AdvisoryLock takes a transaction-scoped database lock per gateway order
	// before the conditional update.
	AdvisoryLock bool
}

// ReconcileCommands merges the client-verify and webhook channels into a
// single confirmation per payment intent.
type ReconcileCommands interface {
	VerifyClientPayment(ctx context.Context, userID uuid.UUID, req VerifyPaymentRequest) (*ConfirmationResult, error)
	HandleGatewayWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error)
	RematerializeIntent(ctx context.Context, intentID uuid.UUID) (*ConfirmationResult, error)
}

type reconcileUseCaseImpl struct {
	uow          shared.UnitOfWork
	materializer OrderMaterializer
	locker       IntentLocker
	client       *payment.ClientSignatureVerifier
	webhook      *payment.WebhookSignatureVerifier
	clock        clock.Clock
	settings     ReconcileSettings
	logger       *slog.Logger
}

func NewReconcileUseCase(
	uow shared.UnitOfWork,
	materializer OrderMaterializer,
	locker IntentLocker,
	client *payment.ClientSignatureVerifier,
	webhook *payment.WebhookSignatureVerifier,
	clk clock.Clock,
	settings ReconcileSettings,
	logger *slog.Logger,
) ReconcileCommands {
	return &reconcileUseCaseImpl{
		uow:          uow,
		materializer: materializer,
		locker:       locker,
		client:       client,
		webhook:      webhook,
		clock:        clk,
		settings:     settings,
		logger:       logger,
	}
}

// VerifyClientPayment handles the buyer's return from the gateway checkout.
// The signature is checked before anything is read or written.
func (uc *reconcileUseCaseImpl) VerifyClientPayment(ctx context.Context, userID uuid.UUID, req VerifyPaymentRequest) (*ConfirmationResult, error) {
	req.GatewayOrderID = strings.TrimSpace(req.GatewayOrderID)
	req.GatewayPaymentID = strings.TrimSpace(req.GatewayPaymentID)
	req.Signature = strings.TrimSpace(req.Signature)
	if req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return nil, ErrInvalidVerifyPayload
	}

	if err := uc.client.Verify(req.GatewayOrderID, req.GatewayPaymentID, req.Signature); err != nil {
		uc.logger.Warn("client payment signature rejected",
			"security_event", true,
			"user_id", userID,
			"gateway_order_id", req.GatewayOrderID)
		return nil, err
	}

	var intent *payment.Intent
	err := uc.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		intent, err = tx.Intents().FindByGatewayOrderID(ctx, req.GatewayOrderID)
		return err
	})
	switch {
	case errs.Is(err, payment.ErrIntentNotFound):
		uc.audit(ctx, shared.AuditEntry{
			GatewayOrderID: req.GatewayOrderID,
			Channel:        payment.ChannelClientVerify,
			Outcome:        shared.AuditUnknownIntent,
		})
		return nil, err
	case err != nil:
		return nil, err
	}
	if !intent.OwnedBy(userID) {
		uc.logger.Warn("payment verification for another buyer's intent",
			"security_event", true,
			"user_id", userID,
			"intent_id", intent.ID())
		return nil, payment.ErrIntentNotOwned
	}

	return uc.confirm(ctx, shared.ConfirmParams{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Channel:          payment.ChannelClientVerify,
	})
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity webhookPayment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity webhookOrder `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type webhookPayment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

type webhookOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (e webhookEnvelope) gatewayOrderID() string {
	if e.Payload.Payment != nil && e.Payload.Payment.Entity.OrderID != "" {
		return e.Payload.Payment.Entity.OrderID
	}
	if e.Payload.Order != nil {
		return e.Payload.Order.Entity.ID
	}
	return ""
}

func (e webhookEnvelope) gatewayPaymentID() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.ID
	}
	return ""
}

// HandleGatewayWebhook authenticates rawBody exactly as received, then routes
// the event. Unknown events are acknowledged so the gateway stops retrying.
func (uc *reconcileUseCaseImpl) HandleGatewayWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	if err := uc.webhook.Verify(rawBody, strings.TrimSpace(signature)); err != nil {
		uc.logger.Warn("webhook signature rejected", "security_event", true, "body_bytes", len(rawBody))
		return nil, err
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, errs.Wrap(ErrInvalidWebhookPayload, err.Error())
	}
	res := &WebhookResult{Event: env.Event}

	switch env.Event {
	case EventPaymentCaptured, EventGatewayOrderPaid:
		orderID, paymentID := env.gatewayOrderID(), env.gatewayPaymentID()
		if orderID == "" || paymentID == "" {
			return nil, ErrInvalidWebhookPayload
		}
		cr, err := uc.confirm(ctx, shared.ConfirmParams{
			GatewayOrderID:   orderID,
			GatewayPaymentID: paymentID,
			Channel:          payment.ChannelWebhook,
		})
		if err != nil {
			return nil, err
		}
		res.Outcome = WebhookConfirmed
		if cr.AlreadyConfirmed {
			res.Outcome = WebhookDuplicate
		}
		res.IntentID, res.OrderID = &cr.IntentID, cr.OrderID
		return res, nil

	case EventPaymentFailed:
		orderID := env.gatewayOrderID()
		if orderID == "" {
			return nil, ErrInvalidWebhookPayload
		}
		id, err := uc.recordFailedPayment(ctx, orderID, env.gatewayPaymentID())
		if err != nil {
			return nil, err
		}
		res.Outcome, res.IntentID = WebhookRecorded, id
		return res, nil
	}

	uc.logger.Info("webhook event ignored", "event", env.Event)
	res.Outcome = WebhookIgnored
	return res, nil
}

// recordFailedPayment only audits. A failed attempt does not fail the intent:
// the buyer may retry with another method against the same gateway order.
func (uc *reconcileUseCaseImpl) recordFailedPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*uuid.UUID, error) {
	var intentID *uuid.UUID
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		in, err := tx.Intents().FindByGatewayOrderID(ctx, gatewayOrderID)
		switch {
		case err == nil:
			id := in.ID()
			intentID = &id
		case !errs.Is(err, payment.ErrIntentNotFound):
			return err
		}
		return tx.Audit().Record(ctx, shared.AuditEntry{
			GatewayOrderID: gatewayOrderID,
			IntentID:       intentID,
			Channel:        payment.ChannelWebhook,
			Outcome:        shared.AuditPaymentFailed,
			Detail:         gatewayPaymentID,
			OccurredAt:     uc.clock.Now(),
		})
	})
	return intentID, err
}

// confirm is the single entry point of both channels. Exactly one caller wins
// the conditional update and goes on to materialise the order; every other
// caller reads what the winner left behind.
func (uc *reconcileUseCaseImpl) confirm(ctx context.Context, p shared.ConfirmParams) (*ConfirmationResult, error) {
	release, err := uc.locker.Acquire(ctx, p.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		res       ConfirmationResult
		won       bool
		rejection error
	)
	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		res, won, rejection = ConfirmationResult{}, false, nil
		p.Now = uc.clock.Now()

		if uc.settings.AdvisoryLock {
			if err := tx.AdvisoryLock(ctx, "intent:"+p.GatewayOrderID); err != nil {
				return err
			}
		}

		in, ok, err := tx.Intents().ConfirmByGatewayOrderID(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			won = true
			res = ConfirmationResult{IntentID: in.ID(), Status: in.Status()}
			return uc.record(ctx, tx, p, in, shared.AuditConfirmed, "")
		}

		in, err = tx.Intents().FindByGatewayOrderID(ctx, p.GatewayOrderID)
		if errs.Is(err, payment.ErrIntentNotFound) {
			rejection = err
			return uc.record(ctx, tx, p, nil, shared.AuditUnknownIntent, "")
		}
		if err != nil {
			return err
		}
		res = ConfirmationResult{IntentID: in.ID(), Status: in.Status()}

		switch in.Status() {
		case payment.StatusConfirmed:
			res.AlreadyConfirmed = true
			orderID, err := tx.Orders().FindIDByIntent(ctx, in.ID())
			switch {
			case err == nil:
				res.OrderID = &orderID
			case errs.Is(err, order.ErrOrderNotFound):
				return uc.record(ctx, tx, p, in, shared.AuditOrphanDuplicate, "no order for confirmed intent")
			default:
				return err
			}
			return uc.record(ctx, tx, p, in, shared.AuditDuplicate, "")
		case payment.StatusExpired, payment.StatusFailed:
			rejection = in.ConfirmationError()
			return uc.record(ctx, tx, p, in, shared.AuditLateConfirmation, string(in.Status()))
		}
		return errs.Wrapf(ErrConfirmationContended, "intent %s is %s after a lost update", in.ID(), in.Status())
	})
	if err != nil {
		return nil, err
	}

	if rejection != nil {
		uc.logger.Warn("payment confirmation rejected",
			"gateway_order_id", p.GatewayOrderID,
			"channel", string(p.Channel),
			"reason", rejection.Error())
		return nil, rejection
	}
	if !won {
		if res.OrderID == nil {
			uc.logger.Warn("payment already confirmed but no order exists",
				"intent_id", res.IntentID,
				"gateway_order_id", p.GatewayOrderID,
				"channel", string(p.Channel))
			return &res, nil
		}
		uc.logger.Info("payment already confirmed",
			"intent_id", res.IntentID,
			"channel", string(p.Channel))
		return &res, nil
	}

	uc.logger.Info("payment confirmed",
		"intent_id", res.IntentID,
		"gateway_order_id", p.GatewayOrderID,
		"channel", string(p.Channel))

	orderID, err := uc.materializer.Materialize(ctx, res.IntentID)
	if err != nil {
		return nil, uc.materializationFailed(ctx, p, res.IntentID, err)
	}
	res.OrderID = &orderID
	return &res, nil
}

// materializationFailed leaves the intent CONFIRMED without an order. The
// anomaly stays visible to operators until RematerializeIntent succeeds.
func (uc *reconcileUseCaseImpl) materializationFailed(ctx context.Context, p shared.ConfirmParams, intentID uuid.UUID, cause error) error {
	uc.logger.Error("order materialization failed after confirmation",
		"intent_id", intentID,
		"gateway_order_id", p.GatewayOrderID,
		"error", cause.Error(),
		"stack", errs.ExtractStackLines(cause, 8))

	uc.audit(ctx, shared.AuditEntry{
		GatewayOrderID: p.GatewayOrderID,
		IntentID:       &intentID,
		Channel:        p.Channel,
		Outcome:        shared.AuditMaterializeError,
		Detail:         cause.Error(),
	})
	return errs.Wrapf(ErrMaterializationFailed, "intent %s: %s", intentID, cause.Error())
}

// RematerializeIntent is the operator repair path for a CONFIRMED intent that
// has no order.
func (uc *reconcileUseCaseImpl) RematerializeIntent(ctx context.Context, intentID uuid.UUID) (*ConfirmationResult, error) {
	var intent *payment.Intent
	err := uc.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		intent, err = tx.Intents().FindByID(ctx, intentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if intent.Status() != payment.StatusConfirmed {
		return nil, order.ErrIntentNotConfirmed
	}

	orderID, err := uc.materializer.Materialize(ctx, intentID)
	if err != nil {
		return nil, err
	}

	entry := shared.AuditEntry{
		IntentID: &intentID,
		Channel:  payment.ChannelOperator,
		Outcome:  shared.AuditRematerialized,
		Detail:   orderID.String(),
	}
	if id := intent.GatewayOrderID(); id != nil {
		entry.GatewayOrderID = *id
	}
	uc.audit(ctx, entry)
	uc.logger.Info("order rematerialized", "intent_id", intentID, "order_id", orderID)

	return &ConfirmationResult{IntentID: intentID, OrderID: &orderID, Status: intent.Status()}, nil
}

func (uc *reconcileUseCaseImpl) record(ctx context.Context, tx shared.Tx, p shared.ConfirmParams, in *payment.Intent, outcome shared.AuditOutcome, detail string) error {
	e := shared.AuditEntry{
		GatewayOrderID: p.GatewayOrderID,
		Channel:        p.Channel,
		Outcome:        outcome,
		Detail:         detail,
		OccurredAt:     p.Now,
	}
	if in != nil {
		id := in.ID()
		e.IntentID = &id
	}
	return tx.Audit().Record(ctx, e)
}

// audit writes outside the caller's transaction and never fails the request.
func (uc *reconcileUseCaseImpl) audit(ctx context.Context, e shared.AuditEntry) {
	ctx = context.WithoutCancel(ctx)
	if e.OccurredAt.IsZero() {
		e.OccurredAt = uc.clock.Now()
	}
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Audit().Record(ctx, e)
	})
	if err != nil {
		uc.logger.Error("failed to record confirmation audit",
			"gateway_order_id", e.GatewayOrderID,
			"outcome", string(e.Outcome),
			"error", err.Error())
	}
}
