package queries

import (
	"context"

	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/domain/user"

	"github.com/google/uuid"
)

type IntentReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*IntentView, error)
}

type PaymentQueries interface {
	GetIntent(ctx context.Context, id, actorID uuid.UUID, actorRole user.Role) (*IntentView, error)
}

type paymentQueriesImpl struct {
	readStore IntentReadStore
}

func NewPaymentQueries(readStore IntentReadStore) PaymentQueries {
	return &paymentQueriesImpl{readStore: readStore}
}

func (q *paymentQueriesImpl) GetIntent(ctx context.Context, id, actorID uuid.UUID, actorRole user.Role) (*IntentView, error) {
	v, err := q.readStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.UserID != actorID && !actorRole.CanOperate() {
		return nil, payment.ErrIntentNotOwned
	}
	return v, nil
}
