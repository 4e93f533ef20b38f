package queries

import (
	"context"

	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/domain/user"

	"github.com/google/uuid"
)

type OrderReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OrderView, error)
}

type OrderQueries interface {
	GetOrder(ctx context.Context, id, actorID uuid.UUID, actorRole user.Role) (*OrderView, error)
}

type orderQueriesImpl struct {
	readStore OrderReadStore
}

func NewOrderQueries(readStore OrderReadStore) OrderQueries {
	return &orderQueriesImpl{readStore: readStore}
}

// GetOrder lets buyers read their own orders; operators read any.
func (q *orderQueriesImpl) GetOrder(ctx context.Context, id, actorID uuid.UUID, actorRole user.Role) (*OrderView, error) {
	o, err := q.readStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != actorID && !actorRole.CanOperate() {
		return nil, order.ErrOrderNotOwned
	}
	return o, nil
}
