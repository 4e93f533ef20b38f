package repository

import (
	"context"

	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(db db.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// InsertIfAbsent relies on the unique payment_intent_id so a second writer for
// the same intent gets the existing order back instead of a duplicate.
func (r *OrderRepository) InsertIfAbsent(ctx context.Context, o *order.Order) (uuid.UUID, bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, cart_id, payment_intent_id, subtotal, discount, total,
		                    currency, coupon_code, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (payment_intent_id) DO NOTHING`,
		o.ID(), o.BuyerID(), o.CartID(), o.PaymentIntentID(), o.Subtotal(), o.Discount(), o.Total(),
		o.Currency().String(), pgconv.StringPtrToPgtype(o.CouponCode()), string(o.Status()),
		pgconv.TimeToPgtype(o.CreatedAt()), pgconv.TimeToPgtype(o.UpdatedAt()))
	if err != nil {
		return uuid.Nil, false, infra.WrapRepoErr("failed to insert order", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.FindIDByIntent(ctx, o.PaymentIntentID())
		if err != nil {
			return uuid.Nil, false, err
		}
		return existing, false, nil
	}

	for i, l := range o.Lines() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_lines (order_id, position, product_id, variant_id, category_id, name,
			                         quantity, unit_price, line_total, discount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			o.ID(), i, l.ProductID, pgconv.UUIDPtrToPgtype(l.VariantID), pgconv.UUIDPtrToPgtype(l.CategoryID),
			l.Name, l.Quantity, l.UnitPrice, l.LineTotal, l.Discount)
		if err != nil {
			return uuid.Nil, false, infra.WrapRepoErr("failed to insert order line", err)
		}
	}
	return o.ID(), true, nil
}

func (r *OrderRepository) FindIDByIntent(ctx context.Context, intentID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM orders WHERE payment_intent_id = $1`, intentID).Scan(&id)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return uuid.Nil, order.ErrOrderNotFound
		}
		return uuid.Nil, infra.WrapRepoErr("failed to get order by intent", err)
	}
	return id, nil
}
