package readstore

import (
	"context"

	"checkout-engine/internal/domain/order"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"
	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderReadStore struct {
	db db.DBTX
}

func NewOrderReadStore(db db.DBTX) *OrderReadStore {
	return &OrderReadStore{db: db}
}

func (r *OrderReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OrderView, error) {
	var (
		v          queries.OrderView
		couponCode pgtype.Text
		createdAt  pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, buyer_id, payment_intent_id, status, currency, subtotal, discount, total, coupon_code, created_at
		FROM orders
		WHERE id = $1`, id).
		Scan(&v.ID, &v.BuyerID, &v.PaymentIntentID, &v.Status, &v.Currency,
			&v.Subtotal, &v.Discount, &v.Total, &couponCode, &createdAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, order.ErrOrderNotFound
		}
		return nil, infra.WrapRepoErr("failed to find order by ID", err)
	}
	v.CouponCode = pgconv.StringPtrFromPgtype(couponCode)
	v.CreatedAt = createdAt.Time

	rows, err := r.db.Query(ctx, `
		SELECT product_id, variant_id, name, quantity, unit_price, line_total, discount
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position`, id)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find order lines", err)
	}
	defer rows.Close()

	v.Lines = []queries.OrderLineView{}
	for rows.Next() {
		var (
			l         queries.OrderLineView
			variantID pgtype.UUID
		)
		if err := rows.Scan(&l.ProductID, &variantID, &l.Name, &l.Quantity, &l.UnitPrice, &l.LineTotal, &l.Discount); err != nil {
			return nil, infra.WrapRepoErr("failed to scan order line", err)
		}
		l.VariantID = pgconv.UUIDPtrFromPgtype(variantID)
		v.Lines = append(v.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read order lines", err)
	}
	return &v, nil
}
