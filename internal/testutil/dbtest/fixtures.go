//go:build integration

package dbtest

import (
	"context"
	"testing"

	"checkout-engine/internal/domain/coupon"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// the minimal interface required for test DB operations.
type DBLike interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func CreateTestProduct(t *testing.T, db DBLike, name string, unitPrice int64, currency string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO products (id, name, unit_price, currency, is_active) VALUES ($1, $2, $3, $4, true)",
		id, name, unitPrice, currency)
	require.NoError(t, err)
	return id
}

func CreateTestCoupon(t *testing.T, db DBLike, c *coupon.Coupon) {
	t.Helper()

	d := c.Discount()
	var maximum *int64
	if d.Kind() == coupon.KindPercentage {
		maximum = d.Maximum()
	}
	restrictedProducts := c.RestrictedProductIDs()
	restrictedCategories := c.RestrictedCategoryIDs()

	_, err := db.Exec(context.Background(), `
		INSERT INTO coupons (id, code, discount_kind, discount_value, maximum_discount_amount, minimum_order_value,
		                     valid_from, valid_until, global_usage_limit, per_user_limit, is_active,
		                     restricted_product_ids, restricted_category_ids)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID(), c.Code().String(), string(d.Kind()), d.Value().String(), maximum, c.MinimumOrderValue(),
		c.ValidFrom(), c.ValidUntil(), c.GlobalUsageLimit(), c.PerUserLimit(), c.IsActive(),
		restrictedProducts, restrictedCategories)
	require.NoError(t, err)
}

func CountRows(t *testing.T, db DBLike, sql string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(context.Background(), sql, args...).Scan(&n))
	return n
}
