package repository

import (
	"context"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/money"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	selectCartSQL = `
		SELECT id, owner_id, status, currency, coupon_code, created_at, updated_at
		FROM carts`

	selectCartLinesSQL = `
		SELECT product_id, variant_id, category_id, name, quantity, unit_price
		FROM cart_lines
		WHERE cart_id = $1
		ORDER BY position`
)

type CartRepository struct {
	db db.DBTX
}

func NewCartRepository(db db.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) FindActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	return r.findOne(ctx, selectCartSQL+` WHERE owner_id = $1 AND status <> 'CHECKED_OUT'`, ownerID)
}

// LockActiveByOwner holds the cart row until the transaction ends, so checkout
// and cart edits for one buyer never interleave.
func (r *CartRepository) LockActiveByOwner(ctx context.Context, ownerID uuid.UUID) (*cart.Cart, error) {
	return r.findOne(ctx, selectCartSQL+` WHERE owner_id = $1 AND status <> 'CHECKED_OUT' FOR UPDATE`, ownerID)
}

func (r *CartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.findOne(ctx, selectCartSQL+` WHERE id = $1`, id)
}

func (r *CartRepository) findOne(ctx context.Context, sql string, arg uuid.UUID) (*cart.Cart, error) {
	var (
		id, ownerID          uuid.UUID
		status, currency     string
		couponCode           pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, sql, arg).Scan(&id, &ownerID, &status, &currency, &couponCode, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, cart.ErrCartNotFound
		}
		return nil, infra.WrapRepoErr("failed to get cart", err)
	}

	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}

	var code *coupon.Code
	if couponCode.Valid {
		c := coupon.Code(couponCode.String)
		code = &c
	}
	return cart.ReconstructCart(id, ownerID, cart.Status(status), money.Currency(currency), lines, code, createdAt.Time, updatedAt.Time), nil
}

func (r *CartRepository) lines(ctx context.Context, cartID uuid.UUID) ([]cart.Line, error) {
	rows, err := r.db.Query(ctx, selectCartLinesSQL, cartID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to get cart lines", err)
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var (
			productID             uuid.UUID
			variantID, categoryID pgtype.UUID
			name                  string
			quantity              int32
			unitPrice             int64
		)
		if err := rows.Scan(&productID, &variantID, &categoryID, &name, &quantity, &unitPrice); err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart line", err)
		}
		line, err := cart.NewLine(productID, pgconv.UUIDPtrFromPgtype(variantID), pgconv.UUIDPtrFromPgtype(categoryID), name, int(quantity), unitPrice)
		if err != nil {
			return nil, infra.WrapRepoErr("corrupt cart line", err, infra.KindDBFailure)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read cart lines", err)
	}
	return lines, nil
}

// Save upserts the cart and rewrites its lines.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	var code *string
	if cc := c.CouponCode(); cc != nil {
		s := cc.String()
		code = &s
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO carts (id, owner_id, status, currency, coupon_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    coupon_code = EXCLUDED.coupon_code,
		    updated_at = EXCLUDED.updated_at`,
		c.ID(), c.OwnerID(), string(c.Status()), c.Currency().String(), pgconv.StringPtrToPgtype(code),
		pgconv.TimeToPgtype(c.CreatedAt()), pgconv.TimeToPgtype(c.UpdatedAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to save cart", err)
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, c.ID()); err != nil {
		return infra.WrapRepoErr("failed to clear cart lines", err)
	}
	for i, l := range c.Lines() {
		_, err := r.db.Exec(ctx, `
			INSERT INTO cart_lines (cart_id, position, product_id, variant_id, category_id, name, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID(), i, l.ProductID(), pgconv.UUIDPtrToPgtype(l.VariantID()), pgconv.UUIDPtrToPgtype(l.CategoryID()),
			l.Name(), l.Quantity(), l.UnitPrice())
		if err != nil {
			return infra.WrapRepoErr("failed to insert cart line", err)
		}
	}
	return nil
}

func (r *CartRepository) SaveStatus(ctx context.Context, c *cart.Cart) error {
	tag, err := r.db.Exec(ctx, `UPDATE carts SET status = $2, updated_at = $3 WHERE id = $1`,
		c.ID(), string(c.Status()), pgconv.TimeToPgtype(c.UpdatedAt()))
	if err != nil {
		return infra.WrapRepoErr("failed to update cart status", err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrCartNotFound
	}
	return nil
}
