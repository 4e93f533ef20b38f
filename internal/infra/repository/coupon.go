package repository

import (
	"context"

	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/infra/db"
	"checkout-engine/internal/pkg/errs"
	"checkout-engine/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const selectCouponSQL = `
	SELECT id, code, discount_kind, discount_value::text, maximum_discount_amount,
	       minimum_order_value, valid_from, valid_until, global_usage_limit, per_user_limit,
	       is_active, restricted_product_ids, restricted_category_ids, created_at
	FROM coupons
	WHERE code = $1`

type CouponRepository struct {
	db db.DBTX
}

func NewCouponRepository(db db.DBTX) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) FindByCode(ctx context.Context, code coupon.Code) (*coupon.Coupon, error) {
	return r.findOne(ctx, selectCouponSQL, code)
}

func (r *CouponRepository) LockByCode(ctx context.Context, code coupon.Code) (*coupon.Coupon, error) {
	return r.findOne(ctx, selectCouponSQL+` FOR UPDATE`, code)
}

func (r *CouponRepository) findOne(ctx context.Context, sql string, code coupon.Code) (*coupon.Coupon, error) {
	var (
		id                      uuid.UUID
		storedCode, kind        string
		value                   pgtype.Text
		maximum                 pgtype.Int8
		minimumOrderValue       int64
		validFrom, validUntil   pgtype.Timestamptz
		globalLimit, perUser    pgtype.Int4
		isActive                bool
		productIDs, categoryIDs []pgtype.UUID
		createdAt               pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, sql, code.String()).Scan(
		&id, &storedCode, &kind, &value, &maximum,
		&minimumOrderValue, &validFrom, &validUntil, &globalLimit, &perUser,
		&isActive, &productIDs, &categoryIDs, &createdAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, infra.WrapRepoErr("failed to get coupon", err)
	}

	discount, err := toDiscount(kind, value, maximum)
	if err != nil {
		return nil, infra.WrapRepoErr("corrupt coupon discount", err, infra.KindDBFailure)
	}

	c, err := coupon.NewCoupon(coupon.Params{
		ID:                    id,
		Code:                  coupon.Code(storedCode),
		Discount:              discount,
		MinimumOrderValue:     minimumOrderValue,
		ValidFrom:             validFrom.Time,
		ValidUntil:            validUntil.Time,
		GlobalUsageLimit:      intPtr(globalLimit),
		PerUserLimit:          intPtr(perUser),
		IsActive:              isActive,
		RestrictedProductIDs:  toUUIDs(productIDs),
		RestrictedCategoryIDs: toUUIDs(categoryIDs),
		CreatedAt:             createdAt.Time,
	})
	if err != nil {
		return nil, infra.WrapRepoErr("corrupt coupon row", err, infra.KindDBFailure)
	}
	return c, nil
}

func toDiscount(kind string, value pgtype.Text, maximum pgtype.Int8) (coupon.Discount, error) {
	k, err := coupon.NewKind(kind)
	if err != nil {
		return coupon.Discount{}, err
	}
	v, err := pgconv.DecimalFromText(value)
	if err != nil {
		return coupon.Discount{}, errs.Wrap(err, "discount value")
	}
	if k == coupon.KindPercentage {
		return coupon.NewPercentageDiscount(v, pgconv.Int64PtrFromPgtype(maximum))
	}
	return coupon.NewFixedDiscount(v.IntPart())
}

func intPtr(v pgtype.Int4) *int {
	p := pgconv.Int32PtrFromPgtype(v)
	if p == nil {
		return nil
	}
	i := int(*p)
	return &i
}

func toUUIDs(ids []pgtype.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id.Valid {
			out = append(out, uuid.UUID(id.Bytes))
		}
	}
	return out
}
