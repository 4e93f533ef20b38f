//go:build unit

package coupon_test

import (
	"encoding/json"
	"testing"
	"time"

	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/testutil/builder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCase struct {
	name   string
	mutate func(*builder.CouponBuilder)
	errIs  error
}

func TestCoupon(t *testing.T) {
	t.Run("construction", func(t *testing.T) {
		runCases(t, []testCase{
			{
				name:   "default percentage coupon",
				mutate: func(*builder.CouponBuilder) {},
			},
			{
				name:   "percentage above 100",
				mutate: func(b *builder.CouponBuilder) { b.Percent = decimal.NewFromInt(101) },
				errIs:  coupon.ErrInvalidDiscountPercent,
			},
			{
				name:   "zero percentage",
				mutate: func(b *builder.CouponBuilder) { b.Percent = decimal.Zero },
				errIs:  coupon.ErrInvalidDiscountPercent,
			},
			{
				name:   "zero fixed amount",
				mutate: func(b *builder.CouponBuilder) { b.Fixed("FLAT0", 0) },
				errIs:  coupon.ErrInvalidDiscountAmount,
			},
			{
				name:   "malformed code",
				mutate: func(b *builder.CouponBuilder) { b.Code = "a b" },
				errIs:  coupon.ErrInvalidCouponCode,
			},
			{
				name:   "inverted validity window",
				mutate: func(b *builder.CouponBuilder) { b.ValidUntil = b.ValidFrom.Add(-time.Second) },
				errIs:  coupon.ErrInvalidValidityWindow,
			},
			{
				name:   "zero global limit",
				mutate: func(b *builder.CouponBuilder) { b.WithGlobalLimit(0) },
				errIs:  coupon.ErrInvalidLimit,
			},
		})
	})

	t.Run("code normalisation", func(t *testing.T) {
		code, err := coupon.NewCode("  percent10 ")
		require.NoError(t, err)
		assert.Equal(t, coupon.Code("PERCENT10"), code)
	})

	t.Run("validity window is inclusive", func(t *testing.T) {
		c := builder.NewCouponBuilder().MustBuild()
		items := []coupon.Item{{ProductID: uuid.New()}}

		assert.NoError(t, c.CheckApplicable(c.ValidFrom(), 100, items))
		assert.NoError(t, c.CheckApplicable(c.ValidUntil(), 100, items))
		assert.ErrorIs(t, c.CheckApplicable(c.ValidUntil().Add(time.Nanosecond), 100, items), coupon.ErrCouponExpired)
	})

	t.Run("limits", func(t *testing.T) {
		c := builder.NewCouponBuilder().WithGlobalLimit(5).WithPerUserLimit(1).MustBuild()

		assert.NoError(t, c.CheckLimits(4, 0))
		assert.ErrorIs(t, c.CheckLimits(5, 0), coupon.ErrGlobalLimitReached)
		assert.ErrorIs(t, c.CheckLimits(0, 1), coupon.ErrPerUserLimitReached)
		assert.ErrorIs(t, c.CheckLimits(5, 0), coupon.ErrCouponExhausted)
		assert.ErrorIs(t, c.CheckLimits(0, 1), coupon.ErrCouponExhausted)

		unlimited := builder.NewCouponBuilder().MustBuild()
		assert.NoError(t, unlimited.CheckLimits(1_000_000, 1_000_000))
	})

	t.Run("fixed discount never exceeds subtotal", func(t *testing.T) {
		c := builder.NewCouponBuilder().Fixed("FLAT50", 50).MustBuild()
		assert.Equal(t, int64(30), c.DiscountFor(30))
		assert.Equal(t, int64(50), c.DiscountFor(1000))
		assert.Equal(t, int64(0), c.DiscountFor(0))
	})
}

func TestRedemption_ReservedCoupon(t *testing.T) {
	product := uuid.New()
	items := []coupon.Item{{ProductID: product}}
	reservedAt := builder.ReferenceTime

	t.Run("prices like the coupon it was taken from", func(t *testing.T) {
		live := builder.NewCouponBuilder().Percentage("PERCENT10", 10, builder.Int64(150)).With(func(b *builder.CouponBuilder) {
			b.MinimumOrderValue = 500
			b.RestrictedProductIDs = []uuid.UUID{product}
		}).MustBuild()
		r := coupon.NewReservation(live, uuid.New(), uuid.New(), reservedAt)

		reserved, err := r.ReservedCoupon()
		require.NoError(t, err)
		assert.Equal(t, live.ID(), reserved.ID())
		assert.Equal(t, live.Code(), reserved.Code())
		assert.NoError(t, reserved.CheckApplicable(reservedAt, 1000, items))
		assert.ErrorIs(t, reserved.CheckApplicable(reservedAt, 400, items), coupon.ErrMinimumOrderValueNotMet)
		assert.ErrorIs(t, reserved.CheckApplicable(reservedAt, 1000, []coupon.Item{{ProductID: uuid.New()}}), coupon.ErrProductNotEligible)
		assert.Equal(t, live.DiscountFor(1000), reserved.DiscountFor(1000))
		assert.Equal(t, int64(150), reserved.DiscountFor(5000))
	})

	t.Run("ignores activity and window of the live coupon", func(t *testing.T) {
		inactive := builder.NewCouponBuilder().With(func(b *builder.CouponBuilder) {
			b.IsActive = false
			b.ValidFrom = reservedAt.Add(-48 * time.Hour)
			b.ValidUntil = reservedAt.Add(-24 * time.Hour)
		}).MustBuild()
		r := coupon.NewReservation(inactive, uuid.New(), uuid.New(), reservedAt)

		reserved, err := r.ReservedCoupon()
		require.NoError(t, err)
		assert.NoError(t, reserved.CheckApplicable(reservedAt, 1000, items))
		assert.Equal(t, int64(100), reserved.DiscountFor(1000))
	})

	t.Run("terms survive a JSON round trip", func(t *testing.T) {
		fixed := builder.NewCouponBuilder().Fixed("FLAT50", 50).MustBuild()
		raw, err := json.Marshal(fixed.Terms())
		require.NoError(t, err)

		var terms coupon.Terms
		require.NoError(t, json.Unmarshal(raw, &terms))
		r := coupon.ReconstructRedemption(uuid.New(), fixed.ID(), uuid.New(), uuid.New(), nil,
			coupon.RedemptionConfirmed, terms, reservedAt, nil)

		reserved, err := r.ReservedCoupon()
		require.NoError(t, err)
		assert.Equal(t, coupon.KindFixed, reserved.Discount().Kind())
		assert.Equal(t, int64(50), reserved.DiscountFor(1000))
		assert.Equal(t, int64(30), reserved.DiscountFor(30))
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		_, err := coupon.Terms{Code: "PERCENT10", Kind: "bogo"}.CouponAt(uuid.New(), reservedAt)
		assert.ErrorIs(t, err, coupon.ErrInvalidDiscountKind)
	})
}

func runCases(t *testing.T, cases []testCase) {
	t.Helper()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			actual, err := builder.NewCouponBuilder().With(c.mutate).BuildDomain()

			if c.errIs == nil {
				require.NoError(t, err)
				require.NotNil(t, actual)
			} else {
				require.Error(t, err)
				require.Nil(t, actual)
				require.ErrorIs(t, err, c.errIs)
			}
		})
	}
}
