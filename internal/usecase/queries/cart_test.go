//go:build unit

package queries_test

import (
	"context"
	"testing"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/pkg/clock"
	"checkout-engine/internal/testutil/builder"
	"checkout-engine/internal/testutil/memstore"
	"checkout-engine/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartQueries_GetCart(t *testing.T) {
	buyer := uuid.New()

	tests := []struct {
		name          string
		setup         func(s *memstore.Store)
		wantSubtotal  int64
		wantDiscount  int64
		wantRejection *string
		wantErr       error
	}{
		{
			name: "priced without coupon",
			setup: func(s *memstore.Store) {
				s.PutCart(builder.NewCartBuilder().With(func(b *builder.CartBuilder) { b.OwnerID = buyer }).
					WithLine(1000, 2).MustBuild())
			},
			wantSubtotal: 2000,
		},
		{
			name: "coupon applied",
			setup: func(s *memstore.Store) {
				s.PutCoupon(builder.NewCouponBuilder().MustBuild())
				s.PutCart(builder.NewCartBuilder().With(func(b *builder.CartBuilder) { b.OwnerID = buyer }).
					WithLine(1000, 2).WithCoupon("PERCENT10").MustBuild())
			},
			wantSubtotal: 2000,
			wantDiscount: 200,
		},
		{
			name: "unknown coupon is reported, not fatal",
			setup: func(s *memstore.Store) {
				s.PutCart(builder.NewCartBuilder().With(func(b *builder.CartBuilder) { b.OwnerID = buyer }).
					WithLine(500, 1).WithCoupon("NOSUCHCODE").MustBuild())
			},
			wantSubtotal:  500,
			wantRejection: strPtr("COUPON_NOT_FOUND"),
		},
		{
			name:    "no active cart",
			setup:   func(*memstore.Store) {},
			wantErr: cart.ErrCartNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			tt.setup(store)
			q := queries.NewCartQueries(store, clock.NewMockClock(builder.ReferenceTime))

			view, err := q.GetCart(context.Background(), buyer)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubtotal, view.Subtotal)
			assert.Equal(t, tt.wantDiscount, view.Discount)
			assert.Equal(t, tt.wantSubtotal-tt.wantDiscount, view.Total)
			assert.Equal(t, tt.wantRejection, view.CouponRejection)
			assert.Equal(t, "INR", view.Currency)
		})
	}
}

func strPtr(s string) *string { return &s }
