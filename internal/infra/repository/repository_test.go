//go:build unit

package repository

import (
	"context"
	"testing"
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/payment"
	"checkout-engine/internal/infra"
	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDBTX struct {
	mock.Mock
}

func (m *MockDBTX) Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error) {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgconn.CommandTag), mockArgs.Error(1)
}

func (m *MockDBTX) Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error) {
	mockArgs := m.Called(ctx, query, args)
	rows, _ := mockArgs.Get(0).(pgx.Rows)
	return rows, mockArgs.Error(1)
}

func (m *MockDBTX) QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row {
	mockArgs := m.Called(ctx, query, args)
	return mockArgs.Get(0).(pgx.Row)
}

// errRow is a pgx.Row whose Scan always fails with err.
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestIntentRepository_ConfirmByGatewayOrderID(t *testing.T) {
	params := shared.ConfirmParams{
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		Channel:          payment.ChannelWebhook,
		Now:              time.Now(),
	}

	tests := []struct {
		name      string
		scanErr   error
		wantError bool
		wantKind  infra.RepositoryErrorKind
	}{
		{
			name:    "no confirmable row means another caller won",
			scanErr: pgx.ErrNoRows,
		},
		{
			name:      "database error",
			scanErr:   assert.AnError,
			wantError: true,
			wantKind:  infra.KindDBFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(MockDBTX)
			db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(errRow{err: tt.scanErr})

			in, won, err := NewIntentRepository(db).ConfirmByGatewayOrderID(context.Background(), params)

			assert.Nil(t, in)
			assert.False(t, won)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, infra.IsKind(err, tt.wantKind))
			} else {
				assert.NoError(t, err)
			}
			db.AssertExpectations(t)
		})
	}
}

func TestIntentRepository_FindByIDNotFound(t *testing.T) {
	db := new(MockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(errRow{err: pgx.ErrNoRows})

	_, err := NewIntentRepository(db).FindByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, payment.ErrIntentNotFound)
}

func TestConditionalUpdates(t *testing.T) {
	now := time.Now()
	intentID := uuid.New()

	tests := []struct {
		name     string
		affected string
		call     func(db *MockDBTX) (bool, error)
		want     bool
	}{
		{
			name:     "intent expired",
			affected: "UPDATE 1",
			call: func(db *MockDBTX) (bool, error) {
				return NewIntentRepository(db).Expire(context.Background(), intentID, now)
			},
			want: true,
		},
		{
			name:     "intent already settled",
			affected: "UPDATE 0",
			call: func(db *MockDBTX) (bool, error) {
				return NewIntentRepository(db).MarkFailed(context.Background(), intentID, "gateway down", now)
			},
			want: false,
		},
		{
			name:     "reservation released",
			affected: "UPDATE 1",
			call: func(db *MockDBTX) (bool, error) {
				return NewRedemptionRepository(db).MarkReleased(context.Background(), intentID, now)
			},
			want: true,
		},
		{
			name:     "reservation already confirmed",
			affected: "UPDATE 0",
			call: func(db *MockDBTX) (bool, error) {
				return NewRedemptionRepository(db).MarkConfirmed(context.Background(), intentID, uuid.New(), now)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := new(MockDBTX)
			db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.NewCommandTag(tt.affected), nil)

			got, err := tt.call(db)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			db.AssertExpectations(t)
		})
	}
}

func TestNotFoundSentinels(t *testing.T) {
	db := new(MockDBTX)
	db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(errRow{err: pgx.ErrNoRows})
	ctx := context.Background()

	_, err := NewCartRepository(db).LockActiveByOwner(ctx, uuid.New())
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	_, err = NewCouponRepository(db).LockByCode(ctx, coupon.Code("SAVE10"))
	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)

	_, err = NewRedemptionRepository(db).FindByIntent(ctx, uuid.New())
	assert.ErrorIs(t, err, coupon.ErrRedemptionNotFound)

	_, err = NewCatalogRepository(db).ProductByID(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, shared.ErrProductNotFound)
}

func TestSaveStatus_MissingCart(t *testing.T) {
	db := new(MockDBTX)
	db.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	c := cart.NewCart(uuid.New(), uuid.New(), "INR", time.Now())
	err := NewCartRepository(db).SaveStatus(context.Background(), c)

	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

func TestOutboxRepository_MarkPublishedEmpty(t *testing.T) {
	db := new(MockDBTX)

	err := NewOutboxRepository(db).MarkPublished(context.Background(), nil, time.Now())

	assert.NoError(t, err)
	db.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}
