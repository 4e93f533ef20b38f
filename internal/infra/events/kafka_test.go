//go:build unit

package events

import (
	"context"
	"testing"

	"checkout-engine/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher_Publish(t *testing.T) {
	orderID := uuid.New()
	event := shared.OutboxEvent{
		ID:          uuid.New(),
		Kind:        "order.paid",
		AggregateID: orderID,
		Payload:     []byte(`{"orderId":"x"}`),
		Attempts:    2,
	}

	tests := []struct {
		name      string
		writeErr  error
		wantError bool
	}{
		{name: "success"},
		{name: "broker error", writeErr: assert.AnError, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := new(MockWriter)
			w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
				return len(msgs) == 1
			})).Return(tt.writeErr)

			err := newKafkaPublisher(w, "checkout.events").Publish(context.Background(), []shared.OutboxEvent{event})

			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, assert.AnError)
			} else {
				require.NoError(t, err)
			}
			w.AssertExpectations(t)
		})
	}
}

func TestKafkaPublisher_EmptyBatch(t *testing.T) {
	w := new(MockWriter)

	err := newKafkaPublisher(w, "checkout.events").Publish(context.Background(), nil)

	require.NoError(t, err)
	w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestToMessage(t *testing.T) {
	e := shared.OutboxEvent{
		ID:          uuid.New(),
		Kind:        "order.paid",
		AggregateID: uuid.New(),
		Payload:     []byte(`{}`),
		Attempts:    0,
	}

	msg := toMessage(e)

	assert.Equal(t, []byte(e.AggregateID.String()), msg.Key)
	assert.Equal(t, e.Payload, msg.Value)
	assert.Equal(t, []kafka.Header{
		{Key: headerEventID, Value: []byte(e.ID.String())},
		{Key: headerEventKind, Value: []byte("order.paid")},
		{Key: headerAttempt, Value: []byte("1")},
	}, msg.Headers)
}
