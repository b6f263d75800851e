// internal/events/kafka/publisher_test.go
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"balance-ledger/internal/domain"
	"balance-ledger/internal/events"
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

func TestPublish(t *testing.T) {
	related := int64(2)
	txn := domain.NewTransaction(1, domain.TransactionTypeTransferOut, decimal.RequireFromString("150"), nil, &related)
	txn.ID = 42
	evt := events.NewBalanceChanged(txn, &domain.Balance{UserID: 1, Amount: decimal.RequireFromString("150")})

	t.Run("KeysByUserAndEncodesJSON", func(t *testing.T) {
		ctx := context.Background()
		w := new(MockWriter)
		p := &Publisher{writer: w}

		var sent []kafka.Message
		w.On("WriteMessages", ctx, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).([]kafka.Message)
		}).Return(nil).Once()

		require.NoError(t, p.Publish(ctx, evt))
		require.Len(t, sent, 1)
		assert.Equal(t, "1", string(sent[0].Key))

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(sent[0].Value, &decoded))
		assert.Equal(t, "transfer_out", decoded["type"])
		assert.Equal(t, "150.00", decoded["amount"])
		assert.Equal(t, float64(42), decoded["transaction_id"])
		assert.Equal(t, float64(2), decoded["related_user_id"])
		w.AssertExpectations(t)
	})

	t.Run("WrapsWriterErrors", func(t *testing.T) {
		w := new(MockWriter)
		p := &Publisher{writer: w}
		w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		err := p.Publish(context.Background(), evt)
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("NoEventsNoWrite", func(t *testing.T) {
		w := new(MockWriter)
		p := &Publisher{writer: w}
		require.NoError(t, p.Publish(context.Background()))
		w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})
}
