package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	writer := &fakeWriter{}
	publisher := &KafkaPublisher{writer: writer, log: quietLogger()}

	order := &domain.Order{
		ID:          5,
		OrderNumber: "ORD-1",
		CustomerID:  10,
		Status:      domain.StatusPending,
		TotalAmount: decimal.RequireFromString("20.00"),
		Items: []domain.OrderItem{
			{VendorID: 9}, {VendorID: 8}, {VendorID: 9},
		},
	}
	require.NoError(t, publisher.Publish(context.Background(), domain.NewOrderEvent(domain.EventOrderCreated, order, 10)))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "5", string(msg.Key))
	assert.Equal(t, domain.EventOrderCreated, string(msg.Headers[0].Value))

	var decoded domain.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, []int{9, 8}, decoded.VendorIDs)
	assert.True(t, decoded.TotalAmount.Equal(decimal.NewFromInt(20)))
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	publisher := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}, log: quietLogger()}
	err := publisher.Publish(context.Background(), domain.OrderEvent{Type: domain.EventOrderStatusChanged, OrderID: 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}
