package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(fw)

	event := PaymentEvent{
		Type:          EventPaymentInitialized,
		Provider:      domain.ProviderTelebirr,
		OrderID:       "order-7",
		TransactionID: "OT-7",
		Status:        domain.PaymentStatusPending,
		AmountMinor:   1000,
		Currency:      "ETB",
		OccurredAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, fw.msgs, 1)

	msg := fw.msgs[0]
	assert.Equal(t, "order-7", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event-type", Value: []byte("payment.initialized")})

	var decoded PaymentEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := NewKafkaPublisherWithWriter(&fakeWriter{err: errors.New("broker down")})

	err := p.Publish(context.Background(), PaymentEvent{OrderID: "o"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNew(t *testing.T) {
	assert.IsType(t, NopPublisher{}, New(nil, "payment-events"))
	assert.IsType(t, NopPublisher{}, New([]string{" ", ""}, "payment-events"))
	assert.IsType(t, &KafkaPublisher{}, New([]string{"localhost:9092"}, "payment-events"))
}

func TestNewKafkaPublisher_ShortBatchTimeout(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "payment-events")
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "payment-events", w.Topic)
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, w.BatchTimeout)
}
