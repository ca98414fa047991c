// Package events publishes payment lifecycle events for downstream
// consumers (fulfilment, notifications, analytics).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

type EventType string

const (
	EventPaymentInitialized EventType = "payment.initialized"
	EventPaymentWebhook     EventType = "payment.webhook"
	EventPaymentReconciled  EventType = "payment.reconciled"
)

type PaymentEvent struct {
	Type          EventType            `json:"type"`
	Provider      domain.ProviderKey   `json:"provider"`
	OrderID       string               `json:"orderId"`
	TransactionID string               `json:"transactionId"`
	Status        domain.PaymentStatus `json:"status"`
	AmountMinor   int64                `json:"amountMinor"`
	Currency      string               `json:"currency"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event PaymentEvent) error
	Close() error
}

// Writer is the subset of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publishBatchTimeout bounds how long Publish waits for a batch to fill;
// events are published inline with HTTP requests.
const publishBatchTimeout = 10 * time.Millisecond

type KafkaPublisher struct {
	writer Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           publishBatchTimeout,
	}}
}

func NewKafkaPublisherWithWriter(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish keys messages by order id so every event of one order lands on
// the same partition in order.
func (p *KafkaPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("Publish: marshal: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "provider", Value: []byte(event.Provider)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("Publish: write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PaymentEvent) error { return nil }
func (NopPublisher) Close() error                                { return nil }

// New returns a Kafka publisher, or a NopPublisher when brokers is empty.
func New(brokers []string, topic string) Publisher {
	var clean []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			clean = append(clean, b)
		}
	}
	if len(clean) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(clean, topic)
}
