// Package events publishes payment reconciliation results for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicPaymentResults = "payment-results"

	EventTypePaymentReconciled = "payment.reconciled"
)

type PaymentEvent struct {
	OrderCode     string    `json:"order_code"`
	Outcome       string    `json:"outcome"`
	OrderStatus   string    `json:"order_status"`
	GatewayStatus string    `json:"gateway_status,omitempty"`
	GatewayCode   string    `json:"gateway_code,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event PaymentEvent) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

func NewKafkaPublisher(logger *slog.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  TopicPaymentResults,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderCode), // order code keeps one order on one partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypePaymentReconciled)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if errWrite := p.writer.WriteMessages(writeCtx, msg); errWrite != nil {
		return fmt.Errorf("publish payment event %s: %w", event.OrderCode, errWrite)
	}
	p.logger.DebugContext(ctx, "payment event published", "order_code", event.OrderCode, "outcome", event.Outcome)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events; used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, PaymentEvent) error { return nil }

func (Nop) Close() error { return nil }
