package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// FulfillmentEvent mirrors a webhook outcome onto the platform topic so the
// rest of the storefront (emails, analytics, admin dashboards) can react
// without touching the fulfillment store.
type FulfillmentEvent struct {
	Type          string    `json:"type"` // order.paid | payment.failed
	OrderID       string    `json:"order_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	OrderNumber   string    `json:"order_number,omitempty"`
	Amount        float64   `json:"amount"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type EventPublisher interface {
	PublishFulfillmentEvent(ctx context.Context, event *FulfillmentEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) EventPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}

	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) PublishFulfillmentEvent(ctx context.Context, event *FulfillmentEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal fulfillment event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventJSON,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write fulfillment event to kafka: %w", err)
	}

	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishFulfillmentEvent(context.Context, *FulfillmentEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
