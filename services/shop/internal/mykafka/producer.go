package mykafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicCartEvents    = "cart_events"
	TopicOrderEvents   = "order_events"
	TopicProductEvents = "product_events"
	TopicNotifications = "notifications"

	publishTimeout  = 5 * time.Second
	headerEventType = "event_type"
)

type Event struct {
	Type        string    `json:"type"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Data        any       `json:"data,omitempty"`
}

func NewEvent(typ, aggregateID string, data any) Event {
	return Event{Type: typ, AggregateID: aggregateID, OccurredAt: time.Now().UTC(), Data: data}
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}}
}

// PublishEvent writes ev keyed by its aggregate so events of one cart or
// order stay ordered within a partition.
func (p *Producer) PublishEvent(ctx context.Context, topic string, ev Event) error {
	msg, err := buildMessage(topic, ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s to %s: %w", ev.Type, topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func buildMessage(topic string, ev Event) (kafka.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(ev.AggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(ev.Type)},
		},
	}, nil
}
