package notify

import (
	"context"

	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ev mykafka.Event) error
}

// KafkaNotifier leaves fan-out to push and in-app channels to whoever
// consumes the notifications topic.
type KafkaNotifier struct {
	Publisher EventPublisher
}

type notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (k KafkaNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	ev := mykafka.NewEvent("notification", recipient, notification{Recipient: recipient, Subject: subject, Body: body})
	return k.Publisher.PublishEvent(ctx, mykafka.TopicNotifications, ev)
}
