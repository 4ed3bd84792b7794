package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/principal"
	"github.com/Skotchmaster/storefront/services/shop/internal/models"
	"github.com/Skotchmaster/storefront/services/shop/internal/mykafka"
	"github.com/Skotchmaster/storefront/services/shop/internal/search"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ev mykafka.Event) error
}

// Dispatcher queues a notification without waiting for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipient, subject, body string)
}

type ProductCache interface {
	GetOrLoad(ctx context.Context, id uuid.UUID, load func(context.Context) (*models.Product, error)) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	RemoveProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []search.Document, error)
}

// publish runs after commit; a lost event never fails the request.
func publish(ctx context.Context, pub EventPublisher, topic string, ev mykafka.Event) {
	if pub == nil {
		return
	}
	if err := pub.PublishEvent(ctx, topic, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}

func requireUser(actor principal.Principal) error {
	if actor.Anonymous() {
		return apperr.ErrUnauthorized
	}
	return nil
}
