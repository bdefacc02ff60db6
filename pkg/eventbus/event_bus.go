// Package eventbus publishes and consumes automation events over a watermill transport.
package eventbus

import (
	"context"

	"github.com/diegodemontetech/bone-heal-web-77-sub002/pkg/events"
)

// Event is anything published on the bus.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends an event. key groups related events, usually the execution id.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.NodeExecution.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

var _ EventBus = (*WatermillEventBus)(nil)
