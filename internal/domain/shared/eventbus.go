package shared

import "context"

// EventHandler handles published domain events. Handlers must be idempotent:
// publication is at-least-once and the same event may be delivered twice.
type EventHandler interface {
	// Handle processes a domain event. Handlers never reject events they are
	// not interested in; unknown kinds are ignored.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler subscribes to.
	EventTypes() []string
}

// EventPublisher publishes domain events to subscribed handlers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers for event types.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
}

// EventBus combines publisher and subscriber capabilities.
type EventBus interface {
	EventPublisher
	EventSubscriber
	// Start starts background processing, if any.
	Start(ctx context.Context) error
	// Stop gracefully stops the bus.
	Stop(ctx context.Context) error
}
