package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(MultistreamStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// Use type switch to call the generic Publish with the correct type
	switch e := ev.(type) {
	case MultistreamStartedEvent:
		event.Publish(b.dispatcher, e)
	case MultistreamStoppedEvent:
		event.Publish(b.dispatcher, e)
	case DestinationChangedEvent:
		event.Publish(b.dispatcher, e)
	case ConnectionChangedEvent:
		event.Publish(b.dispatcher, e)
	case ProcessStateEvent:
		event.Publish(b.dispatcher, e)
	case SessionsUpdatedEvent:
		event.Publish(b.dispatcher, e)
	case EngineUnreachableEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives (type inference)
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e MultistreamStartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(MultistreamStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(MultistreamStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DestinationChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConnectionChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProcessStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionsUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EngineUnreachableEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}
