package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(GroupRestartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic event.Publish needs the concrete type, hence the switch.
	switch e := ev.(type) {
	case GroupStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case GroupRestartedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function; the handler's
// parameter type selects which events it receives. Returns an unsubscribe
// function.
// Usage: unsub := bus.Subscribe(func(e GroupRestartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(GroupStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(GroupRestartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
