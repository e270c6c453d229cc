package events

import (
	"github.com/kelindar/event"
)

// Bus wraps the kelindar/event dispatcher for in-process event broadcasting.
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
// Usage: bus.Publish(CaptureFaultEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so each known event
	// type needs its own instantiation of the generic Publish.
	switch e := ev.(type) {
	case PipelineStateEvent:
		event.Publish(b.dispatcher, e)
	case CaptureFaultEvent:
		event.Publish(b.dispatcher, e)
	case StatsSnapshotEvent:
		event.Publish(b.dispatcher, e)
	case DetectionsEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an unsubscribe
// function.
// Usage: unsub := bus.Subscribe(func(e CaptureFaultEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PipelineStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureFaultEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StatsSnapshotEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DetectionsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
