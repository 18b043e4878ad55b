// Package events carries the in-process publish/subscribe plumbing. Event
// definitions live with the domains that emit them; this package only knows
// how to route an Event to its handlers.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName is the routing key handlers subscribe under.
	EventName() string
	// OccurredAt is the emission timestamp.
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp; embed it in event structs.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes published events. A single handler may subscribe under
// several event names and dispatch on the concrete type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// Bus is the publish/subscribe port modules depend on.
type Bus interface {
	// Publish delivers the event to every handler subscribed under its name.
	// Delivery is asynchronous and never fails the publisher.
	Publish(ctx context.Context, event Event)

	// Subscribe registers a handler under an event name, as returned by
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}
