// Package eventbus defines the bus port (spec §4.1): in-process pub/sub
// with wildcard subscription, fire-and-forget and await-all publish,
// bounded history, and a wait_for helper for tests and synchronous flows.
package eventbus

import (
	"context"
	"time"

	"github.com/marcusai/marcus/internal/domain/event"
)

type Handler func(ctx context.Context, e event.Event)

// Predicate filters events for WaitFor; a nil predicate matches any event
// of the subscribed type.
type Predicate func(e event.Event) bool

type Subscription interface {
	Unsubscribe()
}

// EventBus is the port every service depends on to publish domain events.
// It only delivers events; it does not write the conversation log. The
// coordinator's publish helper appends the matching log record itself.
type EventBus interface {
	// Publish awaits delivery to every subscriber before returning.
	Publish(ctx context.Context, e event.Event) error
	// PublishNoWait enqueues delivery and returns without waiting.
	PublishNoWait(ctx context.Context, e event.Event)
	// Subscribe registers handler for eventType, or for every event if
	// eventType is event.Wildcard ("*").
	Subscribe(ctx context.Context, eventType event.Type, handler Handler) (Subscription, error)
	// WaitFor suspends until a matching event arrives or timeout elapses.
	WaitFor(ctx context.Context, eventType event.Type, pred Predicate, timeout time.Duration) (event.Event, error)
	// History returns up to limit (<=1000) past events matching filter,
	// newest last, from the in-memory ring buffer.
	History(filter event.Filter, limit int) []event.Event
}

// ErrWaitTimeout is returned by WaitFor when no matching event arrives in time.
type ErrWaitTimeout struct {
	EventType event.Type
}

func (e *ErrWaitTimeout) Error() string {
	return "timed out waiting for event type " + string(e.EventType)
}
