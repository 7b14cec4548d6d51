// Package inproc implements the in-process event bus (spec §4.1):
// wildcard subscription, await-all and fire-and-forget publish, a
// wait_for helper, and a bounded history ring. Grounded on the teacher's
// postgres/eventbus LISTEN/NOTIFY adapter's subscription bookkeeping
// (per-channel subscriber set, cancel-and-drain Unsubscribe), replacing
// the Postgres channel with direct in-process dispatch since Marcus has
// no cross-process bus requirement.
package inproc

import (
	"context"
	"sync"
	"time"

	"github.com/marcusai/marcus/internal/domain/event"
	portbus "github.com/marcusai/marcus/internal/port/eventbus"
)

const defaultHistoryLimit = 1000

type subscription struct {
	bus      *Bus
	eventType event.Type
	handler  portbus.Handler
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subs[s.eventType]
	for i, sub := range subs {
		if sub == s {
			s.bus.subs[s.eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Bus is the in-process pub/sub hub: subscribers registered per event
// type, plus one bucket under event.Wildcard matching every event.
type Bus struct {
	mu            sync.RWMutex
	subs          map[event.Type][]*subscription
	history       []event.Event
	historyLimit  int
}

func New() *Bus {
	return &Bus{
		subs:         make(map[event.Type][]*subscription),
		historyLimit: defaultHistoryLimit,
	}
}

// Publish dispatches e to every matching subscriber synchronously,
// recording it in history before returning (spec I5: the publisher can
// rely on the event having reached every live subscriber).
func (b *Bus) Publish(ctx context.Context, e event.Event) error {
	b.record(e)
	for _, handler := range b.matchingHandlers(e.Type) {
		handler(ctx, e)
	}
	return nil
}

// PublishNoWait records e and dispatches to subscribers on a detached
// goroutine, returning immediately.
func (b *Bus) PublishNoWait(ctx context.Context, e event.Event) {
	b.record(e)
	handlers := b.matchingHandlers(e.Type)
	go func() {
		bg := context.WithoutCancel(ctx)
		for _, handler := range handlers {
			handler(bg, e)
		}
	}()
}

func (b *Bus) matchingHandlers(t event.Type) []portbus.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []portbus.Handler
	for _, sub := range b.subs[t] {
		out = append(out, sub.handler)
	}
	if t != event.Wildcard {
		for _, sub := range b.subs[event.Wildcard] {
			out = append(out, sub.handler)
		}
	}
	return out
}

func (b *Bus) record(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, e)
	if len(b.history) > b.historyLimit {
		b.history = b.history[len(b.history)-b.historyLimit:]
	}
}

func (b *Bus) Subscribe(ctx context.Context, eventType event.Type, handler portbus.Handler) (portbus.Subscription, error) {
	sub := &subscription{bus: b, eventType: eventType, handler: handler}
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.mu.Unlock()
	return sub, nil
}

// WaitFor blocks until an event of eventType matching pred arrives or
// timeout elapses, replaying history first so a caller that subscribes
// after the fact doesn't miss an event published moments earlier.
func (b *Bus) WaitFor(ctx context.Context, eventType event.Type, pred portbus.Predicate, timeout time.Duration) (event.Event, error) {
	if pred == nil {
		pred = func(event.Event) bool { return true }
	}
	for _, e := range b.History(event.Filter{Type: &eventType}, b.historyLimit) {
		if pred(e) {
			return e, nil
		}
	}

	ch := make(chan event.Event, 1)
	sub, err := b.Subscribe(ctx, eventType, func(_ context.Context, e event.Event) {
		if pred(e) {
			select {
			case ch <- e:
			default:
			}
		}
	})
	if err != nil {
		return event.Event{}, err
	}
	defer sub.Unsubscribe()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e := <-ch:
		return e, nil
	case <-timer.C:
		return event.Event{}, &portbus.ErrWaitTimeout{EventType: eventType}
	case <-ctx.Done():
		return event.Event{}, ctx.Err()
	}
}

// History returns up to limit events matching filter, oldest first.
func (b *Bus) History(filter event.Filter, limit int) []event.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []event.Event
	for _, e := range b.history {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

var _ portbus.EventBus = (*Bus)(nil)
