// Package eventbus provides the in-process publish/subscribe registry shared
// by the shell components.
//
// The bus is an explicitly owned object: the application root creates it and
// hands it to every component that publishes or listens. Dispatch is
// synchronous and follows subscription order. A listener that fails (returns
// an error or panics) is logged and skipped; delivery continues with the
// next listener and Emit reports the joined failures.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/studyhall/shell/internal/metrics"
)

// Listener receives the arguments passed to Emit for the events it is
// subscribed to.
type Listener interface {
	HandleEvent(ctx context.Context, event string, args ...any) error
}

// ListenerFunc adapts a function to Listener. Function values are not
// comparable, so a ListenerFunc can only be removed through the
// Subscription returned by Subscribe.
type ListenerFunc func(ctx context.Context, event string, args ...any) error

func (f ListenerFunc) HandleEvent(ctx context.Context, event string, args ...any) error {
	return f(ctx, event, args...)
}

// Subscription is the handle of one registration of a listener.
type Subscription struct {
	ID       string
	Event    string
	listener Listener
	bus      *Bus
}

// Cancel removes this registration only. It is safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.remove(s.Event, func(candidate *Subscription) bool { return candidate == s })
}

type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]*Subscription
	logger    zerolog.Logger
}

func New(logger zerolog.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]*Subscription),
		logger:    logger.With().Str("component", "eventbus").Logger(),
	}
}

// Subscribe appends listener to the registry entry for event. Subscribing
// the same listener twice yields two invocations per emission.
func (b *Bus) Subscribe(event string, listener Listener) *Subscription {
	sub := &Subscription{
		ID:       ulid.Make().String(),
		Event:    event,
		listener: listener,
		bus:      b,
	}

	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], sub)
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes every registration of listener for event and returns
// how many were removed. Unknown events and listeners are ignored.
func (b *Bus) Unsubscribe(event string, listener Listener) int {
	return b.remove(event, func(candidate *Subscription) bool {
		return sameListener(candidate.listener, listener)
	})
}

func (b *Bus) remove(event string, match func(*Subscription) bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.listeners[event]
	if !ok {
		return 0
	}

	kept := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		if !match(sub) {
			kept = append(kept, sub)
		}
	}
	removed := len(subs) - len(kept)
	if len(kept) == 0 {
		delete(b.listeners, event)
	} else if removed > 0 {
		b.listeners[event] = kept
	}
	return removed
}

// Emit delivers args to the listeners registered for event when Emit is
// called. Listeners added or removed during dispatch take effect on the
// next emission.
func (b *Bus) Emit(ctx context.Context, event string, args ...any) error {
	b.mu.RLock()
	snapshot := append([]*Subscription(nil), b.listeners[event]...)
	b.mu.RUnlock()

	metrics.BusEventsTotal.WithLabelValues(event).Inc()
	if len(snapshot) == 0 {
		return nil
	}

	var errs []error
	for _, sub := range snapshot {
		if err := deliver(ctx, sub, args); err != nil {
			metrics.BusListenerFailuresTotal.WithLabelValues(event).Inc()
			b.logger.Warn().
				Err(err).
				Str("event", event).
				Str("subscription", sub.ID).
				Msg("event listener failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListenerCount returns the number of registrations for event.
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

func deliver(ctx context.Context, sub *Subscription, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %s panicked: %v", sub.ID, r)
		}
	}()
	return sub.listener.HandleEvent(ctx, sub.Event, args...)
}

// sameListener reports identity for comparable listener types. Interface
// comparison panics on func, map and slice dynamic types, so those never
// match.
func sameListener(a, b Listener) bool {
	if a == nil || b == nil {
		return false
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
