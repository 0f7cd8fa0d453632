package events

import (
	"log/slog"
	"sync"
)

// Handler consumes one published event.
type Handler func(Event)

type subscription struct {
	id      int
	kind    Kind
	all     bool
	handler Handler
}

// Bus delivers events to subscribers synchronously, in publish order.
// A subscriber that panics is logged and skipped; it never interrupts
// delivery to the others.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for one event kind. The returned
// function removes the subscription.
func (b *Bus) Subscribe(kind Kind, handler Handler) func() {
	return b.add(subscription{kind: kind, handler: handler})
}

// SubscribeAll registers a handler for every event kind.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.add(subscription{all: true, handler: handler})
}

func (b *Bus) add(sub subscription) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)

	id := sub.id
	return func() { b.remove(id) }
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to matching subscribers in subscription
// order and returns once all of them have run.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	matched := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all || sub.kind == event.Kind() {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range matched {
		deliver(handler, event)
	}
}

func deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "kind", event.Kind(), slog.Any("panic", r))
		}
	}()
	handler(event)
}
