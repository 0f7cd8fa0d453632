// Package events defines the lifecycle events the hub publishes and a
// small synchronous bus to subscribe to them.
package events

import "time"

// Kind names one lifecycle event.
type Kind string

// Event is any published lifecycle event. Concrete payloads embed Base.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields every event shares.
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
