package events

import "time"

type Kind string

// Event is the contract for everything that enters the orchestrator's queue.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
	String() string
}

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

type RebaseOption func(*Base)

// WithBase carries an earlier event's identity onto a derived event so the
// derived event keeps the original arrival timestamp.
func WithBase(base Base) RebaseOption {
	return func(b *Base) {
		*b = base
	}
}
