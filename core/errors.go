package orchestration

import "errors"

var (
	// ErrInvalidTransition reports a mode change attempted from a state
	// that does not allow it. Logged and resynchronized, never fatal.
	ErrInvalidTransition = errors.New("invalid mode transition")

	// ErrBackpressureExceeded reports that the stream adapter's outbound
	// buffer is full; the caller drops or coalesces the chunk.
	ErrBackpressureExceeded = errors.New("backpressure exceeded")

	// ErrActuatorOverloaded reports that an actuator's pending queue is
	// full and nothing lower-priority could be evicted.
	ErrActuatorOverloaded = errors.New("actuator overloaded")
)
