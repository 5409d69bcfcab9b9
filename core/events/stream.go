package events

const (
	KindConnectionError Kind = "stream.connection_error"
	KindReconnected     Kind = "stream.reconnected"
	KindChunkDropped    Kind = "stream.chunk_dropped"
)

// ConnectionError reports that the inference stream connection failed. The
// adapter keeps reconnecting on its own; the orchestrator reacts by
// resynchronizing the session.
type ConnectionError struct {
	Base
	Err error
}

func (e ConnectionError) String() string { return "connection error" }

func NewConnectionError(err error, opts ...RebaseOption) ConnectionError {
	base := NewBase(KindConnectionError)
	for _, opt := range opts {
		opt(&base)
	}

	return ConnectionError{Base: base, Err: err}
}

// Reconnected reports that the inference stream is live again.
type Reconnected struct {
	Base
	Attempts int
}

func (e Reconnected) String() string { return "reconnected" }

func NewReconnected(attempts int, opts ...RebaseOption) Reconnected {
	base := NewBase(KindReconnected)
	for _, opt := range opts {
		opt(&base)
	}

	return Reconnected{Base: base, Attempts: attempts}
}

// ChunkDropped reports that an outbound perception chunk was discarded while
// the adapter's buffer was full (typically during a reconnect window).
type ChunkDropped struct {
	Base
	Dropped int
}

func (e ChunkDropped) String() string { return "chunk dropped" }

func NewChunkDropped(dropped int, opts ...RebaseOption) ChunkDropped {
	base := NewBase(KindChunkDropped)
	for _, opt := range opts {
		opt(&base)
	}

	return ChunkDropped{Base: base, Dropped: dropped}
}
