package events

const (
	KindUserChunk      Kind = "perception.chunk"
	KindUserPrompt     Kind = "perception.prompt"
	KindUserTranscript Kind = "perception.transcript"
	KindUserTurnOpened Kind = "perception.turn_opened"
	KindUserTurnEnded  Kind = "perception.turn_ended"
)

// UserChunk is a single perception chunk (audio or video frame) observed
// while the user's input turn is open.
type UserChunk struct {
	Base
	Media string // "audio" | "video"
	Data  []byte
}

func (e UserChunk) String() string { return "user chunk" }

func NewUserChunk(media string, data []byte, opts ...RebaseOption) UserChunk {
	base := NewBase(KindUserChunk)
	for _, opt := range opts {
		opt(&base)
	}

	return UserChunk{Base: base, Media: media, Data: data}
}

// UserPrompt is a typed text prompt entered through the control surface. It
// opens and closes a user turn in one event.
type UserPrompt struct {
	Base
	Prompt string
}

func (e UserPrompt) String() string { return e.Prompt }

func NewUserPrompt(prompt string, opts ...RebaseOption) UserPrompt {
	base := NewBase(KindUserPrompt)
	for _, opt := range opts {
		opt(&base)
	}

	return UserPrompt{Base: base, Prompt: prompt}
}

// UserTranscript carries the endpoint's transcription of spoken input.
type UserTranscript struct {
	Base
	Text string
}

func (e UserTranscript) String() string { return e.Text }

func NewUserTranscript(text string, opts ...RebaseOption) UserTranscript {
	base := NewBase(KindUserTranscript)
	for _, opt := range opts {
		opt(&base)
	}

	return UserTranscript{Base: base, Text: text}
}

// UserTurnOpened marks the start of a user input stream (input opened on the
// control surface or first chunk of speech).
type UserTurnOpened struct{ Base }

func (e UserTurnOpened) String() string { return "user turn opened" }

func NewUserTurnOpened(opts ...RebaseOption) UserTurnOpened {
	base := NewBase(KindUserTurnOpened)
	for _, opt := range opts {
		opt(&base)
	}

	return UserTurnOpened{Base: base}
}

// UserTurnEnded marks the end of the user's input stream.
type UserTurnEnded struct{ Base }

func (e UserTurnEnded) String() string { return "user turn ended" }

func NewUserTurnEnded(opts ...RebaseOption) UserTurnEnded {
	base := NewBase(KindUserTurnEnded)
	for _, opt := range opts {
		opt(&base)
	}

	return UserTurnEnded{Base: base}
}
