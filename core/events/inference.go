package events

const (
	KindPartialText Kind = "inference.partial_text"
	KindAudioFrame  Kind = "inference.audio_frame"
	KindReplyEnd    Kind = "inference.turn_end"
)

// PartialText is a streamed response text segment.
type PartialText struct {
	Base
	Text string
}

func (e PartialText) String() string { return e.Text }

func NewPartialText(text string, opts ...RebaseOption) PartialText {
	base := NewBase(KindPartialText)
	for _, opt := range opts {
		opt(&base)
	}

	return PartialText{Base: base, Text: text}
}

// AudioFrame is a streamed response audio frame.
type AudioFrame struct {
	Base
	Audio []byte
}

func (e AudioFrame) String() string { return "audio frame" }

func NewAudioFrame(audio []byte, opts ...RebaseOption) AudioFrame {
	base := NewBase(KindAudioFrame)
	for _, opt := range opts {
		opt(&base)
	}

	return AudioFrame{Base: base, Audio: audio}
}

// ReplyEnd marks the end of the inference reply stream for the current turn.
type ReplyEnd struct{ Base }

func (e ReplyEnd) String() string { return "reply end" }

func NewReplyEnd(opts ...RebaseOption) ReplyEnd {
	base := NewBase(KindReplyEnd)
	for _, opt := range opts {
		opt(&base)
	}

	return ReplyEnd{Base: base}
}
