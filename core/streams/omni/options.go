package omni

import "time"

type Options struct {
	BaseURL      string
	Model        string
	Voice        string
	Instructions string

	OutboundBufferSize int
	BackoffBase        time.Duration
	BackoffCap         time.Duration

	Callbacks
}

// Callbacks receive stream traffic. Unset callbacks are replaced with
// no-ops so the read loop never nil-checks.
type Callbacks struct {
	TextCallback            func(text string)
	InputTranscriptCallback func(text string)
	AudioCallback           func(audio []byte)
	TurnEndCallback         func()
	SpeechStartedCallback   func()
	SpeechStoppedCallback   func()
	ErrorCallback           func(err error)
	ReconnectedCallback     func(attempts int)
	DroppedCallback         func(dropped int)
}

type Option func(*Options)

func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func WithVoice(voice string) Option {
	return func(o *Options) { o.Voice = voice }
}

func WithInstructions(instructions string) Option {
	return func(o *Options) { o.Instructions = instructions }
}

func WithOutboundBufferSize(size int) Option {
	return func(o *Options) { o.OutboundBufferSize = size }
}

func WithCallbacks(callbacks Callbacks) Option {
	return func(o *Options) {
		if callbacks.TextCallback != nil {
			o.TextCallback = callbacks.TextCallback
		}
		if callbacks.InputTranscriptCallback != nil {
			o.InputTranscriptCallback = callbacks.InputTranscriptCallback
		}
		if callbacks.AudioCallback != nil {
			o.AudioCallback = callbacks.AudioCallback
		}
		if callbacks.TurnEndCallback != nil {
			o.TurnEndCallback = callbacks.TurnEndCallback
		}
		if callbacks.SpeechStartedCallback != nil {
			o.SpeechStartedCallback = callbacks.SpeechStartedCallback
		}
		if callbacks.SpeechStoppedCallback != nil {
			o.SpeechStoppedCallback = callbacks.SpeechStoppedCallback
		}
		if callbacks.ErrorCallback != nil {
			o.ErrorCallback = callbacks.ErrorCallback
		}
		if callbacks.ReconnectedCallback != nil {
			o.ReconnectedCallback = callbacks.ReconnectedCallback
		}
		if callbacks.DroppedCallback != nil {
			o.DroppedCallback = callbacks.DroppedCallback
		}
	}
}
