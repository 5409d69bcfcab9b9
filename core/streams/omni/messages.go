package omni

import "encoding/json"

// Wire messages follow the realtime websocket dialect of the omni endpoint.

type outboundEvent struct {
	Type     string          `json:"type"`
	Audio    string          `json:"audio,omitempty"`
	Image    string          `json:"image,omitempty"`
	Session  *sessionConfig  `json:"session,omitempty"`
	Item     *conversionItem `json:"item,omitempty"`
	Response *responseConfig `json:"response,omitempty"`
}

type sessionConfig struct {
	Modalities         []string             `json:"modalities,omitempty"`
	Voice              string               `json:"voice,omitempty"`
	Instructions       string               `json:"instructions,omitempty"`
	InputFormat        string               `json:"input_audio_format,omitempty"`
	OutputFormat       string               `json:"output_audio_format,omitempty"`
	InputTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
}

type transcriptionConfig struct {
	Model string `json:"model,omitempty"`
}

type conversionItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []itemContent `json:"content,omitempty"`
}

type itemContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responseConfig struct {
	Modalities []string `json:"modalities,omitempty"`
}

type inboundEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Raw json.RawMessage `json:"-"`
}

func (e *inboundEvent) unmarshal(msg []byte) error {
	if err := json.Unmarshal(msg, e); err != nil {
		return err
	}
	e.Raw = msg
	return nil
}
