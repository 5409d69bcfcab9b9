// Package omni maintains the realtime websocket session with the omnimodal
// model endpoint: audio and text go up, text, audio and turn boundaries
// come back. The connection heals itself with capped exponential backoff
// and never gives up; callers only see connection errors as events.
package omni

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultBaseURL = "wss://dashscope-intl.aliyuncs.com/api-ws/v1/realtime"
	defaultModel   = "qwen3-omni-flash-realtime"
	defaultVoice   = "Cherry"

	defaultOutboundBufferSize = 64
	defaultBackoffBase        = 500 * time.Millisecond
	defaultBackoffCap         = 30 * time.Second
)

type outboundChunk struct {
	media string // "audio" | "video"
	data  []byte
}

type Client struct {
	apiKey  string
	options Options

	outbound chan outboundChunk

	mu        sync.Mutex
	conn      *websocket.Conn
	connected chan struct{} // closed while a live conn exists, replaced on loss

	closeCh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(apiKey string, opts ...Option) *Client {
	options := Options{
		BaseURL:            defaultBaseURL,
		Model:              defaultModel,
		Voice:              defaultVoice,
		OutboundBufferSize: defaultOutboundBufferSize,
		BackoffBase:        defaultBackoffBase,
		BackoffCap:         defaultBackoffCap,
		Callbacks: Callbacks{
			TextCallback:            func(string) {},
			InputTranscriptCallback: func(string) {},
			AudioCallback:           func([]byte) {},
			TurnEndCallback:         func() {},
			SpeechStartedCallback:   func() {},
			SpeechStoppedCallback:   func() {},
			ErrorCallback:           func(error) {},
			ReconnectedCallback:     func(int) {},
			DroppedCallback:         func(int) {},
		},
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		apiKey:    apiKey,
		options:   options,
		outbound:  make(chan outboundChunk, options.OutboundBufferSize),
		connected: make(chan struct{}),
		closeCh:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Connect dials the endpoint and starts the read and audio pump loops. The
// initial dial failing is an error; later disconnects are handled by the
// reconnect loop.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect omni stream")
	defer span.End()
	span.SetAttributes(attribute.String("stream.model", c.options.Model))

	conn, err := c.dial(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to connect to omni endpoint")
		return err
	}
	c.markConnected(conn)

	go c.run(context.WithoutCancel(ctx), conn)
	go c.mediaPump()
	return nil
}

func (c *Client) markConnected(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	select {
	case <-c.connected:
	default:
		close(c.connected)
	}
	c.mu.Unlock()
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	select {
	case <-c.connected:
		c.connected = make(chan struct{})
	default:
	}
	c.mu.Unlock()
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	endpoint, err := url.Parse(c.options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	query := endpoint.Query()
	query.Set("model", c.options.Model)
	endpoint.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(),
		http.Header{"Authorization": {"Bearer " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to omni endpoint: %w", err)
	}

	if err := conn.WriteJSON(outboundEvent{
		Type: "session.update",
		Session: &sessionConfig{
			Modalities:         []string{"text", "audio"},
			Voice:              c.options.Voice,
			Instructions:       c.options.Instructions,
			InputFormat:        "pcm16",
			OutputFormat:       "pcm16",
			InputTranscription: &transcriptionConfig{Model: "gummy-realtime-v1"},
		},
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure session: %w", err)
	}
	return conn, nil
}

// run reads messages until the connection breaks, then reconnects forever.
func (c *Client) run(ctx context.Context, conn *websocket.Conn) {
	defer close(c.done)
	for {
		err := c.readLoop(conn)
		c.markDisconnected()
		select {
		case <-c.closeCh:
			return
		default:
		}
		c.options.ErrorCallback(err)
		logger.Warn("Omni stream disconnected", "error", err)

		conn = c.reconnect(ctx)
		if conn == nil {
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event inboundEvent
		if err := event.unmarshal(msg); err != nil {
			logger.Debug("Skipping unparseable stream message", "error", err)
			continue
		}

		switch event.Type {
		case "response.text.delta", "response.audio_transcript.delta":
			c.options.TextCallback(event.Delta)
		case "conversation.item.input_audio_transcription.completed":
			c.options.InputTranscriptCallback(event.Transcript)
		case "response.audio.delta":
			audio, err := base64.StdEncoding.DecodeString(event.Delta)
			if err != nil {
				logger.Debug("Skipping undecodable audio delta", "error", err)
				continue
			}
			c.options.AudioCallback(audio)
		case "response.done":
			c.options.TurnEndCallback()
		case "input_audio_buffer.speech_started":
			c.options.SpeechStartedCallback()
		case "input_audio_buffer.speech_stopped":
			c.options.SpeechStoppedCallback()
		case "error":
			if event.Error != nil {
				c.options.ErrorCallback(fmt.Errorf("stream error (%s): %s", event.Error.Code, event.Error.Message))
			}
		}
	}
}

// reconnect retries with capped exponential backoff and jitter until it
// succeeds or the client closes.
func (c *Client) reconnect(ctx context.Context) *websocket.Conn {
	backoff := c.options.BackoffBase
	for attempts := 1; ; attempts++ {
		delay := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		select {
		case <-c.closeCh:
			return nil
		case <-time.After(delay):
		}

		conn, err := c.dial(ctx)
		if err != nil {
			logger.Warn("Reconnect attempt failed", "attempt", attempts, "error", err)
			c.options.ErrorCallback(err)
			backoff = min(backoff*2, c.options.BackoffCap)
			continue
		}

		c.markConnected(conn)
		c.options.ReconnectedCallback(attempts)
		logger.Info("Omni stream reconnected", "attempts", attempts)
		return conn
	}
}

// ErrSendBufferFull reports that TrySend found the outbound buffer full.
var ErrSendBufferFull = fmt.Errorf("outbound buffer full")

// Configure overrides callbacks after construction. Must be called before
// Connect.
func (c *Client) Configure(callbacks Callbacks) {
	WithCallbacks(callbacks)(&c.options)
}

// TrySend queues an input audio chunk without displacing buffered audio,
// returning ErrSendBufferFull when there is no room.
func (c *Client) TrySend(chunk []byte) error {
	return c.trySend(outboundChunk{media: "audio", data: chunk})
}

// TrySendVideo queues a captured video frame behind any buffered audio.
func (c *Client) TrySendVideo(frame []byte) error {
	return c.trySend(outboundChunk{media: "video", data: frame})
}

func (c *Client) trySend(chunk outboundChunk) error {
	select {
	case c.outbound <- chunk:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendAudio queues an input chunk. When the buffer is full the oldest
// chunk is discarded so fresh audio keeps flowing.
func (c *Client) SendAudio(chunk []byte) {
	for {
		select {
		case c.outbound <- outboundChunk{media: "audio", data: chunk}:
			return
		default:
		}
		select {
		case <-c.outbound:
			c.options.DroppedCallback(1)
		default:
		}
	}
}

// mediaPump forwards buffered perception chunks to the wire. While the
// connection is down it parks instead of draining, so the channel keeps up
// to its capacity buffered across a reconnect; SendAudio's drop-oldest
// discipline handles overflow.
func (c *Client) mediaPump() {
	for {
		var chunk outboundChunk
		select {
		case <-c.closeCh:
			return
		case chunk = <-c.outbound:
		}
		for {
			if !c.awaitConnected() {
				return
			}
			if err := c.writeChunk(chunk); err == nil {
				break
			}
			c.markDisconnected()
		}
	}
}

// awaitConnected blocks until a live connection is installed or the client
// closes.
func (c *Client) awaitConnected() bool {
	c.mu.Lock()
	ready := c.connected
	c.mu.Unlock()
	select {
	case <-ready:
		return true
	case <-c.closeCh:
		return false
	}
}

func (c *Client) writeChunk(chunk outboundChunk) error {
	if chunk.media == "video" {
		return c.writeJSON(outboundEvent{
			Type:  "input_image_buffer.append",
			Image: base64.StdEncoding.EncodeToString(chunk.data),
		})
	}
	return c.writeJSON(outboundEvent{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(chunk.data),
	})
}

// SendText submits a typed user message without requesting a response;
// the caller decides when the turn is complete.
func (c *Client) SendText(text string) error {
	err := c.writeJSON(outboundEvent{
		Type: "conversation.item.create",
		Item: &conversionItem{
			Type:    "message",
			Role:    "user",
			Content: []itemContent{{Type: "input_text", Text: text}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send text item: %w", err)
	}
	return nil
}

// SendImage attaches a still image to the conversation, used when an
// autonomous capture is handed back to the model for analysis.
func (c *Client) SendImage(image []byte) error {
	err := c.writeJSON(outboundEvent{
		Type: "conversation.item.create",
		Item: &conversionItem{
			Type: "message",
			Role: "user",
			Content: []itemContent{{
				Type:     "input_image",
				ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send image item: %w", err)
	}
	return nil
}

// SendContext injects background context as a system item without
// requesting a response, used for memory augmentation.
func (c *Client) SendContext(text string) error {
	err := c.writeJSON(outboundEvent{
		Type: "conversation.item.create",
		Item: &conversionItem{
			Type:    "message",
			Role:    "system",
			Content: []itemContent{{Type: "input_text", Text: text}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send context item: %w", err)
	}
	return nil
}

// CommitAudio closes the current input audio turn.
func (c *Client) CommitAudio() error {
	return c.writeJSON(outboundEvent{Type: "input_audio_buffer.commit"})
}

func (c *Client) CreateResponse() error {
	return c.writeJSON(outboundEvent{
		Type:     "response.create",
		Response: &responseConfig{Modalities: []string{"text", "audio"}},
	})
}

// CancelResponse interrupts the in-flight model turn, used on barge-in and
// emergency stop.
func (c *Client) CancelResponse() error {
	return c.writeJSON(outboundEvent{Type: "response.cancel"})
}

func (c *Client) writeJSON(event outboundEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(event)
}
