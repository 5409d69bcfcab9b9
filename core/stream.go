package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortyoneai/omni-core/core/streams/omni"
)

// StreamClient is the inference stream boundary. *omni.Client satisfies
// it; tests substitute scripted fakes.
type StreamClient interface {
	Configure(callbacks omni.Callbacks)
	Connect(ctx context.Context) error
	TrySend(chunk []byte) error
	TrySendVideo(frame []byte) error
	SendImage(image []byte) error
	SendText(text string) error
	SendContext(text string) error
	CommitAudio() error
	CreateResponse() error
	CancelResponse() error
	Close() error
}

// stream wraps the optional client so callers never nil-check.
type stream struct {
	client StreamClient
}

func (s *stream) isConfigured() bool {
	return s != nil && s.client != nil
}

func (s *stream) connect(ctx context.Context, callbacks omni.Callbacks) error {
	if !s.isConfigured() {
		return nil
	}
	s.client.Configure(callbacks)
	if err := s.client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect stream: %w", err)
	}
	return nil
}

// send forwards an audio perception chunk, translating a full outbound
// buffer into ErrBackpressureExceeded.
func (s *stream) send(chunk []byte) error {
	if !s.isConfigured() {
		return nil
	}
	return translateBackpressure(s.client.TrySend(chunk))
}

// sendVideo forwards a captured video frame over the typed image path.
func (s *stream) sendVideo(frame []byte) error {
	if !s.isConfigured() {
		return nil
	}
	return translateBackpressure(s.client.TrySendVideo(frame))
}

func (s *stream) sendImage(image []byte) error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.SendImage(image)
}

func translateBackpressure(err error) error {
	if errors.Is(err, omni.ErrSendBufferFull) {
		return ErrBackpressureExceeded
	}
	return err
}

func (s *stream) sendText(text string) error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.SendText(text)
}

func (s *stream) sendContext(text string) error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.SendContext(text)
}

func (s *stream) commitAudio() error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.CommitAudio()
}

func (s *stream) createResponse() error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.CreateResponse()
}

func (s *stream) cancelResponse() error {
	if !s.isConfigured() {
		return nil
	}
	return s.client.CancelResponse()
}

func (s *stream) close() {
	if !s.isConfigured() {
		return
	}
	if err := s.client.Close(); err != nil {
		logger.Warn("Failed to close stream client", "error", err)
	}
}
