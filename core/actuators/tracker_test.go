package actuators

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTrackerCompletesCommand(t *testing.T) {
	tracker := NewTracker("test")
	started := make(chan struct{})
	release := make(chan struct{})

	ticket := tracker.Begin(context.Background(), func(context.Context) (string, error) {
		close(started)
		<-release
		return "done", nil
	})

	<-started
	result, err := tracker.Poll(ticket)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("Expected no result while running, got %+v", result)
	}

	close(release)
	deadline := time.After(time.Second)
	for result == nil {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for result")
		default:
		}
		result, err = tracker.Poll(ticket)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if result.Output != "done" || result.Err != nil {
		t.Errorf("Expected output \"done\" with no error, got %+v", result)
	}

	if _, err := tracker.Poll(ticket); !errors.Is(err, ErrUnknownTicket) {
		t.Errorf("Expected ErrUnknownTicket after result handed out, got %v", err)
	}
}

func TestTrackerAbortCancelsCommand(t *testing.T) {
	tracker := NewTracker("test")
	started := make(chan struct{})

	ticket := tracker.Begin(context.Background(), func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	<-started
	if err := tracker.Abort(ticket); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		result, err := tracker.Poll(ticket)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result != nil {
			if !errors.Is(result.Err, context.Canceled) {
				t.Errorf("Expected context.Canceled, got %v", result.Err)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for aborted result")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestTrackerUnknownTicket(t *testing.T) {
	tracker := NewTracker("test")
	if _, err := tracker.Poll("missing"); !errors.Is(err, ErrUnknownTicket) {
		t.Errorf("Expected ErrUnknownTicket, got %v", err)
	}
	if err := tracker.Abort("missing"); !errors.Is(err, ErrUnknownTicket) {
		t.Errorf("Expected ErrUnknownTicket, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	base := errors.New("boom")
	if IsTransient(base) {
		t.Error("Plain error should not be transient")
	}
	if !IsTransient(Transient(base)) {
		t.Error("Wrapped error should be transient")
	}
	if !errors.Is(Transient(base), base) {
		t.Error("Transient wrapper should unwrap to the original error")
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
