package orchestration

import (
	"errors"
	"testing"
)

func TestTransitionFollowsTable(t *testing.T) {
	s := newSession()

	path := []Mode{ModeIdle, ModeListening, ModeThinking, ModeSpeaking, ModeIdle, ModeActing, ModeListening, ModeThinking, ModeSpeaking, ModeIdle, ModeActing, ModeIdle}
	for _, to := range path {
		if err := s.transition(to); err != nil {
			t.Fatalf("expected transition to %s to succeed, got %v", to, err)
		}
		if got := s.Mode(); got != to {
			t.Fatalf("expected mode %s, got %s", to, got)
		}
	}
}

func TestTransitionRejectsSkips(t *testing.T) {
	cases := []struct {
		from Mode
		to   Mode
	}{
		{ModeInit, ModeListening},
		{ModeIdle, ModeSpeaking},
		{ModeListening, ModeIdle},
		{ModeListening, ModeSpeaking},
		{ModeThinking, ModeIdle},
		{ModeActing, ModeSpeaking},
	}

	for _, c := range cases {
		s := newSession()
		s.mode = c.from
		if err := s.transition(c.to); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition for %s -> %s, got %v", c.from, c.to, err)
		}
		if got := s.Mode(); got != c.from {
			t.Fatalf("expected mode to stay %s, got %s", c.from, got)
		}
	}
}

func TestEmergencyStopReachableFromEverywhereAndSticky(t *testing.T) {
	for _, from := range []Mode{ModeInit, ModeIdle, ModeListening, ModeThinking, ModeSpeaking, ModeActing} {
		s := newSession()
		s.mode = from
		if err := s.transition(ModeEmergencyStopped); err != nil {
			t.Fatalf("expected emergency stop from %s to succeed, got %v", from, err)
		}

		for _, to := range []Mode{ModeIdle, ModeListening, ModeEmergencyStopped} {
			if err := s.transition(to); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected EMERGENCY_STOPPED to be terminal, %s succeeded", to)
			}
		}

		s.resync()
		if got := s.Mode(); got != ModeEmergencyStopped {
			t.Fatalf("expected resync to leave EMERGENCY_STOPPED in place, got %s", got)
		}
	}
}

func TestResyncForcesIdle(t *testing.T) {
	s := newSession()
	s.mode = ModeSpeaking

	var observed []Mode
	s.onModeChange = func(from, to Mode) { observed = append(observed, to) }

	s.resync()
	if got := s.Mode(); got != ModeIdle {
		t.Fatalf("expected IDLE after resync, got %s", got)
	}
	if len(observed) != 1 || observed[0] != ModeIdle {
		t.Fatalf("expected one mode change to IDLE, got %v", observed)
	}

	s.resync()
	if len(observed) != 1 {
		t.Fatalf("expected resync from IDLE to be a no-op, got %v", observed)
	}
}

func TestTouchAdvancesLastActivity(t *testing.T) {
	s := newSession()
	before := s.lastActivity()
	s.touch()
	if s.lastActivity().Before(before) {
		t.Fatalf("expected lastActivity to move forward")
	}

	snapshot := s.snapshot()
	if snapshot.ID != s.id || snapshot.Mode != ModeInit {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}
