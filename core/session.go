package orchestration

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeInit             Mode = "INIT"
	ModeIdle             Mode = "IDLE"
	ModeListening        Mode = "LISTENING"
	ModeThinking         Mode = "THINKING"
	ModeSpeaking         Mode = "SPEAKING"
	ModeActing           Mode = "ACTING"
	ModeEmergencyStopped Mode = "EMERGENCY_STOPPED"
)

// Session is a read-only snapshot of the live session state.
type Session struct {
	ID             string
	Mode           Mode
	StartedAt      time.Time
	LastActivityAt time.Time
}

// validTransitions is the full transition table. EMERGENCY_STOPPED is
// reachable from everywhere and terminal.
var validTransitions = map[Mode][]Mode{
	ModeInit:      {ModeIdle},
	ModeIdle:      {ModeListening, ModeActing},
	ModeListening: {ModeThinking},
	ModeThinking:  {ModeSpeaking},
	ModeSpeaking:  {ModeIdle},
	// A new user turn may start while an autonomous action finishes in
	// the background; the action itself is never preempted.
	ModeActing: {ModeIdle, ModeListening},
}

// session is the authoritative mode tracker. Only the orchestrator's loop
// calls transition; everything else reads snapshots.
type session struct {
	id        string
	startedAt time.Time

	mu             sync.RWMutex
	mode           Mode
	lastActivityAt time.Time

	onModeChange func(from, to Mode)
}

func newSession() *session {
	now := time.Now()
	return &session{
		id:             uuid.NewString(),
		startedAt:      now,
		mode:           ModeInit,
		lastActivityAt: now,
	}
}

func (s *session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *session) snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		ID:             s.id,
		Mode:           s.mode,
		StartedAt:      s.startedAt,
		LastActivityAt: s.lastActivityAt,
	}
}

// transition moves to the target mode if the table allows it and stamps
// lastActivityAt. EMERGENCY_STOPPED always wins and is sticky.
func (s *session) transition(to Mode) error {
	s.mu.Lock()
	from := s.mode

	if from == ModeEmergencyStopped {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if to != ModeEmergencyStopped && !transitionAllowed(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	s.mode = to
	s.lastActivityAt = time.Now()
	onModeChange := s.onModeChange
	s.mu.Unlock()

	if onModeChange != nil {
		onModeChange(from, to)
	}
	return nil
}

// resync forces the mode back to IDLE after a protocol desynchronization.
// EMERGENCY_STOPPED stays sticky.
func (s *session) resync() {
	s.mu.Lock()
	from := s.mode
	if from == ModeEmergencyStopped || from == ModeIdle {
		s.mu.Unlock()
		return
	}
	s.mode = ModeIdle
	s.lastActivityAt = time.Now()
	onModeChange := s.onModeChange
	s.mu.Unlock()

	if onModeChange != nil {
		onModeChange(from, ModeIdle)
	}
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastActivityAt = time.Now()
	s.mu.Unlock()
}

func (s *session) lastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivityAt
}

func transitionAllowed(from, to Mode) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
