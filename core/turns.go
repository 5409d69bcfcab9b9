package orchestration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Speaker string

const (
	SpeakerUser   Speaker = "user"
	SpeakerAgent  Speaker = "agent"
	SpeakerSystem Speaker = "system"
)

// Turn is one bounded exchange unit. Immutable once closed; closed turns
// are handed to the memory gateway.
type Turn struct {
	ID            string
	Speaker       Speaker
	Chunks        []string
	StartedAt     time.Time
	EndedAt       time.Time
	ActionIntents []ActionIntent

	closed bool
}

func newTurn(speaker Speaker) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		Speaker:   speaker,
		StartedAt: time.Now(),
	}
}

func (t *Turn) append(chunk string) {
	if t.closed || chunk == "" {
		return
	}
	t.Chunks = append(t.Chunks, chunk)
}

func (t *Turn) close() {
	if t.closed {
		return
	}
	t.closed = true
	t.EndedAt = time.Now()
}

func (t *Turn) Transcript() string {
	return strings.Join(t.Chunks, "")
}

// turnLedger tracks the open turns. Accessed only from the orchestrator's
// loop, so it needs no lock. At most one open turn per direction.
type turnLedger struct {
	user  *Turn
	agent *Turn
}

func (l *turnLedger) open(speaker Speaker) (*Turn, error) {
	switch speaker {
	case SpeakerUser:
		if l.user != nil {
			return nil, fmt.Errorf("user turn already open")
		}
		l.user = newTurn(speaker)
		return l.user, nil
	case SpeakerAgent:
		if l.agent != nil {
			return nil, fmt.Errorf("agent turn already open")
		}
		l.agent = newTurn(speaker)
		return l.agent, nil
	}
	return nil, fmt.Errorf("unsupported speaker %q", speaker)
}

func (l *turnLedger) openTurn(speaker Speaker) *Turn {
	switch speaker {
	case SpeakerUser:
		return l.user
	case SpeakerAgent:
		return l.agent
	}
	return nil
}

// closeTurn closes and detaches the open turn for the speaker, returning
// it for persistence. Nil when no turn was open.
func (l *turnLedger) closeTurn(speaker Speaker) *Turn {
	var turn *Turn
	switch speaker {
	case SpeakerUser:
		turn, l.user = l.user, nil
	case SpeakerAgent:
		turn, l.agent = l.agent, nil
	}
	if turn != nil {
		turn.close()
	}
	return turn
}

// discard drops all open turns without closing them into the record path,
// used on connection loss so no partial turn is persisted twice.
func (l *turnLedger) discard() {
	l.user = nil
	l.agent = nil
}
