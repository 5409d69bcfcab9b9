package orchestration

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fortyoneai/omni-core/core/events"
)

const (
	defaultTriggerMinInterval = 30 * time.Second
	defaultTriggerMaxInterval = 120 * time.Second
	defaultTriggerDebounce    = 60 * time.Second
	defaultSilenceThreshold   = 5 * time.Minute
)

// autonomousTrigger proposes actions on a jittered cadence while the
// session sits idle. It never touches session state; proposals enter the
// same queue as every other event and the loop arbitrates them.
type autonomousTrigger struct {
	minInterval      time.Duration
	maxInterval      time.Duration
	debounce         time.Duration
	silenceThreshold time.Duration

	mode         func() Mode
	lastActivity func() time.Time
	emit         eventEmitter

	mu           sync.Mutex
	lastProposal time.Time
	turnToggle   bool

	closeCh   chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
}

func newAutonomousTrigger(mode func() Mode, lastActivity func() time.Time, emit eventEmitter) *autonomousTrigger {
	return &autonomousTrigger{
		minInterval:      defaultTriggerMinInterval,
		maxInterval:      defaultTriggerMaxInterval,
		debounce:         defaultTriggerDebounce,
		silenceThreshold: defaultSilenceThreshold,
		mode:             mode,
		lastActivity:     lastActivity,
		emit:             emit,
		closeCh:          make(chan struct{}),
		done:             make(chan struct{}),
	}
}

func (t *autonomousTrigger) start() {
	t.startOnce.Do(func() {
		t.started.Store(true)
		go t.run()
	})
}

func (t *autonomousTrigger) close() {
	t.closeOnce.Do(func() { close(t.closeCh) })
	if !t.started.Load() {
		return
	}
	<-t.done
}

func (t *autonomousTrigger) run() {
	defer close(t.done)
	for {
		select {
		case <-t.closeCh:
			return
		case <-time.After(t.jitteredInterval()):
			t.evaluate(time.Now())
		}
	}
}

func (t *autonomousTrigger) jitteredInterval() time.Duration {
	spread := t.maxInterval - t.minInterval
	if spread <= 0 {
		return t.minInterval
	}
	return t.minInterval + time.Duration(rand.Int63n(int64(spread)))
}

// evaluate fires at most one proposal per debounce window, and only while
// the session is IDLE at evaluation time.
func (t *autonomousTrigger) evaluate(now time.Time) {
	if t.mode() != ModeIdle {
		return
	}

	t.mu.Lock()
	if !t.lastProposal.IsZero() && now.Sub(t.lastProposal) < t.debounce {
		t.mu.Unlock()
		return
	}
	t.lastProposal = now
	analyzeScreen := t.turnToggle
	t.turnToggle = !t.turnToggle
	t.mu.Unlock()

	// Prolonged silence always warrants a look at the screen.
	if now.Sub(t.lastActivity()) >= t.silenceThreshold {
		analyzeScreen = true
	}

	var (
		reason string
		intent ActionIntent
	)
	if analyzeScreen {
		reason = "periodic screen check"
		intent = ActionIntent{
			Kind:     IntentKindVM,
			Name:     "screenshot",
			Origin:   OriginAutonomous,
			IssuedAt: now,
		}
	} else {
		reason = "idle presence"
		intent = ActionIntent{
			Kind:     IntentKindAvatar,
			Name:     "expression",
			Args:     map[string]any{"name": "relaxed"},
			Origin:   OriginAutonomous,
			IssuedAt: now,
		}
	}

	logger.Debug("Proposing autonomous action", "reason", reason, "command", intent.Name)
	t.emit(events.NewActionProposed(reason, intent))
}
