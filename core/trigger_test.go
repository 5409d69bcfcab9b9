package orchestration

import (
	"testing"
	"time"

	"github.com/fortyoneai/omni-core/core/events"
)

func newTestTrigger(mode Mode, lastActivity time.Time) (*autonomousTrigger, *[]events.ActionProposed) {
	proposals := &[]events.ActionProposed{}
	trigger := newAutonomousTrigger(
		func() Mode { return mode },
		func() time.Time { return lastActivity },
		func(event events.Event) {
			if proposed, ok := event.(events.ActionProposed); ok {
				*proposals = append(*proposals, proposed)
			}
		},
	)
	return trigger, proposals
}

func TestTriggerProposesOnlyWhileIdle(t *testing.T) {
	now := time.Now()
	for _, mode := range []Mode{ModeInit, ModeListening, ModeThinking, ModeSpeaking, ModeActing, ModeEmergencyStopped} {
		trigger, proposals := newTestTrigger(mode, now)
		trigger.evaluate(now)
		if len(*proposals) != 0 {
			t.Fatalf("expected no proposal in %s, got %d", mode, len(*proposals))
		}
	}

	trigger, proposals := newTestTrigger(ModeIdle, now)
	trigger.evaluate(now)
	if len(*proposals) != 1 {
		t.Fatalf("expected one proposal in IDLE, got %d", len(*proposals))
	}
	if _, ok := (*proposals)[0].Intent.(ActionIntent); !ok {
		t.Fatalf("expected an ActionIntent payload, got %T", (*proposals)[0].Intent)
	}
}

func TestTriggerDebouncesProposals(t *testing.T) {
	now := time.Now()
	trigger, proposals := newTestTrigger(ModeIdle, now)
	trigger.debounce = time.Minute

	trigger.evaluate(now)
	trigger.evaluate(now.Add(30 * time.Second))
	if len(*proposals) != 1 {
		t.Fatalf("expected the second evaluation debounced, got %d proposals", len(*proposals))
	}

	trigger.evaluate(now.Add(time.Minute))
	if len(*proposals) != 2 {
		t.Fatalf("expected a proposal after the debounce window, got %d", len(*proposals))
	}
}

func TestTriggerAlternatesBetweenPresenceAndScreenCheck(t *testing.T) {
	now := time.Now()
	trigger, proposals := newTestTrigger(ModeIdle, now)
	trigger.debounce = 0

	trigger.evaluate(now)
	trigger.evaluate(now.Add(time.Minute))

	if len(*proposals) != 2 {
		t.Fatalf("expected two proposals, got %d", len(*proposals))
	}
	first := (*proposals)[0].Intent.(ActionIntent)
	second := (*proposals)[1].Intent.(ActionIntent)
	if first.Name == second.Name {
		t.Fatalf("expected alternating proposals, got %s twice", first.Name)
	}
	names := map[string]bool{first.Name: true, second.Name: true}
	if !names["expression"] || !names["screenshot"] {
		t.Fatalf("expected expression and screenshot proposals, got %v", names)
	}
}

func TestTriggerProlongedSilenceForcesScreenCheck(t *testing.T) {
	lastActivity := time.Now().Add(-10 * time.Minute)
	trigger, proposals := newTestTrigger(ModeIdle, lastActivity)
	trigger.debounce = 0

	for i := range 3 {
		trigger.evaluate(time.Now().Add(time.Duration(i) * time.Minute))
	}

	for i, proposed := range *proposals {
		intent := proposed.Intent.(ActionIntent)
		if intent.Name != "screenshot" {
			t.Fatalf("expected proposal %d to check the screen during silence, got %s", i, intent.Name)
		}
		if intent.Origin != OriginAutonomous {
			t.Fatalf("expected autonomous origin, got %s", intent.Origin)
		}
	}
}

func TestTriggerCloseBeforeStartDoesNotBlock(t *testing.T) {
	trigger, _ := newTestTrigger(ModeIdle, time.Now())
	finished := make(chan struct{})
	go func() {
		trigger.close()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("close blocked without a running trigger")
	}
}
