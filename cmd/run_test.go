package cmd

import (
	"context"
	"os"
	"testing"
	"time"

	orchestration "github.com/fortyoneai/omni-core/core"
)

func TestInterruptTriggersEmergencyStop(t *testing.T) {
	orchestrator := orchestration.NewOrchestrator()
	defer orchestrator.Close()
	if err := orchestrator.Orchestrate(context.Background()); err != nil {
		t.Fatalf("failed to orchestrate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	go watchInterrupts(ctx, cancel, sigCh, orchestrator)

	sigCh <- os.Interrupt

	deadline := time.Now().Add(2 * time.Second)
	for orchestrator.Mode() != orchestration.ModeEmergencyStopped {
		if time.Now().After(deadline) {
			t.Fatalf("expected EMERGENCY_STOPPED after the interrupt, got %s", orchestrator.Mode())
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the context cancelled after the interrupt")
	}
}
