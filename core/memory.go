package orchestration

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fortyoneai/omni-core/core/memories"
)

const defaultAugmentTimeout = 2 * time.Second

// memoryGateway is the nil-safe facade over the long-term store and the
// working window. Augmentation is best-effort with a hard timeout; record
// is fire-and-forget. Neither is ever load-bearing for a turn.
type memoryGateway struct {
	store          memories.Store
	working        *memories.WorkingMemory
	augmentTimeout time.Duration
}

func newMemoryGateway() memoryGateway {
	return memoryGateway{
		working:        memories.NewWorkingMemory(0),
		augmentTimeout: defaultAugmentTimeout,
	}
}

func (g *memoryGateway) isConfigured() bool {
	return g != nil && g.store != nil
}

// augment returns the context lines for a query, or nothing once the
// timeout expires. The store call keeps running in its goroutine; its late
// result is discarded.
func (g *memoryGateway) augment(ctx context.Context, query string) []string {
	if !g.isConfigured() || query == "" {
		return nil
	}

	ctx, span := tracer.Start(ctx, "augment context")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.augmentTimeout)
	defer cancel()

	type recallResult struct {
		recalled []memories.Recalled
		err      error
	}
	resultCh := make(chan recallResult, 1)
	go func() {
		recalled, err := g.store.Recall(ctx, query)
		resultCh <- recallResult{recalled: recalled, err: err}
	}()

	select {
	case <-ctx.Done():
		span.AddEvent("augmentation timed out", trace.WithAttributes(attribute.String("memory.query", query)))
		logger.Debug("Memory augmentation timed out", "query", query)
		return nil
	case result := <-resultCh:
		if result.err != nil {
			span.RecordError(result.err)
			span.SetStatus(codes.Error, "failed to recall memories")
			logger.Warn("Memory augmentation failed", "error", result.err)
			return nil
		}
		lines := make([]string, 0, len(result.recalled))
		for _, memory := range result.recalled {
			lines = append(lines, memory.Content)
		}
		span.SetAttributes(attribute.Int("augment.records", len(lines)))
		return lines
	}
}

// record persists a closed turn in the background. Failures are logged,
// never surfaced; the turn was already delivered.
func (g *memoryGateway) record(ctx context.Context, turn *Turn) {
	if turn == nil {
		return
	}
	transcript := turn.Transcript()
	if transcript == "" {
		return
	}

	if g.working != nil {
		g.working.Add(string(turn.Speaker), transcript)
	}
	if !g.isConfigured() {
		return
	}

	go func() {
		ctx, span := tracer.Start(context.WithoutCancel(ctx), "record turn")
		defer span.End()
		span.SetAttributes(attribute.String("turn.speaker", string(turn.Speaker)))

		err := g.store.Store(ctx, memories.Memory{
			Content:    fmt.Sprintf("%s: %s", turn.Speaker, transcript),
			Importance: 0.5,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to record turn")
			logger.Warn("Failed to record turn", "turn", turn.ID, "error", err)
		}
	}()
}

// remember stores explicit content from a memory_store tool call.
func (g *memoryGateway) remember(ctx context.Context, content string, importance float64) {
	if g.working != nil {
		g.working.Add(string(SpeakerSystem), content)
	}
	if !g.isConfigured() || content == "" {
		return
	}
	if importance <= 0 {
		importance = 0.5
	}

	go func() {
		err := g.store.Store(context.WithoutCancel(ctx), memories.Memory{
			Content:    content,
			Importance: importance,
		})
		if err != nil {
			logger.Warn("Failed to store memory", "error", err)
		}
	}()
}
