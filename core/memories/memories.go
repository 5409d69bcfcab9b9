// Package memories defines the long-term memory contract: what a memory is,
// how stores persist and recall it by semantic similarity, and how text is
// turned into vectors.
package memories

import (
	"context"
	"strings"
	"time"

	"github.com/fortyoneai/omni-core/internal/utils"
)

type Kind string

const (
	// KindEpisodic holds experiences and conversations.
	KindEpisodic Kind = "episodic"
	// KindFactual holds facts and knowledge about the world or the user.
	KindFactual Kind = "factual"
	// KindProcedural holds skills and how-to knowledge.
	KindProcedural Kind = "procedural"
)

type Memory struct {
	ID         string
	Kind       Kind
	Content    string
	Importance float64
	CreatedAt  time.Time
}

// Recalled is a memory returned from a similarity search.
type Recalled struct {
	Memory
	Similarity float64
}

type Store interface {
	Store(ctx context.Context, memory Memory) error
	Recall(ctx context.Context, query string, opts ...RecallOption) ([]Recalled, error)
	Recent(ctx context.Context, limit int) ([]Memory, error)
	Close() error
}

// Embedder turns text into a vector. Implementations live in the
// embeddings package.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

type RecallOptions struct {
	TopK          int
	Kind          *Kind
	MinImportance float64
}

type RecallOption func(*RecallOptions)

func WithTopK(k int) RecallOption {
	return func(o *RecallOptions) { o.TopK = k }
}

func WithKind(kind Kind) RecallOption {
	return func(o *RecallOptions) { o.Kind = utils.Ptr(kind) }
}

func WithMinImportance(importance float64) RecallOption {
	return func(o *RecallOptions) { o.MinImportance = importance }
}

// Classify guesses the memory kind from its content. Episodic is the
// fallback for anything that is not obviously a skill or a fact.
func Classify(content string) Kind {
	lowered := strings.ToLower(content)
	for _, marker := range []string{"how to", "steps", "procedure", "method", "skill"} {
		if strings.Contains(lowered, marker) {
			return KindProcedural
		}
	}
	for _, marker := range []string{"fact", "definition", "know", "remember", "information"} {
		if strings.Contains(lowered, marker) {
			return KindFactual
		}
	}
	return KindEpisodic
}
