// Package embeddings provides the vectorizers backing the memory store:
// Google GenAI and any OpenAI-compatible embeddings endpoint.
package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/fortyoneai/omni-core/core/memories"
)

const defaultGenAIModel = "gemini-embedding-001"

type GenAIEngine struct {
	client     *genai.Client
	model      string
	dimensions int
}

func NewGenAIEngine(ctx context.Context, apiKey, model string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if model == "" {
		model = defaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIEngine{client: client, model: model, dimensions: 768}, nil
}

func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "embed text")
	defer span.End()

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents,
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

func (e *GenAIEngine) Dimensions() int { return e.dimensions }

// Close exists for symmetry with the other engines; the genai client
// holds no connection that needs tearing down.
func (e *GenAIEngine) Close() error { return nil }

var _ memories.Embedder = (*GenAIEngine)(nil)
