package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewGenAIEngineRequiresAPIKey(t *testing.T) {
	if _, err := NewGenAIEngine(context.Background(), "", "some-model"); err == nil {
		t.Fatalf("expected an error without an api key")
	}
}

func TestGenAIEngineCloseWithoutClient(t *testing.T) {
	engine := &GenAIEngine{model: defaultGenAIModel, dimensions: 768}
	if err := engine.Close(); err != nil {
		t.Fatalf("expected close to be a no-op, got %v", err)
	}
	if engine.Dimensions() != 768 {
		t.Fatalf("expected 768 dimensions, got %d", engine.Dimensions())
	}
}

func TestOpenAIEngineEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	engine, err := NewOpenAIEngine(server.URL, "test-key", "text-embedding-v4", 3)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	vector, err := engine.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.1 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestOpenAIEngineValidation(t *testing.T) {
	if _, err := NewOpenAIEngine("http://localhost", "", "model", 0); err == nil {
		t.Fatalf("expected an error without an api key")
	}
	if _, err := NewOpenAIEngine("http://localhost", "key", "", 0); err == nil {
		t.Fatalf("expected an error without a model")
	}
	engine, err := NewOpenAIEngine("http://localhost/", "key", "model", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Dimensions() != 1024 {
		t.Fatalf("expected the default dimensions, got %d", engine.Dimensions())
	}
}
