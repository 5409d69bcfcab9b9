package sqlitevec

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortyoneai/omni-core/core/memories"
)

// wordEmbedder maps known words to fixed unit vectors so similarity
// ordering in tests is deterministic.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	switch text {
	case "coffee", "the user likes coffee":
		return []float32{1, 0, 0}, nil
	case "tea", "the user likes tea":
		return []float32{0.9, 0.1, 0}, nil
	case "how to restart the vm":
		return []float32{0, 0, 1}, nil
	}
	return []float32{0, 1, 0}, nil
}

func (wordEmbedder) Dimensions() int { return 3 }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memories.db"), wordEmbedder{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreAndRecallOrdersBySimilarity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, memories.Memory{Content: "the user likes coffee", Kind: memories.KindFactual, Importance: 0.8}))
	require.NoError(t, store.Store(ctx, memories.Memory{Content: "the user likes tea", Kind: memories.KindFactual, Importance: 0.8}))
	require.NoError(t, store.Store(ctx, memories.Memory{Content: "how to restart the vm", Kind: memories.KindProcedural, Importance: 0.5}))

	recalled, err := store.Recall(ctx, "coffee", memories.WithTopK(2))
	require.NoError(t, err)
	require.Len(t, recalled, 2)
	assert.Equal(t, "the user likes coffee", recalled[0].Content)
	assert.Equal(t, "the user likes tea", recalled[1].Content)
	assert.Greater(t, recalled[0].Similarity, recalled[1].Similarity)
}

func TestRecallFiltersByKindAndImportance(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, memories.Memory{Content: "the user likes coffee", Kind: memories.KindFactual, Importance: 0.9}))
	require.NoError(t, store.Store(ctx, memories.Memory{Content: "how to restart the vm", Kind: memories.KindProcedural, Importance: 0.2}))

	recalled, err := store.Recall(ctx, "coffee", memories.WithKind(memories.KindProcedural))
	require.NoError(t, err)
	require.Len(t, recalled, 1)
	assert.Equal(t, memories.KindProcedural, recalled[0].Kind)

	recalled, err = store.Recall(ctx, "coffee", memories.WithMinImportance(0.5))
	require.NoError(t, err)
	require.Len(t, recalled, 1)
	assert.Equal(t, "the user likes coffee", recalled[0].Content)
}

func TestStoreClassifiesAndStampsDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, memories.Memory{Content: "how to restart the vm"}))

	recent, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.NotEmpty(t, recent[0].ID)
	assert.Equal(t, memories.KindProcedural, recent[0].Kind)
	assert.WithinDuration(t, time.Now(), recent[0].CreatedAt, time.Minute)
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	require.NoError(t, store.Store(ctx, memories.Memory{Content: "old", CreatedAt: older}))
	require.NoError(t, store.Store(ctx, memories.Memory{Content: "new", CreatedAt: time.Now()}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].Content)
	assert.Equal(t, "old", recent[1].Content)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
}

func TestVectorRoundTrip(t *testing.T) {
	vector := []float32{0.25, -1.5, 3.125}
	decoded, err := decodeVector(encodeVector(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
