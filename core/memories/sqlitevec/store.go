// Package sqlitevec persists memories in a single SQLite file and answers
// recall queries with an in-process cosine similarity scan. The corpus is a
// personal memory store, not a search index; a linear scan over a few
// thousand rows beats carrying a vector database.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"

	"github.com/fortyoneai/omni-core/core/memories"
)

const defaultTopK = 5

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	content    TEXT NOT NULL,
	importance REAL NOT NULL,
	created_at INTEGER NOT NULL,
	embedding  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_kind ON memories(kind);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
`

type Store struct {
	db       *sql.DB
	embedder memories.Embedder
}

func Open(path string, embedder memories.Embedder) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	// The store is accessed from the orchestration loop and the trigger,
	// a single connection sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize memory schema: %w", err)
	}
	return &Store{db: db, embedder: embedder}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Store(ctx context.Context, memory memories.Memory) error {
	ctx, span := tracer.Start(ctx, "store memory")
	defer span.End()
	span.SetAttributes(attribute.String("memory.kind", string(memory.Kind)))

	if memory.ID == "" {
		memory.ID = uuid.NewString()
	}
	if memory.Kind == "" {
		memory.Kind = memories.Classify(memory.Content)
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now()
	}

	embedding, err := s.embedder.Embed(ctx, memory.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to embed memory")
		return fmt.Errorf("failed to embed memory: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, kind, content, importance, created_at, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		memory.ID, string(memory.Kind), memory.Content, memory.Importance,
		memory.CreatedAt.UnixMilli(), encodeVector(embedding),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert memory")
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	logger.Debug("Stored memory", "id", memory.ID, "kind", memory.Kind)
	return nil
}

func (s *Store) Recall(ctx context.Context, query string, opts ...memories.RecallOption) ([]memories.Recalled, error) {
	ctx, span := tracer.Start(ctx, "recall memories")
	defer span.End()

	options := memories.RecallOptions{TopK: defaultTopK}
	for _, opt := range opts {
		opt(&options)
	}
	if options.TopK <= 0 {
		options.TopK = defaultTopK
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to embed query")
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	stmt := `SELECT id, kind, content, importance, created_at, embedding FROM memories WHERE importance >= ?`
	args := []any{options.MinImportance}
	if options.Kind != nil {
		stmt += ` AND kind = ?`
		args = append(args, string(*options.Kind))
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query memories")
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var recalled []memories.Recalled
	for rows.Next() {
		var (
			memory    memories.Memory
			kind      string
			createdAt int64
			blob      []byte
		)
		if err := rows.Scan(&memory.ID, &kind, &memory.Content, &memory.Importance, &createdAt, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memory.Kind = memories.Kind(kind)
		memory.CreatedAt = time.UnixMilli(createdAt)

		embedding, err := decodeVector(blob)
		if err != nil {
			logger.Warn("Skipping memory with corrupt embedding", "id", memory.ID, "error", err)
			continue
		}
		recalled = append(recalled, memories.Recalled{
			Memory:     memory,
			Similarity: cosineSimilarity(queryEmbedding, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}

	// Newer memories win ties.
	sort.Slice(recalled, func(i, j int) bool {
		if recalled[i].Similarity != recalled[j].Similarity {
			return recalled[i].Similarity > recalled[j].Similarity
		}
		return recalled[i].CreatedAt.After(recalled[j].CreatedAt)
	})
	if len(recalled) > options.TopK {
		recalled = recalled[:options.TopK]
	}
	span.SetAttributes(attribute.Int("recall.results", len(recalled)))
	return recalled, nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]memories.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, content, importance, created_at FROM memories
		 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent memories: %w", err)
	}
	defer rows.Close()

	var result []memories.Memory
	for rows.Next() {
		var (
			memory    memories.Memory
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&memory.ID, &kind, &memory.Content, &memory.Importance, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memory.Kind = memories.Kind(kind)
		memory.CreatedAt = time.UnixMilli(createdAt)
		result = append(result, memory)
	}
	return result, rows.Err()
}

var _ memories.Store = (*Store)(nil)
