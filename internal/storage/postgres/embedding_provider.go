package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"math"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/devmemory/memento/internal/storage"
)

var _ storage.EmbeddingProvider = (*Store)(nil)

// StoreEmbedding stores a vector embedding for a memory. It is always
// written to the BYTEA column so GetEmbedding works identically to the
// sqlite backend; when pgvector is available it is also written to
// embedding_vec for ivfflat-accelerated VectorSearch.
func (s *Store) StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, model string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	blob := serializeEmbedding(embedding)

	if s.pgvectorAvailable {
		vec := pgvector.NewVector(embedding)
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO embeddings (memory_id, embedding, dimension, model, embedding_vec, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (memory_id) DO UPDATE SET
				embedding = excluded.embedding,
				dimension = excluded.dimension,
				model = excluded.model,
				embedding_vec = excluded.embedding_vec,
				updated_at = now()
		`, memoryID, blob, len(embedding), model, vec)
		if err != nil {
			log.Printf("postgres: failed to store embedding_vec, falling back to BYTEA-only: %v", err)
		} else {
			return s.touchMemoryEmbeddingMeta(ctx, memoryID, model, len(embedding))
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (memory_id, embedding, dimension, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (memory_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = now()
	`, memoryID, blob, len(embedding), model)
	if err != nil {
		return fmt.Errorf("postgres: failed to store embedding: %w", err)
	}
	return s.touchMemoryEmbeddingMeta(ctx, memoryID, model, len(embedding))
}

func (s *Store) touchMemoryEmbeddingMeta(ctx context.Context, memoryID, model string, dimension int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET embedding_model = $1, embedding_dimension = $2 WHERE id = $3`, model, dimension, memoryID)
	if err != nil {
		return fmt.Errorf("postgres: failed to update memory embedding metadata: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the stored embedding for a memory.
func (s *Store) GetEmbedding(ctx context.Context, memoryID string) ([]float32, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	var blob []byte
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT embedding, dimension FROM embeddings WHERE memory_id = $1`, memoryID).Scan(&blob, &dim)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get embedding: %w", err)
	}
	return deserializeEmbedding(blob, dim)
}

// DeleteEmbedding removes the stored embedding for a memory.
func (s *Store) DeleteEmbedding(ctx context.Context, memoryID string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = $1`, memoryID)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete embedding: %w", err)
	}
	return errIfNoRows(result, storage.ErrNotFound)
}

func serializeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	expected := dimension * 4
	if len(buf) != expected {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", expected, len(buf))
	}

	v := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

func cosineSimilarity32(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
