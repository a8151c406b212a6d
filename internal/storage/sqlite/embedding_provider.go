package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/devmemory/memento/internal/storage"
)

var _ storage.EmbeddingProvider = (*Store)(nil)

// StoreEmbedding stores a vector embedding for a memory, serialized as a
// little-endian float32 BLOB.
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (memory_id, embedding, dimension, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(memory_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`, memoryID, blob, len(embedding), model)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE memories SET embedding_model = ?, embedding_dimension = ? WHERE id = ?`, model, len(embedding), memoryID)
	if err != nil {
		return fmt.Errorf("failed to update memory embedding metadata: %w", err)
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
	err := s.db.QueryRowContext(ctx, `SELECT embedding, dimension FROM embeddings WHERE memory_id = ?`, memoryID).Scan(&blob, &dim)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return deserializeEmbedding(blob, dim)
}

// DeleteEmbedding removes the stored embedding for a memory.
func (s *Store) DeleteEmbedding(ctx context.Context, memoryID string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
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
