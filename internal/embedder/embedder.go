// Package embedder wraps an llm.EmbeddingGenerator with retry and a
// deterministic hash-based fallback, so capture and search can always
// produce a usable vector even when the configured provider is unreachable.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/devmemory/memento/internal/llm"
)

// RetryConfig controls the retry behavior around an embedding call.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryConfig retries up to 3 times with an exponentially doubling
// base delay starting at 200ms (200ms, 400ms, 800ms).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}
}

// Embedder produces a vector embedding for a piece of text.
type Embedder struct {
	generator llm.EmbeddingGenerator
	retry     RetryConfig
	dimension int
}

// New wraps an llm.EmbeddingGenerator with retry. dimension is the expected
// vector length, used by the hash-based fallback when generator is nil or
// every retry attempt fails.
func New(generator llm.EmbeddingGenerator, dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &Embedder{generator: generator, retry: DefaultRetryConfig(), dimension: dimension}
}

// Embed returns a vector embedding for text, retrying transient failures
// with exponential backoff. If every attempt fails, or no generator is
// configured, it falls back to a deterministic hash embedding so callers
// always get a usable (if lower-quality) vector instead of an error.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.generator == nil {
		return HashEmbed(text, e.dimension), nil
	}

	var lastErr error
	delay := e.retry.BaseDelay
	for attempt := 0; attempt < e.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		vec, err := e.generator.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
	}

	return HashEmbed(text, e.dimension), fmt.Errorf("embedding provider exhausted %d attempts, used hash fallback: %w", e.retry.MaxAttempts, lastErr)
}

// Model returns the underlying generator's model name, or "hash-fallback"
// when no generator is configured.
func (e *Embedder) Model() string {
	if e.generator == nil {
		return "hash-fallback"
	}
	return e.generator.GetModel()
}

// HashEmbed deterministically derives a unit-length embedding from text
// using repeated SHA-256 hashing. It carries no semantic meaning beyond
// exact and near-exact text matches, but guarantees capture never blocks on
// embedding provider availability.
func HashEmbed(text string, dimension int) []float32 {
	vec := make([]float32, dimension)
	block := sha256.Sum256([]byte(text))
	for i := 0; i < dimension; i++ {
		if i > 0 && i%32 == 0 {
			block = sha256.Sum256(block[:])
		}
		offset := (i % 32)
		bits := binary.BigEndian.Uint32(pad4(block[offset:]))
		vec[i] = float32(bits%2000)/1000.0 - 1.0
	}
	normalize(vec)
	return vec
}

func pad4(b []byte) []byte {
	if len(b) >= 4 {
		return b[:4]
	}
	out := make([]byte, 4)
	copy(out, b)
	return out
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors, returning 0 if either is the zero vector or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
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
