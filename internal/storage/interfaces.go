// Package storage provides composable storage interfaces for the Memento system.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. This follows the Interface
// Segregation Principle and allows for flexible backend implementations: a
// local sqlite-backed store and an HTTP-backed remote store both satisfy the
// same Backend contract.
package storage

import (
	"context"

	"github.com/devmemory/memento/pkg/types"
)

// MemoryStore provides CRUD operations and pagination for memories.
// This is the core storage interface for memory lifecycle management.
type MemoryStore interface {
	// Store creates a memory.
	Store(ctx context.Context, memory *types.Memory) error

	// Get retrieves a memory by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*types.Memory, error)

	// List retrieves memories with pagination and filtering.
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Memory], error)

	// Update modifies an existing memory. Returns ErrNotFound if it doesn't exist.
	Update(ctx context.Context, memory *types.Memory) error

	// Delete soft-deletes a memory by ID (sets deleted_at). Returns ErrNotFound
	// if it doesn't exist.
	Delete(ctx context.Context, id string) error

	// Purge hard-deletes a memory by ID. Returns ErrNotFound if it doesn't exist.
	Purge(ctx context.Context, id string) error

	// IncrementAccessCount atomically increments access_count and updates
	// accessed_at for the given memory ID.
	IncrementAccessCount(ctx context.Context, id string) error

	// UpdateDecayScores applies time-based decay to all active memories.
	// Intended to run periodically. Returns the count of updated rows.
	UpdateDecayScores(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// SearchProvider provides full-text and vector search capabilities.
type SearchProvider interface {
	// FullTextSearch performs full-text search across memory content.
	FullTextSearch(ctx context.Context, opts SearchOptions) (*PaginatedResult[types.Memory], error)

	// VectorSearch performs semantic search using embeddings, returning
	// results paired with their cosine similarity score.
	VectorSearch(ctx context.Context, vector []float32, opts SearchOptions) ([]ScoredMemory, error)
}

// ScoredMemory pairs a memory with a similarity or relevance score.
type ScoredMemory struct {
	Memory *types.Memory
	Score  float64
}

// GraphProvider provides bounded traversal of the memory relation graph.
type GraphProvider interface {
	// Traverse performs bounded BFS traversal from a starting memory,
	// following outgoing MemoryRelation edges (source to target) only.
	Traverse(ctx context.Context, startID string, bounds GraphBounds) (*GraphResult, error)

	// FindPath finds the shortest relation path between two memories.
	// Returns an empty slice (not an error) when no path exists within bounds.
	FindPath(ctx context.Context, startID, endID string, bounds GraphBounds) ([]string, error)
}

// RelationshipStore manages typed relations between memories.
type RelationshipStore interface {
	// CreateRelation creates a new relation between two memories.
	CreateRelation(ctx context.Context, rel *types.MemoryRelation) error

	// GetRelations retrieves relations touching a memory, in either direction.
	GetRelations(ctx context.Context, memoryID string) ([]*types.MemoryRelation, error)

	// DeleteRelation removes a relation by ID.
	DeleteRelation(ctx context.Context, id string) error

	// CountRelationsByType counts relations of a given type touching a memory,
	// used by the trust scorer to weigh contradiction evidence.
	CountRelationsByType(ctx context.Context, memoryID string, relType types.RelationType) (int, error)
}

// EmbeddingProvider manages vector embeddings with dimension tracking.
type EmbeddingProvider interface {
	// StoreEmbedding stores a vector embedding for a memory.
	StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, model string) error

	// GetEmbedding retrieves the embedding for a memory.
	GetEmbedding(ctx context.Context, memoryID string) ([]float32, error)

	// DeleteEmbedding removes an embedding.
	DeleteEmbedding(ctx context.Context, memoryID string) error
}

// Backend is the full capability set a storage implementation offers. Both
// the sqlite store and the remote HTTP store implement it in full; callers
// that only need a subset should depend on the narrower interface above.
type Backend interface {
	MemoryStore
	SearchProvider
	GraphProvider
	RelationshipStore
	EmbeddingProvider
}
