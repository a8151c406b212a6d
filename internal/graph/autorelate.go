package graph

import (
	"context"
	"sort"

	"github.com/devmemory/memento/pkg/types"
)

// AutoRelateConfig controls similarity-driven automatic relation creation.
type AutoRelateConfig struct {
	// SimilarityThreshold is the minimum cosine similarity a candidate must
	// clear to be auto-related.
	SimilarityThreshold float64

	// MaxRelations caps how many relations are created per memory per call.
	MaxRelations int
}

// DefaultAutoRelateConfig returns the defaults used by capture-time
// auto-relate: a 0.6 similarity floor and up to 3 new relations.
func DefaultAutoRelateConfig() AutoRelateConfig {
	return AutoRelateConfig{SimilarityThreshold: 0.6, MaxRelations: 3}
}

// SimilaritySearcher returns the nearest neighbors of a memory's embedding,
// over-fetched beyond what the caller ultimately needs so filtering (self,
// below-threshold, already-related) still leaves enough candidates.
type SimilaritySearcher interface {
	NearestMemories(ctx context.Context, memoryID string, limit int) ([]ScoredCandidate, error)
}

// ScoredCandidate is one candidate memory with its similarity to the seed.
type ScoredCandidate struct {
	MemoryID   string
	Similarity float64
}

// CandidateFetchLimit returns the over-fetch size for a given MaxRelations:
// 3x the target plus one, so that after excluding the seed memory and any
// already-related candidates there is still headroom to hit the target.
func CandidateFetchLimit(maxRelations int) int {
	return maxRelations*3 + 1
}

// SelectAutoRelateCandidates filters and ranks similarity candidates into the
// set that should become new relations: excludes the seed memory itself and
// anything already related, drops candidates below the similarity threshold,
// and returns at most MaxRelations, highest similarity first.
func SelectAutoRelateCandidates(seedID string, candidates []ScoredCandidate, alreadyRelated map[string]bool, cfg AutoRelateConfig) []ScoredCandidate {
	filtered := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.MemoryID == seedID {
			continue
		}
		if alreadyRelated[c.MemoryID] {
			continue
		}
		if c.Similarity < cfg.SimilarityThreshold {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Similarity > filtered[j].Similarity })

	if len(filtered) > cfg.MaxRelations {
		filtered = filtered[:cfg.MaxRelations]
	}
	return filtered
}

// BuildRelations converts selected candidates into MemoryRelation records of
// the given type, with strength set to the observed similarity.
func BuildRelations(seedID string, candidates []ScoredCandidate, relType types.RelationType) []*types.MemoryRelation {
	rels := make([]*types.MemoryRelation, 0, len(candidates))
	for _, c := range candidates {
		rels = append(rels, types.NewMemoryRelation(seedID, c.MemoryID, relType, c.Similarity))
	}
	return rels
}
