// Package consolidate finds clusters of similar, aging memories and merges
// each cluster into a single higher-quality memory via an LLM summarization
// call.
package consolidate

import (
	"time"

	"github.com/devmemory/memento/internal/embedder"
	"github.com/devmemory/memento/pkg/types"
)

// Config controls clustering thresholds.
type Config struct {
	// MinClusterSize is the smallest group of memories worth consolidating.
	MinClusterSize int

	// SimilarityThreshold is the minimum pairwise cosine similarity for two
	// memories to be placed in the same cluster.
	SimilarityThreshold float64

	// MaxClusterSize caps how many memories a single cluster may absorb in
	// one consolidation pass.
	MaxClusterSize int

	// MinAgeDays excludes memories younger than this from consolidation, so
	// recently captured context isn't merged away before it's been useful.
	MinAgeDays int
}

// DefaultConfig mirrors the reference thresholds: clusters of at least 3,
// a 0.7 similarity floor, capped at 10 members, and a 7-day minimum age.
func DefaultConfig() Config {
	return Config{MinClusterSize: 3, SimilarityThreshold: 0.7, MaxClusterSize: 10, MinAgeDays: 7}
}

// Candidate is a memory eligible for consolidation, carrying its embedding
// so clustering doesn't need to refetch it.
type Candidate struct {
	Memory    *types.Memory
	Embedding []float32
}

// Cluster is a group of memories found to be similar enough to consolidate.
type Cluster struct {
	Members []Candidate
}

// EligibleForConsolidation filters candidates to those old enough to
// consolidate, per cfg.MinAgeDays.
func EligibleForConsolidation(candidates []Candidate, cfg Config) []Candidate {
	cutoff := time.Now().AddDate(0, 0, -cfg.MinAgeDays)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Memory.CreatedAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

// FindClusters groups candidates into clusters using greedy single-linkage
// clustering: each unclustered candidate seeds a new cluster and pulls in
// every other unclustered candidate within SimilarityThreshold, up to
// MaxClusterSize. Clusters smaller than MinClusterSize are dropped.
func FindClusters(candidates []Candidate, cfg Config) []Cluster {
	used := make([]bool, len(candidates))
	var clusters []Cluster

	for i := range candidates {
		if used[i] {
			continue
		}
		cluster := Cluster{Members: []Candidate{candidates[i]}}
		used[i] = true

		for j := i + 1; j < len(candidates) && len(cluster.Members) < cfg.MaxClusterSize; j++ {
			if used[j] {
				continue
			}
			sim := embedder.CosineSimilarity(candidates[i].Embedding, candidates[j].Embedding)
			if sim >= cfg.SimilarityThreshold {
				cluster.Members = append(cluster.Members, candidates[j])
				used[j] = true
			}
		}

		if len(cluster.Members) >= cfg.MinClusterSize {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}
