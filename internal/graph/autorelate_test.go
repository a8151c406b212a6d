package graph

import (
	"testing"

	"github.com/devmemory/memento/pkg/types"
)

func TestCandidateFetchLimit(t *testing.T) {
	if got := CandidateFetchLimit(3); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
}

func TestSelectAutoRelateCandidates_ExcludesSelfAndBelowThreshold(t *testing.T) {
	cfg := DefaultAutoRelateConfig()
	candidates := []ScoredCandidate{
		{MemoryID: "seed", Similarity: 1.0},
		{MemoryID: "a", Similarity: 0.9},
		{MemoryID: "b", Similarity: 0.5},
		{MemoryID: "c", Similarity: 0.7},
	}
	got := SelectAutoRelateCandidates("seed", candidates, nil, cfg)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].MemoryID != "a" || got[1].MemoryID != "c" {
		t.Errorf("expected a, c ranked by similarity, got %+v", got)
	}
}

func TestSelectAutoRelateCandidates_ExcludesAlreadyRelated(t *testing.T) {
	cfg := DefaultAutoRelateConfig()
	candidates := []ScoredCandidate{{MemoryID: "a", Similarity: 0.9}}
	got := SelectAutoRelateCandidates("seed", candidates, map[string]bool{"a": true}, cfg)
	if len(got) != 0 {
		t.Errorf("expected 0 candidates, got %d", len(got))
	}
}

func TestSelectAutoRelateCandidates_CapsAtMaxRelations(t *testing.T) {
	cfg := AutoRelateConfig{SimilarityThreshold: 0.0, MaxRelations: 2}
	candidates := []ScoredCandidate{
		{MemoryID: "a", Similarity: 0.9},
		{MemoryID: "b", Similarity: 0.8},
		{MemoryID: "c", Similarity: 0.7},
	}
	got := SelectAutoRelateCandidates("seed", candidates, nil, cfg)
	if len(got) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(got))
	}
}

func TestBuildRelations_SetsStrengthFromSimilarity(t *testing.T) {
	rels := BuildRelations("seed", []ScoredCandidate{{MemoryID: "a", Similarity: 0.8}}, types.RelationRelated)
	if len(rels) != 1 || rels[0].Strength != 0.8 || rels[0].TargetID != "a" {
		t.Errorf("unexpected relation: %+v", rels)
	}
}
