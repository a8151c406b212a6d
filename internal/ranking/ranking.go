package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/devmemory/memento/pkg/types"
)

// Weights controls how the seven ranking signals are fused into a single
// relevance score. The zero value is not meaningful; use DefaultWeights.
type Weights struct {
	Similarity     float64
	Keyword        float64
	Recency        float64
	Importance     float64
	AccessFreq     float64
	GraphProximity float64
	Trust          float64
}

// DefaultWeights mirrors the factor split used across the retrieval surface:
// similarity leads at 0.25; keyword match, recency, importance and trust take
// 0.15 each; access frequency takes 0.10, and graph proximity contributes a
// light 0.05 tiebreak.
func DefaultWeights() Weights {
	return Weights{
		Similarity:     0.25,
		Keyword:        0.15,
		Recency:        0.15,
		Importance:     0.15,
		AccessFreq:     0.10,
		GraphProximity: 0.05,
		Trust:          0.15,
	}
}

// recencyHalfLifeDays is the half-life used for the recency signal. This is
// intentionally shorter than decayHalfLifeDays: recency measures how fresh a
// result is for ranking purposes, decay measures long-term memory relevance.
const recencyHalfLifeDays = 7.0

// Signals carries the seven raw per-memory inputs to Score, each already
// normalized to [0, 1] by the caller.
type Signals struct {
	Similarity     float64 // cosine similarity to the query embedding
	Keyword        float64 // fraction of query terms present in title/content
	Recency        float64 // freshness since CreatedAt
	Importance     float64 // memory.Importance
	AccessFreq     float64 // recency-of-last-access ratio
	GraphProximity float64 // relation count saturating at graphProximitySaturation edges
	Trust          float64 // trust score from the trust package
}

// Score fuses the seven signals into a single relevance score in [0, 1]
// using the given weights.
func Score(s Signals, w Weights) float64 {
	total := w.Similarity + w.Keyword + w.Recency + w.Importance + w.AccessFreq + w.GraphProximity + w.Trust
	if total <= 0 {
		return 0
	}
	score := s.Similarity*w.Similarity +
		s.Keyword*w.Keyword +
		s.Recency*w.Recency +
		s.Importance*w.Importance +
		s.AccessFreq*w.AccessFreq +
		s.GraphProximity*w.GraphProximity +
		s.Trust*w.Trust
	return clamp01(score / total)
}

// RecencyScore converts an age into the [0, 1] recency signal using a
// 7-day half-life: a memory created now scores 1.0, one week old scores 0.5.
func RecencyScore(createdAt time.Time) float64 {
	days := time.Since(createdAt).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return clamp01(math.Pow(2, -days/recencyHalfLifeDays))
}

// KeywordScore returns the fraction of query terms that appear in title or
// content, case-insensitively. Returns 0 for an empty query.
func KeywordScore(query, title, content string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	haystack := strings.ToLower(title + " " + content)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// AccessFreqScore is the recency-of-last-access ratio: 1 when the memory was
// just accessed, decaying toward 0 as the gap between accessed_at and
// created_at widens relative to the memory's whole lifetime.
func AccessFreqScore(accessedAt, createdAt time.Time) float64 {
	now := time.Now()
	sinceAccess := now.Sub(accessedAt).Seconds()
	lifetime := now.Sub(createdAt).Seconds()
	if lifetime < 1 {
		lifetime = 1
	}
	return clamp01(1 - minFloat(1, sinceAccess/lifetime))
}

// graphProximitySaturation is the relation count at which GraphProximityScore
// reaches its maximum of 1.0.
const graphProximitySaturation = 5.0

// GraphProximityScore converts a memory's relation count into a proximity
// signal that saturates once a memory has graphProximitySaturation edges.
func GraphProximityScore(relationCount int) float64 {
	if relationCount <= 0 {
		return 0
	}
	return clamp01(float64(relationCount) / graphProximitySaturation)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// RankedResult pairs a memory with its fused score and the explanatory
// signal breakdown, for building a human-readable reason string.
type RankedResult struct {
	Memory  *types.Memory
	Score   float64
	Signals Signals
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
