// Package trust computes a composite trust score for a memory from its
// verification status, provenance, content quality, and any contradicting
// relations recorded against it.
package trust

import (
	"context"
	"math"

	"github.com/devmemory/memento/pkg/types"
)

// Weights controls how the four trust factors combine. The zero value is
// not meaningful; use DefaultWeights.
type Weights struct {
	Verification float64
	Source       float64
	Quality      float64
	Contradiction float64
}

// DefaultWeights weighs verification status highest, since it is the
// strongest explicit signal a user can give, followed by quality and
// provenance, with contradiction evidence as a penalty term.
func DefaultWeights() Weights {
	return Weights{
		Verification:  0.4,
		Source:        0.2,
		Quality:       0.25,
		Contradiction: 0.15,
	}
}

// verificationScore maps a VerificationStatus to its base trust contribution.
func verificationScore(v types.VerificationStatus) float64 {
	switch v {
	case types.VerificationVerified:
		return 1.0
	case types.VerificationUnverified:
		return 0.5
	case types.VerificationOutdated:
		return 0.3
	case types.VerificationDisputed:
		return 0.1
	default:
		return 0.5
	}
}

// sourceScore maps a SourceKind to its base trust contribution. Manual entry
// carries the most intent, followed by explicit import, then memories
// derived from other memories, with unattended auto-capture trusted least.
func sourceScore(s types.SourceKind) float64 {
	switch s {
	case types.SourceManual:
		return 1.0
	case types.SourceImport:
		return 0.8
	case types.SourceDerived:
		return 0.7
	case types.SourceAutoCapture:
		return 0.6
	default:
		return 0.7
	}
}

// contradictionScore converts a count of contradicting relations into a
// trust contribution: zero contradictions scores 1.0, and each one pulls the
// score down with diminishing severity.
func contradictionScore(count int) float64 {
	if count <= 0 {
		return 1.0
	}
	return clamp01(1.0 / (1.0 + float64(count)))
}

// RelationCounter counts relations of a given type touching a memory. The
// sqlite and remote storage backends satisfy this with their
// CountRelationsByType method.
type RelationCounter interface {
	CountRelationsByType(ctx context.Context, memoryID string, relType types.RelationType) (int, error)
}

// Score computes the trust score for a memory in [0, 1], given a quality
// score (as produced by the assess package, already normalized to [0, 1])
// and a count of relations typed RelationContradicts touching it in either
// direction.
func Score(m *types.Memory, quality float64, contradictions int, w Weights) float64 {
	total := w.Verification + w.Source + w.Quality + w.Contradiction
	if total <= 0 {
		return 0
	}
	score := verificationScore(m.Verification)*w.Verification +
		sourceScore(m.Source)*w.Source +
		clamp01(quality)*w.Quality +
		contradictionScore(contradictions)*w.Contradiction
	return clamp01(score / total)
}

// ScoreWithStore computes a memory's trust score, fetching its contradiction
// count from the given RelationCounter. quality must already be computed
// (typically by the assess package) and normalized to [0, 1].
func ScoreWithStore(ctx context.Context, store RelationCounter, m *types.Memory, quality float64, w Weights) (float64, error) {
	count, err := store.CountRelationsByType(ctx, m.ID, types.RelationContradicts)
	if err != nil {
		return 0, err
	}
	return Score(m, quality, count, w), nil
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}
