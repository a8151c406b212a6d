package ranking

import (
	"testing"
	"time"
)

func TestScore_EqualWeightsAveragesSignals(t *testing.T) {
	w := Weights{Similarity: 1, Keyword: 1, Recency: 1, Importance: 1, AccessFreq: 1, GraphProximity: 1, Trust: 1}
	s := Signals{Similarity: 1, Keyword: 1, Recency: 1, Importance: 1, AccessFreq: 1, GraphProximity: 1, Trust: 1}
	if got := Score(s, w); got != 1.0 {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestScore_ZeroWeightsReturnsZero(t *testing.T) {
	if got := Score(Signals{Similarity: 1}, Weights{}); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestRecencyScore_FreshIsNearOne(t *testing.T) {
	if got := RecencyScore(time.Now()); got < 0.99 {
		t.Errorf("fresh memory should score near 1.0, got %f", got)
	}
}

func TestRecencyScore_WeekOldIsHalf(t *testing.T) {
	weekAgo := time.Now().Add(-7 * 24 * time.Hour)
	got := RecencyScore(weekAgo)
	if got < 0.45 || got > 0.55 {
		t.Errorf("7-day-old memory should score near 0.5, got %f", got)
	}
}

func TestKeywordScore_PartialMatch(t *testing.T) {
	got := KeywordScore("postgres migration tool", "fixed the postgres driver", "used lib/pq")
	if got < 0.3 || got > 0.4 {
		t.Errorf("expected ~1/3 match, got %f", got)
	}
}

func TestKeywordScore_EmptyQuery(t *testing.T) {
	if got := KeywordScore("", "title", "content"); got != 0 {
		t.Errorf("expected 0 for empty query, got %f", got)
	}
}

func TestGraphProximityScore_NoRelationsIsZero(t *testing.T) {
	if got := GraphProximityScore(0); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestGraphProximityScore_SaturatesAtFive(t *testing.T) {
	if got := GraphProximityScore(5); got != 1.0 {
		t.Errorf("expected 1.0 at saturation, got %f", got)
	}
	if got := GraphProximityScore(50); got != 1.0 {
		t.Errorf("expected score capped at 1.0 beyond saturation, got %f", got)
	}
}

func TestGraphProximityScore_ScalesWithRelationCount(t *testing.T) {
	few := GraphProximityScore(1)
	many := GraphProximityScore(3)
	if many <= few {
		t.Errorf("more relations should score higher: few=%f many=%f", few, many)
	}
}

func TestAccessFreqScore_JustAccessedIsNearOne(t *testing.T) {
	createdAt := time.Now().Add(-30 * 24 * time.Hour)
	if got := AccessFreqScore(time.Now(), createdAt); got < 0.99 {
		t.Errorf("just-accessed memory should score near 1.0, got %f", got)
	}
}

func TestAccessFreqScore_NeverAccessedSinceCreationIsZero(t *testing.T) {
	createdAt := time.Now().Add(-30 * 24 * time.Hour)
	if got := AccessFreqScore(createdAt, createdAt); got != 0 {
		t.Errorf("expected 0 when accessed_at equals created_at, got %f", got)
	}
}
