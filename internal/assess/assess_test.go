package assess

import (
	"testing"
	"time"

	"github.com/devmemory/memento/pkg/types"
)

func baseMemory() *types.Memory {
	return &types.Memory{
		ID:           "mem:x",
		Title:        "a well-named decision record",
		Content:      "This is a sufficiently long piece of content describing a real decision made during the project.",
		Tags:         []string{"go", "storage"},
		Importance:   0.8,
		Verification: types.VerificationVerified,
		AccessedAt:   time.Now(),
	}
}

func TestAssess_NoIssuesScoresHundred(t *testing.T) {
	got := Assess(baseMemory(), 2, 0.9, false, DefaultConfig())
	if got.Score != 100 || len(got.Issues) != 0 {
		t.Errorf("expected perfect score, got %+v", got)
	}
}

func TestAssess_NoTagsAndOrphaned(t *testing.T) {
	m := baseMemory()
	m.Tags = nil
	got := Assess(m, 0, 0.9, false, DefaultConfig())
	if got.Score != 85 {
		t.Errorf("expected score 85, got %d (issues %v)", got.Score, got.Issues)
	}
}

func TestAssess_AllIssues(t *testing.T) {
	m := &types.Memory{
		ID:           "mem:y",
		Title:        "Modified the deployment script",
		Content:      "short",
		Importance:   0.1,
		Verification: types.VerificationUnverified,
		AccessedAt:   time.Now().Add(-100 * 24 * time.Hour),
	}
	got := Assess(m, 0, 0.2, true, DefaultConfig())
	wantScore := 100 - 10 - 10 - 5 - 10 - 10 - 10 - 10 - 15
	if got.Score != wantScore {
		t.Errorf("expected score %d, got %d (issues %v)", wantScore, got.Score, got.Issues)
	}
	if len(got.Issues) != 8 {
		t.Errorf("expected 8 issues, got %d: %v", len(got.Issues), got.Issues)
	}
}

func TestAssess_NegativeTrustSkipsLowTrustCheck(t *testing.T) {
	m := baseMemory()
	got := Assess(m, 2, -1, false, DefaultConfig())
	for _, issue := range got.Issues {
		if issue == IssueLowTrust {
			t.Errorf("expected LowTrust to be skipped when trust is unknown, got %+v", got)
		}
	}
}

func TestAssess_LowTrustFlagged(t *testing.T) {
	m := baseMemory()
	got := Assess(m, 2, 0.4, false, DefaultConfig())
	found := false
	for _, issue := range got.Issues {
		if issue == IssueLowTrust {
			found = true
		}
	}
	if !found {
		t.Errorf("expected low_trust flagged below threshold, got %+v", got)
	}
}

func TestAssess_GenericTitlePrefixes(t *testing.T) {
	cfg := DefaultConfig()
	titles := []string{"Modified config.go", "Edit notes", "Write summary", "Session activity", "Tool failure: timeout"}
	for _, title := range titles {
		m := baseMemory()
		m.Title = title
		got := Assess(m, 2, 0.9, false, cfg)
		found := false
		for _, issue := range got.Issues {
			if issue == IssueGenericTitle {
				found = true
			}
		}
		if !found {
			t.Errorf("expected generic_title flagged for title %q, got %+v", title, got)
		}
	}
}

func TestAssess_ShortContentBoundaryExactlyFifty(t *testing.T) {
	m := baseMemory()
	m.Content = makeCharString(50)
	got := Assess(m, 2, 0.9, false, DefaultConfig())
	found := false
	for _, issue := range got.Issues {
		if issue == IssueShortContent {
			found = true
		}
	}
	if !found {
		t.Errorf("expected short_content flagged at exactly 50 chars, got %+v", got)
	}
}

func makeCharString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
