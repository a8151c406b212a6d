package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/devmemory/memento/pkg/types"
)

func TestDecide_NoCandidatesAdds(t *testing.T) {
	if got := Decide(nil, DefaultConfig()); got.Decision != DecisionAdd {
		t.Errorf("expected add, got %s", got.Decision)
	}
}

func TestDecide_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.99}}
	if got := Decide(candidates, cfg); got.Decision != DecisionAdd {
		t.Errorf("expected add when disabled, got %s", got.Decision)
	}
}

func TestDecide_AboveSkipThreshold(t *testing.T) {
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.97}}
	got := Decide(candidates, DefaultConfig())
	if got.Decision != DecisionSkip {
		t.Errorf("expected skip, got %s", got.Decision)
	}
	if got.ExistingID != "mem:x" {
		t.Errorf("expected existing id mem:x, got %s", got.ExistingID)
	}
}

func TestDecide_AboveUpdateThresholdSupersedes(t *testing.T) {
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.9}}
	got := Decide(candidates, DefaultConfig())
	if got.Decision != DecisionSupersede {
		t.Errorf("expected supersede, got %s", got.Decision)
	}
	if got.ExistingID != "mem:x" {
		t.Errorf("expected existing id mem:x, got %s", got.ExistingID)
	}
}

func TestDecide_BelowThresholdsAdds(t *testing.T) {
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.5}}
	if got := Decide(candidates, DefaultConfig()); got.Decision != DecisionAdd {
		t.Errorf("expected add, got %s", got.Decision)
	}
}

func TestDecide_SkipBoundaryIsInclusive(t *testing.T) {
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.95}}
	if got := Decide(candidates, DefaultConfig()); got.Decision != DecisionSkip {
		t.Errorf("expected skip at exact threshold, got %s", got.Decision)
	}
}

func TestDecide_UpdateBoundaryIsInclusive(t *testing.T) {
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.85}}
	if got := Decide(candidates, DefaultConfig()); got.Decision != DecisionSupersede {
		t.Errorf("expected supersede at exact threshold, got %s", got.Decision)
	}
}

func TestDecide_NeverReachesUpdateOrContradict(t *testing.T) {
	for _, sim := range []float64{0.0, 0.3, 0.5, 0.84, 0.85, 0.94, 0.95, 1.0} {
		candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: sim}}
		got := Decide(candidates, DefaultConfig())
		if got.Decision == DecisionUpdate || got.Decision == DecisionContradict {
			t.Errorf("threshold path should never yield %s (similarity %v)", got.Decision, sim)
		}
	}
}

type stubGenerator struct {
	response string
	err      error
}

func (s stubGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func (s stubGenerator) GetModel() string {
	return "stub"
}

func TestDecideWithLLM_LLMDisabledFallsBackToThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = false
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.97}}
	got := DecideWithLLM(context.Background(), stubGenerator{response: `{"decision":"update"}`}, candidates, "t", "c", cfg)
	if got.Decision != DecisionSkip {
		t.Errorf("expected threshold fallback (skip), got %s", got.Decision)
	}
}

func TestDecideWithLLM_NoCandidateClearsFloorFallsBackToThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.1}}
	got := DecideWithLLM(context.Background(), stubGenerator{response: `{"decision":"supersede","target_id":"0"}`}, candidates, "t", "c", cfg)
	if got.Decision != DecisionAdd {
		t.Errorf("expected threshold fallback (add), got %s", got.Decision)
	}
}

func TestDecideWithLLM_GeneratorErrorFallsBackToThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.6}}
	got := DecideWithLLM(context.Background(), stubGenerator{err: errors.New("boom")}, candidates, "t", "c", cfg)
	if got.Decision != DecisionAdd {
		t.Errorf("expected threshold fallback (add), got %s", got.Decision)
	}
}

func TestDecideWithLLM_UnparseableResponseFallsBackToThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.6}}
	got := DecideWithLLM(context.Background(), stubGenerator{response: "not json"}, candidates, "t", "c", cfg)
	if got.Decision != DecisionAdd {
		t.Errorf("expected threshold fallback (add), got %s", got.Decision)
	}
}

func TestDecideWithLLM_UpdateDecisionRequiresMergedFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:x"}, Similarity: 0.6}}
	got := DecideWithLLM(context.Background(), stubGenerator{response: `{"decision":"update","target_id":"0"}`}, candidates, "t", "c", cfg)
	if got.Decision != DecisionAdd {
		t.Errorf("expected threshold fallback when merged fields missing, got %s", got.Decision)
	}
}

func TestDecideWithLLM_UpdateDecisionResolvesTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{
		{Memory: &types.Memory{ID: "mem:a"}, Similarity: 0.7},
		{Memory: &types.Memory{ID: "mem:b"}, Similarity: 0.6},
	}
	resp := `{"decision":"update","target_id":"1","merged_title":"merged title","merged_content":"merged content"}`
	got := DecideWithLLM(context.Background(), stubGenerator{response: resp}, candidates, "t", "c", cfg)
	if got.Decision != DecisionUpdate {
		t.Fatalf("expected update, got %s", got.Decision)
	}
	if got.ExistingID != "mem:b" {
		t.Errorf("expected target mem:b, got %s", got.ExistingID)
	}
	if got.MergedTitle != "merged title" || got.MergedContent != "merged content" {
		t.Errorf("expected merged fields carried through, got %+v", got)
	}
}

func TestDecideWithLLM_ContradictDecisionResolvesTargetAndReason(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:a"}, Similarity: 0.6}}
	resp := `{"decision":"contradict","target_id":"0","reason":"states the opposite conclusion"}`
	got := DecideWithLLM(context.Background(), stubGenerator{response: resp}, candidates, "t", "c", cfg)
	if got.Decision != DecisionContradict {
		t.Fatalf("expected contradict, got %s", got.Decision)
	}
	if got.ExistingID != "mem:a" {
		t.Errorf("expected target mem:a, got %s", got.ExistingID)
	}
	if got.Reason != "states the opposite conclusion" {
		t.Errorf("expected reason carried through, got %q", got.Reason)
	}
}

func TestDecideWithLLM_OutOfRangeTargetFallsBackToThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:a"}, Similarity: 0.6}}
	resp := `{"decision":"skip","target_id":"5"}`
	got := DecideWithLLM(context.Background(), stubGenerator{response: resp}, candidates, "t", "c", cfg)
	if got.Decision != DecisionAdd {
		t.Errorf("expected threshold fallback (add), got %s", got.Decision)
	}
}

func TestDecideWithLLM_UnknownDecisionFallsBackToThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLMEnabled = true
	candidates := []Candidate{{Memory: &types.Memory{ID: "mem:a"}, Similarity: 0.6}}
	resp := `{"decision":"archive","target_id":"0"}`
	got := DecideWithLLM(context.Background(), stubGenerator{response: resp}, candidates, "t", "c", cfg)
	if got.Decision != DecisionAdd {
		t.Errorf("expected threshold fallback (add), got %s", got.Decision)
	}
}

func TestMergeForUpdate_ReplacesTitleAndContent(t *testing.T) {
	existing := &types.Memory{ID: "mem:a", Title: "old title", Content: "old content", Tags: []string{"go"}}
	merged := MergeForUpdate(existing, "new title", "new content")
	if merged.Title != "new title" || merged.Content != "new content" {
		t.Errorf("expected title/content replaced, got %+v", merged)
	}
	if len(merged.Tags) != 1 || merged.Tags[0] != "go" {
		t.Errorf("expected tags left untouched, got %v", merged.Tags)
	}
}

func TestMergeForUpdate_EmptyMergedTitleKeepsExisting(t *testing.T) {
	existing := &types.Memory{ID: "mem:a", Title: "old title", Content: "old content"}
	merged := MergeForUpdate(existing, "", "new content")
	if merged.Title != "old title" {
		t.Errorf("expected existing title kept, got %q", merged.Title)
	}
}

func TestMergeForUpdate_TruncatesSummary(t *testing.T) {
	existing := &types.Memory{ID: "mem:a", Title: "t"}
	longContent := repeatChar(300)
	merged := MergeForUpdate(existing, "t", longContent)
	if len([]rune(merged.Summary)) > summaryRuneLimit+3 {
		t.Errorf("expected summary truncated to %d runes plus ellipsis, got %d", summaryRuneLimit, len([]rune(merged.Summary)))
	}
}

func repeatChar(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
