// Package dedup decides, at capture time, whether a new memory duplicates
// an existing one closely enough to skip, merge with, supersede, or flag it
// against one of its nearest neighbors instead of creating a new record.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/devmemory/memento/internal/llm"
	"github.com/devmemory/memento/pkg/types"
)

// Decision is the outcome of comparing a new memory against its nearest
// existing matches.
type Decision string

const (
	// DecisionAdd means no sufficiently similar memory exists; create a new
	// record.
	DecisionAdd Decision = "add"

	// DecisionSkip means an existing memory is so similar that the new
	// capture is redundant and should be dropped, only bumping the
	// existing memory's access count.
	DecisionSkip Decision = "skip"

	// DecisionSupersede means the new memory is stored fresh and the
	// existing one is marked Superseded with a Supersedes edge pointing to
	// it.
	DecisionSupersede Decision = "supersede"

	// DecisionUpdate means the new capture is folded into the existing
	// memory in place; nothing new is stored.
	DecisionUpdate Decision = "update"

	// DecisionContradict means the new memory conflicts with an existing
	// one; both are kept, linked by a Contradicts edge.
	DecisionContradict Decision = "contradict"
)

// LLMCandidateFloor is the minimum similarity a top candidate must clear
// before the LLM-assisted path is attempted at all.
const LLMCandidateFloor = 0.5

// Config controls the similarity thresholds that separate the
// threshold-based decisions, and whether the LLM-assisted path is enabled.
type Config struct {
	// Enabled gates dedup entirely; when false, every capture is an Add.
	Enabled bool

	// SkipThreshold is the similarity above which a new memory is
	// considered a pure duplicate of the existing one.
	SkipThreshold float64

	// UpdateThreshold is the similarity above which a new memory is close
	// enough to the existing one to supersede it.
	UpdateThreshold float64

	// LLMEnabled turns on the Generator-assisted decision path.
	LLMEnabled bool
}

// DefaultConfig mirrors the thresholds used across the reference
// implementation: 0.95 to skip outright, 0.85 to supersede.
func DefaultConfig() Config {
	return Config{Enabled: true, SkipThreshold: 0.95, UpdateThreshold: 0.85}
}

// Normalize swaps SkipThreshold and UpdateThreshold if they are out of
// order, logging a warning, so SkipThreshold >= UpdateThreshold always
// holds for callers.
func (c *Config) Normalize() {
	if c.SkipThreshold < c.UpdateThreshold {
		log.Printf("dedup: skip_threshold (%v) < update_threshold (%v), swapping", c.SkipThreshold, c.UpdateThreshold)
		c.SkipThreshold, c.UpdateThreshold = c.UpdateThreshold, c.SkipThreshold
	}
}

// Candidate is an existing memory considered as a near-duplicate of a new
// capture, labeled with its similarity score from vector search.
type Candidate struct {
	Memory     *types.Memory
	Similarity float64
}

// Match is kept as an alias of the single-candidate shape callers that only
// need the threshold path (no LLM) still use.
type Match = Candidate

// Result is the outcome Decide/DecideWithLLM returns: which decision to
// execute and the payload the ingestion pipeline needs to carry it out.
type Result struct {
	Decision      Decision
	ExistingID    string
	Similarity    float64
	MergedTitle   string
	MergedContent string
	Reason        string
}

// Decide applies the threshold rules from the reference implementation to
// the highest-scoring candidate: candidates is assumed already sorted
// descending by similarity, as vector search returns it. The threshold path
// only ever yields Add, Skip, or Supersede — Update and Contradict are
// reachable solely through the LLM-assisted path.
func Decide(candidates []Candidate, cfg Config) Result {
	if !cfg.Enabled || len(candidates) == 0 {
		return Result{Decision: DecisionAdd}
	}
	top := candidates[0]
	switch {
	case top.Similarity >= cfg.SkipThreshold:
		return Result{Decision: DecisionSkip, ExistingID: top.Memory.ID, Similarity: top.Similarity}
	case top.Similarity >= cfg.UpdateThreshold:
		return Result{Decision: DecisionSupersede, ExistingID: top.Memory.ID, Similarity: top.Similarity}
	default:
		return Result{Decision: DecisionAdd}
	}
}

// llmDecisionPrompt instructs the model to classify a new capture against
// its nearest existing neighbors, labeled by ordinal id.
const llmDecisionPrompt = `You compare a newly captured developer note against its closest existing matches and decide what to do with it.
Respond with JSON only, matching this shape:
{"decision": "add|skip|supersede|update|contradict", "target_id": "<ordinal id of the existing note this refers to, omit for add>", "merged_title": "<only for update>", "merged_content": "<only for update>", "reason": "<only for contradict>"}
- add: the new note is distinct from every candidate.
- skip: the new note is a pure duplicate of the candidate at target_id.
- supersede: the new note replaces the candidate at target_id with newer information.
- update: the new note should be merged into the candidate at target_id in place; provide merged_title and merged_content.
- contradict: the new note conflicts with the candidate at target_id; provide reason.`

type llmDecisionResponse struct {
	Decision      string `json:"decision"`
	TargetID      string `json:"target_id"`
	MergedTitle   string `json:"merged_title"`
	MergedContent string `json:"merged_content"`
	Reason        string `json:"reason"`
}

// buildLLMPrompt enumerates the new memory and the filtered candidates
// labeled by ordinal ids "0", "1", ... in the order vector search returned
// them.
func buildLLMPrompt(newTitle, newContent string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New note:\ntitle: %s\ncontent: %s\n\nExisting notes:\n", newTitle, newContent)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. [similarity %.2f] title: %s\ncontent: %s\n", i, c.Similarity, c.Memory.Title, c.Memory.Content)
	}
	return b.String()
}

// DecideWithLLM runs the Generator-assisted decision path: when llmEnabled,
// gen is non-nil, and at least one candidate clears LLMCandidateFloor, it
// asks gen to classify the capture and maps the response's ordinal
// target_id back to a real memory id. Any parse failure, unknown decision,
// out-of-range target_id, or missing required field for the chosen decision
// falls back to the threshold-based Decide.
func DecideWithLLM(ctx context.Context, gen llm.TextGenerator, candidates []Candidate, newTitle, newContent string, cfg Config) Result {
	if !cfg.Enabled {
		return Result{Decision: DecisionAdd}
	}
	if !cfg.LLMEnabled || gen == nil || !anyClearsFloor(candidates) {
		return Decide(candidates, cfg)
	}

	raw, err := gen.Complete(ctx, llmDecisionPrompt+"\n\n"+buildLLMPrompt(newTitle, newContent, candidates))
	if err != nil {
		log.Printf("dedup: LLM decision call failed, falling back to thresholds: %v", err)
		return Decide(candidates, cfg)
	}

	var parsed llmDecisionResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &parsed); err != nil {
		log.Printf("dedup: LLM decision response unparseable, falling back to thresholds: %v", err)
		return Decide(candidates, cfg)
	}

	result, ok := resolveLLMDecision(parsed, candidates)
	if !ok {
		log.Printf("dedup: LLM decision %q invalid or incomplete, falling back to thresholds", parsed.Decision)
		return Decide(candidates, cfg)
	}
	return result
}

func anyClearsFloor(candidates []Candidate) bool {
	for _, c := range candidates {
		if c.Similarity >= LLMCandidateFloor {
			return true
		}
	}
	return false
}

func resolveLLMDecision(parsed llmDecisionResponse, candidates []Candidate) (Result, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(parsed.Decision))) {
	case DecisionAdd:
		return Result{Decision: DecisionAdd}, true

	case DecisionSkip:
		cand, ok := resolveTarget(parsed.TargetID, candidates)
		if !ok {
			return Result{}, false
		}
		return Result{Decision: DecisionSkip, ExistingID: cand.Memory.ID, Similarity: cand.Similarity}, true

	case DecisionSupersede:
		cand, ok := resolveTarget(parsed.TargetID, candidates)
		if !ok {
			return Result{}, false
		}
		return Result{Decision: DecisionSupersede, ExistingID: cand.Memory.ID, Similarity: cand.Similarity}, true

	case DecisionUpdate:
		cand, ok := resolveTarget(parsed.TargetID, candidates)
		if !ok || parsed.MergedTitle == "" || parsed.MergedContent == "" {
			return Result{}, false
		}
		return Result{
			Decision:      DecisionUpdate,
			ExistingID:    cand.Memory.ID,
			Similarity:    cand.Similarity,
			MergedTitle:   parsed.MergedTitle,
			MergedContent: parsed.MergedContent,
		}, true

	case DecisionContradict:
		cand, ok := resolveTarget(parsed.TargetID, candidates)
		if !ok {
			return Result{}, false
		}
		return Result{
			Decision:   DecisionContradict,
			ExistingID: cand.Memory.ID,
			Similarity: cand.Similarity,
			Reason:     parsed.Reason,
		}, true

	default:
		return Result{}, false
	}
}

func resolveTarget(targetID string, candidates []Candidate) (Candidate, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(targetID))
	if err != nil || idx < 0 || idx >= len(candidates) {
		return Candidate{}, false
	}
	return candidates[idx], true
}

// summaryRuneLimit mirrors the limit pkg/types uses to build a memory's
// auto-generated summary from its content.
const summaryRuneLimit = 200

// MergeForUpdate produces the updated memory body from an Update decision's
// MergedTitle/MergedContent; an empty mergedTitle keeps the existing title.
// The threshold path never reaches Update, so this only runs when the LLM
// supplies merged text.
func MergeForUpdate(existing *types.Memory, mergedTitle, mergedContent string) *types.Memory {
	merged := *existing
	if mergedTitle != "" {
		merged.Title = mergedTitle
	}
	merged.Content = mergedContent
	merged.Summary = truncate(mergedContent, summaryRuneLimit)
	return &merged
}

func truncate(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
