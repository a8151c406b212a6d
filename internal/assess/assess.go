// Package assess scores the quality of a memory and flags specific issues
// that consolidation and curation tooling can act on.
package assess

import (
	"strings"
	"time"

	"github.com/devmemory/memento/pkg/types"
)

// QualityIssue is a specific, named defect found in a memory.
type QualityIssue string

const (
	IssueShortContent      QualityIssue = "short_content"
	IssueNoTags            QualityIssue = "no_tags"
	IssueOrphaned          QualityIssue = "orphaned"
	IssueGenericTitle      QualityIssue = "generic_title"
	IssueLowImportance     QualityIssue = "low_importance"
	IssueStale             QualityIssue = "stale"
	IssuePossibleDuplicate QualityIssue = "possible_duplicate"
	IssueLowTrust          QualityIssue = "low_trust"
)

// penalties assigns each issue its deduction from a 100-point baseline.
var penalties = map[QualityIssue]int{
	IssueShortContent:      10,
	IssueNoTags:            10,
	IssueOrphaned:          5,
	IssueGenericTitle:      10,
	IssueLowImportance:     10,
	IssueStale:             10,
	IssuePossibleDuplicate: 10,
	IssueLowTrust:          15,
}

// LowTrustThreshold is the trust score below which a memory is flagged
// IssueLowTrust.
const LowTrustThreshold = 0.5

// Config controls the thresholds used to flag issues.
type Config struct {
	// ShortContentThreshold flags content at or below this length.
	ShortContentThreshold int

	// LowImportanceThreshold flags memories at or below this importance.
	LowImportanceThreshold float64

	// StaleDays flags memories whose decay_score has not been refreshed
	// (via access) for at least this many days.
	StaleDays int
}

// DefaultConfig mirrors the reference thresholds: content of 50 characters
// or fewer is short, importance at or below 0.3 is low, and 90 days without
// an access makes a memory stale.
func DefaultConfig() Config {
	return Config{ShortContentThreshold: 50, LowImportanceThreshold: 0.3, StaleDays: 90}
}

var genericTitlePrefixes = []string{"modified ", "edit ", "write ", "session activity", "tool failure"}

// Result is the outcome of assessing a single memory.
type Result struct {
	MemoryID string
	Score    int
	Issues   []QualityIssue
}

// Assess scores a memory out of 100, deducting the penalty for each issue
// found. relationCount is the number of relations touching the memory (zero
// means orphaned). trust is the memory's current trust score in [0, 1]; pass
// a negative value when trust is not yet known (e.g. while computing the
// quality score trust itself depends on) to skip the LowTrust check rather
// than flag a false positive. possibleDuplicate reports whether a separate
// similarity pass found a near-duplicate peer above its configured
// threshold.
func Assess(m *types.Memory, relationCount int, trust float64, possibleDuplicate bool, cfg Config) Result {
	var issues []QualityIssue

	if len([]rune(m.Content)) <= cfg.ShortContentThreshold {
		issues = append(issues, IssueShortContent)
	}
	if len(m.Tags) == 0 {
		issues = append(issues, IssueNoTags)
	}
	if relationCount == 0 {
		issues = append(issues, IssueOrphaned)
	}
	if hasGenericTitle(m.Title) {
		issues = append(issues, IssueGenericTitle)
	}
	if m.Importance <= cfg.LowImportanceThreshold {
		issues = append(issues, IssueLowImportance)
	}
	if isStale(m, cfg.StaleDays) {
		issues = append(issues, IssueStale)
	}
	if possibleDuplicate {
		issues = append(issues, IssuePossibleDuplicate)
	}
	if trust >= 0 && trust < LowTrustThreshold {
		issues = append(issues, IssueLowTrust)
	}

	score := 100
	for _, issue := range issues {
		score -= penalties[issue]
	}
	if score < 0 {
		score = 0
	}

	return Result{MemoryID: m.ID, Score: score, Issues: issues}
}

// NormalizedScore converts a Result's 0-100 score into [0, 1] for use as a
// trust input.
func (r Result) NormalizedScore() float64 {
	return float64(r.Score) / 100.0
}

func hasGenericTitle(title string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, prefix := range genericTitlePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isStale(m *types.Memory, staleDays int) bool {
	if m.AccessedAt.IsZero() {
		return false
	}
	days := time.Since(m.AccessedAt).Hours() / 24.0
	return days >= float64(staleDays)
}
