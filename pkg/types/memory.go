// Package types defines the core data structures for the Memento memory
// system: memories, relations, and the enums that classify them.
package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxTitleLength is the maximum accepted length of a memory title.
	MaxTitleLength = 500
	// MaxContentLength is the maximum accepted length of memory content.
	MaxContentLength = 50_000
	// summaryRuneLimit is where Content is truncated to build the auto Summary.
	summaryRuneLimit = 200
)

// Memory is the atomic unit of captured knowledge in Memento.
type Memory struct {
	ID      string     `json:"id"`
	Kind    MemoryKind `json:"kind"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Summary string     `json:"summary"`
	Tags    []string   `json:"tags,omitempty"`

	Source     SourceKind `json:"source"`
	SourceHook string     `json:"source_hook,omitempty"` // set when Source == SourceAutoCapture
	DerivedFromID string  `json:"derived_from_id,omitempty"` // set when Source == SourceDerived

	Scope     ScopeKind `json:"scope"`
	ProjectID string    `json:"project_id,omitempty"` // set when Scope == ScopeProject, also carried for filtering regardless of scope
	SessionID string    `json:"session_id,omitempty"` // set when Scope == ScopeSession

	Importance   float64            `json:"importance"`
	Status       MemoryStatus       `json:"status"`
	Privacy      MemoryPrivacy      `json:"privacy"`
	Verification VerificationStatus `json:"verification"`

	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	AccessedAt time.Time `json:"accessed_at"`

	AccessCount    int        `json:"access_count"`
	DecayScore     float64    `json:"decay_score"`
	DecayUpdatedAt *time.Time `json:"decay_updated_at,omitempty"`

	Embedding          []float32 `json:"embedding,omitempty"`
	EmbeddingModel     string    `json:"embedding_model,omitempty"`
	EmbeddingDimension int       `json:"embedding_dimension,omitempty"`

	// Entities are simplified entity references (free-form strings, e.g.
	// "file:main.go") used by search and graph expansion.
	Entities []string               `json:"entities,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewMemory builds a Memory with the defaults the rest of the pipeline
// expects: generated ID, auto summary, manual source, global scope, private
// privacy, unverified status, active lifecycle status.
func NewMemory(title, content string, kind MemoryKind, createdBy string) *Memory {
	now := time.Now().UTC()
	return &Memory{
		ID:           GenerateMemoryID(""),
		Kind:         kind,
		Title:        title,
		Content:      content,
		Summary:      autoSummary(content),
		Tags:         nil,
		Source:       SourceManual,
		Scope:        ScopeGlobal,
		Importance:   0.5,
		Status:       StatusActive,
		Privacy:      PrivacyPrivate,
		Verification: VerificationUnverified,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		AccessedAt:   now,
	}
}

func autoSummary(content string) string {
	runes := []rune(content)
	if len(runes) <= summaryRuneLimit {
		return content
	}
	return string(runes[:summaryRuneLimit]) + "..."
}

// EmbeddingText is the text used to generate a memory's embedding:
// title + summary + tags.
func (m *Memory) EmbeddingText() string {
	return fmt.Sprintf("%s\n%s\n%s", m.Title, m.Summary, strings.Join(m.Tags, ", "))
}

// GenerateMemoryID builds an ID in the "mem:<domain>:<slug>" form. An empty
// domain is allowed (produces "mem::<slug>") for callers that assign a
// domain later via classification.
func GenerateMemoryID(domain string) string {
	return fmt.Sprintf("mem:%s:%s", domain, randomSlug())
}

// randomSlug returns an 8-byte hex-encoded random slug, falling back to a
// nanosecond timestamp if crypto/rand is unavailable.
func randomSlug() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// ValidateCreateInput checks a title/content/importance triple before a
// memory is constructed.
func ValidateCreateInput(title, content string, importance float64) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
	}
	if len([]rune(trimmed)) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds maximum length of %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if len([]rune(content)) > MaxContentLength {
		return fmt.Errorf("%w: content exceeds maximum length of %d characters", ErrInvalidInput, MaxContentLength)
	}
	if importance < 0.0 || importance > 1.0 {
		return fmt.Errorf("%w: importance must be between 0.0 and 1.0", ErrInvalidInput)
	}
	return nil
}

// CreateMemoryInput is the input payload for creating a new memory.
type CreateMemoryInput struct {
	Title      string
	Content    string
	Kind       MemoryKind
	Tags       []string
	Importance float64
	Scope      ScopeKind
	ScopeID    string
	RelatedTo  []string
	ProjectID  string
	Privacy    MemoryPrivacy
}

// UpdateMemoryInput carries optional field updates for an existing memory.
type UpdateMemoryInput struct {
	Title        *string
	Content      *string
	Tags         []string
	Importance   *float64
	Status       *MemoryStatus
	Kind         *MemoryKind
	Privacy      *MemoryPrivacy
	Verification *VerificationStatus
}

// ValidateUpdateInput checks the optional fields set on an update input.
func ValidateUpdateInput(input *UpdateMemoryInput) error {
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		if len([]rune(trimmed)) > MaxTitleLength {
			return fmt.Errorf("%w: title exceeds maximum length of %d characters", ErrInvalidInput, MaxTitleLength)
		}
	}
	if input.Content != nil && len([]rune(*input.Content)) > MaxContentLength {
		return fmt.Errorf("%w: content exceeds maximum length of %d characters", ErrInvalidInput, MaxContentLength)
	}
	if input.Importance != nil && (*input.Importance < 0.0 || *input.Importance > 1.0) {
		return fmt.Errorf("%w: importance must be between 0.0 and 1.0", ErrInvalidInput)
	}
	return nil
}

// MemoryIndex is the compact (~50-100 token) representation used in search
// result lists.
type MemoryIndex struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Kind         MemoryKind   `json:"kind"`
	CreatedAt    time.Time    `json:"created_at"`
	Score        float64      `json:"score"`
	Tags         []string     `json:"tags,omitempty"`
	Verification VerificationStatus `json:"verification"`
}

// NewMemoryIndex builds a MemoryIndex from a memory and its ranked score.
func NewMemoryIndex(m *Memory, score float64) MemoryIndex {
	return MemoryIndex{
		ID:           m.ID,
		Title:        m.Title,
		Kind:         m.Kind,
		CreatedAt:    m.CreatedAt,
		Score:        score,
		Tags:         m.Tags,
		Verification: m.Verification,
	}
}

// SearchQuery carries search parameters for a retrieval request.
type SearchQuery struct {
	Query     string
	Kind      *MemoryKind
	ProjectID string
	Tags      []string
	Limit     int
}

// TimelineQuery carries filter parameters for a timeline/listing request.
type TimelineQuery struct {
	MemoryID     string
	Start        *time.Time
	End          *time.Time
	SessionID    string
	Limit        int
	Offset       int
	ProjectID    string
	Kind         *MemoryKind
	Status       *MemoryStatus
	Privacy      *MemoryPrivacy
	CreatedBy    string
}

// DefaultTimelineQuery returns a TimelineQuery with the spec's default limit.
func DefaultTimelineQuery() TimelineQuery {
	return TimelineQuery{Limit: 10}
}

// TimelineEntry is a timeline-context entry (~200-300 tokens).
type TimelineEntry struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Kind         MemoryKind    `json:"kind"`
	Summary      string        `json:"summary"`
	Importance   float64       `json:"importance"`
	CreatedAt    time.Time     `json:"created_at"`
	SessionID    string        `json:"session_id,omitempty"`
	RelatedCount int           `json:"related_count"`
	Privacy      MemoryPrivacy `json:"privacy"`
	CreatedBy    string        `json:"created_by"`
	ProjectID    string        `json:"project_id,omitempty"`
	Status       MemoryStatus  `json:"status"`
	Verification VerificationStatus `json:"verification"`
}

// NewTimelineEntry builds a TimelineEntry from a memory and its relation count.
func NewTimelineEntry(m *Memory, relatedCount int) TimelineEntry {
	return TimelineEntry{
		ID:           m.ID,
		Title:        m.Title,
		Kind:         m.Kind,
		Summary:      m.Summary,
		Importance:   m.Importance,
		CreatedAt:    m.CreatedAt,
		SessionID:    m.SessionID,
		RelatedCount: relatedCount,
		Privacy:      m.Privacy,
		CreatedBy:    m.CreatedBy,
		ProjectID:    m.ProjectID,
		Status:       m.Status,
		Verification: m.Verification,
	}
}
