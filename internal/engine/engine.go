package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/devmemory/memento/internal/assess"
	"github.com/devmemory/memento/internal/dedup"
	"github.com/devmemory/memento/internal/embedder"
	"github.com/devmemory/memento/internal/graph"
	"github.com/devmemory/memento/internal/history"
	"github.com/devmemory/memento/internal/llm"
	"github.com/devmemory/memento/internal/ranking"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/internal/trust"
	"github.com/devmemory/memento/pkg/types"
)

// Engine ties the storage backend together with the dedup, ranking, trust,
// assessment, and graph packages into the capture and retrieval operations
// every front-end (CLI, MCP, HTTP, hook) calls into.
type Engine struct {
	backend  storage.Backend
	embed    *embedder.Embedder
	gen      llm.TextGenerator
	history  *history.Log
	cfg      Config
	breaker  *llm.CircuitBreaker
	pool     *workerPool
	notify   func(eventType, memoryID string)
}

// SetNotifier registers a callback invoked alongside every recorded history
// event, so a front-end (the web UI's live activity feed) can react to
// memory lifecycle changes without polling. nil disables notification.
func (e *Engine) SetNotifier(fn func(eventType, memoryID string)) {
	e.notify = fn
}

// New builds an Engine. gen may be nil (capture falls back to deterministic
// hash embeddings and heuristic compression). historyLog may be nil to
// disable audit logging.
func New(backend storage.Backend, embed *embedder.Embedder, gen llm.TextGenerator, historyLog *history.Log, cfg Config) *Engine {
	e := &Engine{
		backend: backend,
		embed:   embed,
		gen:     gen,
		history: historyLog,
		cfg:     cfg,
		breaker: llm.NewCircuitBreaker(),
	}
	e.pool = newWorkerPool(cfg.Workers, cfg.QueueSize, e.runEnrichment)
	return e
}

// Close stops the enrichment worker pool, waiting up to cfg.ShutdownTimeout
// for queued jobs to drain, then closes the storage backend.
func (e *Engine) Close() error {
	e.pool.shutdown(e.cfg.ShutdownTimeout)
	return e.backend.Close()
}

// CaptureResult reports what the capture pipeline did with a new memory.
type CaptureResult struct {
	Memory   *types.Memory
	Decision dedup.Decision
}

// Capture runs the full ingestion pipeline: validate, embed, check for a
// near-duplicate, then either skip (bump access count), update the existing
// memory in place, or store a new one, auto-relating it to its nearest
// neighbors and recording a history entry either way.
func (e *Engine) Capture(ctx context.Context, input types.CreateMemoryInput, actor string) (*CaptureResult, error) {
	if err := types.ValidateCreateInput(input.Title, input.Content, input.Importance); err != nil {
		return nil, err
	}

	mem := types.NewMemory(input.Title, input.Content, input.Kind, actor)
	mem.Tags = input.Tags
	if input.Importance > 0 {
		mem.Importance = input.Importance
	}
	if input.Scope != "" {
		mem.Scope = input.Scope
	}
	if input.Privacy != "" {
		mem.Privacy = input.Privacy
	}
	mem.ProjectID = input.ProjectID
	if mem.Scope == types.ScopeSession {
		mem.SessionID = input.ScopeID
	}

	vector, err := e.embed.Embed(ctx, mem.EmbeddingText())
	if err != nil {
		// embedder already fell back to a hash vector; vector is usable.
		vector = embedder.HashEmbed(mem.EmbeddingText(), 384)
	}
	mem.Embedding = vector
	mem.EmbeddingModel = e.embed.Model()
	mem.EmbeddingDimension = len(vector)

	candidates, err := e.nearestCandidates(ctx, mem.ID, vector)
	if err != nil {
		return nil, fmt.Errorf("engine: dedup lookup: %w", err)
	}

	result := dedup.DecideWithLLM(ctx, e.gen, candidates, mem.Title, mem.Content, e.cfg.Dedup)
	switch result.Decision {
	case dedup.DecisionSkip:
		if err := e.backend.IncrementAccessCount(ctx, result.ExistingID); err != nil {
			return nil, fmt.Errorf("engine: bump access count on skip: %w", err)
		}
		e.recordHistory(ctx, result.ExistingID, history.EventAccessed, actor, "duplicate capture skipped")
		existing := candidateByID(candidates, result.ExistingID)
		return &CaptureResult{Memory: existing, Decision: result.Decision}, nil

	case dedup.DecisionUpdate:
		existing, err := e.resolveExisting(ctx, candidates, result.ExistingID)
		if err != nil {
			return nil, fmt.Errorf("engine: load existing memory for update: %w", err)
		}
		merged := dedup.MergeForUpdate(existing, result.MergedTitle, result.MergedContent)
		merged.Embedding = vector
		merged.EmbeddingModel = mem.EmbeddingModel
		merged.EmbeddingDimension = mem.EmbeddingDimension
		merged.UpdatedAt = time.Now().UTC()
		if err := e.backend.Update(ctx, merged); err != nil {
			return nil, fmt.Errorf("engine: update merged memory: %w", err)
		}
		if err := e.backend.StoreEmbedding(ctx, merged.ID, vector, merged.EmbeddingModel); err != nil {
			return nil, fmt.Errorf("engine: store embedding on update: %w", err)
		}
		e.recordHistory(ctx, merged.ID, history.EventUpdated, actor, "merged with near-duplicate capture")
		return &CaptureResult{Memory: merged, Decision: result.Decision}, nil

	case dedup.DecisionSupersede:
		if err := e.storeNewMemory(ctx, mem, vector); err != nil {
			return nil, err
		}
		existing, err := e.resolveExisting(ctx, candidates, result.ExistingID)
		if err != nil {
			return nil, fmt.Errorf("engine: load existing memory to supersede: %w", err)
		}
		existing.Status = types.StatusSuperseded
		if err := e.backend.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("engine: mark existing memory superseded: %w", err)
		}
		rel := types.NewMemoryRelation(mem.ID, result.ExistingID, types.RelationSupersedes, result.Similarity)
		if err := e.backend.CreateRelation(ctx, rel); err != nil {
			return nil, fmt.Errorf("engine: create supersedes relation: %w", err)
		}
		e.recordHistory(ctx, mem.ID, history.EventCreated, actor, "")
		e.recordHistory(ctx, existing.ID, history.EventSuperseded, actor, "superseded by "+mem.ID)
		return &CaptureResult{Memory: mem, Decision: result.Decision}, nil

	case dedup.DecisionContradict:
		if err := e.storeNewMemory(ctx, mem, vector); err != nil {
			return nil, err
		}
		rel := types.NewMemoryRelation(mem.ID, result.ExistingID, types.RelationContradicts, result.Similarity)
		if err := e.backend.CreateRelation(ctx, rel); err != nil {
			return nil, fmt.Errorf("engine: create contradicts relation: %w", err)
		}
		e.recordHistory(ctx, mem.ID, history.EventCreated, actor, result.Reason)
		e.EnqueueEnrichment(EnrichmentJob{MemoryID: mem.ID})
		return &CaptureResult{Memory: mem, Decision: result.Decision}, nil

	default:
		if err := e.storeNewMemory(ctx, mem, vector); err != nil {
			return nil, err
		}
		for _, targetID := range input.RelatedTo {
			rel := types.NewMemoryRelation(mem.ID, targetID, types.RelationRelated, 0.5)
			if err := e.backend.CreateRelation(ctx, rel); err != nil {
				return nil, fmt.Errorf("engine: create explicit relation: %w", err)
			}
		}
		e.recordHistory(ctx, mem.ID, history.EventCreated, actor, "")
		e.EnqueueEnrichment(EnrichmentJob{MemoryID: mem.ID})
		return &CaptureResult{Memory: mem, Decision: result.Decision}, nil
	}
}

// storeNewMemory persists mem and its embedding, shared by every decision
// branch that saves a new record (Add, Supersede, Contradict).
func (e *Engine) storeNewMemory(ctx context.Context, mem *types.Memory, vector []float32) error {
	if err := e.backend.Store(ctx, mem); err != nil {
		return fmt.Errorf("engine: store memory: %w", err)
	}
	if err := e.backend.StoreEmbedding(ctx, mem.ID, vector, mem.EmbeddingModel); err != nil {
		return fmt.Errorf("engine: store embedding: %w", err)
	}
	return nil
}

// nearestCandidates fetches the top-5 nearest existing memories to vector,
// excluding excludeID, in the order vector search returns them — the
// ordering dedup's ordinal target_id mapping relies on.
func (e *Engine) nearestCandidates(ctx context.Context, excludeID string, vector []float32) ([]dedup.Candidate, error) {
	opts := storage.SearchOptions{Limit: 5}
	opts.Normalize()
	results, err := e.backend.VectorSearch(ctx, vector, opts)
	if err != nil {
		return nil, err
	}
	candidates := make([]dedup.Candidate, 0, len(results))
	for _, r := range results {
		if r.Memory.ID == excludeID {
			continue
		}
		candidates = append(candidates, dedup.Candidate{Memory: r.Memory, Similarity: r.Score})
	}
	return candidates, nil
}

// candidateByID returns the candidate's memory already in hand, if any, so
// callers avoid an extra round-trip to storage.
func candidateByID(candidates []dedup.Candidate, id string) *types.Memory {
	for _, c := range candidates {
		if c.Memory.ID == id {
			return c.Memory
		}
	}
	return nil
}

// resolveExisting returns the existing memory a decision targets, preferring
// the copy already fetched by nearestCandidates and falling back to storage
// when the id is not among the candidates.
func (e *Engine) resolveExisting(ctx context.Context, candidates []dedup.Candidate, id string) (*types.Memory, error) {
	if m := candidateByID(candidates, id); m != nil {
		cp := *m
		return &cp, nil
	}
	return e.backend.Get(ctx, id)
}

// autoRelate links mem to its nearest not-yet-related neighbors above the
// configured similarity floor.
func (e *Engine) autoRelate(ctx context.Context, memoryID string) error {
	cfg := e.cfg.AutoRelate
	limit := graph.CandidateFetchLimit(cfg.MaxRelations)

	vector, err := e.backend.GetEmbedding(ctx, memoryID)
	if err != nil || len(vector) == 0 {
		return nil
	}

	opts := storage.SearchOptions{Limit: limit}
	opts.Normalize()
	results, err := e.backend.VectorSearch(ctx, vector, opts)
	if err != nil {
		return err
	}

	existing, err := e.backend.GetRelations(ctx, memoryID)
	if err != nil {
		return err
	}
	alreadyRelated := make(map[string]bool, len(existing))
	for _, r := range existing {
		alreadyRelated[r.SourceID] = true
		alreadyRelated[r.TargetID] = true
	}

	candidates := make([]graph.ScoredCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, graph.ScoredCandidate{MemoryID: r.Memory.ID, Similarity: r.Score})
	}

	selected := graph.SelectAutoRelateCandidates(memoryID, candidates, alreadyRelated, cfg)
	for _, rel := range graph.BuildRelations(memoryID, selected, types.RelationRelated) {
		if err := e.backend.CreateRelation(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) recordHistory(ctx context.Context, memoryID string, event history.EventType, actor, detail string) {
	if e.notify != nil {
		e.notify(string(event), memoryID)
	}
	if e.history == nil {
		return
	}
	_ = e.history.Record(ctx, memoryID, event, actor, detail)
}

// Search retrieves candidate memories via full-text and vector search,
// fuses the seven ranking signals, and returns them ordered by relevance.
func (e *Engine) Search(ctx context.Context, query types.SearchQuery) ([]ranking.RankedResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	opts := storage.SearchOptions{Query: query.Query, Limit: limit * 3, FuzzyFallback: true, ProjectID: query.ProjectID, Tags: query.Tags}
	opts.Normalize()

	byID := make(map[string]storage.ScoredMemory)

	if ftsResult, err := e.backend.FullTextSearch(ctx, opts); err == nil {
		for i := range ftsResult.Items {
			m := &ftsResult.Items[i]
			byID[m.ID] = storage.ScoredMemory{Memory: m, Score: ranking.KeywordScore(query.Query, m.Title, m.Content)}
		}
	}

	vector, err := e.embed.Embed(ctx, query.Query)
	if err == nil {
		if vecResults, err := e.backend.VectorSearch(ctx, vector, opts); err == nil {
			for _, r := range vecResults {
				if existing, ok := byID[r.Memory.ID]; ok {
					if r.Score > existing.Score {
						existing.Score = r.Score
						byID[r.Memory.ID] = existing
					}
					continue
				}
				byID[r.Memory.ID] = r
			}
		}
	}

	ranked := make([]ranking.RankedResult, 0, len(byID))
	for _, sm := range byID {
		m := sm.Memory
		if query.Kind != nil && m.Kind != *query.Kind {
			continue
		}
		relationCount, _ := e.relationCount(ctx, m.ID)
		signals := ranking.Signals{
			Similarity:     sm.Score,
			Keyword:        ranking.KeywordScore(query.Query, m.Title, m.Content),
			Recency:        ranking.RecencyScore(m.CreatedAt),
			Importance:     m.Importance,
			AccessFreq:     ranking.AccessFreqScore(m.AccessedAt, m.CreatedAt),
			GraphProximity: ranking.GraphProximityScore(relationCount),
			Trust:          e.trustScore(ctx, m, relationCount),
		}
		ranked = append(ranked, ranking.RankedResult{Memory: m, Score: ranking.Score(signals, e.cfg.Ranking), Signals: signals})
	}

	sortRanked(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for _, r := range ranked {
		_ = e.backend.IncrementAccessCount(ctx, r.Memory.ID)
		e.recordHistory(ctx, r.Memory.ID, history.EventAccessed, "search", "")
	}

	return ranked, nil
}

func sortRanked(r []ranking.RankedResult) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j].Score > r[j-1].Score; j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}

func (e *Engine) trustScore(ctx context.Context, m *types.Memory, relationCount int) float64 {
	contradictions, err := e.backend.CountRelationsByType(ctx, m.ID, types.RelationContradicts)
	if err != nil {
		contradictions = 0
	}
	// Quality feeds trust, so trust itself isn't known yet here: pass -1 to
	// skip the LowTrust check rather than flag a false positive against an
	// undefined score, and skip the duplicate-similarity pass as it's a
	// separate, heavier check not needed for every ranking signal.
	q := assess.Assess(m, relationCount, -1, false, e.cfg.Assess)
	return trust.Score(m, q.NormalizedScore(), contradictions, e.cfg.Trust)
}

// possibleDuplicate reports whether a memory has a near-duplicate peer,
// using the same similarity search and threshold as the dedup skip decision.
func (e *Engine) possibleDuplicate(ctx context.Context, m *types.Memory) bool {
	vector, err := e.backend.GetEmbedding(ctx, m.ID)
	if err != nil || len(vector) == 0 {
		return false
	}
	candidates, err := e.nearestCandidates(ctx, m.ID, vector)
	if err != nil || len(candidates) == 0 {
		return false
	}
	return candidates[0].Similarity >= e.cfg.Dedup.SkipThreshold
}

func (e *Engine) relationCount(ctx context.Context, memoryID string) (int, error) {
	rels, err := e.backend.GetRelations(ctx, memoryID)
	if err != nil {
		return 0, err
	}
	return len(rels), nil
}

// Show returns a memory's full timeline entry plus its relations.
func (e *Engine) Show(ctx context.Context, id string) (*types.TimelineEntry, []*types.MemoryRelation, error) {
	m, err := e.backend.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rels, err := e.backend.GetRelations(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	_ = e.backend.IncrementAccessCount(ctx, id)
	e.recordHistory(ctx, id, history.EventAccessed, "show", "")
	entry := types.NewTimelineEntry(m, len(rels))
	return &entry, rels, nil
}

// Relate creates an explicit typed relation between two memories.
func (e *Engine) Relate(ctx context.Context, sourceID, targetID string, relType types.RelationType, strength float64) (*types.MemoryRelation, error) {
	if !types.IsValidRelationType(relType) {
		return nil, fmt.Errorf("%w: unknown relation type %q", storage.ErrInvalidInput, relType)
	}
	rel := types.NewMemoryRelation(sourceID, targetID, relType, strength)
	if err := e.backend.CreateRelation(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// Chain performs bounded graph traversal from a starting memory, following
// relations outward up to bounds.
func (e *Engine) Chain(ctx context.Context, startID string, bounds storage.GraphBounds) (*storage.GraphResult, error) {
	bounds.Normalize()
	return e.backend.Traverse(ctx, startID, bounds)
}

// FindPath returns the chain of relation IDs connecting two memories, or
// nil if none exists within bounds.
func (e *Engine) FindPath(ctx context.Context, startID, endID string, bounds storage.GraphBounds) ([]string, error) {
	bounds.Normalize()
	return e.backend.FindPath(ctx, startID, endID, bounds)
}

// History returns the audit trail for a memory, most recent first.
func (e *Engine) History(ctx context.Context, memoryID string, limit int) ([]history.Entry, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.Query(ctx, memoryID, limit)
}

// Assess scores a single memory's quality.
func (e *Engine) Assess(ctx context.Context, id string) (assess.Result, error) {
	m, err := e.backend.Get(ctx, id)
	if err != nil {
		return assess.Result{}, err
	}
	count, err := e.relationCount(ctx, id)
	if err != nil {
		return assess.Result{}, err
	}
	trustScore := e.trustScore(ctx, m, count)
	dup := e.possibleDuplicate(ctx, m)
	return assess.Assess(m, count, trustScore, dup, e.cfg.Assess), nil
}
