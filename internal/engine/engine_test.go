package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/dedup"
	"github.com/devmemory/memento/internal/embedder"
	"github.com/devmemory/memento/internal/engine"
	"github.com/devmemory/memento/internal/history"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/internal/storage/sqlite"
	"github.com/devmemory/memento/pkg/types"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	backend, err := sqlite.Open(filepath.Join(t.TempDir(), "memento.db"))
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	log, err := history.Open(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)

	emb := embedder.New(nil, 384)
	cfg := engine.DefaultConfig()
	cfg.Workers = 1
	cfg.QueueSize = 16

	e := engine.New(backend, emb, nil, log, cfg)
	t.Cleanup(func() { e.Close() })
	return e
}

func captureInput(title, content string) types.CreateMemoryInput {
	return types.CreateMemoryInput{Title: title, Content: content, Kind: types.KindFact, Importance: 0.5}
}

func TestCapture_CreatesNewMemory(t *testing.T) {
	e := newTestEngine(t)
	result, err := e.Capture(context.Background(), captureInput("Go modules", "go.mod pins exact dependency versions"), "tester")
	require.NoError(t, err)
	assert.Equal(t, dedup.DecisionAdd, result.Decision)
	assert.NotEmpty(t, result.Memory.ID)
	assert.NotEmpty(t, result.Memory.Embedding)
}

func TestCapture_DuplicateContentIsSkipped(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	input := captureInput("Retry policy", "Exponential backoff starting at 200ms, capped at 3 attempts")

	first, err := e.Capture(ctx, input, "tester")
	require.NoError(t, err)
	require.Equal(t, dedup.DecisionAdd, first.Decision)

	second, err := e.Capture(ctx, input, "tester")
	require.NoError(t, err)
	assert.Equal(t, dedup.DecisionSkip, second.Decision)
	assert.Equal(t, first.Memory.ID, second.Memory.ID)
}

func TestCapture_RejectsEmptyTitle(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Capture(context.Background(), captureInput("", "content"), "tester")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestCapture_RecordsHistory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	result, err := e.Capture(ctx, captureInput("History check", "a memory whose creation should be logged"), "tester")
	require.NoError(t, err)

	entries, err := e.History(ctx, result.Memory.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.EventCreated, entries[0].Event)
}

func TestSearch_FindsCapturedMemory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.Capture(ctx, captureInput("Circuit breakers", "gobreaker trips after three consecutive failures"), "tester")
	require.NoError(t, err)

	results, err := e.Search(ctx, types.SearchQuery{Query: "circuit breakers", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Memory.Title, "Circuit breakers")
}

func TestShow_ReturnsTimelineEntryAndRelations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.Capture(ctx, captureInput("Memory A", "first memory about caching strategy"), "tester")
	require.NoError(t, err)
	b, err := e.Capture(ctx, captureInput("Memory B", "second memory about cache invalidation"), "tester")
	require.NoError(t, err)

	_, err = e.Relate(ctx, a.Memory.ID, b.Memory.ID, types.RelationRelated, 0.8)
	require.NoError(t, err)

	entry, rels, err := e.Show(ctx, a.Memory.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Memory.ID, entry.ID)
	assert.Len(t, rels, 1)
}

func TestChain_TraversesRelations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.Capture(ctx, captureInput("Root", "root memory for chain traversal"), "tester")
	require.NoError(t, err)
	b, err := e.Capture(ctx, captureInput("Leaf", "leaf memory reached by one hop"), "tester")
	require.NoError(t, err)
	_, err = e.Relate(ctx, a.Memory.ID, b.Memory.ID, types.RelationFixes, 1.0)
	require.NoError(t, err)

	result, err := e.Chain(ctx, a.Memory.ID, storage.GraphBounds{MaxHops: 2})
	require.NoError(t, err)
	assert.Contains(t, result.Nodes, a.Memory.ID)
	assert.Contains(t, result.Nodes, b.Memory.ID)
}

func TestAssess_ScoresNewMemory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	result, err := e.Capture(ctx, captureInput("Assess me", "short"), "tester")
	require.NoError(t, err)

	assessment, err := e.Assess(ctx, result.Memory.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Memory.ID, assessment.MemoryID)
	assert.Less(t, assessment.Score, 100)
}

func TestRelate_RejectsUnknownRelationType(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	a, err := e.Capture(ctx, captureInput("A", "memory a content for relate test"), "tester")
	require.NoError(t, err)
	b, err := e.Capture(ctx, captureInput("B", "memory b content for relate test"), "tester")
	require.NoError(t, err)

	_, err = e.Relate(ctx, a.Memory.ID, b.Memory.ID, types.RelationType("bogus"), 0.5)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
