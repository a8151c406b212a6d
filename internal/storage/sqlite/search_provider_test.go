package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

func TestFullTextSearch_MatchesContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m1 := newTestMemory("mem:test:fts-1")
	m1.Title = "Retry backoff policy"
	m1.Content = "Use exponential backoff when retrying flaky network calls."
	m2 := newTestMemory("mem:test:fts-2")
	m2.Title = "Unrelated note"
	m2.Content = "Nothing about networking here."

	require.NoError(t, store.Store(ctx, m1))
	require.NoError(t, store.Store(ctx, m2))

	result, err := store.FullTextSearch(ctx, storage.SearchOptions{Query: "backoff"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, m1.ID, result.Items[0].ID)
}

func TestFullTextSearch_EmptyQueryFallsBackToList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:fts-empty")
	require.NoError(t, store.Store(ctx, m))

	result, err := store.FullTextSearch(ctx, storage.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, m.ID, result.Items[0].ID)
}

func TestFullTextSearch_ScopeFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	global := newTestMemory("mem:test:fts-global")
	global.Title = "deployment checklist"
	global.Content = "deployment checklist steps"
	global.Scope = types.ScopeGlobal

	project := newTestMemory("mem:test:fts-project")
	project.Title = "deployment checklist variant"
	project.Content = "deployment checklist steps for project X"
	project.Scope = types.ScopeProject
	project.ProjectID = "proj-x"

	require.NoError(t, store.Store(ctx, global))
	require.NoError(t, store.Store(ctx, project))

	result, err := store.FullTextSearch(ctx, storage.SearchOptions{
		Query: "deployment checklist", Scope: types.ScopeProject, ProjectID: "proj-x",
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, project.ID, result.Items[0].ID)
}

func TestVectorSearch_RanksByCosineSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	near := newTestMemory("mem:test:vec-near")
	far := newTestMemory("mem:test:vec-far")
	require.NoError(t, store.Store(ctx, near))
	require.NoError(t, store.Store(ctx, far))

	require.NoError(t, store.StoreEmbedding(ctx, near.ID, []float32{1, 0, 0}, "test-model"))
	require.NoError(t, store.StoreEmbedding(ctx, far.ID, []float32{0, 1, 0}, "test-model"))

	results, err := store.VectorSearch(ctx, []float32{0.9, 0.1, 0}, storage.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, near.ID, results[0].Memory.ID)
	assert.Greater(t, results[0].Score, 0.5)
}

func TestVectorSearch_EmptyVectorReturnsNil(t *testing.T) {
	store := newTestStore(t)
	results, err := store.VectorSearch(context.Background(), nil, storage.SearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestVectorSearch_MinScoreFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	orthogonal := newTestMemory("mem:test:vec-orthogonal")
	require.NoError(t, store.Store(ctx, orthogonal))
	require.NoError(t, store.StoreEmbedding(ctx, orthogonal.ID, []float32{0, 1, 0}, "test-model"))

	results, err := store.VectorSearch(ctx, []float32{1, 0, 0}, storage.SearchOptions{MinScore: 0.5})
	require.NoError(t, err)
	assert.Empty(t, results)
}
