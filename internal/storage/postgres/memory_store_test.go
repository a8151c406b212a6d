package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/internal/storage/postgres"
	"github.com/devmemory/memento/pkg/types"
)

// postgresTestDSN returns the DSN for the test database. If POSTGRES_TEST_DSN
// is not set, tests are skipped — this package requires a live server and is
// not exercised by the default local test run.
func postgresTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := postgresTestDSN(t)
	store, err := postgres.Open(dsn)
	require.NoError(t, err, "Open should succeed")
	require.NoError(t, store.TruncateForTest(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestMemory(id string) *types.Memory {
	m := types.NewMemory("title for "+id, "content for "+id, types.KindFact, "tester")
	m.ID = id
	return m
}

func TestStore_NilMemory(t *testing.T) {
	store := newTestStore(t)
	err := store.Store(context.Background(), nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStore_EmptyID(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("")
	m.ID = ""
	err := store.Store(context.Background(), m)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStoreAndGet_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:roundtrip")
	m.Tags = []string{"go", "postgres"}
	m.Metadata = map[string]interface{}{"k": "v"}

	require.NoError(t, store.Store(ctx, m))

	got, err := store.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Title, got.Title)
	assert.Equal(t, m.Content, got.Content)
	assert.ElementsMatch(t, m.Tags, got.Tags)
	assert.Equal(t, "v", got.Metadata["k"])
}

func TestGet_NotFoundReturnsErrNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "mem:test:missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdate_NonexistentReturnsErrNotFound(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:ghost")
	err := store.Update(context.Background(), m)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_IsSoftAndExcludesFromGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:delete")
	require.NoError(t, store.Store(ctx, m))

	require.NoError(t, store.Delete(ctx, m.ID))
	_, err := store.Get(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	listed, err := store.List(ctx, storage.ListOptions{IncludeDeleted: true, OnlyDeleted: true})
	require.NoError(t, err)
	var found bool
	for _, item := range listed.Items {
		if item.ID == m.ID {
			found = true
		}
	}
	assert.True(t, found, "soft-deleted memory should still be visible with OnlyDeleted")
}

func TestPurge_HardDeletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:purge")
	require.NoError(t, store.Store(ctx, m))
	require.NoError(t, store.Purge(ctx, m.ID))

	listed, err := store.List(ctx, storage.ListOptions{IncludeDeleted: true, OnlyDeleted: true})
	require.NoError(t, err)
	for _, item := range listed.Items {
		assert.NotEqual(t, m.ID, item.ID)
	}
}

func TestIncrementAccessCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:access")
	require.NoError(t, store.Store(ctx, m))

	require.NoError(t, store.IncrementAccessCount(ctx, m.ID))
	got, err := store.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccessCount)
}

func TestList_FiltersByScopeAndProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newTestMemory("mem:test:proj-a")
	a.Scope = types.ScopeProject
	a.ProjectID = "proj-a"
	require.NoError(t, store.Store(ctx, a))

	b := newTestMemory("mem:test:proj-b")
	b.Scope = types.ScopeProject
	b.ProjectID = "proj-b"
	require.NoError(t, store.Store(ctx, b))

	result, err := store.List(ctx, storage.ListOptions{ProjectID: "proj-a"})
	require.NoError(t, err)
	for _, item := range result.Items {
		assert.Equal(t, "proj-a", item.ProjectID)
	}
}

func TestUpdateDecayScores_ReturnsUpdatedCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:decay")
	require.NoError(t, store.Store(ctx, m))

	n, err := store.UpdateDecayScores(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}

func TestRelations_CreateGetCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:rel-a")
	b := newTestMemory("mem:test:rel-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	rel := types.NewMemoryRelation(a.ID, b.ID, types.RelationContradicts, 0.8)
	require.NoError(t, store.CreateRelation(ctx, rel))

	rels, err := store.GetRelations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, b.ID, rels[0].TargetID)

	count, err := store.CountRelationsByType(ctx, a.ID, types.RelationContradicts)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRelations_DuplicateReturnsErrConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:dup-a")
	b := newTestMemory("mem:test:dup-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	rel := types.NewMemoryRelation(a.ID, b.ID, types.RelationRelated, 0.5)
	require.NoError(t, store.CreateRelation(ctx, rel))

	dup := types.NewMemoryRelation(a.ID, b.ID, types.RelationRelated, 0.9)
	err := store.CreateRelation(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestEmbedding_StoreGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:embed")
	require.NoError(t, store.Store(ctx, m))

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	require.NoError(t, store.StoreEmbedding(ctx, m.ID, vec, "hash"))

	got, err := store.GetEmbedding(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	require.NoError(t, store.DeleteEmbedding(ctx, m.ID))
	_, err = store.GetEmbedding(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFullTextSearch_FindsByContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:fts")
	m.Title = "connection pool exhaustion"
	m.Content = "the database connection pool ran out of slots under load"
	require.NoError(t, store.Store(ctx, m))

	result, err := store.FullTextSearch(ctx, storage.SearchOptions{Query: "connection pool"})
	require.NoError(t, err)
	var found bool
	for _, item := range result.Items {
		if item.ID == m.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVectorSearch_RanksByCosineSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newTestMemory("mem:test:vec-a")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.StoreEmbedding(ctx, a.ID, []float32{1, 0, 0, 0}, "hash"))

	b := newTestMemory("mem:test:vec-b")
	require.NoError(t, store.Store(ctx, b))
	require.NoError(t, store.StoreEmbedding(ctx, b.ID, []float32{0, 1, 0, 0}, "hash"))

	results, err := store.VectorSearch(ctx, []float32{1, 0, 0, 0}, storage.SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, a.ID, results[0].Memory.ID)
}

func TestTraverse_BoundedBFS(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:trav-a")
	b := newTestMemory("mem:test:trav-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))
	require.NoError(t, store.CreateRelation(ctx, types.NewMemoryRelation(a.ID, b.ID, types.RelationRelated, 0.5)))

	result, err := store.Traverse(ctx, a.ID, storage.GraphBounds{MaxHops: 2, MaxNodes: 10, MaxEdges: 10})
	require.NoError(t, err)
	assert.Contains(t, result.Nodes, b.ID)
}
