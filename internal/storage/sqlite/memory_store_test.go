package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/internal/storage/sqlite"
	"github.com/devmemory/memento/pkg/types"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "memento.db")
	store, err := sqlite.Open(dsn)
	require.NoError(t, err, "Open should succeed")
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

func TestStore_EmptyContent(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:no-content")
	m.Content = ""
	err := store.Store(context.Background(), m)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStore_GetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:basic")
	m.Tags = []string{"go", "sqlite"}
	m.Entities = []string{"file:main.go"}
	m.Metadata = map[string]interface{}{"note": "hi"}
	require.NoError(t, store.Store(context.Background(), m))

	got, err := store.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, m.Tags, got.Tags)
	assert.Equal(t, m.Entities, got.Entities)
	assert.Equal(t, "hi", got.Metadata["note"])
}

func TestStore_UpsertUpdatesExisting(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:upsert")
	require.NoError(t, store.Store(context.Background(), m))

	m.Content = "updated content"
	require.NoError(t, store.Store(context.Background(), m))

	got, err := store.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated content", got.Content)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "mem:test:missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdate_NotFoundForUnknownID(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:ghost")
	err := store.Update(context.Background(), m)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_SoftDeleteExcludesFromGet(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:softdelete")
	require.NoError(t, store.Store(context.Background(), m))

	require.NoError(t, store.Delete(context.Background(), m.ID))

	_, err := store.Get(context.Background(), m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_UnknownIDReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.Delete(context.Background(), "mem:test:nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPurge_HardDeleteRemovesRow(t *testing.T) {
	store := newTestStore(t)
	m := newTestMemory("mem:test:purge")
	require.NoError(t, store.Store(context.Background(), m))
	require.NoError(t, store.Purge(context.Background(), m.ID))

	_, err := store.Get(context.Background(), m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList_FiltersByKindAndScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	fact := newTestMemory("mem:test:fact")
	fact.Kind = types.KindFact
	fact.Scope = types.ScopeProject
	fact.ProjectID = "proj-a"

	lesson := newTestMemory("mem:test:lesson")
	lesson.Kind = types.KindLesson
	lesson.Scope = types.ScopeGlobal

	require.NoError(t, store.Store(ctx, fact))
	require.NoError(t, store.Store(ctx, lesson))

	result, err := store.List(ctx, storage.ListOptions{Kind: types.KindFact})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, fact.ID, result.Items[0].ID)

	result, err = store.List(ctx, storage.ListOptions{Scope: types.ScopeProject, ProjectID: "proj-a"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, fact.ID, result.Items[0].ID)
}

func TestList_Pagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m := newTestMemory(types.GenerateMemoryID("test"))
		require.NoError(t, store.Store(ctx, m))
	}

	result, err := store.List(ctx, storage.ListOptions{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 5, result.Total)
	assert.True(t, result.HasMore)
}

func TestIncrementAccessCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:access")
	require.NoError(t, store.Store(ctx, m))

	require.NoError(t, store.IncrementAccessCount(ctx, m.ID))
	require.NoError(t, store.IncrementAccessCount(ctx, m.ID))

	got, err := store.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
}

func TestUpdateDecayScores_UpdatesActiveMemories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:decay")
	m.Status = types.StatusActive
	require.NoError(t, store.Store(ctx, m))

	n, err := store.UpdateDecayScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
