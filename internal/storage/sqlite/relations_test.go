package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

func seedChain(t *testing.T, store interface {
	Store(ctx context.Context, m *types.Memory) error
	CreateRelation(ctx context.Context, rel *types.MemoryRelation) error
}) (a, b, c *types.Memory) {
	t.Helper()
	ctx := context.Background()
	a = newTestMemory("mem:test:chain-a")
	b = newTestMemory("mem:test:chain-b")
	c = newTestMemory("mem:test:chain-c")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))
	require.NoError(t, store.Store(ctx, c))

	require.NoError(t, store.CreateRelation(ctx, types.NewMemoryRelation(a.ID, b.ID, types.RelationFixes, 0.9)))
	require.NoError(t, store.CreateRelation(ctx, types.NewMemoryRelation(b.ID, c.ID, types.RelationRelated, 0.5)))
	return a, b, c
}

func TestCreateRelation_RejectsInvalidType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:rel-a")
	b := newTestMemory("mem:test:rel-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	rel := types.NewMemoryRelation(a.ID, b.ID, types.RelationType("bogus"), 0.5)
	err := store.CreateRelation(ctx, rel)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestCreateRelation_DuplicateRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:rel-dup-a")
	b := newTestMemory("mem:test:rel-dup-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	rel := types.NewMemoryRelation(a.ID, b.ID, types.RelationRelated, 0.5)
	require.NoError(t, store.CreateRelation(ctx, rel))

	dup := types.NewMemoryRelation(a.ID, b.ID, types.RelationRelated, 0.7)
	err := store.CreateRelation(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestGetRelations_BothDirections(t *testing.T) {
	store := newTestStore(t)
	a, b, _ := seedChain(t, store)

	rels, err := store.GetRelations(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, rels, 2)

	var sources []string
	for _, r := range rels {
		sources = append(sources, r.SourceID)
	}
	assert.Contains(t, sources, a.ID)
	assert.Contains(t, sources, b.ID)
}

func TestDeleteRelation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:rel-del-a")
	b := newTestMemory("mem:test:rel-del-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	rel := types.NewMemoryRelation(a.ID, b.ID, types.RelationRelated, 0.5)
	require.NoError(t, store.CreateRelation(ctx, rel))
	require.NoError(t, store.DeleteRelation(ctx, rel.ID))

	rels, err := store.GetRelations(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestDeleteRelation_UnknownIDReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.DeleteRelation(context.Background(), "rel:missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCountRelationsByType(t *testing.T) {
	store := newTestStore(t)
	a, b, _ := seedChain(t, store)

	count, err := store.CountRelationsByType(context.Background(), a.ID, types.RelationFixes)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountRelationsByType(context.Background(), b.ID, types.RelationContradicts)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTraverse_FollowsRelationsOutward(t *testing.T) {
	store := newTestStore(t)
	a, _, c := seedChain(t, store)

	result, err := store.Traverse(context.Background(), a.ID, storage.GraphBounds{MaxHops: 3})
	require.NoError(t, err)
	assert.Contains(t, result.Nodes, a.ID)
	assert.Contains(t, result.Nodes, c.ID)
}

func TestFindPath_ReturnsShortestChain(t *testing.T) {
	store := newTestStore(t)
	a, _, c := seedChain(t, store)

	path, err := store.FindPath(context.Background(), a.ID, c.ID, storage.GraphBounds{MaxHops: 3})
	require.NoError(t, err)
	// FindPath returns the chain of relation IDs traversed, not memory IDs.
	assert.Len(t, path, 2)
}

func TestTraverse_DoesNotFollowIncomingEdges(t *testing.T) {
	store := newTestStore(t)
	_, b, c := seedChain(t, store)

	result, err := store.Traverse(context.Background(), c.ID, storage.GraphBounds{MaxHops: 3})
	require.NoError(t, err)
	assert.NotContains(t, result.Nodes, b.ID)
}

func TestTraverse_AllowedTypesFiltersRelations(t *testing.T) {
	store := newTestStore(t)
	a, b, c := seedChain(t, store)

	result, err := store.Traverse(context.Background(), a.ID, storage.GraphBounds{
		MaxHops:      3,
		AllowedTypes: []types.RelationType{types.RelationFixes},
	})
	require.NoError(t, err)
	assert.Contains(t, result.Nodes, b.ID)
	assert.NotContains(t, result.Nodes, c.ID)
}

func TestFindPath_NoPathReturnsNilNotError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := newTestMemory("mem:test:isolated-a")
	b := newTestMemory("mem:test:isolated-b")
	require.NoError(t, store.Store(ctx, a))
	require.NoError(t, store.Store(ctx, b))

	path, err := store.FindPath(ctx, a.ID, b.ID, storage.GraphBounds{MaxHops: 3})
	require.NoError(t, err)
	assert.Empty(t, path)
}
