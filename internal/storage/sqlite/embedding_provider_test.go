package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/storage"
)

func TestStoreEmbedding_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:embed-roundtrip")
	require.NoError(t, store.Store(ctx, m))

	vec := []float32{0.1, -0.2, 0.3, 0.4}
	require.NoError(t, store.StoreEmbedding(ctx, m.ID, vec, "test-model"))

	got, err := store.GetEmbedding(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	updated, err := store.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-model", updated.EmbeddingModel)
	assert.Equal(t, 4, updated.EmbeddingDimension)
}

func TestStoreEmbedding_UpsertOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:embed-upsert")
	require.NoError(t, store.Store(ctx, m))

	require.NoError(t, store.StoreEmbedding(ctx, m.ID, []float32{1, 2}, "model-a"))
	require.NoError(t, store.StoreEmbedding(ctx, m.ID, []float32{3, 4, 5}, "model-b"))

	got, err := store.GetEmbedding(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5}, got)
}

func TestStoreEmbedding_RejectsEmptyVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:embed-empty")
	require.NoError(t, store.Store(ctx, m))

	err := store.StoreEmbedding(ctx, m.ID, nil, "test-model")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestGetEmbedding_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetEmbedding(context.Background(), "mem:test:no-embedding")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := newTestMemory("mem:test:embed-delete")
	require.NoError(t, store.Store(ctx, m))
	require.NoError(t, store.StoreEmbedding(ctx, m.ID, []float32{1, 2}, "test-model"))

	require.NoError(t, store.DeleteEmbedding(ctx, m.ID))

	_, err := store.GetEmbedding(ctx, m.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
