package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	log, err := Open(path)
	require.NoError(t, err)
	return log
}

func TestRecord_AppendsEntry(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, "mem:test:1", EventCreated, "tester", ""))

	entries, err := log.Query(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EventCreated, entries[0].Event)
	assert.Equal(t, "mem:test:1", entries[0].MemoryID)
}

func TestQuery_FiltersByMemoryID(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, "mem:test:1", EventCreated, "tester", ""))
	require.NoError(t, log.Record(ctx, "mem:test:2", EventCreated, "tester", ""))
	require.NoError(t, log.Record(ctx, "mem:test:1", EventUpdated, "tester", "title changed"))

	entries, err := log.Query(ctx, "mem:test:1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestQuery_MostRecentFirst(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	require.NoError(t, log.Record(ctx, "mem:test:1", EventCreated, "tester", ""))
	require.NoError(t, log.Record(ctx, "mem:test:1", EventUpdated, "tester", ""))
	require.NoError(t, log.Record(ctx, "mem:test:1", EventAccessed, "tester", ""))

	entries, err := log.Query(ctx, "mem:test:1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, EventAccessed, entries[0].Event)
	assert.Equal(t, EventCreated, entries[2].Event)
}

func TestQuery_RespectsLimit(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record(ctx, "mem:test:1", EventAccessed, "tester", ""))
	}

	entries, err := log.Query(ctx, "mem:test:1", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestQuery_EmptyLogReturnsNil(t *testing.T) {
	log := newTestLog(t)
	entries, err := log.Query(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Nil(t, entries)
}
