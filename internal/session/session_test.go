package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/pkg/types"
)

func makeEditEvent(path, title string) Event {
	return Event{
		Kind:      types.KindDecision,
		Title:     title,
		Content:   "File modified via Edit: " + path,
		Importance: 0.4,
		Tags:      []string{"auto-capture"},
		FilePath:  path,
		EventType: "tool_use",
	}
}

func TestBuffer_AppendAndReadAll(t *testing.T) {
	buf := NewBuffer(t.TempDir(), "sess-1")
	require.NoError(t, buf.Append(makeEditEvent("/src/main.go", "edit main.go: add main")))
	require.NoError(t, buf.Append(makeEditEvent("/src/main.go", "edit main.go: add error handling")))

	events, err := buf.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "edit main.go: add main", events[0].Title)
}

func TestBuffer_AppendSkipsDuplicate(t *testing.T) {
	buf := NewBuffer(t.TempDir(), "sess-dup")
	event := makeEditEvent("/src/main.go", "edit main.go")
	require.NoError(t, buf.Append(event))
	require.NoError(t, buf.Append(event))

	events, err := buf.ReadAll()
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestBuffer_DeleteAndEmpty(t *testing.T) {
	dir := t.TempDir()
	buf := NewBuffer(dir, "sess-empty")
	assert.Equal(t, 0, buf.Size())

	require.NoError(t, buf.Append(makeEditEvent("/src/lib.go", "edit lib.go")))
	assert.Equal(t, 1, buf.Size())

	require.NoError(t, buf.Delete())
	assert.Equal(t, 0, buf.Size())
}

func TestBuffer_ReadAllMissingFileReturnsNil(t *testing.T) {
	buf := NewBuffer(t.TempDir(), "sess-missing")
	events, err := buf.ReadAll()
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestStaleBuffers_FindsOldFiles(t *testing.T) {
	dir := t.TempDir()
	buf := NewBuffer(dir, "sess-stale")
	require.NoError(t, buf.Append(makeEditEvent("/src/x.go", "edit x.go")))

	stale := StaleBuffers(dir, 0)
	require.Len(t, stale, 1)
	assert.Equal(t, filepath.Join(dir, "sess-stale.jsonl"), stale[0])
}
