package session

import (
	"context"
	"testing"

	"github.com/devmemory/memento/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeErrorEvent(title string) Event {
	return Event{Kind: types.KindError, Title: title, Content: "Error: " + title, Importance: 0.6, EventType: "tool_use"}
}

func makeIntentEvent(content string) Event {
	return Event{Kind: types.KindObservation, Title: "User intent", Content: content, Importance: 0.3, EventType: "intent"}
}

func TestCompressHeuristic_Empty(t *testing.T) {
	assert.Empty(t, CompressHeuristic(nil))
}

func TestCompressHeuristic_SingleFile(t *testing.T) {
	events := []Event{
		makeEditEvent("/src/main.go", "edit main.go: add main"),
		makeEditEvent("/src/main.go", "edit main.go: add error handling"),
	}
	memories := CompressHeuristic(events)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0].Title, "main.go")
	assert.Contains(t, memories[0].Title, "2 edit")
	assert.Contains(t, memories[0].Tags, "session-compressed")
}

func TestCompressHeuristic_IntentBecomesTitle(t *testing.T) {
	events := []Event{
		makeIntentEvent("Fix the login bug in auth.go"),
		makeEditEvent("/src/auth.go", "edit auth.go: fix login"),
	}
	memories := CompressHeuristic(events)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0].Title, "Fix the login bug")
	assert.Contains(t, memories[0].Content, "User Intent")
}

func TestCompressHeuristic_ErrorsSeparateFromEdits(t *testing.T) {
	events := []Event{
		makeEditEvent("/src/main.go", "edit main.go"),
		makeErrorEvent("build failed: undefined symbol"),
	}
	memories := CompressHeuristic(events)
	require.Len(t, memories, 2)
	var kinds []types.MemoryKind
	for _, m := range memories {
		kinds = append(kinds, m.Kind)
	}
	assert.Contains(t, kinds, types.KindError)
	assert.Contains(t, kinds, types.KindDecision)
}

func TestCompressHeuristic_MergesMultipleErrors(t *testing.T) {
	events := []Event{makeErrorEvent("build failed"), makeErrorEvent("test failed")}
	memories := CompressHeuristic(events)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0].Title, "2 errors")
}

type stubCompressGenerator struct{ response string }

func (s *stubCompressGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, nil
}
func (s *stubCompressGenerator) GetModel() string { return "stub" }

func TestCompressWithLLM_ParsesJSONArray(t *testing.T) {
	gen := &stubCompressGenerator{response: `[{"title": "Async trait pattern", "content": "Use boxed futures for trait methods", "kind": "pattern", "importance": 0.8, "tags": ["async", "rust"]}]`}
	memories := CompressWithLLM(context.Background(), gen, []Event{makeEditEvent("/src/main.go", "edit")})
	require.Len(t, memories, 1)
	assert.Equal(t, "Async trait pattern", memories[0].Title)
	assert.Equal(t, types.KindPattern, memories[0].Kind)
	assert.Contains(t, memories[0].Tags, "auto-capture")
	assert.Contains(t, memories[0].Tags, "async")
}

func TestCompressWithLLM_FallsBackOnParseFailure(t *testing.T) {
	gen := &stubCompressGenerator{response: "not json at all"}
	events := []Event{makeEditEvent("/src/main.go", "edit main.go")}
	memories := CompressWithLLM(context.Background(), gen, events)
	require.Len(t, memories, 1)
	assert.Contains(t, memories[0].Tags, "session-compressed")
	assert.NotContains(t, memories[0].Tags, "llm-summarized")
}

func TestCompressWithLLM_NilGeneratorUsesHeuristic(t *testing.T) {
	events := []Event{makeEditEvent("/src/main.go", "edit main.go")}
	memories := CompressWithLLM(context.Background(), nil, events)
	require.Len(t, memories, 1)
	assert.NotContains(t, memories[0].Tags, "llm-summarized")
}
