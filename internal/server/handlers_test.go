package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmemory/memento/internal/embedder"
	"github.com/devmemory/memento/internal/engine"
	"github.com/devmemory/memento/internal/history"
	"github.com/devmemory/memento/internal/storage/sqlite"
	"github.com/devmemory/memento/pkg/types"
)

func newTestHandlers(t *testing.T) *memoryHandlers {
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

	eng := engine.New(backend, emb, nil, log, cfg)
	t.Cleanup(func() { eng.Close() })
	return newMemoryHandlers(eng)
}

func TestPostCapture_CreatesMemory(t *testing.T) {
	h := newTestHandlers(t)
	body, _ := json.Marshal(types.CreateMemoryInput{
		Title:      "Retry budget",
		Content:    "Capped at three attempts with exponential backoff",
		Kind:       types.KindFact,
		Importance: 0.6,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/memories", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.PostCapture(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["memory"])
}

func TestPostCapture_InvalidBodyReturns400(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodPost, "/api/memories", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()

	h.PostCapture(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMemory_NotFoundReturns404(t *testing.T) {
	h := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/api/memories/mem:default:ffffffff", nil)
	req.SetPathValue("id", "mem:default:ffffffff")
	w := httptest.NewRecorder()

	h.GetMemory(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSearch_ReturnsCapturedMemory(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	_, err := h.eng.Capture(ctx, types.CreateMemoryInput{
		Title:      "Circuit breaker threshold",
		Content:    "Trip after five consecutive failures within ten seconds",
		Kind:       types.KindFact,
		Importance: 0.7,
	}, "tester")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/search?query=circuit+breaker&limit=5", nil)
	w := httptest.NewRecorder()

	h.GetSearch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.NotEmpty(t, results)
}

func TestPostRelation_UnknownTypeReturns400(t *testing.T) {
	h := newTestHandlers(t)
	body, _ := json.Marshal(map[string]interface{}{
		"source_id":     "mem:default:a",
		"target_id":     "mem:default:b",
		"relation_type": "bogus",
		"strength":      0.5,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/relations", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.PostRelation(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
