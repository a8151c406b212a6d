package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/devmemory/memento/internal/engine"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// memoryHandlers implements the REST counterparts of the capture, search,
// show, relate, chain, consolidate, assess, and history operations the CLI
// and MCP tool server also expose.
type memoryHandlers struct {
	eng   *engine.Engine
	actor func(r *http.Request) string
}

func newMemoryHandlers(eng *engine.Engine) *memoryHandlers {
	return &memoryHandlers{
		eng: eng,
		actor: func(r *http.Request) string {
			if v := r.Header.Get("X-Memento-Actor"); v != "" {
				return v
			}
			return "web"
		},
	}
}

// PostCapture handles POST /api/memories.
func (h *memoryHandlers) PostCapture(w http.ResponseWriter, r *http.Request) {
	var input types.CreateMemoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.eng.Capture(r.Context(), input, h.actor(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"memory":   result.Memory,
		"decision": result.Decision,
	})
}

// GetSearch handles GET /api/search.
func (h *memoryHandlers) GetSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := types.SearchQuery{
		Query: q.Get("query"),
		Limit: parseInt(q.Get("limit"), 10),
	}
	if kind := q.Get("kind"); kind != "" {
		query.Kind = types.MemoryKind(kind)
	}
	if project := q.Get("project"); project != "" {
		query.ProjectID = project
	}
	if tags := q["tags"]; len(tags) > 0 {
		query.Tags = tags
	}

	results, err := h.eng.Search(r.Context(), query)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// GetMemory handles GET /api/memories/{id}.
func (h *memoryHandlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, relations, err := h.eng.Show(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"memory":    entry,
		"relations": relations,
	})
}

// PostRelation handles POST /api/relations.
func (h *memoryHandlers) PostRelation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceID string             `json:"source_id"`
		TargetID string             `json:"target_id"`
		Type     types.RelationType `json:"relation_type"`
		Strength float64            `json:"strength"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rel, err := h.eng.Relate(r.Context(), body.SourceID, body.TargetID, body.Type, body.Strength)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rel)
}

// GetChain handles GET /api/graph/chain.
func (h *memoryHandlers) GetChain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := q.Get("start")
	if start == "" {
		respondError(w, http.StatusBadRequest, "start is required", nil)
		return
	}
	bounds := storage.GraphBounds{
		MaxHops:      parseInt(q.Get("max_hops"), 3),
		MaxNodes:     parseInt(q.Get("max_nodes"), 100),
		MaxEdges:     parseInt(q.Get("max_edges"), 500),
		AllowedTypes: parseRelationTypesParam(q.Get("allowed_types")),
	}

	result, err := h.eng.Chain(r.Context(), start, bounds)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// PostConsolidate handles POST /api/consolidate.
func (h *memoryHandlers) PostConsolidate(w http.ResponseWriter, r *http.Request) {
	results, err := h.eng.Consolidate(r.Context(), h.actor(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// GetAssess handles GET /api/memories/{id}/assess.
func (h *memoryHandlers) GetAssess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := h.eng.Assess(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetHistory handles GET /api/memories/{id}/history.
func (h *memoryHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit := parseInt(r.URL.Query().Get("limit"), 0)
	entries, err := h.eng.History(r.Context(), id, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// parseInt parses an integer query parameter, falling back to defaultValue.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return defaultValue
	}
	return v
}

// parseRelationTypesParam splits a comma-separated allowed_types query value
// into relation types, returning nil when raw is empty.
func parseRelationTypesParam(raw string) []types.RelationType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]types.RelationType, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, types.RelationType(p))
		}
	}
	return result
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Printf("server: failed to encode JSON response: %v\n", err)
	}
}

// respondError writes a structured error response.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	body := map[string]interface{}{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	respondJSON(w, statusCode, body)
}

// writeEngineError maps a storage/engine sentinel error to the matching
// HTTP status, defaulting to 500 for anything unrecognized.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input", err)
	case errors.Is(err, storage.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, storage.ErrGraphBoundsExceeded):
		respondError(w, http.StatusUnprocessableEntity, "graph bounds exceeded", err)
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err)
	}
}
