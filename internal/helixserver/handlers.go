// Package helixserver implements the server side of the named-endpoint
// HTTP/JSON protocol the `remote` storage backend speaks (see
// internal/storage/remote). It exposes any storage.Backend — in practice
// the PostgreSQL+pgvector implementation in internal/storage/postgres — as
// a standalone service other memento installations can point their
// [storage] backend = "remote" configuration at.
package helixserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// Handlers adapts a storage.Backend to the wire protocol's HTTP handlers.
type Handlers struct {
	backend storage.Backend
}

// New builds Handlers over backend.
func New(backend storage.Backend) *Handlers {
	return &Handlers{backend: backend}
}

func (h *Handlers) PostMemory(w http.ResponseWriter, r *http.Request) {
	var m types.Memory
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.backend.Store(r.Context(), &m); err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &m)
}

func (h *Handlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := h.backend.Get(r.Context(), id)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// PostMemoryUpdate handles POST /memories/{id}, the Client's Update path.
func (h *Handlers) PostMemoryUpdate(w http.ResponseWriter, r *http.Request) {
	var m types.Memory
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	m.ID = r.PathValue("id")
	if err := h.backend.Update(r.Context(), &m); err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &m)
}

func (h *Handlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var err error
	if r.URL.Query().Get("purge") == "true" {
		err = h.backend.Purge(r.Context(), id)
	} else {
		err = h.backend.Delete(r.Context(), id)
	}
	if err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PostMemoryAccess(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.IncrementAccessCount(r.Context(), r.PathValue("id")); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) PostMemoryDecay(w http.ResponseWriter, r *http.Request) {
	n, err := h.backend.UpdateDecayScores(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *Handlers) PostMemoryList(w http.ResponseWriter, r *http.Request) {
	var opts storage.ListOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.backend.List(r.Context(), opts)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) PostSearchText(w http.ResponseWriter, r *http.Request) {
	var opts storage.SearchOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.backend.FullTextSearch(r.Context(), opts)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type vectorSearchRequest struct {
	Vector  []float32             `json:"vector"`
	Options storage.SearchOptions `json:"options"`
}

func (h *Handlers) PostSearchVector(w http.ResponseWriter, r *http.Request) {
	var req vectorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.backend.VectorSearch(r.Context(), req.Vector, req.Options)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetGraphTraverse(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	bounds := storage.GraphBounds{
		MaxHops:      parseInt(r.URL.Query().Get("max_hops"), 3),
		MaxNodes:     parseInt(r.URL.Query().Get("max_nodes"), 100),
		MaxEdges:     parseInt(r.URL.Query().Get("max_edges"), 500),
		AllowedTypes: parseRelationTypes(r.URL.Query().Get("allowed_types")),
	}
	result, err := h.backend.Traverse(r.Context(), start, bounds)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetGraphPath(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	bounds := storage.GraphBounds{
		MaxHops:      parseInt(r.URL.Query().Get("max_hops"), 3),
		AllowedTypes: parseRelationTypes(r.URL.Query().Get("allowed_types")),
	}
	path, err := h.backend.FindPath(r.Context(), start, end, bounds)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, path)
}

// parseRelationTypes splits a comma-separated allowed_types query value into
// relation types, returning nil when raw is empty.
func parseRelationTypes(raw string) []types.RelationType {
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

func (h *Handlers) PostRelation(w http.ResponseWriter, r *http.Request) {
	var rel types.MemoryRelation
	if err := json.NewDecoder(r.Body).Decode(&rel); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.backend.CreateRelation(r.Context(), &rel); err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &rel)
}

func (h *Handlers) GetMemoryRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := h.backend.GetRelations(r.Context(), r.PathValue("id"))
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rels)
}

func (h *Handlers) DeleteRelation(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.DeleteRelation(r.Context(), r.PathValue("id")); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetMemoryRelationsCount(w http.ResponseWriter, r *http.Request) {
	relType := types.RelationType(r.URL.Query().Get("type"))
	count, err := h.backend.CountRelationsByType(r.Context(), r.PathValue("id"), relType)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

type storeEmbeddingRequest struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

func (h *Handlers) PostMemoryEmbedding(w http.ResponseWriter, r *http.Request) {
	var req storeEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.backend.StoreEmbedding(r.Context(), r.PathValue("id"), req.Embedding, req.Model); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetMemoryEmbedding(w http.ResponseWriter, r *http.Request) {
	vec, err := h.backend.GetEmbedding(r.Context(), r.PathValue("id"))
	if err != nil {
		writeBackendError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vec)
}

func (h *Handlers) DeleteMemoryEmbedding(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.DeleteEmbedding(r.Context(), r.PathValue("id")); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrGraphBoundsExceeded):
		respondError(w, http.StatusUnprocessableEntity, err)
	default:
		respondError(w, http.StatusInternalServerError, err)
	}
}
