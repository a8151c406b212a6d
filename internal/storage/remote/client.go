// Package remote implements storage.Backend over a small named-endpoint
// HTTP/JSON wire protocol, so a conforming graph+vector service anywhere on
// the network can stand in for the local sqlite backend.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// Client implements storage.Backend by speaking the wire protocol described
// in the configuration's helix section: POST /memories, GET /memories/{id},
// POST /search/vector, POST /search/text, POST /relations,
// GET /graph/traverse, plus the handful of supporting endpoints CRUD and
// embedding management need.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a Client bearer-authenticated against token. baseURL
// should not have a trailing slash.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		// 10 req/s steady state with a small burst, generous enough for
		// interactive CLI use without hammering a shared remote service.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("remote: rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusConflict:
		return storage.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", storage.ErrInvalidInput, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// --- MemoryStore ---

func (c *Client) Store(ctx context.Context, memory *types.Memory) error {
	return c.do(ctx, http.MethodPost, "/memories", memory, nil)
}

func (c *Client) Get(ctx context.Context, id string) (*types.Memory, error) {
	var m types.Memory
	if err := c.do(ctx, http.MethodGet, "/memories/"+id, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()
	var result storage.PaginatedResult[types.Memory]
	if err := c.do(ctx, http.MethodPost, "/memories/list", opts, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Update(ctx context.Context, memory *types.Memory) error {
	return c.do(ctx, http.MethodPost, "/memories/"+memory.ID, memory, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/memories/"+id, nil, nil)
}

func (c *Client) Purge(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/memories/"+id+"?purge=true", nil, nil)
}

func (c *Client) IncrementAccessCount(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/memories/"+id+"/access", nil, nil)
}

func (c *Client) UpdateDecayScores(ctx context.Context) (int, error) {
	var result struct {
		Updated int `json:"updated"`
	}
	if err := c.do(ctx, http.MethodPost, "/memories/decay", nil, &result); err != nil {
		return 0, err
	}
	return result.Updated, nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// --- SearchProvider ---

func (c *Client) FullTextSearch(ctx context.Context, opts storage.SearchOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()
	var result storage.PaginatedResult[types.Memory]
	if err := c.do(ctx, http.MethodPost, "/search/text", opts, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type vectorSearchRequest struct {
	Vector  []float32             `json:"vector"`
	Options storage.SearchOptions `json:"options"`
}

func (c *Client) VectorSearch(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]storage.ScoredMemory, error) {
	opts.Normalize()
	var result []storage.ScoredMemory
	req := vectorSearchRequest{Vector: vector, Options: opts}
	if err := c.do(ctx, http.MethodPost, "/search/vector", req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// --- GraphProvider ---

func (c *Client) Traverse(ctx context.Context, startID string, bounds storage.GraphBounds) (*storage.GraphResult, error) {
	bounds.Normalize()
	var result storage.GraphResult
	path := fmt.Sprintf("/graph/traverse?start=%s&max_hops=%d&max_nodes=%d&max_edges=%d%s",
		startID, bounds.MaxHops, bounds.MaxNodes, bounds.MaxEdges, allowedTypesQuery(bounds.AllowedTypes))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) FindPath(ctx context.Context, startID, endID string, bounds storage.GraphBounds) ([]string, error) {
	bounds.Normalize()
	var result []string
	path := fmt.Sprintf("/graph/path?start=%s&end=%s&max_hops=%d%s",
		startID, endID, bounds.MaxHops, allowedTypesQuery(bounds.AllowedTypes))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// allowedTypesQuery renders a GraphBounds.AllowedTypes filter as a URL query
// fragment, empty when no filter is set.
func allowedTypesQuery(allowedTypes []types.RelationType) string {
	if len(allowedTypes) == 0 {
		return ""
	}
	names := make([]string, len(allowedTypes))
	for i, rt := range allowedTypes {
		names[i] = string(rt)
	}
	return "&allowed_types=" + url.QueryEscape(strings.Join(names, ","))
}

// --- RelationshipStore ---

func (c *Client) CreateRelation(ctx context.Context, rel *types.MemoryRelation) error {
	return c.do(ctx, http.MethodPost, "/relations", rel, nil)
}

func (c *Client) GetRelations(ctx context.Context, memoryID string) ([]*types.MemoryRelation, error) {
	var result []*types.MemoryRelation
	if err := c.do(ctx, http.MethodGet, "/memories/"+memoryID+"/relations", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) DeleteRelation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/relations/"+id, nil, nil)
}

func (c *Client) CountRelationsByType(ctx context.Context, memoryID string, relType types.RelationType) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/memories/%s/relations/count?type=%s", memoryID, relType)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// --- EmbeddingProvider ---

type storeEmbeddingRequest struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

func (c *Client) StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, model string) error {
	req := storeEmbeddingRequest{Embedding: embedding, Model: model}
	return c.do(ctx, http.MethodPost, "/memories/"+memoryID+"/embedding", req, nil)
}

func (c *Client) GetEmbedding(ctx context.Context, memoryID string) ([]float32, error) {
	var result []float32
	if err := c.do(ctx, http.MethodGet, "/memories/"+memoryID+"/embedding", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) DeleteEmbedding(ctx context.Context, memoryID string) error {
	return c.do(ctx, http.MethodDelete, "/memories/"+memoryID+"/embedding", nil, nil)
}

var _ storage.Backend = (*Client)(nil)
