package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CohereConfig holds configuration for the Cohere client.
type CohereConfig struct {
	APIKey  string
	Model   string        // default: command-r
	BaseURL string        // default: https://api.cohere.com
	Timeout time.Duration // default: 60s
}

// CohereClient implements TextGenerator and EmbeddingGenerator using the
// Cohere chat and embed REST endpoints.
type CohereClient struct {
	cfg            CohereConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
}

// NewCohereClient creates a new Cohere text-generation client.
func NewCohereClient(cfg CohereConfig) *CohereClient {
	return newCohereClient(cfg, "command-r")
}

// NewCohereEmbeddingClient creates a new Cohere embedding client.
func NewCohereEmbeddingClient(cfg CohereConfig) *CohereClient {
	return newCohereClient(cfg, "embed-english-v3.0")
}

func newCohereClient(cfg CohereConfig, defaultModel string) *CohereClient {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cohere.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &CohereClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(),
	}
}

type cohereChatRequest struct {
	Model   string `json:"model"`
	Message string `json:"message"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
}

// Complete sends a single-turn chat request to Cohere.
func (c *CohereClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return "", fmt.Errorf("cohere circuit breaker open: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (c *CohereClient) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	jsonData, err := json.Marshal(cohereChatRequest{Model: c.cfg.Model, Message: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/v1/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData cohereChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return respData.Text, nil
}

// GetModel returns the configured model name.
func (c *CohereClient) GetModel() string { return c.cfg.Model }

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding vector for the given text.
func (c *CohereClient) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("cohere embedding circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

func (c *CohereClient) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := cohereEmbedRequest{Model: c.cfg.Model, Texts: []string{text}, InputType: "search_document"}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/v1/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cohere returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData cohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respData.Embeddings) == 0 {
		return nil, fmt.Errorf("cohere returned no embeddings")
	}
	return respData.Embeddings[0], nil
}

var (
	_ TextGenerator      = (*CohereClient)(nil)
	_ EmbeddingGenerator = (*CohereClient)(nil)
)
