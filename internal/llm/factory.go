package llm

import "fmt"

// Config is the provider configuration used to construct a TextGenerator or
// EmbeddingGenerator. It is populated from the llm and embedding sections of
// the tiered configuration file, independent of any particular storage
// backend.
type Config struct {
	Provider       string // ollama, openai, anthropic, gemini, deepseek, groq, xai, cohere
	Model          string
	APIKey         string
	BaseURL        string
	EmbeddingModel string
}

// openAICompatibleBaseURLs holds the default API base for providers that
// speak the OpenAI chat-completions wire format.
var openAICompatibleBaseURLs = map[string]string{
	"openai":   "https://api.openai.com",
	"groq":     "https://api.groq.com/openai",
	"deepseek": "https://api.deepseek.com",
	"xai":      "https://api.x.ai",
}

// NewTextGenerator builds the appropriate TextGenerator for cfg.Provider.
func NewTextGenerator(cfg Config) (TextGenerator, error) {
	switch cfg.Provider {
	case "openai", "groq", "deepseek", "xai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openAICompatibleBaseURLs[cfg.Provider]
		}
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: baseURL}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model}), nil
	case "gemini":
		return NewGeminiClient(GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "cohere":
		return NewCohereClient(CohereConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "qwen2.5:7b"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: baseURL, Model: model}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator builds the appropriate EmbeddingGenerator for
// cfg.Provider. Returns (nil, nil) for providers that don't support
// embeddings (Anthropic, xAI).
func NewEmbeddingGenerator(cfg Config) (EmbeddingGenerator, error) {
	model := cfg.EmbeddingModel
	switch cfg.Provider {
	case "openai":
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.BaseURL}), nil
	case "gemini":
		if model == "" {
			model = "text-embedding-004"
		}
		return NewGeminiEmbeddingClient(GeminiConfig{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.BaseURL}), nil
	case "cohere":
		if model == "" {
			model = "embed-english-v3.0"
		}
		return NewCohereEmbeddingClient(CohereConfig{APIKey: cfg.APIKey, Model: model, BaseURL: cfg.BaseURL}), nil
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: baseURL, Model: model}), nil
	default:
		return nil, nil
	}
}
