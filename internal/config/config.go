// Package config loads Memento's tiered TOML configuration: a global file
// under the user's config directory, an optional per-project file walked up
// from the working directory, and an optional local-overrides file layered
// on top. Later tiers win field-by-field within each section; a tier that
// does not set a field leaves the previous tier's value untouched.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds every section of the merged configuration.
type Config struct {
	Storage     StorageConfig
	Helix       HelixConfig
	Embedding   EmbeddingConfig
	LLM         LLMConfig
	Capture     CaptureConfig
	Retrieval   RetrievalConfig
	Privacy     PrivacyConfig
	Graph       GraphConfig
	History     HistoryConfig
	Consolidate ConsolidateConfig
	Server      ServerConfig
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Backend  string `toml:"backend"`   // "sqlite" or "remote" (default "sqlite")
	DataPath string `toml:"data_path"` // default ~/.local/share/memento
}

// HelixConfig configures the remote backend wire protocol client, named
// after the abstract graph+vector store contract it speaks to.
type HelixConfig struct {
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"` // overridden by MEMENTO_HELIX_TOKEN, never stored in a committed file
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `toml:"provider"` // ollama, openai, gemini, cohere, hash
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	Dimension int    `toml:"dimension"`
}

// LLMConfig configures the text-generation provider used for consolidation
// summaries and session compression.
type LLMConfig struct {
	Provider string `toml:"provider"` // ollama, openai, anthropic, gemini, deepseek, groq, xai, cohere
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"` // overridden by provider-specific env vars
	BaseURL  string `toml:"base_url"`
}

// CaptureConfig tunes the ingestion pipeline.
type CaptureConfig struct {
	SkipThreshold   float64 `toml:"skip_threshold"`
	UpdateThreshold float64 `toml:"update_threshold"`
	DefaultPrivacy  string  `toml:"default_privacy"`
}

// RetrievalConfig tunes search ranking.
type RetrievalConfig struct {
	SimilarityWeight     float64 `toml:"similarity_weight"`
	KeywordWeight        float64 `toml:"keyword_weight"`
	RecencyWeight        float64 `toml:"recency_weight"`
	ImportanceWeight     float64 `toml:"importance_weight"`
	AccessFreqWeight     float64 `toml:"access_freq_weight"`
	GraphProximityWeight float64 `toml:"graph_proximity_weight"`
	TrustWeight          float64 `toml:"trust_weight"`
	DefaultLimit         int     `toml:"default_limit"`
}

// PrivacyConfig controls what leaves the local machine.
type PrivacyConfig struct {
	AllowCloudEmbedding bool     `toml:"allow_cloud_embedding"`
	AllowCloudLLM       bool     `toml:"allow_cloud_llm"`
	RedactedTags        []string `toml:"redacted_tags"`
}

// GraphConfig tunes auto-relate and traversal bounds.
type GraphConfig struct {
	AutoRelateThreshold float64 `toml:"auto_relate_threshold"`
	MaxAutoRelations    int     `toml:"max_auto_relations"`
	MaxHops             int     `toml:"max_hops"`
	MaxNodes            int     `toml:"max_nodes"`
	MaxEdges            int     `toml:"max_edges"`
}

// HistoryConfig tunes the audit log.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// ConsolidateConfig tunes consolidation clustering.
type ConsolidateConfig struct {
	MinClusterSize      int     `toml:"min_cluster_size"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	MaxClusterSize      int     `toml:"max_cluster_size"`
	MinAgeDays          int     `toml:"min_age_days"`
}

// ServerConfig configures the HTTP+WebSocket UI served by `memento serve`.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	SecurityMode string `toml:"security_mode"` // "development" or "production"
	APIToken     string `toml:"api_token"`      // required Bearer token in production; overridden by MEMENTO_API_TOKEN
}

// Default returns the configuration used when no tier sets a value.
func Default() Config {
	home, _ := os.UserHomeDir()
	dataPath := filepath.Join(home, ".local", "share", "memento")
	return Config{
		Storage: StorageConfig{Backend: "sqlite", DataPath: dataPath},
		Helix:   HelixConfig{},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BaseURL:   "http://localhost:11434",
			Dimension: 384,
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "qwen2.5:7b",
			BaseURL:  "http://localhost:11434",
		},
		Capture: CaptureConfig{
			SkipThreshold:   0.95,
			UpdateThreshold: 0.85,
			DefaultPrivacy:  "private",
		},
		Retrieval: RetrievalConfig{
			SimilarityWeight:     0.25,
			KeywordWeight:        0.15,
			RecencyWeight:        0.15,
			ImportanceWeight:     0.15,
			AccessFreqWeight:     0.10,
			GraphProximityWeight: 0.05,
			TrustWeight:          0.15,
			DefaultLimit:         10,
		},
		Privacy: PrivacyConfig{AllowCloudEmbedding: false, AllowCloudLLM: false},
		Graph: GraphConfig{
			AutoRelateThreshold: 0.6,
			MaxAutoRelations:    3,
			MaxHops:             3,
			MaxNodes:            100,
			MaxEdges:            500,
		},
		History: HistoryConfig{Path: filepath.Join(dataPath, "history.jsonl")},
		Consolidate: ConsolidateConfig{
			MinClusterSize:      3,
			SimilarityThreshold: 0.7,
			MaxClusterSize:      10,
			MinAgeDays:          7,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         6363,
			SecurityMode: "development",
		},
	}
}

// Load merges the global, project, and local-override tiers on top of
// Default, then applies secret-bearing environment variable overrides.
// Missing files at any tier are not an error; a malformed file is.
func Load(cwd string) (Config, error) {
	cfg := Default()

	if path := globalConfigPath(); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	if path := findProjectConfig(cwd); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
		if local := filepath.Join(filepath.Dir(path), "config.local.toml"); fileExists(local) {
			if err := mergeFile(&cfg, local); err != nil {
				return cfg, err
			}
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func globalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "memento", "config.toml")
	if fileExists(path) {
		return path
	}
	return ""
}

// findProjectConfig walks up from cwd looking for .memento/config.toml,
// mirroring how version-control tools locate their repo root.
func findProjectConfig(cwd string) string {
	dir := cwd
	for {
		candidate := filepath.Join(dir, ".memento", "config.toml")
		if fileExists(candidate) {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeFile decodes path into a sparse Config and merges only the fields
// it actually set on top of cfg's current state.
func mergeFile(cfg *Config, path string) error {
	var tier Config
	meta, err := toml.DecodeFile(path, &tier)
	if err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	mergeSection(meta, "storage", &cfg.Storage, tier.Storage)
	mergeSection(meta, "helix", &cfg.Helix, tier.Helix)
	mergeSection(meta, "embedding", &cfg.Embedding, tier.Embedding)
	mergeSection(meta, "llm", &cfg.LLM, tier.LLM)
	mergeSection(meta, "capture", &cfg.Capture, tier.Capture)
	mergeSection(meta, "retrieval", &cfg.Retrieval, tier.Retrieval)
	mergeSection(meta, "privacy", &cfg.Privacy, tier.Privacy)
	mergeSection(meta, "graph", &cfg.Graph, tier.Graph)
	mergeSection(meta, "history", &cfg.History, tier.History)
	mergeSection(meta, "consolidate", &cfg.Consolidate, tier.Consolidate)
	mergeSection(meta, "server", &cfg.Server, tier.Server)
	return nil
}

// mergeSection copies onto *dst each field of tierVal whose TOML key the
// file actually set under the section key; fields the tier leaves out keep
// the value *dst already had.
func mergeSection[T any](meta toml.MetaData, key string, dst *T, tierVal T) {
	if !meta.IsDefined(key) {
		return
	}
	dv := reflect.ValueOf(dst).Elem()
	tv := reflect.ValueOf(tierVal)
	for i := 0; i < tv.NumField(); i++ {
		if tag := tv.Type().Field(i).Tag.Get("toml"); tag != "" && meta.IsDefined(key, tag) {
			dv.Field(i).Set(tv.Field(i))
		}
	}
}

// applyEnvOverrides layers environment variables for secrets that should
// never live in a checked-in config file, following the teacher's
// getEnv-style helper idiom.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MEMENTO_HELIX_TOKEN"); v != "" {
		cfg.Helix.Token = v
	}
	if v := os.Getenv("MEMENTO_HELIX_ENDPOINT"); v != "" {
		cfg.Helix.Endpoint = v
	}
	if v := os.Getenv("MEMENTO_OPENAI_API_KEY"); v != "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MEMENTO_ANTHROPIC_API_KEY"); v != "" && cfg.LLM.Provider == "anthropic" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MEMENTO_GEMINI_API_KEY"); v != "" && cfg.LLM.Provider == "gemini" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MEMENTO_COHERE_API_KEY"); v != "" && cfg.LLM.Provider == "cohere" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MEMENTO_DATA_PATH"); v != "" {
		cfg.Storage.DataPath = v
	}
	if v := os.Getenv("MEMENTO_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
}

// getEnvInt retrieves an integer environment variable or returns the
// default, matching the teacher's getEnvInt helper.
func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
