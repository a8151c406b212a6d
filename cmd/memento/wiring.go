// Command memento is the unified CLI for the developer memory store: it
// captures, searches, and relates memories, runs the MCP tool-server over
// stdio, serves the HTTP+WebSocket UI, and drives session-capture hooks.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devmemory/memento/internal/attribution"
	"github.com/devmemory/memento/internal/config"
	"github.com/devmemory/memento/internal/embedder"
	"github.com/devmemory/memento/internal/engine"
	"github.com/devmemory/memento/internal/history"
	"github.com/devmemory/memento/internal/llm"
	"github.com/devmemory/memento/internal/notify"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/internal/storage/remote"
	"github.com/devmemory/memento/internal/storage/sqlite"
)

// app bundles the engine and config every subcommand needs, closed by
// app.Close once the subcommand returns.
type app struct {
	cfg config.Config
	eng *engine.Engine
	gen llm.TextGenerator
}

// newApp loads the tiered config, opens the configured storage backend, and
// wires up an Engine. Callers must call Close when done.
func newApp(ctx context.Context) (*app, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("memento: getwd: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	historyLog, err := history.Open(cfg.History.Path)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("memento: open history log: %w", err)
	}

	embedGen, err := llm.NewEmbeddingGenerator(llm.Config{
		Provider:       cfg.Embedding.Provider,
		Model:          cfg.Embedding.Model,
		BaseURL:        cfg.Embedding.BaseURL,
		EmbeddingModel: cfg.Embedding.Model,
	})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("memento: build embedding generator: %w", err)
	}
	dimension := cfg.Embedding.Dimension
	if dimension == 0 {
		dimension = 384
	}
	emb := embedder.New(embedGen, dimension)

	var gen llm.TextGenerator
	if cfg.LLM.Provider != "" {
		gen, err = llm.NewTextGenerator(llm.Config{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
		})
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("memento: build text generator: %w", err)
		}
	}

	engCfg := engine.DefaultConfig()
	engCfg.Dedup.SkipThreshold = cfg.Capture.SkipThreshold
	engCfg.Dedup.UpdateThreshold = cfg.Capture.UpdateThreshold
	engCfg.Ranking.Similarity = cfg.Retrieval.SimilarityWeight
	engCfg.Ranking.Keyword = cfg.Retrieval.KeywordWeight
	engCfg.Ranking.Recency = cfg.Retrieval.RecencyWeight
	engCfg.Ranking.Importance = cfg.Retrieval.ImportanceWeight
	engCfg.Ranking.AccessFreq = cfg.Retrieval.AccessFreqWeight
	engCfg.Ranking.GraphProximity = cfg.Retrieval.GraphProximityWeight
	engCfg.Ranking.Trust = cfg.Retrieval.TrustWeight
	engCfg.AutoRelate.SimilarityThreshold = cfg.Graph.AutoRelateThreshold
	engCfg.AutoRelate.MaxRelations = cfg.Graph.MaxAutoRelations
	engCfg.Consolidate.MinClusterSize = cfg.Consolidate.MinClusterSize
	engCfg.Consolidate.SimilarityThreshold = cfg.Consolidate.SimilarityThreshold
	engCfg.Consolidate.MaxClusterSize = cfg.Consolidate.MaxClusterSize
	engCfg.Consolidate.MinAgeDays = cfg.Consolidate.MinAgeDays
	engCfg.DefaultGraphBounds = engine.GraphBounds{
		MaxHops:  cfg.Graph.MaxHops,
		MaxNodes: cfg.Graph.MaxNodes,
		MaxEdges: cfg.Graph.MaxEdges,
	}

	eng := engine.New(backend, emb, gen, historyLog, engCfg)

	writer := notify.NewEventWriter(cfg.Storage.DataPath)
	eng.SetNotifier(func(eventType, memoryID string) {
		_ = writer.Notify(eventType, memoryID)
	})

	return &app{cfg: cfg, eng: eng, gen: gen}, nil
}

// openBackend opens the sqlite or remote storage backend per cfg.Storage.
func openBackend(cfg config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "remote":
		if cfg.Helix.Endpoint == "" {
			return nil, fmt.Errorf("memento: storage.backend = remote requires helix.endpoint")
		}
		return remote.NewClient(cfg.Helix.Endpoint, cfg.Helix.Token), nil
	case "sqlite", "":
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("memento: create data dir %q: %w", cfg.Storage.DataPath, err)
		}
		dbPath := filepath.Join(cfg.Storage.DataPath, "memento.db")
		return sqlite.Open(dbPath)
	default:
		return nil, fmt.Errorf("memento: unknown storage backend %q", cfg.Storage.Backend)
	}
}

func (a *app) Close() error {
	return a.eng.Close()
}

// actor returns the identity recorded against captures/relations/consolidate
// made from the CLI.
func actor() string {
	return attribution.DetectAgent()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "memento: "+format+"\n", args...)
	os.Exit(1)
}
