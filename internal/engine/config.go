// Package engine orchestrates the memory lifecycle: capture (dedup, embed,
// store, auto-relate), retrieval (multi-signal ranking), relation
// management, graph traversal, consolidation, and quality assessment. It is
// the single entry point the CLI, MCP server, HTTP server, and hook runner
// all call into.
package engine

import (
	"time"

	"github.com/devmemory/memento/internal/assess"
	"github.com/devmemory/memento/internal/dedup"
	"github.com/devmemory/memento/internal/consolidate"
	"github.com/devmemory/memento/internal/graph"
	"github.com/devmemory/memento/internal/ranking"
	"github.com/devmemory/memento/internal/trust"
)

// Config bundles every tunable threshold and concurrency knob the engine
// uses. DefaultConfig mirrors the thresholds used across the component
// packages it wires together.
type Config struct {
	Dedup       dedup.Config
	Ranking     ranking.Weights
	Trust       trust.Weights
	Assess      assess.Config
	AutoRelate  graph.AutoRelateConfig
	Consolidate consolidate.Config

	// Workers is the number of goroutines draining the enrichment queue.
	Workers int

	// QueueSize is the capacity of the enrichment job channel. A full queue
	// causes EnqueueEnrichment to drop the job rather than block the caller.
	QueueSize int

	// ShutdownTimeout bounds how long Close waits for in-flight enrichment
	// jobs to finish draining before giving up.
	ShutdownTimeout time.Duration

	// DefaultGraphBounds seeds Chain when the caller doesn't specify bounds.
	DefaultGraphBounds GraphBounds
}

// GraphBounds mirrors storage.GraphBounds so callers of this package don't
// need to import internal/storage just to build a Chain request.
type GraphBounds struct {
	MaxHops  int
	MaxNodes int
	MaxEdges int
	Timeout  time.Duration
}

// DefaultConfig returns the engine configuration used when nothing more
// specific is supplied: a 4-worker enrichment pool with a 1000-job queue,
// 30-second shutdown timeout, and each component's own defaults.
func DefaultConfig() Config {
	return Config{
		Dedup:           dedup.DefaultConfig(),
		Ranking:         ranking.DefaultWeights(),
		Trust:           trust.DefaultWeights(),
		Assess:          assess.DefaultConfig(),
		AutoRelate:      graph.DefaultAutoRelateConfig(),
		Consolidate:     consolidate.DefaultConfig(),
		Workers:         4,
		QueueSize:       1000,
		ShutdownTimeout: 30 * time.Second,
		DefaultGraphBounds: GraphBounds{
			MaxHops:  3,
			MaxNodes: 100,
			MaxEdges: 500,
			Timeout:  30 * time.Second,
		},
	}
}
