package engine

import (
	"context"
	"fmt"

	"github.com/devmemory/memento/internal/consolidate"
	"github.com/devmemory/memento/internal/history"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// ConsolidateResult reports one cluster merged during a consolidation pass.
type ConsolidateResult struct {
	MergedID string
	Absorbed []string
}

// Consolidate finds clusters of similar, aging memories and merges each into
// a single higher-quality memory: the merged memory is created fresh, every
// absorbed member is superseded (status + a supersedes relation), and the
// merged memory is auto-related to whatever its members were connected to.
func (e *Engine) Consolidate(ctx context.Context, actor string) ([]ConsolidateResult, error) {
	page, err := e.backend.List(ctx, storage.ListOptions{State: string(types.StatusActive), Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("engine: list candidates: %w", err)
	}

	candidates := make([]consolidate.Candidate, 0, len(page.Items))
	for i := range page.Items {
		m := &page.Items[i]
		vector, err := e.backend.GetEmbedding(ctx, m.ID)
		if err != nil || len(vector) == 0 {
			continue
		}
		candidates = append(candidates, consolidate.Candidate{Memory: m, Embedding: vector})
	}

	eligible := consolidate.EligibleForConsolidation(candidates, e.cfg.Consolidate)
	clusters := consolidate.FindClusters(eligible, e.cfg.Consolidate)

	results := make([]ConsolidateResult, 0, len(clusters))
	for _, cluster := range clusters {
		result, err := e.consolidateCluster(ctx, cluster, actor)
		if err != nil {
			return results, fmt.Errorf("engine: consolidate cluster: %w", err)
		}
		results = append(results, *result)
	}
	return results, nil
}

func (e *Engine) consolidateCluster(ctx context.Context, cluster consolidate.Cluster, actor string) (*ConsolidateResult, error) {
	input, err := consolidate.Summarize(ctx, e.gen, cluster)
	if err != nil {
		return nil, err
	}
	input.Kind = cluster.Members[0].Memory.Kind
	input.Importance = maxImportance(cluster)

	capture, err := e.Capture(ctx, *input, actor)
	if err != nil {
		return nil, fmt.Errorf("capturing merged memory: %w", err)
	}

	absorbed := make([]string, 0, len(cluster.Members))
	for _, member := range cluster.Members {
		rel := types.NewMemoryRelation(capture.Memory.ID, member.Memory.ID, types.RelationSupersedes, 1.0)
		if err := e.backend.CreateRelation(ctx, rel); err != nil {
			return nil, fmt.Errorf("relating merged memory to %s: %w", member.Memory.ID, err)
		}

		member.Memory.Status = types.StatusSuperseded
		if err := e.backend.Update(ctx, member.Memory); err != nil {
			return nil, fmt.Errorf("marking %s superseded: %w", member.Memory.ID, err)
		}
		e.recordHistory(ctx, member.Memory.ID, history.EventSuperseded, actor, "merged into "+capture.Memory.ID)
		absorbed = append(absorbed, member.Memory.ID)
	}

	return &ConsolidateResult{MergedID: capture.Memory.ID, Absorbed: absorbed}, nil
}

func maxImportance(cluster consolidate.Cluster) float64 {
	var max float64
	for _, m := range cluster.Members {
		if m.Memory.Importance > max {
			max = m.Memory.Importance
		}
	}
	return max
}
