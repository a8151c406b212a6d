// Package graph implements bounded breadth-first traversal and path-finding
// over the memory relation graph, plus similarity-driven auto-relate.
//
// The BFS itself is storage-agnostic: it walks through a NeighborFetcher so
// that both the sqlite and remote backends can supply edges with their own
// native queries while sharing one traversal algorithm.
package graph

import (
	"container/list"
	"context"
	"fmt"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// Neighbor is one edge out of a memory during traversal.
type Neighbor struct {
	MemoryID     string
	RelationID   string
	RelationType types.RelationType
	Weight       float64
}

// NeighborFetcher supplies the outgoing edges of a memory, optionally
// restricted to a set of relation types. An empty allowedTypes means every
// relation type is returned.
type NeighborFetcher interface {
	Neighbors(ctx context.Context, memoryID string, allowedTypes []types.RelationType) ([]Neighbor, error)
}

type frontierEntry struct {
	memoryID   string
	depth      int
	relPath    []string
}

// Traverse performs bounded BFS from startID, returning every memory
// discovered within bounds along with the edges traversed. A MaxHops of 0
// returns just the starting node with no edges: depth zero means no
// traversal occurs.
func Traverse(ctx context.Context, fetcher NeighborFetcher, startID string, bounds storage.GraphBounds) (*storage.GraphResult, error) {
	result := &storage.GraphResult{Nodes: []string{startID}}

	if bounds.MaxHops == 0 {
		return result, nil
	}
	bounds.Normalize()

	checker := NewBoundsChecker(bounds)
	visited := map[string]bool{startID: true}
	queue := list.New()
	queue.PushBack(frontierEntry{memoryID: startID, depth: 0})

	for queue.Len() > 0 {
		if err := checker.CanContinue(ctx, 0); err != nil {
			result.BoundsReached = append(result.BoundsReached, err.Error())
			break
		}

		front := queue.Remove(queue.Front()).(frontierEntry)
		if front.depth >= bounds.MaxHops {
			continue
		}

		neighbors, err := fetcher.Neighbors(ctx, front.memoryID, bounds.AllowedTypes)
		if err != nil {
			return nil, fmt.Errorf("fetch neighbors of %s: %w", front.memoryID, err)
		}

		for _, n := range neighbors {
			if err := checker.CanTraverseEdge(); err != nil {
				result.BoundsReached = append(result.BoundsReached, err.Error())
				return result, nil
			}
			checker.RecordEdge()
			result.Edges = append(result.Edges, storage.GraphEdge{
				From:         front.memoryID,
				To:           n.MemoryID,
				RelationType: string(n.RelationType),
				Weight:       n.Weight,
			})

			if visited[n.MemoryID] {
				continue
			}
			if err := checker.CanVisitNode(); err != nil {
				result.BoundsReached = append(result.BoundsReached, err.Error())
				continue
			}
			checker.RecordNode()
			visited[n.MemoryID] = true
			result.Nodes = append(result.Nodes, n.MemoryID)
			queue.PushBack(frontierEntry{memoryID: n.MemoryID, depth: front.depth + 1})
		}
	}

	return result, nil
}

// FindPath finds the shortest relation path between two memories via BFS,
// returning the sequence of relation IDs traversed. Returns an empty slice
// (not an error) when no path exists within bounds.
func FindPath(ctx context.Context, fetcher NeighborFetcher, startID, endID string, bounds storage.GraphBounds) ([]string, error) {
	if startID == endID {
		return nil, nil
	}
	if bounds.MaxHops == 0 {
		return nil, nil
	}
	bounds.Normalize()

	checker := NewBoundsChecker(bounds)
	visited := map[string]bool{startID: true}
	queue := list.New()
	queue.PushBack(frontierEntry{memoryID: startID, depth: 0})

	for queue.Len() > 0 {
		if err := checker.CanContinue(ctx, 0); err != nil {
			return nil, nil
		}

		front := queue.Remove(queue.Front()).(frontierEntry)
		if front.depth >= bounds.MaxHops {
			continue
		}

		neighbors, err := fetcher.Neighbors(ctx, front.memoryID, bounds.AllowedTypes)
		if err != nil {
			return nil, fmt.Errorf("fetch neighbors of %s: %w", front.memoryID, err)
		}

		for _, n := range neighbors {
			if err := checker.CanTraverseEdge(); err != nil {
				return nil, nil
			}
			checker.RecordEdge()

			path := append(append([]string{}, front.relPath...), n.RelationID)
			if n.MemoryID == endID {
				return path, nil
			}
			if visited[n.MemoryID] {
				continue
			}
			if err := checker.CanVisitNode(); err != nil {
				continue
			}
			checker.RecordNode()
			visited[n.MemoryID] = true
			queue.PushBack(frontierEntry{memoryID: n.MemoryID, depth: front.depth + 1, relPath: path})
		}
	}

	return nil, nil
}
