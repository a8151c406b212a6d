package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/devmemory/memento/internal/graph"
	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

var _ storage.RelationshipStore = (*Store)(nil)
var _ storage.GraphProvider = (*Store)(nil)
var _ graph.NeighborFetcher = (*Store)(nil)

// CreateRelation inserts a typed, directed edge between two memories.
// Duplicate (source, target, type) triples are rejected with
// storage.ErrConflict rather than silently upserted, since a relation's
// strength is meaningful provenance, not just a flag.
func (s *Store) CreateRelation(ctx context.Context, rel *types.MemoryRelation) error {
	if rel == nil {
		return storage.ErrInvalidInput
	}
	if rel.SourceID == "" || rel.TargetID == "" {
		return fmt.Errorf("%w: source and target IDs are required", storage.ErrInvalidInput)
	}
	if !types.IsValidRelationType(rel.RelationType) {
		return fmt.Errorf("%w: invalid relation type %q", storage.ErrInvalidInput, rel.RelationType)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relations (id, source_id, target_id, relation_type, strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rel.ID, rel.SourceID, rel.TargetID, rel.RelationType, rel.Strength, rel.CreatedAt)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to create relation: %w", err)
	}
	return nil
}

// GetRelations returns every relation where memoryID is either source or target.
func (s *Store) GetRelations(ctx context.Context, memoryID string) ([]*types.MemoryRelation, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, relation_type, strength, created_at
		FROM relations WHERE source_id = ? OR target_id = ?
	`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get relations: %w", err)
	}
	defer rows.Close()

	var rels []*types.MemoryRelation
	for rows.Next() {
		var r types.MemoryRelation
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.RelationType, &r.Strength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		rels = append(rels, &r)
	}
	return rels, rows.Err()
}

// DeleteRelation removes a relation by ID.
func (s *Store) DeleteRelation(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: relation ID is required", storage.ErrInvalidInput)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM relations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relation: %w", err)
	}
	return errIfNoRows(result, storage.ErrNotFound)
}

// CountRelationsByType counts relations of a given type touching memoryID,
// in either direction. Used by internal/trust to penalize contradictions.
func (s *Store) CountRelationsByType(ctx context.Context, memoryID string, relType types.RelationType) (int, error) {
	if memoryID == "" {
		return 0, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM relations
		WHERE (source_id = ? OR target_id = ?) AND relation_type = ?
	`, memoryID, memoryID, relType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count relations: %w", err)
	}
	return count, nil
}

// Neighbors implements graph.NeighborFetcher by reading a memory's outgoing
// relations from the relations table, optionally restricted to allowedTypes.
func (s *Store) Neighbors(ctx context.Context, memoryID string, allowedTypes []types.RelationType) ([]graph.Neighbor, error) {
	query := `SELECT id, target_id, relation_type, strength FROM relations WHERE source_id = ?`
	args := []interface{}{memoryID}
	if len(allowedTypes) > 0 {
		placeholders := make([]string, len(allowedTypes))
		for i, rt := range allowedTypes {
			placeholders[i] = "?"
			args = append(args, rt)
		}
		query += fmt.Sprintf(" AND relation_type IN (%s)", strings.Join(placeholders, ", "))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: Neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []graph.Neighbor
	for rows.Next() {
		var n graph.Neighbor
		if err := rows.Scan(&n.RelationID, &n.MemoryID, &n.RelationType, &n.Weight); err != nil {
			return nil, fmt.Errorf("sqlite: Neighbors scan: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}

// Traverse performs bounded BFS over the relation graph starting at startID.
func (s *Store) Traverse(ctx context.Context, startID string, bounds storage.GraphBounds) (*storage.GraphResult, error) {
	return graph.Traverse(ctx, s, startID, bounds)
}

// FindPath finds the shortest relation path between two memories within bounds.
func (s *Store) FindPath(ctx context.Context, startID, endID string, bounds storage.GraphBounds) ([]string, error) {
	return graph.FindPath(ctx, s, startID, endID, bounds)
}

// isUniqueConstraintErr reports whether err came from the relations table's
// UNIQUE(source_id, target_id, relation_type) constraint.
func isUniqueConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
