// Package postgres provides a PostgreSQL implementation of storage interfaces.
// This file contains test helpers only available during testing.
package postgres

import (
	"context"
	"fmt"
)

// TruncateForTest removes all rows from the memories table (relations and
// embeddings cascade). It is intended for use in tests only. The method is
// defined in the postgres package (not the _test package) so it has access
// to the unexported db field, and exported so postgres_test can call it.
func (s *Store) TruncateForTest(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE TABLE memories RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("postgres: failed to truncate memories: %w", err)
	}
	return nil
}
