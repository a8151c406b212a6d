package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

var _ storage.SearchProvider = (*Store)(nil)

// FullTextSearch performs tsvector-backed full-text search across title and
// content. An empty query falls back to a recency-ordered list so callers
// always get a useful result set.
func (s *Store) FullTextSearch(ctx context.Context, opts storage.SearchOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()

	if strings.TrimSpace(opts.Query) == "" {
		return s.List(ctx, storage.ListOptions{
			Page: opts.Offset/max1(opts.Limit) + 1, Limit: opts.Limit,
			SortBy: "created_at", SortOrder: "desc",
			Scope: opts.Scope, ProjectID: opts.ProjectID,
		})
	}

	extra, extraArgs, next := searchFilterClause(opts, 2, "")

	querySQL := `
		SELECT ` + memoryColumns + `
		FROM memories
		WHERE content_tsv @@ websearch_to_tsquery('english', $1) AND deleted_at IS NULL` + extra + `
		ORDER BY ts_rank(content_tsv, websearch_to_tsquery('english', $1)) DESC
		LIMIT $` + itoa(next) + ` OFFSET $` + itoa(next+1)

	args := append([]interface{}{opts.Query}, extraArgs...)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: FullTextSearch query %q: %w", opts.Query, err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: FullTextSearch scan: %w", err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: FullTextSearch rows: %w", err)
	}

	countSQL := `
		SELECT COUNT(*) FROM memories
		WHERE content_tsv @@ websearch_to_tsquery('english', $1) AND deleted_at IS NULL` + extra
	countArgs := append([]interface{}{opts.Query}, extraArgs...)
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: FullTextSearch count: %w", err)
	}

	result := &storage.PaginatedResult[types.Memory]{
		Items:    memories,
		Total:    total,
		PageSize: opts.Limit,
		HasMore:  opts.Offset+len(memories) < total,
	}

	if opts.FuzzyFallback && len(result.Items) == 0 {
		terms := strings.Fields(opts.Query)
		if len(terms) > 1 {
			relaxed := opts
			relaxed.Query = strings.Join(terms, " or ")
			relaxed.FuzzyFallback = false
			return s.FullTextSearch(ctx, relaxed)
		}
	}

	return result, nil
}

// vectorSearchMaxCandidates bounds the in-process cosine scan used when
// pgvector is unavailable, matching the sqlite backend's fallback cap.
const vectorSearchMaxCandidates = 10_000

// VectorSearch ranks stored embeddings by cosine similarity to the query
// vector. When pgvector is available the ivfflat index does the ranking in
// the database; otherwise candidates are loaded and scored in process.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]storage.ScoredMemory, error) {
	opts.Normalize()
	if len(vector) == 0 {
		return nil, nil
	}

	if s.pgvectorAvailable {
		return s.vectorSearchPgvector(ctx, vector, opts)
	}
	return s.vectorSearchBruteForce(ctx, vector, opts)
}

func (s *Store) vectorSearchPgvector(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]storage.ScoredMemory, error) {
	extra, extraArgs, next := searchFilterClause(opts, 2, "m.")
	vec := pgvector.NewVector(vector)

	query := `
		SELECT m.id, 1 - (e.embedding_vec <=> $1) AS score
		FROM embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.deleted_at IS NULL AND e.embedding_vec IS NOT NULL` + extra + `
		ORDER BY e.embedding_vec <=> $1
		LIMIT $` + itoa(next) + ` OFFSET $` + itoa(next+1)

	args := append([]interface{}{vec}, extraArgs...)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: VectorSearch (pgvector): %w", err)
	}
	defer rows.Close()

	var out []storage.ScoredMemory
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("postgres: VectorSearch scan: %w", err)
		}
		if score < opts.MinScore {
			continue
		}
		mem, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, storage.ScoredMemory{Memory: mem, Score: score})
	}
	return out, rows.Err()
}

func (s *Store) vectorSearchBruteForce(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]storage.ScoredMemory, error) {
	extra, extraArgs, next := searchFilterClause(opts, 1, "m.")
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.memory_id, e.embedding, e.dimension
		FROM embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.deleted_at IS NULL`+extra+`
		ORDER BY m.created_at DESC
		LIMIT $`+itoa(next), append(extraArgs, vectorSearchMaxCandidates)...)
	if err != nil {
		return nil, fmt.Errorf("postgres: VectorSearch load embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var id string
		var blob []byte
		var dim int
		if err := rows.Scan(&id, &blob, &dim); err != nil {
			continue
		}
		vec, err := deserializeEmbedding(blob, dim)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{id, cosineSimilarity32(vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: VectorSearch rows: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	offset := opts.Offset
	if offset > len(candidates) {
		offset = len(candidates)
	}
	end := offset + opts.Limit
	if end > len(candidates) {
		end = len(candidates)
	}

	out := make([]storage.ScoredMemory, 0, end-offset)
	for _, c := range candidates[offset:end] {
		if c.score < opts.MinScore {
			continue
		}
		mem, err := s.Get(ctx, c.id)
		if err != nil {
			continue
		}
		out = append(out, storage.ScoredMemory{Memory: mem, Score: c.score})
	}
	return out, nil
}

// searchFilterClause appends scope/project filters shared by all search
// paths. startAt is the first placeholder index to use ($N); alias is the
// table alias prefix to qualify columns with ("" when the query has no
// alias). Returns the clause, its args, and the next free placeholder index.
func searchFilterClause(opts storage.SearchOptions, startAt int, alias string) (string, []interface{}, int) {
	var clauses []string
	var args []interface{}
	n := startAt
	if opts.Scope != "" {
		clauses = append(clauses, alias+"scope = $"+itoa(n))
		args = append(args, opts.Scope)
		n++
	}
	if opts.ProjectID != "" {
		clauses = append(clauses, alias+"project_id = $"+itoa(n))
		args = append(args, opts.ProjectID)
		n++
	}
	if len(clauses) == 0 {
		return "", nil, n
	}
	return " AND " + strings.Join(clauses, " AND "), args, n
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
