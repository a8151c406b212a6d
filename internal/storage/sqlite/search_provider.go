package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

var _ storage.SearchProvider = (*Store)(nil)

// FullTextSearch performs FTS5-backed full-text search across title,
// content, and tags. An empty query falls back to a recency-ordered list so
// callers always get a useful result set.
func (s *Store) FullTextSearch(ctx context.Context, opts storage.SearchOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()

	if strings.TrimSpace(opts.Query) == "" {
		return s.List(ctx, storage.ListOptions{
			Page: opts.Offset/max1(opts.Limit) + 1, Limit: opts.Limit,
			SortBy: "created_at", SortOrder: "desc",
			Scope: opts.Scope, ProjectID: opts.ProjectID,
		})
	}

	ftsQuery := sanitiseFTSQuery(opts.Query)
	extra, extraArgs := searchFilterClause(opts)

	querySQL := `
		SELECT ` + prefixColumns("m") + `
		FROM memories_fts fts
		JOIN memories m ON m.rowid = fts.rowid
		WHERE memories_fts MATCH ? AND m.deleted_at IS NULL` + extra + `
		ORDER BY rank
		LIMIT ? OFFSET ?`

	args := append([]interface{}{ftsQuery}, extraArgs...)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: FullTextSearch MATCH %q: %w", opts.Query, err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: FullTextSearch scan: %w", err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: FullTextSearch rows: %w", err)
	}

	countSQL := `
		SELECT COUNT(*)
		FROM memories_fts fts
		JOIN memories m ON m.rowid = fts.rowid
		WHERE memories_fts MATCH ? AND m.deleted_at IS NULL` + extra
	countArgs := append([]interface{}{ftsQuery}, extraArgs...)
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: FullTextSearch count: %w", err)
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
			relaxed.Query = strings.Join(terms, " OR ")
			relaxed.FuzzyFallback = false
			return s.FullTextSearch(ctx, relaxed)
		}
	}

	return result, nil
}

// VectorSearch ranks stored embeddings by cosine similarity to the query
// vector. Candidates are capped at vectorSearchMaxCandidates (most recent
// first) to bound memory use; for larger corpora a remote backend with an
// indexed ANN store is the intended path.
const vectorSearchMaxCandidates = 10_000

func (s *Store) VectorSearch(ctx context.Context, vector []float32, opts storage.SearchOptions) ([]storage.ScoredMemory, error) {
	opts.Normalize()
	if len(vector) == 0 {
		return nil, nil
	}

	extra, extraArgs := searchFilterClause(opts)
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.memory_id, e.embedding, e.dimension
		FROM embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.deleted_at IS NULL`+extra+`
		ORDER BY m.created_at DESC
		LIMIT ?`, append(extraArgs, vectorSearchMaxCandidates)...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: VectorSearch load embeddings: %w", err)
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
		return nil, fmt.Errorf("sqlite: VectorSearch rows: %w", err)
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

// searchFilterClause appends scope/project/tag filters shared by both the
// FTS and vector search paths.
func searchFilterClause(opts storage.SearchOptions) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if opts.Scope != "" {
		clauses = append(clauses, "m.scope = ?")
		args = append(args, opts.Scope)
	}
	if opts.ProjectID != "" {
		clauses = append(clauses, "m.project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func prefixColumns(alias string) string {
	cols := strings.Split(strings.TrimSpace(memoryColumns), ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// sanitiseFTSQuery converts a free-form query into a safe FTS5 MATCH
// expression: strips FTS5-special characters, drops stop words, and uses
// prefix matching (term*) per remaining word, OR'd together.
func sanitiseFTSQuery(query string) string {
	replacer := strings.NewReplacer(`"`, ` `, `'`, ` `, `(`, ` `, `)`, ` `, `*`, ` `, `-`, ` `, `^`, ` `, `?`, ` `, `:`, ` `)
	cleaned := replacer.Replace(query)
	words := strings.Fields(strings.ToLower(cleaned))

	stopWords := map[string]bool{
		"a": true, "an": true, "the": true, "is": true, "are": true, "was": true, "were": true,
		"be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
		"do": true, "does": true, "did": true, "will": true, "would": true, "could": true,
		"should": true, "may": true, "might": true, "shall": true, "can": true, "to": true,
		"of": true, "in": true, "on": true, "at": true, "by": true, "for": true, "with": true,
		"from": true, "as": true, "about": true, "this": true, "that": true, "and": true,
		"or": true, "but": true, "if": true, "not": true,
	}

	var terms []string
	for _, w := range words {
		if !stopWords[w] && len(w) >= 2 {
			terms = append(terms, w+"*")
		}
	}
	if len(terms) == 0 {
		return strings.ToLower(strings.TrimSpace(cleaned))
	}
	return strings.Join(terms, " OR ")
}
