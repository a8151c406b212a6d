// Package sqlite implements the storage.Backend interface on top of SQLite,
// using modernc.org/sqlite (CGO-free) with an FTS5 index for full-text
// search and a brute-force cosine scan for vector search.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/devmemory/memento/internal/storage"
	"github.com/devmemory/memento/pkg/types"
)

// Store implements storage.Backend using a single SQLite database file.
type Store struct {
	db *sql.DB
}

var _ storage.Backend = (*Store)(nil)

// RunMigrations applies pending migrations from the given directory instead
// of relying solely on the embedded Schema. Most deployments never call
// this — Schema alone is sufficient — but it's available for environments
// that want auditable, reviewable migration files.
func (s *Store) RunMigrations(migrationsDir string) error {
	mgr, err := storage.NewMigrationManager(s.db, migrationsDir)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create migration manager: %w", err)
	}
	defer mgr.Close()

	if err := mgr.Up(); err != nil {
		return fmt.Errorf("sqlite: failed to run migrations: %w", err)
	}
	return nil
}

// Open opens a SQLite database at dsn, applying WAL self-healing: if the
// initial open fails due to stale WAL files left behind by a crashed
// process, it verifies no other process holds them and retries once after
// removing the stale -shm/-wal files.
func Open(dsn string) (*Store, error) {
	store, err := open(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || dbPath == ":memory:" {
		return nil, err
	}

	if !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := open(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	log.Printf("sqlite: recovered from stale WAL files for %s", dbPath)
	return store, nil
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

const memoryColumns = `
	id, kind, title, content, summary, tags,
	source, source_hook, derived_from_id,
	scope, project_id, session_id,
	importance, status, privacy, verification,
	created_by, created_at, updated_at, accessed_at,
	access_count, decay_score, decay_updated_at,
	embedding_model, embedding_dimension,
	entities, metadata, deleted_at
`

// Store creates or updates a memory (upsert semantics).
func (s *Store) Store(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if memory.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if memory.Content == "" {
		return fmt.Errorf("%w: memory content is required", storage.ErrInvalidInput)
	}

	tagsJSON, err := marshalOrNil(memory.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	entitiesJSON, err := marshalOrNil(memory.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}
	metadataJSON, err := marshalOrNil(memory.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now().UTC()
	}
	if memory.UpdatedAt.IsZero() {
		memory.UpdatedAt = time.Now().UTC()
	}
	if memory.AccessedAt.IsZero() {
		memory.AccessedAt = memory.CreatedAt
	}

	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			content = excluded.content,
			summary = excluded.summary,
			tags = excluded.tags,
			source = excluded.source,
			source_hook = excluded.source_hook,
			derived_from_id = excluded.derived_from_id,
			scope = excluded.scope,
			project_id = excluded.project_id,
			session_id = excluded.session_id,
			importance = excluded.importance,
			status = excluded.status,
			privacy = excluded.privacy,
			verification = excluded.verification,
			updated_at = excluded.updated_at,
			accessed_at = excluded.accessed_at,
			access_count = excluded.access_count,
			decay_score = excluded.decay_score,
			decay_updated_at = excluded.decay_updated_at,
			embedding_model = excluded.embedding_model,
			embedding_dimension = excluded.embedding_dimension,
			entities = excluded.entities,
			metadata = excluded.metadata,
			deleted_at = excluded.deleted_at
	`

	_, err = s.db.ExecContext(ctx, query,
		memory.ID, memory.Kind, memory.Title, memory.Content, memory.Summary, nullableBytes(tagsJSON),
		memory.Source, nullableString(memory.SourceHook), nullableString(memory.DerivedFromID),
		memory.Scope, nullableString(memory.ProjectID), nullableString(memory.SessionID),
		memory.Importance, memory.Status, memory.Privacy, memory.Verification,
		memory.CreatedBy, memory.CreatedAt, memory.UpdatedAt, memory.AccessedAt,
		memory.AccessCount, memory.DecayScore, nullableTime(memory.DecayUpdatedAt),
		nullableString(memory.EmbeddingModel), memory.EmbeddingDimension,
		nullableBytes(entitiesJSON), nullableBytes(metadataJSON), nullableTime(memory.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}
	return nil
}

// Get retrieves a memory by ID, excluding soft-deleted rows.
func (s *Store) Get(ctx context.Context, id string) (*types.Memory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ? AND deleted_at IS NULL`, id)
	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return memory, nil
}

// List retrieves memories with pagination and filtering.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Memory], error) {
	opts.Normalize()

	var conditions []string
	var args []interface{}

	if opts.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, opts.Kind)
	}
	if opts.Scope != "" {
		conditions = append(conditions, "scope = ?")
		args = append(args, opts.Scope)
	}
	if opts.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.CreatedBy != "" {
		conditions = append(conditions, "created_by = ?")
		args = append(args, opts.CreatedBy)
	}
	if !opts.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at > ?")
		args = append(args, opts.CreatedAfter)
	}
	if !opts.CreatedBefore.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, opts.CreatedBefore)
	}
	if opts.MinDecayScore > 0 {
		conditions = append(conditions, "decay_score >= ?")
		args = append(args, opts.MinDecayScore)
	}
	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if status, ok := opts.Filter["status"]; ok {
		conditions = append(conditions, "status = ?")
		args = append(args, fmt.Sprintf("%v", status))
	}

	if opts.OnlyDeleted {
		conditions = append(conditions, "deleted_at IS NOT NULL")
	} else if !opts.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// opts.SortBy/SortOrder are whitelist-validated by Normalize, safe to
	// interpolate directly.
	query := `SELECT ` + memoryColumns + ` FROM memories` + whereClause +
		fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", opts.SortBy, opts.SortOrder)
	pageArgs := append(append([]interface{}{}, args...), opts.Limit, opts.Offset())

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	var memories []types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM memories" + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}

	return &storage.PaginatedResult[types.Memory]{
		Items:    memories,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(memories) < total,
	}, nil
}

// Update modifies an existing memory, rejecting updates to IDs that don't exist.
func (s *Store) Update(ctx context.Context, memory *types.Memory) error {
	if memory == nil {
		return storage.ErrInvalidInput
	}
	if memory.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	exists, err := s.exists(ctx, memory.ID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}

	memory.UpdatedAt = time.Now().UTC()
	return s.Store(ctx, memory)
}

// Delete soft-deletes a memory by setting deleted_at.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "UPDATE memories SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return errIfNoRows(result, storage.ErrNotFound)
}

// Purge hard-deletes a memory by ID (permanent removal).
func (s *Store) Purge(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to purge memory: %w", err)
	}
	return errIfNoRows(result, storage.ErrNotFound)
}

// IncrementAccessCount atomically increments access_count and bumps
// accessed_at for the given memory ID.
func (s *Store) IncrementAccessCount(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memories
		SET access_count = access_count + 1, accessed_at = ?
		WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to increment access count: %w", err)
	}
	return errIfNoRows(result, storage.ErrNotFound)
}

// UpdateDecayScores applies time-based decay to every active memory. Should
// be called periodically (e.g. daily). Returns the number of rows updated.
//
// SQLite has no POWER/EXP builtin, so this approximates
// internal/ranking.ComputeDecayScore's 60-day half-life curve with
// factor = 1/(1 + daysSince/60). At 60 days: factor = 0.5. At 120 days:
// factor ≈ 0.33. Close enough for a periodic bulk sweep; the per-query
// ranking path uses the exact exponential curve.
func (s *Store) UpdateDecayScores(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE memories
		SET decay_score = MAX(0.0, MIN(1.0,
			1.0 / (1.0 + (julianday('now') - julianday(accessed_at)) / 60.0)
		)),
		decay_updated_at = CURRENT_TIMESTAMP
		WHERE deleted_at IS NULL AND status = 'active'
	`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to update decay scores: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// Close flushes the WAL into the main database file and releases resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: WAL checkpoint on close failed (non-fatal): %v", err)
	}
	return s.db.Close()
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE id = ?", id).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return count > 0, nil
}

func errIfNoRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// scanner abstracts over *sql.Row and *sql.Rows so the same scan logic
// serves both Get (single row) and List/search (many rows).
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (*types.Memory, error) {
	return scanMemoryRow(row)
}

func scanMemoryRow(row scanner) (*types.Memory, error) {
	var m types.Memory
	var tagsJSON, entitiesJSON, metadataJSON sql.NullString
	var sourceHook, derivedFromID, projectID, sessionID, embeddingModel sql.NullString
	var decayUpdatedAt, deletedAt sql.NullTime

	err := row.Scan(
		&m.ID, &m.Kind, &m.Title, &m.Content, &m.Summary, &tagsJSON,
		&m.Source, &sourceHook, &derivedFromID,
		&m.Scope, &projectID, &sessionID,
		&m.Importance, &m.Status, &m.Privacy, &m.Verification,
		&m.CreatedBy, &m.CreatedAt, &m.UpdatedAt, &m.AccessedAt,
		&m.AccessCount, &m.DecayScore, &decayUpdatedAt,
		&embeddingModel, &m.EmbeddingDimension,
		&entitiesJSON, &metadataJSON, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if entitiesJSON.Valid && entitiesJSON.String != "" {
		if err := json.Unmarshal([]byte(entitiesJSON.String), &m.Entities); err != nil {
			return nil, fmt.Errorf("unmarshal entities: %w", err)
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &m.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if sourceHook.Valid {
		m.SourceHook = sourceHook.String
	}
	if derivedFromID.Valid {
		m.DerivedFromID = derivedFromID.String
	}
	if projectID.Valid {
		m.ProjectID = projectID.String
	}
	if sessionID.Valid {
		m.SessionID = sessionID.String
	}
	if embeddingModel.Valid {
		m.EmbeddingModel = embeddingModel.String
	}
	if decayUpdatedAt.Valid {
		t := decayUpdatedAt.Time
		m.DecayUpdatedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}

	return &m, nil
}

func marshalOrNil(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]interface{}:
		if len(val) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullableBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// dbPathFromDSN extracts the filesystem path from a SQLite DSN. Handles bare
// paths and file: URIs; returns "" for in-memory databases.
func dbPathFromDSN(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return ""
	}
	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		if path == ":memory:" {
			return ""
		}
		return path
	}
	return dsn
}

func isRecoverableWALError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "disk I/O error") || strings.Contains(msg, "database is locked")
}

func isWALStale(dbPath string) bool {
	shmPath := dbPath + "-shm"
	walPath := dbPath + "-wal"
	if !fileExists(shmPath) && !fileExists(walPath) {
		return false
	}

	lsofPath, err := exec.LookPath("lsof")
	if err != nil {
		return false
	}

	cmd := exec.Command(lsofPath, "-t", dbPath, shmPath, walPath)
	output, err := cmd.Output()
	if err != nil {
		return true
	}
	return strings.TrimSpace(string(output)) == ""
}

func removeStaleWAL(dbPath string) {
	for _, suffix := range []string{"-shm", "-wal"} {
		path := dbPath + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("sqlite: failed to remove stale %s: %v", path, err)
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
