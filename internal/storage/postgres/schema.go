package postgres

// Schema is the base PostgreSQL schema, applied idempotently on open. It
// mirrors the sqlite backend's memories/embeddings/relations tables so the
// two backends stay interchangeable behind storage.Backend, plus a tsvector
// column and trigger for full-text search.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id                  TEXT PRIMARY KEY,
	kind                TEXT NOT NULL,
	title               TEXT NOT NULL,
	content             TEXT NOT NULL,
	summary             TEXT NOT NULL DEFAULT '',
	tags                JSONB,
	source              TEXT NOT NULL DEFAULT 'manual',
	source_hook         TEXT,
	derived_from_id     TEXT,
	scope               TEXT NOT NULL DEFAULT 'global',
	project_id          TEXT,
	session_id          TEXT,
	importance          DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	status              TEXT NOT NULL DEFAULT 'active',
	privacy             TEXT NOT NULL DEFAULT 'private',
	verification        TEXT NOT NULL DEFAULT 'unverified',
	created_by          TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL,
	accessed_at         TIMESTAMPTZ NOT NULL,
	access_count        INTEGER NOT NULL DEFAULT 0,
	decay_score         DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	decay_updated_at    TIMESTAMPTZ,
	embedding_model     TEXT,
	embedding_dimension INTEGER NOT NULL DEFAULT 0,
	entities            JSONB,
	metadata            JSONB,
	deleted_at          TIMESTAMPTZ,
	content_tsv         TSVECTOR
);

CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_content_tsv ON memories USING GIN(content_tsv);

CREATE TABLE IF NOT EXISTS embeddings (
	memory_id  TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
	embedding  BYTEA NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS relations (
	id            TEXT PRIMARY KEY,
	source_id     TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_id     TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	relation_type TEXT NOT NULL,
	strength      DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(source_id, target_id, relation_type)
);

CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_id);
CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(source_id, relation_type);

CREATE OR REPLACE FUNCTION memories_tsv_update() RETURNS trigger AS $$
BEGIN
	NEW.content_tsv :=
		setweight(to_tsvector('english', coalesce(NEW.title, '')), 'A') ||
		setweight(to_tsvector('english', coalesce(NEW.content, '')), 'B');
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS memories_tsv_trigger ON memories;
CREATE TRIGGER memories_tsv_trigger BEFORE INSERT OR UPDATE OF title, content
	ON memories FOR EACH ROW EXECUTE FUNCTION memories_tsv_update();
`

// MigrationPgvector adds a pgvector column for accelerated ANN search, used
// only when the vector extension is available on the target server. The
// column width is fixed at 1536 dimensions; Open re-runs this migration on
// every start, and it is a no-op once applied.
const MigrationPgvector = `
ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS embedding_vec vector(1536);
CREATE INDEX IF NOT EXISTS idx_embeddings_vec_cosine ON embeddings
	USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100);
`
