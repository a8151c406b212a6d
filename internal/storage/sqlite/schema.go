package sqlite

// Schema is the full SQLite schema, applied idempotently on open. It covers
// memories, their vector embeddings, typed relations between them, and an
// FTS5 virtual table kept in sync via triggers.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id                  TEXT PRIMARY KEY,
	kind                TEXT NOT NULL,
	title               TEXT NOT NULL,
	content             TEXT NOT NULL,
	summary             TEXT NOT NULL DEFAULT '',
	tags                TEXT,
	source              TEXT NOT NULL DEFAULT 'manual',
	source_hook         TEXT,
	derived_from_id     TEXT,
	scope               TEXT NOT NULL DEFAULT 'global',
	project_id          TEXT,
	session_id          TEXT,
	importance          REAL NOT NULL DEFAULT 0.5,
	status              TEXT NOT NULL DEFAULT 'active',
	privacy             TEXT NOT NULL DEFAULT 'private',
	verification        TEXT NOT NULL DEFAULT 'unverified',
	created_by          TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMP NOT NULL,
	updated_at          TIMESTAMP NOT NULL,
	accessed_at         TIMESTAMP NOT NULL,
	access_count        INTEGER NOT NULL DEFAULT 0,
	decay_score         REAL NOT NULL DEFAULT 1.0,
	decay_updated_at    TIMESTAMP,
	embedding_model     TEXT,
	embedding_dimension INTEGER NOT NULL DEFAULT 0,
	entities            TEXT,
	metadata            TEXT,
	deleted_at          TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);

CREATE TABLE IF NOT EXISTS embeddings (
	memory_id  TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS relations (
	id            TEXT PRIMARY KEY,
	source_id     TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	target_id     TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	relation_type TEXT NOT NULL,
	strength      REAL NOT NULL DEFAULT 0.5,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(source_id, target_id, relation_type)
);

CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_id);
CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(source_id, relation_type);

CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
	title, content, tags,
	content='memories',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS memories_fts_insert AFTER INSERT ON memories BEGIN
	INSERT INTO memories_fts(rowid, title, content, tags) VALUES (new.rowid, new.title, new.content, new.tags);
END;

CREATE TRIGGER IF NOT EXISTS memories_fts_delete AFTER DELETE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, title, content, tags) VALUES ('delete', old.rowid, old.title, old.content, old.tags);
END;

CREATE TRIGGER IF NOT EXISTS memories_fts_update AFTER UPDATE ON memories BEGIN
	INSERT INTO memories_fts(memories_fts, rowid, title, content, tags) VALUES ('delete', old.rowid, old.title, old.content, old.tags);
	INSERT INTO memories_fts(rowid, title, content, tags) VALUES (new.rowid, new.title, new.content, new.tags);
END;
`
