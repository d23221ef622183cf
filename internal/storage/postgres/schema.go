// Package postgres provides PostgreSQL implementations of storage interfaces.
package postgres

// Schema contains the SQL statements to create the feedback database schema
// for PostgreSQL. All statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS feedback (
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, event_id)
);

CREATE INDEX IF NOT EXISTS idx_feedback_event ON feedback(event_id);
CREATE INDEX IF NOT EXISTS idx_feedback_user ON feedback(user_id, created_at DESC);

-- Event vectors: fixed-dimension embeddings for the dense similarity backend.
-- The embedding_vec column is added separately once the pgvector extension
-- is confirmed available.
CREATE TABLE IF NOT EXISTS event_vectors (
    event_id TEXT PRIMARY KEY,
    model TEXT NOT NULL,
    dimension INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// MigrationVector adds the pgvector column. Applied only when the extension
// is present.
const MigrationVector = `
ALTER TABLE event_vectors ADD COLUMN IF NOT EXISTS embedding_vec vector;
`
