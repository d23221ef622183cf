package sqlite

// Schema contains the SQL statements to create the feedback database schema.
// The UNIQUE(user_id, event_id) constraint is what gives Upsert its
// replace-by-key semantics via ON CONFLICT.
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
`
