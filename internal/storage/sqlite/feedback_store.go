// Package sqlite provides the SQLite implementation of the feedback store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/commonground/eventfinder/internal/storage"
	"github.com/commonground/eventfinder/pkg/types"
)

// Ensure *FeedbackStore implements storage.FeedbackStore at compile time.
var _ storage.FeedbackStore = (*FeedbackStore)(nil)

// FeedbackStore implements storage.FeedbackStore using SQLite.
type FeedbackStore struct {
	db *sql.DB
}

// NewFeedbackStore opens a SQLite database, configures WAL mode, and creates
// the schema.
func NewFeedbackStore(dsn string) (*FeedbackStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load, which also makes the read-modify-write of an upsert a
	// critical section: interleaved submissions cannot lose updates. WAL mode
	// lets concurrent readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout so that callers wait instead of getting an immediate
	// SQLITE_BUSY error when the connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &FeedbackStore{db: db}, nil
}

// GetDB exposes the underlying connection for tests and stats reporting.
func (s *FeedbackStore) GetDB() *sql.DB {
	return s.db
}

// Upsert creates or replaces the entry for (entry.UserID, entry.EventID).
func (s *FeedbackStore) Upsert(ctx context.Context, entry *types.FeedbackEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is required", storage.ErrValidation)
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO feedback (user_id, event_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, event_id) DO UPDATE SET
			rating = excluded.rating,
			comment = excluded.comment,
			created_at = excluded.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.UserID, entry.EventID, entry.Rating, entry.Comment, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return nil
}

// Get retrieves the live entry for a (user, event) pair.
func (s *FeedbackStore) Get(ctx context.Context, userID, eventID string) (*types.FeedbackEntry, error) {
	query := `
		SELECT user_id, event_id, rating, comment, created_at
		FROM feedback
		WHERE user_id = ? AND event_id = ?
	`

	var entry types.FeedbackEntry
	err := s.db.QueryRowContext(ctx, query, userID, eventID).Scan(
		&entry.UserID, &entry.EventID, &entry.Rating, &entry.Comment, &entry.Timestamp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return &entry, nil
}

// Average returns the mean rating for an event rounded to two decimals, or
// nil when the event has no entries.
func (s *FeedbackStore) Average(ctx context.Context, eventID string) (*float64, error) {
	query := `SELECT AVG(rating), COUNT(*) FROM feedback WHERE event_id = ?`

	var avg sql.NullFloat64
	var count int
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&avg, &count); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if count == 0 || !avg.Valid {
		return nil, nil
	}
	rounded := types.RoundRating(avg.Float64)
	return &rounded, nil
}

// Count returns the number of live entries for an event.
func (s *FeedbackStore) Count(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return count, nil
}

// Summary returns aggregates for a batch of event IDs in one query.
func (s *FeedbackStore) Summary(ctx context.Context, eventIDs []string) (map[string]types.RatingSummary, error) {
	out := make(map[string]types.RatingSummary, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	query := `SELECT event_id, AVG(rating), COUNT(*) FROM feedback WHERE event_id IN (`
	args := make([]interface{}, len(eventIDs))
	for i, id := range eventIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += `) GROUP BY event_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var eventID string
		var avg float64
		var count int
		if err := rows.Scan(&eventID, &avg, &count); err != nil {
			return nil, fmt.Errorf("summary scan: %w", err)
		}
		rounded := types.RoundRating(avg)
		out[eventID] = types.RatingSummary{Average: &rounded, Count: count}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary rows: %w", err)
	}
	return out, nil
}

// History returns all of a user's entries, newest first.
func (s *FeedbackStore) History(ctx context.Context, userID string) ([]types.FeedbackEntry, error) {
	query := `
		SELECT user_id, event_id, rating, comment, created_at
		FROM feedback
		WHERE user_id = ?
		ORDER BY created_at DESC, event_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.FeedbackEntry
	for rows.Next() {
		var entry types.FeedbackEntry
		if err := rows.Scan(&entry.UserID, &entry.EventID, &entry.Rating,
			&entry.Comment, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *FeedbackStore) Close() error {
	return s.db.Close()
}
