package postgres

import (
	"context"
	"database/sql"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/commonground/eventfinder/internal/storage"
)

// Ensure *VectorStore implements storage.EventVectorStore at compile time.
var _ storage.EventVectorStore = (*VectorStore)(nil)

// VectorStore implements storage.EventVectorStore on PostgreSQL + pgvector.
// It is the dense-embedding alternative to the in-process TF-IDF index: event
// vectors are produced by an external embedding model in inference-only mode
// (fixed weights), stored here, and ranked by cosine distance in SQL.
type VectorStore struct {
	db *sql.DB
}

// NewVectorStore creates a vector store over an existing connection.
// The caller is responsible for having verified pgvector availability
// (FeedbackStore.VectorBackendAvailable).
func NewVectorStore(db *sql.DB) *VectorStore {
	return &VectorStore{db: db}
}

// StoreVector stores or replaces the vector for an event.
func (s *VectorStore) StoreVector(ctx context.Context, eventID string, vector []float32, model string) error {
	if eventID == "" {
		return fmt.Errorf("%w: event ID is required", storage.ErrValidation)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: vector cannot be empty", storage.ErrValidation)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrValidation)
	}

	query := `
		INSERT INTO event_vectors (event_id, model, dimension, embedding_vec, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(event_id) DO UPDATE SET
			model = excluded.model,
			dimension = excluded.dimension,
			embedding_vec = excluded.embedding_vec,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		eventID, model, len(vector), pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("postgres: failed to store vector: %w", err)
	}
	return nil
}

// SimilarEvents returns up to limit event IDs ordered by descending cosine
// similarity to the query vector. pgvector's <=> operator is cosine distance,
// so similarity = 1 - distance and ascending distance order is descending
// similarity order.
func (s *VectorStore) SimilarEvents(ctx context.Context, query []float32, limit int) ([]storage.ScoredEvent, error) {
	if len(query) == 0 {
		return []storage.ScoredEvent{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	querySQL := `
		SELECT event_id, 1 - (embedding_vec <=> $1::vector) AS similarity
		FROM event_vectors
		WHERE embedding_vec IS NOT NULL
		ORDER BY embedding_vec <=> $1::vector, event_id
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, querySQL, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: vector query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []storage.ScoredEvent
	for rows.Next() {
		var scored storage.ScoredEvent
		if err := rows.Scan(&scored.EventID, &scored.Similarity); err != nil {
			return nil, fmt.Errorf("postgres: vector scan: %w", err)
		}
		out = append(out, scored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: vector rows: %w", err)
	}
	return out, nil
}

// DeleteVector removes the vector for an event.
func (s *VectorStore) DeleteVector(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("%w: event ID is required", storage.ErrValidation)
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM event_vectors WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete vector: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
