// Package storage defines the persistence interfaces for the eventfinder
// feedback subsystem.
//
// The feedback store keeps one live entry per (user, event) pair and serves
// the derived per-event aggregates. Backends implement the same upsert
// semantics over a fixed five-column schema (user, event_id, rating, comment,
// timestamp) so they stay interchangeable.
package storage

import (
	"context"

	"github.com/commonground/eventfinder/pkg/types"
)

// FeedbackStore persists user ratings and serves per-event aggregates.
type FeedbackStore interface {
	// Upsert creates or replaces the entry for (entry.UserID, entry.EventID).
	// A resubmission replaces the prior rating, comment and timestamp; the
	// event's rating count does not grow. Returns ErrValidation for a rating
	// outside [1,5] or a malformed key, before any write.
	Upsert(ctx context.Context, entry *types.FeedbackEntry) error

	// Get retrieves the live entry for a (user, event) pair.
	// Returns ErrNotFound if no entry exists.
	Get(ctx context.Context, userID, eventID string) (*types.FeedbackEntry, error)

	// Average returns the mean rating for an event rounded to two decimals,
	// or nil when the event has no entries. An unrated event is nil, not 0.
	Average(ctx context.Context, eventID string) (*float64, error)

	// Count returns the number of live entries for an event.
	Count(ctx context.Context, eventID string) (int, error)

	// Summary returns aggregates for a batch of event IDs in one call.
	// Events without entries are absent from the returned map.
	Summary(ctx context.Context, eventIDs []string) (map[string]types.RatingSummary, error)

	// History returns all of a user's entries, reverse-chronological.
	History(ctx context.Context, userID string) ([]types.FeedbackEntry, error)

	// Close releases any resources held by the store.
	Close() error
}

// EventVectorStore persists fixed-dimension event vectors for backends that
// rank with externally produced embeddings instead of the in-process TF-IDF
// index. Cosine ordering must be reproducible for a fixed vector set.
type EventVectorStore interface {
	// StoreVector stores (or replaces) the vector for an event.
	StoreVector(ctx context.Context, eventID string, vector []float32, model string) error

	// SimilarEvents returns up to limit event IDs ordered by descending
	// cosine similarity to the query vector.
	SimilarEvents(ctx context.Context, query []float32, limit int) ([]ScoredEvent, error)

	// DeleteVector removes the vector for an event.
	// Returns ErrNotFound if no vector is stored.
	DeleteVector(ctx context.Context, eventID string) error
}

// ScoredEvent pairs an event ID with a similarity score.
type ScoredEvent struct {
	EventID    string
	Similarity float64
}
