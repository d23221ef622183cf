// Package memory provides an in-memory FeedbackStore. It backs tests and is
// the non-durable fallback the resilient wrapper fails over to when the
// primary backend degrades. Data is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/commonground/eventfinder/internal/storage"
	"github.com/commonground/eventfinder/pkg/types"
)

// FeedbackStore implements storage.FeedbackStore with a mutex-guarded map.
type FeedbackStore struct {
	mu      sync.RWMutex
	entries map[feedbackKey]types.FeedbackEntry
}

type feedbackKey struct {
	userID  string
	eventID string
}

// NewFeedbackStore creates an empty in-memory feedback store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{entries: make(map[feedbackKey]types.FeedbackEntry)}
}

// Upsert creates or replaces the entry for (entry.UserID, entry.EventID).
func (s *FeedbackStore) Upsert(ctx context.Context, entry *types.FeedbackEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is required", storage.ErrValidation)
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	stored := *entry
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.entries[feedbackKey{entry.UserID, entry.EventID}] = stored
	s.mu.Unlock()
	return nil
}

// Get retrieves the live entry for a (user, event) pair.
func (s *FeedbackStore) Get(ctx context.Context, userID, eventID string) (*types.FeedbackEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[feedbackKey{userID, eventID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := entry
	return &out, nil
}

// Average returns the mean rating for an event, or nil when unrated.
func (s *FeedbackStore) Average(ctx context.Context, eventID string) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratingsFor(eventID).Average, nil
}

// Count returns the number of live entries for an event.
func (s *FeedbackStore) Count(ctx context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ratingsFor(eventID).Count, nil
}

// Summary returns aggregates for a batch of event IDs.
func (s *FeedbackStore) Summary(ctx context.Context, eventIDs []string) (map[string]types.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]types.RatingSummary, len(eventIDs))
	for _, id := range eventIDs {
		summary := s.ratingsFor(id)
		if summary.Count > 0 {
			out[id] = summary
		}
	}
	return out, nil
}

// History returns all entries for a user, newest first.
func (s *FeedbackStore) History(ctx context.Context, userID string) ([]types.FeedbackEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.FeedbackEntry
	for key, entry := range s.entries {
		if key.userID == userID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].EventID < out[j].EventID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *FeedbackStore) Close() error { return nil }

// ratingsFor collects the aggregate for one event. Caller holds the lock.
func (s *FeedbackStore) ratingsFor(eventID string) types.RatingSummary {
	var ratings []int
	for key, entry := range s.entries {
		if key.eventID == eventID {
			ratings = append(ratings, entry.Rating)
		}
	}
	return types.NewRatingSummary(ratings)
}
