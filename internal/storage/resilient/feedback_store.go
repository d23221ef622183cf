// Package resilient wraps a FeedbackStore with a circuit breaker and an
// in-memory fallback.
//
// Persistence-layer errors must not crash the caller: after repeated backend
// failures the breaker trips and the store degrades to an in-memory fallback
// for the remainder of the process. Fallback data is explicitly non-durable;
// the degradation is logged exactly once per event and stays visible through
// Degraded() so callers can inform users instead of silently trusting it.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/commonground/eventfinder/internal/storage"
	"github.com/commonground/eventfinder/internal/storage/memory"
	"github.com/commonground/eventfinder/pkg/types"
)

// Ensure *FeedbackStore implements storage.FeedbackStore at compile time.
var _ storage.FeedbackStore = (*FeedbackStore)(nil)

// Config holds the circuit breaker configuration.
type Config struct {
	// MaxFailures is the number of consecutive failures required to trip the
	// circuit. Default: 3
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning to
	// half-open. Default: 30 seconds
	Timeout time.Duration

	// OnDegrade is invoked once per degradation event (optional).
	OnDegrade func()
}

// FeedbackStore routes operations to the primary backend until the breaker
// trips, then serves the in-memory fallback for the rest of the process.
type FeedbackStore struct {
	primary  storage.FeedbackStore
	fallback *memory.FeedbackStore
	breaker  *gobreaker.CircuitBreaker
	degraded atomic.Bool
	warnOnce sync.Once
	cfg      Config
}

// New wraps primary with breaker protection and a fresh in-memory fallback.
func New(primary storage.FeedbackStore, cfg Config) *FeedbackStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &FeedbackStore{
		primary:  primary,
		fallback: memory.NewFeedbackStore(),
		cfg:      cfg,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "FeedbackStoreBreaker",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Validation failures are the caller's fault, not the backend's; they
		// must not count toward tripping the circuit.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, storage.ErrValidation)
		},
	})

	return s
}

// Degraded reports whether the store is serving from the non-durable
// in-memory fallback.
func (s *FeedbackStore) Degraded() bool {
	return s.degraded.Load()
}

// BreakerState returns the current breaker state: "closed", "open" or
// "half-open".
func (s *FeedbackStore) BreakerState() string {
	switch s.breaker.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// execute runs fn through the breaker unless already degraded. Transient
// failures surface to the caller while the breaker counts them; only an open
// circuit flips the store into degraded mode.
func (s *FeedbackStore) execute(fn func() (interface{}, error)) (interface{}, bool, error) {
	if s.degraded.Load() {
		return nil, true, nil
	}

	result, err := s.breaker.Execute(fn)
	if err == nil {
		return result, false, nil
	}
	if errors.Is(err, storage.ErrValidation) {
		return nil, false, err
	}

	// ErrOpenState means the circuit was already open when we arrived; a
	// StateOpen check after a failure catches the failure that tripped it.
	if errors.Is(err, gobreaker.ErrOpenState) || s.breaker.State() == gobreaker.StateOpen {
		s.degrade(err)
		return nil, true, nil
	}
	return nil, false, err
}

// degrade switches to the fallback store, warning exactly once.
func (s *FeedbackStore) degrade(cause error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.warnOnce.Do(func() {
			log.Printf("resilient: feedback backend unavailable, degrading to in-memory store (data will not survive restart): %v", cause)
			if s.cfg.OnDegrade != nil {
				s.cfg.OnDegrade()
			}
		})
	}
}

// Upsert writes to the primary backend, or the fallback once degraded.
func (s *FeedbackStore) Upsert(ctx context.Context, entry *types.FeedbackEntry) error {
	// Validate before touching any backend so bad input never trips the breaker.
	if entry == nil {
		return storage.ErrValidation
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	_, useFallback, err := s.execute(func() (interface{}, error) {
		return nil, s.primary.Upsert(ctx, entry)
	})
	if err != nil {
		return err
	}
	if useFallback {
		return s.fallback.Upsert(ctx, entry)
	}
	return nil
}

// Get reads from the primary backend, or the fallback once degraded.
func (s *FeedbackStore) Get(ctx context.Context, userID, eventID string) (*types.FeedbackEntry, error) {
	result, useFallback, err := s.execute(func() (interface{}, error) {
		entry, err := s.primary.Get(ctx, userID, eventID)
		if errors.Is(err, storage.ErrNotFound) {
			// A miss is a valid answer, not a backend failure.
			return (*types.FeedbackEntry)(nil), nil
		}
		return entry, err
	})
	if err != nil {
		return nil, err
	}
	if useFallback {
		return s.fallback.Get(ctx, userID, eventID)
	}
	entry := result.(*types.FeedbackEntry)
	if entry == nil {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

// Average returns the mean rating for an event, or nil when unrated.
func (s *FeedbackStore) Average(ctx context.Context, eventID string) (*float64, error) {
	result, useFallback, err := s.execute(func() (interface{}, error) {
		return s.primary.Average(ctx, eventID)
	})
	if err != nil {
		return nil, err
	}
	if useFallback {
		return s.fallback.Average(ctx, eventID)
	}
	if result == nil {
		return nil, nil
	}
	return result.(*float64), nil
}

// Count returns the number of live entries for an event.
func (s *FeedbackStore) Count(ctx context.Context, eventID string) (int, error) {
	result, useFallback, err := s.execute(func() (interface{}, error) {
		return s.primary.Count(ctx, eventID)
	})
	if err != nil {
		return 0, err
	}
	if useFallback {
		return s.fallback.Count(ctx, eventID)
	}
	return result.(int), nil
}

// Summary returns aggregates for a batch of event IDs.
func (s *FeedbackStore) Summary(ctx context.Context, eventIDs []string) (map[string]types.RatingSummary, error) {
	result, useFallback, err := s.execute(func() (interface{}, error) {
		return s.primary.Summary(ctx, eventIDs)
	})
	if err != nil {
		return nil, err
	}
	if useFallback {
		return s.fallback.Summary(ctx, eventIDs)
	}
	return result.(map[string]types.RatingSummary), nil
}

// History returns all of a user's entries, newest first.
func (s *FeedbackStore) History(ctx context.Context, userID string) ([]types.FeedbackEntry, error) {
	result, useFallback, err := s.execute(func() (interface{}, error) {
		return s.primary.History(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if useFallback {
		return s.fallback.History(ctx, userID)
	}
	return result.([]types.FeedbackEntry), nil
}

// Close closes the primary backend. The fallback holds no resources.
func (s *FeedbackStore) Close() error {
	return s.primary.Close()
}
