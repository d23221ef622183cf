package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Rating bounds for feedback submissions.
const (
	MinRating = 1
	MaxRating = 5
)

// ErrRatingOutOfRange is returned when a feedback rating falls outside [1,5].
var ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")

// FeedbackEntry is a single user's rating of an event. The (UserID, EventID)
// pair is the composite key: at most one live entry exists per pair, and a
// resubmission replaces the prior rating, comment and timestamp.
type FeedbackEntry struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Rating    int       `json:"rating"` // 1..5
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"` // creation or last-update time
}

// Validate checks the entry before any write is attempted.
func (f *FeedbackEntry) Validate() error {
	if f.UserID == "" {
		return errors.New("user id is required")
	}
	if f.EventID == "" {
		return errors.New("event id is required")
	}
	if f.Rating < MinRating || f.Rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrRatingOutOfRange, f.Rating)
	}
	return nil
}

// RatingSummary is the derived aggregate view for one event. It is computed
// on read, never stored. Average is nil when no entries exist: an unrated
// event must not render as zero stars.
type RatingSummary struct {
	Average *float64 `json:"average_rating"` // mean of all ratings, 2 decimals
	Count   int      `json:"rating_count"`
}

// NewRatingSummary computes the aggregate for a set of ratings.
func NewRatingSummary(ratings []int) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := RoundRating(float64(sum) / float64(len(ratings)))
	return RatingSummary{Average: &avg, Count: len(ratings)}
}

// RoundRating rounds a mean rating to two decimal places for display.
func RoundRating(v float64) float64 {
	return math.Round(v*100) / 100
}
