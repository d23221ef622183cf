// Package corpus normalizes raw event rows into immutable EventRecords with
// derived search text and stable content-derived identifiers.
//
// A build is a pure, deterministic transform: the same input rows always
// produce the same records in the same order. Records are never mutated or
// deleted individually; a rebuild replaces the whole corpus.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/commonground/eventfinder/pkg/types"
)

var (
	// ErrLoad indicates the corpus source was unreadable or missing required
	// fields. Fatal to that build attempt; a load failure never silently
	// produces an empty corpus.
	ErrLoad = errors.New("corpus load failed")

	// ErrNotFound indicates no event exists for the given id.
	ErrNotFound = errors.New("event not found")
)

// RawRow is one source row: named fields mapped to string-or-empty values.
type RawRow map[string]string

// Source supplies raw rows for a corpus build.
type Source interface {
	Rows(ctx context.Context) ([]RawRow, error)
}

// StaticSource serves a fixed set of rows. Used by tests and embedded corpora.
type StaticSource []RawRow

// Rows returns the fixed row set.
func (s StaticSource) Rows(ctx context.Context) ([]RawRow, error) {
	return s, nil
}

// Build normalizes raw rows into EventRecords, preserving input order.
// Rows lacking both a title and a description are skipped: there is no
// content to hash an identity from.
func Build(rows []RawRow) []types.EventRecord {
	records := make([]types.EventRecord, 0, len(rows))
	for _, row := range rows {
		rec := types.EventRecord{
			Title:        normalizeField(row["title"]),
			Description:  normalizeField(row["description"]),
			Organization: normalizeField(row["organization"]),
			Location:     normalizeField(row["location"]),
			Date:         normalizeField(row["date"]),
			Theme:        normalizeField(row["theme"]),
			Activity:     normalizeField(row["activity"]),
			Effort:       normalizeField(row["effort"]),
			Mood:         normalizeField(row["mood"]),
			Weather:      normalizeField(row["weather"]),
			Postcode:     normalizeField(row["postcode"]),
		}
		if rec.Title == "" && rec.Description == "" {
			continue
		}
		rec.ID = types.EventID(rec.Title, rec.Description)
		rec.Mood = rec.InferMood()
		rec.BuildSearchText()
		records = append(records, rec)
	}
	return records
}

// nullSentinels are upstream placeholder values that must normalize to ""
// so they never leak into displayed text.
var nullSentinels = map[string]bool{
	"nan": true, "null": true, "none": true, "n/a": true, "na": true,
}

func normalizeField(v string) string {
	v = strings.TrimSpace(v)
	if nullSentinels[strings.ToLower(v)] {
		return ""
	}
	return v
}

// Handle is the explicit lifecycle object for a loaded corpus. It is built
// once from its source and rebuilt only on request, never implicitly.
type Handle struct {
	source Source

	mu      sync.RWMutex
	records []types.EventRecord
	byID    map[string]int
	version uint64

	cbMu      sync.Mutex
	onRebuild []func()
}

// NewHandle loads the source and builds the corpus. A load failure aborts
// construction.
func NewHandle(ctx context.Context, source Source) (*Handle, error) {
	h := &Handle{source: source}
	if err := h.Rebuild(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Rebuild re-reads the source and swaps in the new corpus. On failure the
// previous corpus stays in place and the error is returned.
func (h *Handle) Rebuild(ctx context.Context) error {
	rows, err := h.source.Rows(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}

	records := Build(rows)
	if len(records) == 0 {
		return fmt.Errorf("%w: source produced no usable events", ErrLoad)
	}

	byID := make(map[string]int, len(records))
	for i := range records {
		// Identical title+description rows collide to the same id and the
		// first occurrence wins; they are the same logical event.
		if _, ok := byID[records[i].ID]; !ok {
			byID[records[i].ID] = i
		}
	}

	h.mu.Lock()
	h.records = records
	h.byID = byID
	h.version++
	h.mu.Unlock()

	h.cbMu.Lock()
	callbacks := append([]func(){}, h.onRebuild...)
	h.cbMu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// Records returns the current corpus in input order. The returned slice must
// not be mutated.
func (h *Handle) Records() []types.EventRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.records
}

// Lookup returns the event for an id, or ErrNotFound.
func (h *Handle) Lookup(id string) (*types.EventRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	idx, ok := h.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := h.records[idx]
	return &rec, nil
}

// Size returns the number of events in the current corpus.
func (h *Handle) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Version increments on every successful rebuild. Consumers that cache
// derived structures (the similarity index, result caches) key on it.
func (h *Handle) Version() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

// OnRebuild registers a callback invoked after every successful rebuild.
func (h *Handle) OnRebuild(fn func()) {
	h.cbMu.Lock()
	h.onRebuild = append(h.onRebuild, fn)
	h.cbMu.Unlock()
}
