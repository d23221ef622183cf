// Package engine coordinates the recommendation pipeline: query expansion,
// similarity scoring, filtering and ranking, and feedback decoration.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/commonground/eventfinder/internal/corpus"
	"github.com/commonground/eventfinder/internal/expand"
	"github.com/commonground/eventfinder/internal/index"
	"github.com/commonground/eventfinder/internal/rank"
	"github.com/commonground/eventfinder/internal/storage"
	"github.com/commonground/eventfinder/pkg/types"
)

// Config tunes engine behavior.
type Config struct {
	// DefaultLimit is the top-K used when a request does not set one.
	DefaultLimit int

	// MaxLimit caps the top-K a request may ask for.
	MaxLimit int

	// CacheSize is the number of ranked result sets kept in the LRU cache.
	CacheSize int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 10,
		MaxLimit:     100,
		CacheSize:    256,
	}
}

// degradedReporter is implemented by feedback stores that can fail over to a
// non-durable fallback (the resilient wrapper).
type degradedReporter interface {
	Degraded() bool
}

// Engine is the in-process recommendation core. It owns the corpus and index
// handles and decorates ranked results with community feedback aggregates.
type Engine struct {
	corpus   *corpus.Handle
	index    *index.Handle
	expander *expand.Expander
	feedback storage.FeedbackStore
	cfg      Config

	// cache holds ranked (pre-decoration) result sets keyed by corpus
	// version + request. Feedback aggregates are never cached; they must be
	// fresh on every read.
	cache *lru.Cache[string, []rank.Result]
}

// New builds an engine over an already-loaded corpus. Index build failures
// abort construction: the pipeline never starts with a partial index.
func New(corpusHandle *corpus.Handle, expander *expand.Expander, feedback storage.FeedbackStore, cfg Config) (*Engine, error) {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}

	cache, err := lru.New[string, []rank.Result](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to create result cache: %w", err)
	}

	e := &Engine{
		corpus:   corpusHandle,
		index:    index.NewHandle(corpusHandle),
		expander: expander,
		feedback: feedback,
		cfg:      cfg,
		cache:    cache,
	}

	// A corpus rebuild invalidates every cached ranking.
	corpusHandle.OnRebuild(func() { e.cache.Purge() })

	return e, nil
}

// Request is one recommendation query.
type Request struct {
	Query   string
	Mood    string
	ZIP     string
	Weather string
	Limit   int

	// IncludeStale keeps events dated in stale years. Off by default.
	IncludeStale bool
}

// Recommendation is one ranked result decorated for the presentation layer.
type Recommendation struct {
	Event           types.EventRecord `json:"event"`
	Relevance       float64           `json:"relevance"`
	CommunityRating *float64          `json:"community_rating"` // nil when unrated
	RatingCount     int               `json:"rating_count"`
}

// Response carries ranked results plus operational signals.
type Response struct {
	Results []Recommendation `json:"results"`

	// Degraded is true when feedback aggregates are being served from the
	// non-durable in-memory fallback.
	Degraded bool `json:"degraded,omitempty"`
}

// Recommend runs the full pipeline. An empty query short-circuits before any
// index work and returns no results; it is not an error.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return &Response{Results: []Recommendation{}, Degraded: e.isDegraded()}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	filters := rank.Filters{
		Mood:         req.Mood,
		ZIPPrefix:    strings.TrimSpace(req.ZIP),
		Weather:      strings.TrimSpace(req.Weather),
		ExcludeStale: !req.IncludeStale,
	}

	key := e.cacheKey(req, limit)
	ranked, ok := e.cache.Get(key)
	if !ok {
		expanded := e.expander.Expand(req.Query)
		scores := e.index.Get().Score(expanded)
		ranked = rank.Rank(e.corpus.Records(), scores, filters, limit)
		e.cache.Add(key, ranked)
	}

	results, err := e.decorate(ctx, ranked)
	if err != nil {
		return nil, err
	}
	return &Response{Results: results, Degraded: e.isDegraded()}, nil
}

// SubmitFeedback validates and persists a rating, returning the stored entry
// for optimistic UI update plus the degraded-mode signal.
func (e *Engine) SubmitFeedback(ctx context.Context, userID, eventID string, rating int, comment string) (*types.FeedbackEntry, bool, error) {
	if _, err := e.corpus.Lookup(eventID); err != nil {
		return nil, e.isDegraded(), fmt.Errorf("%w: unknown event %s", storage.ErrValidation, eventID)
	}

	// Stamp here so the acknowledged entry carries the time regardless of
	// which backend stores it.
	entry := &types.FeedbackEntry{
		UserID:    userID,
		EventID:   eventID,
		Rating:    rating,
		Comment:   comment,
		Timestamp: time.Now().UTC(),
	}
	if err := e.feedback.Upsert(ctx, entry); err != nil {
		return nil, e.isDegraded(), err
	}
	return entry, e.isDegraded(), nil
}

// History returns a user's feedback entries, newest first.
func (e *Engine) History(ctx context.Context, userID string) ([]types.FeedbackEntry, error) {
	return e.feedback.History(ctx, userID)
}

// Lookup returns an event by id, decorated with its rating aggregate.
func (e *Engine) Lookup(ctx context.Context, eventID string) (*Recommendation, error) {
	event, err := e.corpus.Lookup(eventID)
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{Event: *event}
	summary, err := e.feedback.Summary(ctx, []string{eventID})
	if err != nil {
		return nil, err
	}
	if agg, ok := summary[eventID]; ok {
		rec.CommunityRating = agg.Average
		rec.RatingCount = agg.Count
	}
	return rec, nil
}

// Rebuild reloads the corpus from its source. The index and result cache
// invalidate via the corpus version; a failed reload keeps the old corpus.
func (e *Engine) Rebuild(ctx context.Context) error {
	return e.corpus.Rebuild(ctx)
}

// CorpusSize returns the number of events currently loaded.
func (e *Engine) CorpusSize() int {
	return e.corpus.Size()
}

// decorate attaches fresh feedback aggregates to ranked results.
func (e *Engine) decorate(ctx context.Context, ranked []rank.Result) ([]Recommendation, error) {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Event.ID
	}

	summary, err := e.feedback.Summary(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to load rating aggregates: %w", err)
	}

	results := make([]Recommendation, len(ranked))
	for i, r := range ranked {
		rec := Recommendation{Event: r.Event, Relevance: r.Relevance}
		if agg, ok := summary[r.Event.ID]; ok {
			rec.CommunityRating = agg.Average
			rec.RatingCount = agg.Count
		}
		results[i] = rec
	}
	return results, nil
}

func (e *Engine) isDegraded() bool {
	if dr, ok := e.feedback.(degradedReporter); ok {
		return dr.Degraded()
	}
	return false
}

func (e *Engine) cacheKey(req Request, limit int) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%d|%t",
		e.corpus.Version(), strings.ToLower(strings.TrimSpace(req.Query)),
		strings.ToLower(req.Mood), req.ZIP, strings.ToLower(req.Weather),
		limit, req.IncludeStale)
}
