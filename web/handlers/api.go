package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/commonground/eventfinder/internal/config"
	"github.com/commonground/eventfinder/internal/corpus"
	"github.com/commonground/eventfinder/internal/engine"
	"github.com/commonground/eventfinder/internal/storage"
)

// StoreHealthReporter is implemented by feedback stores that can report
// their availability, such as the circuit-breaker-wrapped store.
type StoreHealthReporter interface {
	Degraded() bool
	BreakerState() string
}

// APIHandlers contains HTTP handlers for the REST API.
type APIHandlers struct {
	engine *engine.Engine
	config *config.Config
	health StoreHealthReporter // optional
	hub    *ActivityHub        // optional
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(eng *engine.Engine, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		engine: eng,
		config: cfg,
	}
}

// SetHealthReporter wires a store health reporter for /api/stats.
func (h *APIHandlers) SetHealthReporter(reporter StoreHealthReporter) {
	h.health = reporter
}

// SetHub wires an activity hub for broadcasting feedback submissions.
func (h *APIHandlers) SetHub(hub *ActivityHub) {
	h.hub = hub
}

// GetRecommendations handles GET /api/recommendations - ranked event search.
// Query parameters: q (required for results), mood, zip, weather, limit,
// include_stale.
func (h *APIHandlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := engine.Request{
		Query:        q.Get("q"),
		Mood:         q.Get("mood"),
		ZIP:          q.Get("zip"),
		Weather:      q.Get("weather"),
		Limit:        parseInt(q.Get("limit"), 0),
		IncludeStale: parseBool(q.Get("include_stale")),
	}

	resp, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to rank events", err)
		return
	}

	respondJSON(w, http.StatusOK, RecommendationsResponse{
		Results:  resp.Results,
		Total:    len(resp.Results),
		Query:    req.Query,
		Degraded: resp.Degraded,
	})
}

// SubmitFeedback handles POST /api/feedback - store a rating for an event.
// Anonymous submissions get a server-minted user ID, returned in the stored
// entry so the client can keep it for follow-up submissions.
func (h *APIHandlers) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}

	if req.EventID == "" {
		respondError(w, http.StatusBadRequest, "event_id is required", nil)
		return
	}
	if req.UserID == "" {
		req.UserID = generateUserID()
	}

	entry, degraded, err := h.engine.SubmitFeedback(r.Context(), req.UserID, req.EventID, req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, storage.ErrValidation) {
			respondError(w, http.StatusBadRequest, "invalid feedback", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to store feedback", err)
		return
	}

	if h.hub != nil {
		h.hub.Publish(NewFeedbackActivity(entry.EventID, entry.Rating))
	}

	respondJSON(w, http.StatusCreated, FeedbackResponse{Entry: entry, Degraded: degraded})
}

// GetHistory handles GET /api/feedback/history - a user's ratings, newest first.
func (h *APIHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user is required", nil)
		return
	}

	entries, err := h.engine.History(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		UserID:  userID,
		Entries: entries,
		Total:   len(entries),
	})
}

// GetEvent handles GET /api/events/{id} - a single event with its community rating.
func (h *APIHandlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "event ID is required", nil)
		return
	}

	rec, err := h.engine.Lookup(r.Context(), id)
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			respondError(w, http.StatusNotFound, "event not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get event", err)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// GetStats handles GET /api/stats - corpus size and store health.
func (h *APIHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := StatsResponse{
		Events: h.engine.CorpusSize(),
	}
	if h.health != nil {
		stats.Degraded = h.health.Degraded()
		stats.BreakerState = h.health.BreakerState()
	}
	respondJSON(w, http.StatusOK, stats)
}

// Helper functions

// extractID extracts a path parameter from the request.
func extractID(r *http.Request, key string) string {
	return r.PathValue(key)
}

// parseInt parses an integer from a string, returning defaultValue if parsing fails.
func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return val
}

// parseBool parses a boolean query parameter; anything but true/1/yes is false.
func parseBool(s string) bool {
	switch s {
	case "true", "1", "yes":
		return true
	}
	return false
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// If encoding fails, log but don't try to write another response
		// (headers already sent)
		fmt.Printf("failed to encode JSON response: %v\n", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

// generateUserID mints an ID for anonymous feedback in the format user:uuid.
func generateUserID() string {
	return fmt.Sprintf("user:%s", uuid.New().String()[:8])
}
