package handlers

import (
	"github.com/commonground/eventfinder/internal/engine"
	"github.com/commonground/eventfinder/pkg/types"
)

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RecommendationsResponse is the response format for GET /api/recommendations.
type RecommendationsResponse struct {
	Results  []engine.Recommendation `json:"results"`
	Total    int                     `json:"total"`
	Query    string                  `json:"query"`
	Degraded bool                    `json:"degraded,omitempty"`
}

// FeedbackRequest is the request body for POST /api/feedback.
type FeedbackRequest struct {
	UserID  string `json:"user_id,omitempty"` // minted server-side when empty
	EventID string `json:"event_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// FeedbackResponse is the response format for POST /api/feedback.
type FeedbackResponse struct {
	Entry    *types.FeedbackEntry `json:"entry"`
	Degraded bool                 `json:"degraded,omitempty"`
}

// HistoryResponse is the response format for GET /api/feedback/history.
type HistoryResponse struct {
	UserID  string                `json:"user_id"`
	Entries []types.FeedbackEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// StatsResponse is the response format for GET /api/stats.
type StatsResponse struct {
	Events       int    `json:"events"`
	Degraded     bool   `json:"degraded"`
	BreakerState string `json:"breaker_state,omitempty"`
}
