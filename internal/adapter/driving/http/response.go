package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nclarke/newsdeck/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// UserResponse is the JSON representation of the authenticated user.
type UserResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// SessionResponse is the JSON projection of the session state.
type SessionResponse struct {
	State   string        `json:"state"`
	User    *UserResponse `json:"user,omitempty"`
	Message string        `json:"message,omitempty"`
}

// InteractionRequest is the body of the record-interaction endpoint.
type InteractionRequest struct {
	InteractionType string `json:"interaction_type"`
}

// ArticleResponse is the JSON representation of an article.
type ArticleResponse struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Source           string   `json:"source"`
	Summary          string   `json:"summary"`
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	KeyPoints        []string `json:"key_points"`
	ActionItems      []string `json:"action_items"`
	DatePublished    string   `json:"date_published,omitempty"`
	DateFound        string   `json:"date_found,omitempty"`
	IsArchived       bool     `json:"is_archived"`
	InteractionCount int      `json:"interaction_count"`
	SaveCount        int      `json:"save_count"`
	ClickCount       int      `json:"click_count"`
}

// toSessionResponse converts a session snapshot to its JSON representation.
func toSessionResponse(s model.Session) SessionResponse {
	resp := SessionResponse{
		State:   string(s.State),
		Message: s.Message,
	}
	if s.User != nil {
		resp.User = &UserResponse{
			ID:          s.User.ID,
			Email:       s.User.Email,
			FullName:    s.User.FullName,
			IsActive:    s.User.IsActive,
			IsSuperuser: s.User.IsSuperuser,
		}
	}
	return resp
}

// toArticleResponse converts a domain Article to its JSON representation.
func toArticleResponse(a model.Article) ArticleResponse {
	keyPoints := a.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	actionItems := a.ActionItems
	if actionItems == nil {
		actionItems = []string{}
	}

	resp := ArticleResponse{
		ID:               a.ID,
		Title:            a.Title,
		URL:              a.URL,
		Source:           a.Source,
		Summary:          a.Summary,
		Category:         a.Category,
		Priority:         a.Priority,
		KeyPoints:        keyPoints,
		ActionItems:      actionItems,
		IsArchived:       a.IsArchived,
		InteractionCount: a.InteractionCount,
		SaveCount:        a.SaveCount,
		ClickCount:       a.ClickCount,
	}
	if !a.DatePublished.IsZero() {
		resp.DatePublished = a.DatePublished.UTC().Format(time.RFC3339)
	}
	if !a.DateFound.IsZero() {
		resp.DateFound = a.DateFound.UTC().Format(time.RFC3339)
	}
	return resp
}
