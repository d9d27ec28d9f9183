// Package httphandler implements the JSON API driving adapter.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nclarke/newsdeck/internal/application"
	"github.com/nclarke/newsdeck/internal/domain/model"
	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// Handler is the JSON API driving adapter.
type Handler struct {
	sessions *application.SessionManager
	api      driven.NewsAPI
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(sessions *application.SessionManager, api driven.NewsAPI, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		api:      api,
		logger:   logger,
	}
}

// RegisterAPIRoutes registers the JSON API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/session", h.Session)
	mux.HandleFunc("GET /api/v1/articles", h.Articles)
	mux.HandleFunc("POST /api/v1/articles/{id}/interactions", h.RecordInteraction)
}

// Health returns a liveness indicator.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Session returns the derived session state projection.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSessionResponse(h.sessions.Session()))
}

// Articles proxies the filtered article listing from the news API.
// Requires an authenticated session.
func (h *Handler) Articles(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Session().Authenticated() {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filter := model.ArticleFilter{
		Category: r.URL.Query().Get("category"),
		Priority: r.URL.Query().Get("priority"),
	}
	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Skip = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	articles, err := h.api.ListArticles(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list articles", "error", err)
		writeError(w, http.StatusBadGateway, "upstream article service unavailable")
		return
	}

	resp := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, toArticleResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// interactionKinds are the values accepted by RecordInteraction.
var interactionKinds = map[string]bool{
	model.InteractionSave:  true,
	model.InteractionClick: true,
	model.InteractionShare: true,
}

// RecordInteraction forwards a save/click/share interaction to the news
// API. Requires an authenticated session.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Session().Authenticated() {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	var body InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !interactionKinds[body.InteractionType] {
		writeError(w, http.StatusBadRequest, "unknown interaction type")
		return
	}

	if err := h.api.RecordInteraction(r.Context(), id, body.InteractionType); err != nil {
		h.logger.Error("failed to record interaction", "article_id", id, "kind", body.InteractionType, "error", err)
		writeError(w, http.StatusBadGateway, "upstream article service unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
