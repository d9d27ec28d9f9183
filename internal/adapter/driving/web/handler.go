// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/nclarke/newsdeck/internal/adapter/driving/web/templates"
	"github.com/nclarke/newsdeck/internal/adapter/driving/web/templates/pages"
	"github.com/nclarke/newsdeck/internal/adapter/driving/web/viewmodel"
	"github.com/nclarke/newsdeck/internal/application"
	"github.com/nclarke/newsdeck/internal/domain/model"
	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// listWindow is how many articles are fetched from the API per page view;
// search and pagination operate locally over this window.
const listWindow = 100

const appTitle = "AI News Aggregator"

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	sessions *application.SessionManager
	api      driven.NewsAPI
	perPage  int
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. perPage <= 0
// falls back to the default card grid size.
func NewHandler(sessions *application.SessionManager, api driven.NewsAPI, perPage int, logger *slog.Logger) *Handler {
	if perPage <= 0 {
		perPage = articlesPerPage
	}
	return &Handler{
		sessions: sessions,
		api:      api,
		perPage:  perPage,
		logger:   logger,
	}
}

// Articles renders the main article listing with filters and pagination.
// Unauthenticated visitors are redirected to the login page; a session
// whose last validation failed on transport gets one chance to heal here.
func (h *Handler) Articles(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Session()
	if sess.State == model.SessionErrored {
		sess = h.sessions.Validate(r.Context())
	}
	if !sess.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	category := q.Get("category")
	priority := q.Get("priority")
	search := q.Get("q")
	page, _ := strconv.Atoi(q.Get("page"))

	var notice string
	articles, err := h.api.ListArticles(r.Context(), model.ArticleFilter{
		Category: category,
		Priority: priority,
		Limit:    listWindow,
	})
	if err != nil {
		if errors.Is(err, driven.ErrUnauthorized) {
			// The token died mid-session; Validate clears it and the
			// visitor lands on the login page with no error banner.
			h.sessions.Validate(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Error("failed to list articles", "error", err)
		notice = "The article service is temporarily unavailable."
	}

	vm := buildArticleList(articles, category, priority, search, page, h.perPage, time.Now())
	vm.Notice = notice
	vm.CSRFToken = csrfToken(w, r)
	vm.ReturnTo = r.URL.RequestURI()

	h.render(w, r, appTitle, pages.Articles(vm))
}

// SaveArticle records a save interaction and returns the visitor to the
// listing page they acted from.
func (h *Handler) SaveArticle(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	if !h.sessions.Session().Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.api.RecordInteraction(r.Context(), id, model.InteractionSave); err != nil {
		if errors.Is(err, driven.ErrUnauthorized) {
			h.sessions.Validate(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		// A lost interaction is not worth an error page.
		h.logger.Error("failed to record save interaction", "article_id", id, "error", err)
	}

	http.Redirect(w, r, localReturnTo(r.FormValue("return_to")), http.StatusSeeOther)
}

// OpenArticle records a click interaction and redirects to the article's
// external URL, resolved server-side so the destination cannot be forged.
func (h *Handler) OpenArticle(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Session().Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	article, err := h.api.GetArticle(r.Context(), id)
	if err != nil {
		if errors.Is(err, driven.ErrUnauthorized) {
			h.sessions.Validate(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Error("failed to resolve article", "article_id", id, "error", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	// Best effort; the visitor still gets their article.
	if err := h.api.RecordInteraction(r.Context(), id, model.InteractionClick); err != nil {
		h.logger.Warn("failed to record click interaction", "article_id", id, "error", err)
	}

	http.Redirect(w, r, article.URL, http.StatusSeeOther)
}

// localReturnTo accepts only site-local paths, falling back to the landing
// page. Blocks open redirects through the return_to form field.
func localReturnTo(raw string) string {
	if raw == "" || raw[0] != '/' || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

// LoginPage renders the login form. An already authenticated visitor is
// sent to the landing page.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Session().Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	vm := viewmodel.LoginViewModel{CSRFToken: csrfToken(w, r)}
	if r.URL.Query().Get("created") == "1" {
		vm.Notice = "Your account was created, but automatic sign-in failed. Please sign in."
	}
	h.render(w, r, "Login - "+appTitle, pages.Login(vm))
}

// LoginSubmit handles the login form post.
func (h *Handler) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if msg := validateLoginForm(email, password); msg != "" {
		h.renderLoginError(w, r, email, msg)
		return
	}

	if err := h.sessions.Login(r.Context(), email, password); err != nil {
		// One generic message per form; the cause is in the logs.
		h.renderLoginError(w, r, email, "Invalid email or password")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, email, msg string) {
	vm := viewmodel.LoginViewModel{
		Email:     email,
		Error:     msg,
		CSRFToken: csrfToken(w, r),
	}
	h.render(w, r, "Login - "+appTitle, pages.Login(vm))
}

// RegisterPage renders the registration form.
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Session().Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	vm := viewmodel.RegisterViewModel{CSRFToken: csrfToken(w, r)}
	h.render(w, r, "Create Account - "+appTitle, pages.Register(vm))
}

// RegisterSubmit handles the registration form post. The form is validated
// locally first; no network call is made for a mismatched or too-short
// password.
func (h *Handler) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	email := r.FormValue("email")
	fullName := r.FormValue("full_name")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	if msg := validateRegisterForm(email, password, confirm, fullName); msg != "" {
		h.renderRegisterError(w, r, email, fullName, msg)
		return
	}

	err := h.sessions.Register(r.Context(), email, password, fullName)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, application.ErrRegisteredNoSession):
		http.Redirect(w, r, "/login?created=1", http.StatusSeeOther)
	default:
		h.renderRegisterError(w, r, email, fullName, "Registration failed. Please try again.")
	}
}

func (h *Handler) renderRegisterError(w http.ResponseWriter, r *http.Request, email, fullName, msg string) {
	vm := viewmodel.RegisterViewModel{
		Email:     email,
		FullName:  fullName,
		Error:     msg,
		CSRFToken: csrfToken(w, r),
	}
	h.render(w, r, "Create Account - "+appTitle, pages.Register(vm))
}

// Logout clears the session and returns the visitor to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	h.sessions.Logout(r.Context())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// render wraps content in the layout chrome and writes it out.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, title string, content templ.Component) {
	sess := h.sessions.Session()

	vm := viewmodel.LayoutViewModel{
		Authenticated: sess.Authenticated(),
		CSRFToken:     csrfToken(w, r),
	}
	if sess.User != nil {
		vm.UserName = sess.User.FullName
	}

	layout := templates.Layout(title, vm, content)
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
