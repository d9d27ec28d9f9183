package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nclarke/newsdeck/internal/application"
	"github.com/nclarke/newsdeck/internal/domain/model"
)

type fakeNewsAPI struct {
	user          model.User
	userErr       error
	exchangeToken string
	exchangeErr   error
	createErr     error
	articles      []model.Article
	articlesErr   error
	article       model.Article
	articleErr    error

	interactionErr error
	interactions   []string

	exchangeCalls int
	createCalls   int
}

func (f *fakeNewsAPI) ExchangeToken(_ context.Context, _, _ string) (string, error) {
	f.exchangeCalls++
	return f.exchangeToken, f.exchangeErr
}

func (f *fakeNewsAPI) CreateUser(_ context.Context, _, _, _ string) (model.User, error) {
	f.createCalls++
	return f.user, f.createErr
}

func (f *fakeNewsAPI) CurrentUser(_ context.Context) (model.User, error) {
	return f.user, f.userErr
}

func (f *fakeNewsAPI) ListArticles(_ context.Context, _ model.ArticleFilter) ([]model.Article, error) {
	return f.articles, f.articlesErr
}

func (f *fakeNewsAPI) GetArticle(_ context.Context, _ int64) (model.Article, error) {
	return f.article, f.articleErr
}

func (f *fakeNewsAPI) RecordInteraction(_ context.Context, id int64, kind string) error {
	f.interactions = append(f.interactions, fmt.Sprintf("%d:%s", id, kind))
	return f.interactionErr
}

func (f *fakeNewsAPI) SetToken(_ string) {}

type fakeTokenStore struct {
	token string
}

func (f *fakeTokenStore) Get(_ context.Context, _ string) (string, error) { return f.token, nil }
func (f *fakeTokenStore) Set(_ context.Context, _, token string) error {
	f.token = token
	return nil
}
func (f *fakeTokenStore) Delete(_ context.Context, _ string) error {
	f.token = ""
	return nil
}

func newWebHandler(t *testing.T, api *fakeNewsAPI, store *fakeTokenStore) *Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := application.NewSessionManager(api, store, logger)
	sessions.Initialize(context.Background())
	return NewHandler(sessions, api, articlesPerPage, logger)
}

func TestArticlesHandler_RedirectsWhenUnauthenticated(t *testing.T) {
	h := newWebHandler(t, &fakeNewsAPI{}, &fakeTokenStore{})

	rec := httptest.NewRecorder()
	h.Articles(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginSubmit_MissingCSRF(t *testing.T) {
	api := &fakeNewsAPI{}
	h := newWebHandler(t, api, &fakeTokenStore{})

	form := url.Values{"email": {"user@x.com"}, "password": {"password1"}}
	rec := httptest.NewRecorder()
	h.LoginSubmit(rec, postForm("/login", form, ""))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, api.exchangeCalls)
}

func TestLoginSubmit_Success(t *testing.T) {
	api := &fakeNewsAPI{
		exchangeToken: "tok-1",
		user:          model.User{ID: 7, Email: "user@x.com", FullName: "Test User", IsActive: true},
	}
	h := newWebHandler(t, api, &fakeTokenStore{})

	form := url.Values{
		"email":        {"user@x.com"},
		"password":     {"password1"},
		csrfFormField:  {"tok"},
	}
	rec := httptest.NewRecorder()
	h.LoginSubmit(rec, postForm("/login", form, "tok"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRegisterSubmit_PasswordMismatchSkipsNetwork(t *testing.T) {
	api := &fakeNewsAPI{}
	h := newWebHandler(t, api, &fakeTokenStore{})

	form := url.Values{
		"email":            {"new@x.com"},
		"full_name":        {"Jane Doe"},
		"password":         {"password1"},
		"confirm_password": {"password2"},
		csrfFormField:      {"tok"},
	}
	rec := httptest.NewRecorder()
	h.RegisterSubmit(rec, postForm("/register", form, "tok"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")
	assert.Zero(t, api.createCalls)
	assert.Zero(t, api.exchangeCalls)
}

func TestRegisterSubmit_CreatedButLoginFailed(t *testing.T) {
	api := &fakeNewsAPI{
		user:        model.User{ID: 9, Email: "new@x.com", FullName: "Jane Doe", IsActive: true},
		exchangeErr: errors.New("connection reset"),
	}
	h := newWebHandler(t, api, &fakeTokenStore{})

	form := url.Values{
		"email":            {"new@x.com"},
		"full_name":        {"Jane Doe"},
		"password":         {"password1"},
		"confirm_password": {"password1"},
		csrfFormField:      {"tok"},
	}
	rec := httptest.NewRecorder()
	h.RegisterSubmit(rec, postForm("/register", form, "tok"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?created=1", rec.Header().Get("Location"))
}

func TestLogout_RedirectsAndClearsSession(t *testing.T) {
	api := &fakeNewsAPI{user: model.User{ID: 7, Email: "user@x.com", IsActive: true}}
	store := &fakeTokenStore{token: "tok-persisted"}
	h := newWebHandler(t, api, store)

	require.True(t, h.sessions.Session().Authenticated())

	form := url.Values{csrfFormField: {"tok"}}
	rec := httptest.NewRecorder()
	h.Logout(rec, postForm("/logout", form, "tok"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.False(t, h.sessions.Session().Authenticated())
	assert.Empty(t, store.token)
}

func TestSaveArticle_RecordsInteraction(t *testing.T) {
	api := &fakeNewsAPI{user: model.User{ID: 7, Email: "user@x.com", IsActive: true}}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	form := url.Values{
		csrfFormField: {"tok"},
		"return_to":   {"/?category=Tools&page=2"},
	}
	req := postForm("/articles/42/save", form, "tok")
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.SaveArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?category=Tools&page=2", rec.Header().Get("Location"))
	assert.Equal(t, []string{"42:save"}, api.interactions)
}

func TestSaveArticle_MissingCSRF(t *testing.T) {
	api := &fakeNewsAPI{user: model.User{ID: 7, IsActive: true}}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	req := postForm("/articles/42/save", url.Values{}, "")
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.SaveArticle(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, api.interactions)
}

func TestSaveArticle_RejectsOpenRedirect(t *testing.T) {
	api := &fakeNewsAPI{user: model.User{ID: 7, IsActive: true}}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	form := url.Values{
		csrfFormField: {"tok"},
		"return_to":   {"https://evil.example.com/"},
	}
	req := postForm("/articles/42/save", form, "tok")
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.SaveArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSaveArticle_UnauthenticatedRedirectsToLogin(t *testing.T) {
	api := &fakeNewsAPI{}
	h := newWebHandler(t, api, &fakeTokenStore{})

	form := url.Values{csrfFormField: {"tok"}}
	req := postForm("/articles/42/save", form, "tok")
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.SaveArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, api.interactions)
}

func TestOpenArticle_RecordsClickAndRedirects(t *testing.T) {
	api := &fakeNewsAPI{
		user:    model.User{ID: 7, IsActive: true},
		article: model.Article{ID: 42, URL: "https://news.example.com/story"},
	}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	req := httptest.NewRequest(http.MethodGet, "/articles/42/open", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.OpenArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://news.example.com/story", rec.Header().Get("Location"))
	assert.Equal(t, []string{"42:click"}, api.interactions)
}

func TestOpenArticle_ClickFailureStillRedirects(t *testing.T) {
	api := &fakeNewsAPI{
		user:           model.User{ID: 7, IsActive: true},
		article:        model.Article{ID: 42, URL: "https://news.example.com/story"},
		interactionErr: errors.New("connection refused"),
	}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	req := httptest.NewRequest(http.MethodGet, "/articles/42/open", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.OpenArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://news.example.com/story", rec.Header().Get("Location"))
}

func TestOpenArticle_UnresolvableArticle(t *testing.T) {
	api := &fakeNewsAPI{
		user:       model.User{ID: 7, IsActive: true},
		articleErr: errors.New("connection refused"),
	}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	req := httptest.NewRequest(http.MethodGet, "/articles/42/open", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.OpenArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, api.interactions)
}

func TestOpenArticle_Unauthenticated(t *testing.T) {
	api := &fakeNewsAPI{}
	h := newWebHandler(t, api, &fakeTokenStore{})

	req := httptest.NewRequest(http.MethodGet, "/articles/42/open", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.OpenArticle(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLocalReturnTo(t *testing.T) {
	assert.Equal(t, "/", localReturnTo(""))
	assert.Equal(t, "/", localReturnTo("https://evil.example.com/"))
	assert.Equal(t, "/", localReturnTo("//evil.example.com/"))
	assert.Equal(t, "/?page=2", localReturnTo("/?page=2"))
}

func TestLoginPage_RedirectsWhenAuthenticated(t *testing.T) {
	api := &fakeNewsAPI{user: model.User{ID: 7, Email: "user@x.com", IsActive: true}}
	h := newWebHandler(t, api, &fakeTokenStore{token: "tok-persisted"})

	rec := httptest.NewRecorder()
	h.LoginPage(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}
