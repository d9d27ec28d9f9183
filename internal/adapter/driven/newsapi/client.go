// Package newsapi implements the NewsAPI port against the remote article
// aggregation service's HTTP surface.
package newsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/nclarke/newsdeck/internal/domain/model"
	"github.com/nclarke/newsdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NewsAPI = (*Client)(nil)

// Client implements the driven.NewsAPI port. The session token is held
// behind a mutex so the session manager can attach and detach it at
// runtime while request-serving goroutines read it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *resettableCache

	mu    sync.RWMutex
	token string
}

// resettableCache is an httpcache.Cache whose contents can be dropped
// wholesale. Cache entries are keyed by URL only, so a response fetched
// under one identity must not be replayed under another.
type resettableCache struct {
	mu    sync.RWMutex
	inner *httpcache.MemoryCache
}

func newResettableCache() *resettableCache {
	return &resettableCache{inner: httpcache.NewMemoryCache()}
}

func (c *resettableCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Get(key)
}

func (c *resettableCache) Set(key string, responseBytes []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.inner.Set(key, responseBytes)
}

func (c *resettableCache) Delete(key string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.inner.Delete(key)
}

func (c *resettableCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner = httpcache.NewMemoryCache()
}

// NewClient creates a news API client for the given base URL. The
// transport wraps an in-memory ETag cache so repeated article listings
// revalidate instead of re-downloading. The cache is dropped whenever the
// attached token changes.
func NewClient(baseURL string) *Client {
	cache := newResettableCache()

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
		httpClient: &http.Client{
			Transport: httpcache.NewTransport(cache),
			Timeout:   30 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken attaches the session token to subsequent requests. An empty
// string detaches it. A token change invalidates the response cache so a
// response fetched under the previous identity cannot be replayed.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == c.token {
		return
	}
	c.token = token
	if c.cache != nil {
		c.cache.reset()
	}
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// tokenResponse is the credential-exchange response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// userJSON is the wire representation of a user profile.
type userJSON struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (u userJSON) toModel() model.User {
	return model.User{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

// articleJSON is the wire representation of an article with interaction counters.
type articleJSON struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Source           string   `json:"source"`
	Summary          string   `json:"summary"`
	Category         string   `json:"category"`
	Priority         string   `json:"priority"`
	KeyPoints        []string `json:"key_points"`
	ActionItems      []string `json:"action_items"`
	DatePublished    string   `json:"date_published"`
	DateFound        string   `json:"date_found"`
	IsArchived       bool     `json:"is_archived"`
	InteractionCount int      `json:"interaction_count"`
	SaveCount        int      `json:"save_count"`
	ClickCount       int      `json:"click_count"`
}

func (a articleJSON) toModel() model.Article {
	return model.Article{
		ID:               a.ID,
		Title:            a.Title,
		URL:              a.URL,
		Source:           a.Source,
		Summary:          a.Summary,
		Category:         a.Category,
		Priority:         a.Priority,
		KeyPoints:        a.KeyPoints,
		ActionItems:      a.ActionItems,
		DatePublished:    parseAPITime(a.DatePublished),
		DateFound:        parseAPITime(a.DateFound),
		IsArchived:       a.IsArchived,
		InteractionCount: a.InteractionCount,
		SaveCount:        a.SaveCount,
		ClickCount:       a.ClickCount,
	}
}

// parseAPITime parses the API's timestamps, which arrive either as RFC 3339
// or as naive ISO 8601 without a zone. Unparseable or empty values yield the
// zero time.
func parseAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// ExchangeToken trades credentials for a session token.
// The endpoint is OAuth2-password-flow compatible: it expects form-encoded
// "username" and "password" fields, where username carries the email.
func (c *Client) ExchangeToken(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.send(req, &tok); err != nil {
		return "", fmt.Errorf("client.ExchangeToken: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("client.ExchangeToken: empty access_token in response")
	}
	return tok.AccessToken, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, email, password, fullName string) (model.User, error) {
	payload := map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}

	var u userJSON
	if err := c.doRequest(ctx, http.MethodPost, "/api/users/", payload, &u); err != nil {
		return model.User{}, fmt.Errorf("client.CreateUser: %w", err)
	}
	return u.toModel(), nil
}

// CurrentUser validates the attached token and returns its profile.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var u userJSON
	if err := c.get(ctx, "/api/auth/test-token", &u); err != nil {
		return model.User{}, fmt.Errorf("client.CurrentUser: %w", err)
	}
	return u.toModel(), nil
}

// ListArticles returns the filtered article window, newest first.
func (c *Client) ListArticles(ctx context.Context, f model.ArticleFilter) ([]model.Article, error) {
	params := url.Values{}
	if f.Category != "" {
		params.Set("category", f.Category)
	}
	if f.Priority != "" {
		params.Set("priority", f.Priority)
	}
	if f.Skip > 0 {
		params.Set("skip", strconv.Itoa(f.Skip))
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	path := "/api/articles/"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw []articleJSON
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("client.ListArticles: %w", err)
	}

	articles := make([]model.Article, 0, len(raw))
	for _, a := range raw {
		articles = append(articles, a.toModel())
	}
	return articles, nil
}

// RecordInteraction reports a save, click, or share interaction with an
// article. The response body is discarded; only the status matters.
func (c *Client) RecordInteraction(ctx context.Context, articleID int64, kind string) error {
	payload := map[string]string{"interaction_type": kind}

	path := "/api/articles/" + strconv.FormatInt(articleID, 10) + "/interactions"
	if err := c.doRequest(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("client.RecordInteraction: %w", err)
	}
	return nil
}

// GetArticle fetches a single article by ID.
func (c *Client) GetArticle(ctx context.Context, id int64) (model.Article, error) {
	var raw articleJSON
	if err := c.get(ctx, "/api/articles/"+strconv.FormatInt(id, 10), &raw); err != nil {
		return model.Article{}, fmt.Errorf("client.GetArticle: %w", err)
	}
	return raw.toModel(), nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.doRequest(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Detail}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
