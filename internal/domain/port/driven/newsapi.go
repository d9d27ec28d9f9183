package driven

import (
	"context"
	"errors"

	"github.com/nclarke/newsdeck/internal/domain/model"
)

// ErrUnauthorized is surfaced by NewsAPI implementations when the API
// explicitly rejects the attached token (401/403). Callers use it to
// distinguish a dead session from a transient transport failure, which is
// reported as any other error.
var ErrUnauthorized = errors.New("news api: unauthorized")

// NewsAPI defines the driven port for the remote article aggregation
// service. All calls after SetToken carry the token as a Bearer
// authorization credential.
type NewsAPI interface {
	// ExchangeToken trades credentials for an opaque session token via the
	// form-encoded token endpoint. It does not attach the token; that is
	// the caller's decision via SetToken.
	ExchangeToken(ctx context.Context, email, password string) (string, error)

	// CreateUser registers a new account and returns the created profile.
	CreateUser(ctx context.Context, email, password, fullName string) (model.User, error)

	// CurrentUser validates the attached token and returns the profile it
	// belongs to. Returns an error wrapping ErrUnauthorized when the API
	// rejects the token.
	CurrentUser(ctx context.Context) (model.User, error)

	// ListArticles returns the filtered article window.
	ListArticles(ctx context.Context, f model.ArticleFilter) ([]model.Article, error)

	// GetArticle returns a single article by ID.
	GetArticle(ctx context.Context, id int64) (model.Article, error)

	// RecordInteraction reports a user interaction (save, click, share)
	// with an article. Interactions drive the upstream relevance model.
	RecordInteraction(ctx context.Context, articleID int64, kind string) error

	// SetToken attaches (or, with an empty string, detaches) the session
	// token used for subsequent calls.
	SetToken(token string)
}
