// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// LayoutViewModel holds the data the page chrome (header, sidebar) needs.
type LayoutViewModel struct {
	Authenticated bool
	UserName      string
	CSRFToken     string
}

// LoginViewModel holds presentation-ready data for the login form.
type LoginViewModel struct {
	Email     string
	Error     string
	Notice    string
	CSRFToken string
}

// RegisterViewModel holds presentation-ready data for the registration form.
// Email and FullName are echoed back so a validation failure does not wipe
// the form; passwords never are.
type RegisterViewModel struct {
	Email     string
	FullName  string
	Error     string
	CSRFToken string
}

// ArticleCardViewModel holds presentation-ready data for one article card.
// SaveURL and OpenURL are the local interaction endpoints for this article;
// OpenURL records a click before redirecting to the external URL.
type ArticleCardViewModel struct {
	ID            int64
	Title         string
	URL           string
	SaveURL       string
	OpenURL       string
	Source        string
	SummaryHTML   string
	Category      string
	CategoryClass string
	Priority      string
	PriorityClass string
	PublishedAgo  string
	SaveCount     int
}

// PageLink is a single pagination control entry.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// ArticleListViewModel holds the filtered, paginated article listing.
// Notice carries a non-fatal banner, e.g. when the upstream service is
// unreachable. CSRFToken and ReturnTo feed the per-card save forms, so a
// save lands the visitor back on the page they acted from.
type ArticleListViewModel struct {
	Cards      []ArticleCardViewModel
	Categories []string
	Category   string
	Priority   string
	Query      string
	Pages      []PageLink
	Total      int
	Notice     string
	CSRFToken  string
	ReturnTo   string
}
