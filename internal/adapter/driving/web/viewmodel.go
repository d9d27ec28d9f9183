package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nclarke/newsdeck/internal/adapter/driving/web/viewmodel"
	"github.com/nclarke/newsdeck/internal/domain/model"
)

// articlesPerPage matches the original grid of 12 cards.
const articlesPerPage = 12

// summaryPreviewLen is the character budget for the card summary preview.
const summaryPreviewLen = 150

// articleCategories are the filter dropdown entries, in display order.
var articleCategories = []string{"Models/Agents", "Tools", "Research"}

// buildArticleList applies the local text search and pagination over the
// API-filtered article window and maps the visible page to card view
// models. Category and priority filtering already happened server-side;
// the text search is local, matching title or summary case-insensitively.
func buildArticleList(articles []model.Article, category, priority, query string, page, perPage int, now time.Time) viewmodel.ArticleListViewModel {
	if perPage <= 0 {
		perPage = articlesPerPage
	}

	filtered := articles
	if query != "" {
		q := strings.ToLower(query)
		filtered = make([]model.Article, 0, len(articles))
		for _, a := range articles {
			if strings.Contains(strings.ToLower(a.Title), q) || strings.Contains(strings.ToLower(a.Summary), q) {
				filtered = append(filtered, a)
			}
		}
	}

	pageCount := (len(filtered) + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if pageCount > 0 && page > pageCount {
		page = pageCount
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > len(filtered) {
		end = len(filtered)
	}

	cards := make([]viewmodel.ArticleCardViewModel, 0, end-start)
	for _, a := range filtered[start:end] {
		cards = append(cards, toArticleCard(a, now))
	}

	var pages []viewmodel.PageLink
	if pageCount > 1 {
		pages = make([]viewmodel.PageLink, 0, pageCount)
		for i := 1; i <= pageCount; i++ {
			pages = append(pages, viewmodel.PageLink{
				Number:  i,
				URL:     listURL(category, priority, query, i),
				Current: i == page,
			})
		}
	}

	return viewmodel.ArticleListViewModel{
		Cards:      cards,
		Categories: articleCategories,
		Category:   category,
		Priority:   priority,
		Query:      query,
		Pages:      pages,
		Total:      len(filtered),
	}
}

// toArticleCard maps a domain article to its card view model. The summary
// is truncated before markdown rendering; the sanitizer cleans up any
// markup the cut leaves open.
func toArticleCard(a model.Article, now time.Time) viewmodel.ArticleCardViewModel {
	summary := a.Summary
	if runes := []rune(summary); len(runes) > summaryPreviewLen {
		summary = string(runes[:summaryPreviewLen]) + "..."
	}

	id := strconv.FormatInt(a.ID, 10)

	return viewmodel.ArticleCardViewModel{
		ID:            a.ID,
		Title:         a.Title,
		URL:           a.URL,
		SaveURL:       "/articles/" + id + "/save",
		OpenURL:       "/articles/" + id + "/open",
		Source:        a.Source,
		SummaryHTML:   RenderMarkdown(summary),
		Category:      a.Category,
		CategoryClass: categoryClass(a.Category),
		Priority:      a.Priority,
		PriorityClass: priorityClass(a.Priority),
		PublishedAgo:  relativeAge(a.DatePublished, now),
		SaveCount:     a.SaveCount,
	}
}

func categoryClass(category string) string {
	switch category {
	case "Models/Agents":
		return "chip-primary"
	case "Tools":
		return "chip-success"
	case "Research":
		return "chip-secondary"
	default:
		return "chip-default"
	}
}

func priorityClass(priority string) string {
	if priority == model.PriorityHigh {
		return "chip-error"
	}
	return "chip-default"
}

// listURL rebuilds the listing URL preserving the active filters.
func listURL(category, priority, query string, page int) string {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	if priority != "" {
		params.Set("priority", priority)
	}
	if query != "" {
		params.Set("q", query)
	}
	if page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	if len(params) == 0 {
		return "/"
	}
	return "/?" + params.Encode()
}

// relativeAge renders a coarse "N units ago" age for card footers.
// Returns "" for the zero time.
func relativeAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/(24*30)), "month")
	default:
		return plural(int(d.Hours()/(24*365)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
