package model

import "time"

// Article is a single aggregated news article as returned by the news API.
type Article struct {
	ID            int64
	Title         string
	URL           string
	Source        string
	Summary       string
	Category      string
	Priority      string
	KeyPoints     []string
	ActionItems   []string
	DatePublished time.Time
	DateFound     time.Time
	IsArchived    bool

	// Aggregated interaction counters, populated by the listing endpoint.
	InteractionCount int
	SaveCount        int
	ClickCount       int
}

// ArticleFilter narrows a listing request. Category and Priority are pushed
// to the API as query parameters; empty values mean "all". Skip and Limit
// control the server-side window.
type ArticleFilter struct {
	Category string
	Priority string
	Skip     int
	Limit    int
}

// Article priorities as emitted by the upstream classifier.
const (
	PriorityHigh = "High"
	PriorityLow  = "Low"
)

// Interaction kinds accepted by the interactions endpoint. These feed the
// upstream relevance model, so the strings must match what it trains on.
const (
	InteractionSave  = "save"
	InteractionClick = "click"
	InteractionShare = "share"
)
