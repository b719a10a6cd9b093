package domain

import "time"

// Item is a single entry pulled from a section's feed. PublishedAt is kept
// as the raw timestamp string from the feed and never parsed.
type Item struct {
	ID          string
	Title       string
	Link        string
	Description string
	PublishedAt string
	Categories  []string
	Author      string
}

// Feed is the parsed result of fetching one feed endpoint.
type Feed struct {
	Title         string
	Description   string
	FeedURL       string
	Language      string
	LastBuildDate string
	Items         []Item
}

// RelevanceTier buckets a search match. High beats medium; there is no
// finer-grained score.
type RelevanceTier string

const (
	TierHigh   RelevanceTier = "high"
	TierMedium RelevanceTier = "medium"
)

// SearchResult is one ranked match, produced fresh per query.
type SearchResult struct {
	Title       string        `json:"title"`
	Content     string        `json:"content"`
	URL         string        `json:"url"`
	Relevance   RelevanceTier `json:"relevance"`
	PublishedAt string        `json:"publishedAt,omitempty"`
}

// SearchResponse is the caller-facing envelope. Message carries a
// human-readable explanation when no cache exists for the section or an
// internal failure was swallowed; the query path never returns an error.
type SearchResponse struct {
	Section   string         `json:"section"`
	Query     string         `json:"query"`
	Results   []SearchResult `json:"results"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message,omitempty"`
}

// SectionStats describes one section's cache for health endpoints.
type SectionStats struct {
	ItemCount       int       `json:"itemCount"`
	LastRefreshedAt time.Time `json:"lastRefreshedAt"`
}

// Chat roles understood by the post-processing pipeline. Only assistant
// messages are transformed; everything else passes through untouched.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation forwarded to the LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
