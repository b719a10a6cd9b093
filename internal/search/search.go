package search

import (
	"strings"

	"newsassist/internal/domain"
)

// minKeywordLen is the shortest query token considered for the fallback
// pass; shorter tokens match too much to be useful.
const minKeywordLen = 3

// StripFunc reduces an HTML fragment to plain text for result excerpts.
type StripFunc func(string) string

// Engine ranks cached items against a keyword query using a two-pass
// fallback: exact substring matches first, and only when none exist,
// per-keyword partial matches. Tier is the only ordering signal; within a
// tier, items keep their iteration order.
type Engine struct {
	strip StripFunc
}

// New builds an engine. A nil strip function leaves descriptions raw.
func New(strip StripFunc) *Engine {
	if strip == nil {
		strip = func(s string) string { return s }
	}
	return &Engine{strip: strip}
}

// Search scans the item sequence and returns ranked results. An empty
// query is a substring of everything and matches every item exactly.
func (e *Engine) Search(items []domain.Item, query string) []domain.SearchResult {
	q := strings.ToLower(query)

	var high []domain.SearchResult
	for _, item := range items {
		if matchesExact(item, q) {
			high = append(high, e.result(item, domain.TierHigh))
		}
	}
	if len(high) > 0 {
		return high
	}

	keywords := keywordsFrom(q)
	if len(keywords) == 0 {
		return high
	}

	var medium []domain.SearchResult
	for _, item := range items {
		if matchesAnyKeyword(item, keywords) {
			medium = append(medium, e.result(item, domain.TierMedium))
		}
	}
	return medium
}

func matchesExact(item domain.Item, q string) bool {
	if strings.Contains(strings.ToLower(item.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	for _, cat := range item.Categories {
		if strings.Contains(strings.ToLower(cat), q) {
			return true
		}
	}
	return false
}

func matchesAnyKeyword(item domain.Item, keywords []string) bool {
	title := strings.ToLower(item.Title)
	desc := strings.ToLower(item.Description)

	for _, kw := range keywords {
		if strings.Contains(title, kw) || strings.Contains(desc, kw) {
			return true
		}
		for _, cat := range item.Categories {
			if strings.Contains(strings.ToLower(cat), kw) {
				return true
			}
		}
	}
	return false
}

// keywordsFrom splits the lowered query on whitespace, keeping only tokens
// longer than minKeywordLen characters.
func keywordsFrom(q string) []string {
	var keywords []string
	for _, token := range strings.Fields(q) {
		if len(token) > minKeywordLen {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

func (e *Engine) result(item domain.Item, tier domain.RelevanceTier) domain.SearchResult {
	content := strings.TrimSpace(e.strip(item.Description))
	if content == "" {
		content = item.Description
	}

	return domain.SearchResult{
		Title:       item.Title,
		Content:     content,
		URL:         item.Link,
		Relevance:   tier,
		PublishedAt: item.PublishedAt,
	}
}
