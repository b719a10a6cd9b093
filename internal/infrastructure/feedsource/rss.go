package feedsource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"newsassist/internal/domain"
	"newsassist/internal/source"
)

// RSSSource fetches and parses RSS/Atom feeds via gofeed.
type RSSSource struct {
	client *http.Client
	parser *gofeed.Parser
}

var _ source.Source = (*RSSSource)(nil)

// NewRSSSource wires an HTTP client; a nil client gets a 15s-timeout default.
func NewRSSSource(client *http.Client) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSSource{client: client, parser: gofeed.NewParser()}
}

// Name identifies the strategy inside the registry.
func (r *RSSSource) Name() string {
	return "rss"
}

// Fetch downloads the feed and maps it into the domain schema.
func (r *RSSSource) Fetch(ctx context.Context, feedURL string) (domain.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsassist/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Feed{}, fmt.Errorf("feed endpoint returned %s", resp.Status)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return domain.Feed{}, fmt.Errorf("parse feed: %w", err)
	}

	return mapFeed(feedURL, parsed), nil
}

func mapFeed(feedURL string, parsed *gofeed.Feed) domain.Feed {
	feed := domain.Feed{
		Title:         parsed.Title,
		Description:   parsed.Description,
		FeedURL:       feedURL,
		Language:      parsed.Language,
		LastBuildDate: parsed.Updated,
		Items:         make([]domain.Item, 0, len(parsed.Items)),
	}

	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		feed.Items = append(feed.Items, mapItem(it))
	}

	return feed
}

func mapItem(it *gofeed.Item) domain.Item {
	desc := it.Description
	if desc == "" {
		desc = it.Content
	}

	// Categories must never be nil: absent means empty, not missing.
	categories := make([]string, 0, len(it.Categories))
	categories = append(categories, it.Categories...)

	var author string
	if it.Author != nil {
		author = it.Author.Name
	}

	return domain.Item{
		ID:          it.GUID,
		Title:       it.Title,
		Link:        it.Link,
		Description: desc,
		PublishedAt: it.Published,
		Categories:  categories,
		Author:      author,
	}
}
