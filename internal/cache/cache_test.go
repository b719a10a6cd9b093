package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsassist/internal/config"
	"newsassist/internal/domain"
	"newsassist/internal/source"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   int
	feeds   map[string]domain.Feed
	errs    map[string]error
	panicIt bool
	block   chan struct{}
}

func (f *fakeSource) Name() string { return "rss" }

func (f *fakeSource) Fetch(_ context.Context, feedURL string) (domain.Feed, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.panicIt {
		panic("feed source blew up")
	}
	if err, ok := f.errs[feedURL]; ok {
		return domain.Feed{}, err
	}
	return f.feeds[feedURL], nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func item(id, title string) domain.Item {
	return domain.Item{ID: id, Title: title, Link: "https://example.org/" + id, Categories: []string{}}
}

func newTestCache(src *fakeSource, now *time.Time, sections ...config.SectionConfig) *Cache {
	registry := source.NewRegistry()
	registry.Register(src)

	if len(sections) == 0 {
		sections = []config.SectionConfig{{Name: "blog", Source: "rss", FeedURL: "https://example.org/blog.xml"}}
	}

	return New(Deps{
		TTL:      30 * time.Minute,
		Sections: sections,
		Registry: registry,
		Now:      func() time.Time { return *now },
	})
}

func TestEnsureFreshSkipsWithinTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{item("a", "First")}},
	}}
	c := newTestCache(src, &now)

	c.EnsureFresh(context.Background(), "blog")
	require.Equal(t, 1, src.fetchCount())
	require.Len(t, c.Items("blog"), 1)

	// Fresh and non-empty: the source must not be consulted again.
	now = now.Add(29 * time.Minute)
	c.EnsureFresh(context.Background(), "blog")
	assert.Equal(t, 1, src.fetchCount())

	// Past the TTL the next call refreshes.
	now = now.Add(2 * time.Minute)
	c.EnsureFresh(context.Background(), "blog")
	assert.Equal(t, 2, src.fetchCount())
}

func TestEnsureFreshAlwaysRefreshesEmptySection(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: nil},
	}}
	c := newTestCache(src, &now)

	c.EnsureFresh(context.Background(), "blog")
	c.EnsureFresh(context.Background(), "blog")

	// An empty item map never counts as fresh, TTL or not.
	assert.Equal(t, 2, src.fetchCount())
}

func TestRefreshSwapIsAtomic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{item("a1", "Old one"), item("a2", "Old two")}},
	}}
	c := newTestCache(src, &now)

	c.Refresh(context.Background(), "blog")
	require.Len(t, c.Items("blog"), 2)

	src.feeds["https://example.org/blog.xml"] = domain.Feed{Items: []domain.Item{item("b1", "New one")}}
	c.Refresh(context.Background(), "blog")

	got := c.Items("blog")
	require.Len(t, got, 1)
	assert.Equal(t, "b1", got[0].ID, "old items must not survive a successful refresh")
}

func TestRefreshFailureKeepsExistingItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{item("a1", "Kept")}},
	}}
	c := newTestCache(src, &now)

	c.Refresh(context.Background(), "blog")
	require.Len(t, c.Items("blog"), 1)

	src.errs = map[string]error{"https://example.org/blog.xml": errors.New("upstream down")}
	c.Refresh(context.Background(), "blog")

	got := c.Items("blog")
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].ID)
}

func TestRefreshingFlagReleasedAfterError(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{errs: map[string]error{
		"https://example.org/blog.xml": errors.New("boom"),
	}}
	c := newTestCache(src, &now)

	c.Refresh(context.Background(), "blog")
	c.Refresh(context.Background(), "blog")

	// A wedged flag would have made the second call a no-op.
	assert.Equal(t, 2, src.fetchCount())
}

func TestRefreshingFlagReleasedAfterPanic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{panicIt: true}
	c := newTestCache(src, &now)

	c.Refresh(context.Background(), "blog")
	require.Equal(t, 1, src.fetchCount())

	src.panicIt = false
	src.feeds = map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{item("a1", "Back")}},
	}
	c.Refresh(context.Background(), "blog")

	assert.Equal(t, 2, src.fetchCount())
	assert.Len(t, c.Items("blog"), 1)
}

func TestEnsureFreshDoesNotWaitForInflightRefresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		block: make(chan struct{}),
		feeds: map[string]domain.Feed{
			"https://example.org/blog.xml": {Items: []domain.Item{item("a1", "Fresh")}},
		},
	}
	c := newTestCache(src, &now)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.EnsureFresh(context.Background(), "blog")
	}()

	// Wait for the in-flight fetch to start.
	for src.fetchCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// The second caller sees refreshing=true, starts nothing, and gets the
	// (empty) prior snapshot back immediately.
	c.EnsureFresh(context.Background(), "blog")
	assert.Equal(t, 1, src.fetchCount())
	assert.Empty(t, c.Items("blog"))

	close(src.block)
	<-done
	assert.Len(t, c.Items("blog"), 1)
}

func TestRefreshDropsItemsWithoutID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{
			item("a1", "Keyed"),
			{Title: "No GUID", Link: "https://example.org/anon"},
			item("a2", "Also keyed"),
		}},
	}}
	c := newTestCache(src, &now)

	c.Refresh(context.Background(), "blog")

	got := c.Items("blog")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a1", "a2"}, []string{got[0].ID, got[1].ID})
}

func TestItemsPreserveFeedOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{
			item("c", "Third in feed"), item("a", "First in feed"), item("b", "Second in feed"),
		}},
	}}
	c := newTestCache(src, &now)

	c.Refresh(context.Background(), "blog")

	got := c.Items("blog")
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "b", got[2].ID)
}

func TestPreloadAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		feeds: map[string]domain.Feed{
			"https://example.org/blog.xml": {Items: []domain.Item{item("a1", "Blog post")}},
		},
		errs: map[string]error{
			"https://example.org/news.xml": errors.New("news feed down"),
		},
	}
	c := newTestCache(src, &now,
		config.SectionConfig{Name: "blog", Source: "rss", FeedURL: "https://example.org/blog.xml"},
		config.SectionConfig{Name: "news", Source: "rss", FeedURL: "https://example.org/news.xml"},
	)

	c.PreloadAll(context.Background())

	assert.Equal(t, 2, src.fetchCount(), "both sections must be attempted")
	assert.Len(t, c.Items("blog"), 1)
	assert.Empty(t, c.Items("news"))
}

func TestStats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{feeds: map[string]domain.Feed{
		"https://example.org/blog.xml": {Items: []domain.Item{item("a1", "One"), item("a2", "Two")}},
	}}
	c := newTestCache(src, &now,
		config.SectionConfig{Name: "blog", Source: "rss", FeedURL: "https://example.org/blog.xml"},
		config.SectionConfig{Name: "news", Source: "rss", FeedURL: "https://example.org/news.xml"},
	)

	c.Refresh(context.Background(), "blog")

	stats := c.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["blog"].ItemCount)
	assert.Equal(t, now, stats["blog"].LastRefreshedAt)
	assert.Zero(t, stats["news"].ItemCount)
	assert.True(t, stats["news"].LastRefreshedAt.IsZero())
}

func TestUnknownSectionIsNoop(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{}
	c := newTestCache(src, &now)

	c.EnsureFresh(context.Background(), "podcast")
	c.Refresh(context.Background(), "podcast")

	assert.Zero(t, src.fetchCount())
	assert.False(t, c.Known("podcast"))
	assert.Nil(t, c.Items("podcast"))
}
