package feedsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <link>https://example.org/blog</link>
    <description>Posts about things</description>
    <language>en-us</language>
    <lastBuildDate>Mon, 02 Mar 2026 09:00:00 GMT</lastBuildDate>
    <item>
      <guid>post-1</guid>
      <title>First Post</title>
      <link>https://example.org/blog/first</link>
      <description><![CDATA[<p>Hello <b>world</b></p>]]></description>
      <pubDate>Sun, 01 Mar 2026 10:00:00 GMT</pubDate>
      <category>intro</category>
      <category>meta</category>
      <author>writer@example.org (Ada)</author>
    </item>
    <item>
      <title>No GUID Post</title>
      <link>https://example.org/blog/anon</link>
      <description>Plain text body</description>
    </item>
  </channel>
</rss>`

func TestFetchMapsFeed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	src := NewRSSSource(server.Client())

	feed, err := src.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("fetch returned error: %v", err)
	}

	if feed.Title != "Example Blog" {
		t.Fatalf("unexpected feed title: %q", feed.Title)
	}
	if feed.FeedURL != server.URL {
		t.Fatalf("unexpected feed url: %q", feed.FeedURL)
	}
	if feed.Language != "en-us" {
		t.Fatalf("unexpected language: %q", feed.Language)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(feed.Items))
	}

	first := feed.Items[0]
	if first.ID != "post-1" {
		t.Fatalf("unexpected id: %q", first.ID)
	}
	if first.Title != "First Post" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.PublishedAt != "Sun, 01 Mar 2026 10:00:00 GMT" {
		t.Fatalf("publishedAt must stay the raw feed string, got %q", first.PublishedAt)
	}
	if len(first.Categories) != 2 || first.Categories[0] != "intro" {
		t.Fatalf("unexpected categories: %v", first.Categories)
	}

	// Items without a GUID still come through the source; dropping them is
	// the cache's call, not the fetcher's.
	second := feed.Items[1]
	if second.ID != "" {
		t.Fatalf("expected empty id, got %q", second.ID)
	}
	if second.Categories == nil {
		t.Fatal("categories must default to an empty slice, not nil")
	}
}

func TestFetchRejectsBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	src := NewRSSSource(server.Client())

	if _, err := src.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchRejectsUnparsableBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	src := NewRSSSource(server.Client())

	if _, err := src.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected parse error")
	}
}
