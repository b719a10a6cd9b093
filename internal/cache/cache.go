package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsassist/internal/config"
	"newsassist/internal/domain"
	"newsassist/internal/ports"
	"newsassist/internal/source"
)

// entry is the per-section cache state. order preserves the item insertion
// order from the last refresh so searches rank ties deterministically.
type entry struct {
	items         map[string]domain.Item
	order         []string
	lastRefreshed time.Time
	refreshing    bool
}

// Deps wires the cache service collaborators. Archive and Alerter are
// optional; Now defaults to time.Now.
type Deps struct {
	TTL      time.Duration
	Sections []config.SectionConfig
	Registry *source.Registry
	Archive  ports.ItemArchive
	Alerter  ports.Alerter
	Logger   *slog.Logger
	Now      func() time.Time
}

// Cache owns the refresh protocol for every configured section. It is an
// injected service, not ambient global state; all access is mutex-guarded
// and safe under real threads.
type Cache struct {
	ttl      time.Duration
	sections map[string]config.SectionConfig
	registry *source.Registry
	archive  ports.ItemArchive
	alerter  ports.Alerter
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs the cache service. Section entries are created lazily on
// first access and live for the whole process.
func New(deps Deps) *Cache {
	sections := make(map[string]config.SectionConfig, len(deps.Sections))
	for _, s := range deps.Sections {
		sections[s.Name] = s
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		ttl:      ttl,
		sections: sections,
		registry: deps.Registry,
		archive:  deps.Archive,
		alerter:  deps.Alerter,
		logger:   logger,
		now:      now,
		entries:  map[string]*entry{},
	}
}

// Sections lists every configured section name.
func (c *Cache) Sections() []string {
	names := make([]string, 0, len(c.sections))
	for name := range c.sections {
		names = append(names, name)
	}
	return names
}

// Known reports whether a section has a configured feed endpoint.
func (c *Cache) Known(section string) bool {
	_, ok := c.sections[section]
	return ok
}

// EnsureFresh refreshes the section when its data is older than the TTL or
// the item map is empty. If another refresh is already in flight it returns
// immediately without waiting: callers may observe the prior snapshot.
// Redundant calls are safe and cheap.
func (c *Cache) EnsureFresh(ctx context.Context, section string) {
	cfg, ok := c.sections[section]
	if !ok {
		return
	}
	if !c.acquire(section, true) {
		return
	}
	c.runRefresh(ctx, section, cfg)
}

// Refresh unconditionally refreshes the section unless one is already in
// flight. Failures leave the existing items untouched.
func (c *Cache) Refresh(ctx context.Context, section string) {
	cfg, ok := c.sections[section]
	if !ok {
		return
	}
	if !c.acquire(section, false) {
		return
	}
	c.runRefresh(ctx, section, cfg)
}

// acquire takes the advisory refreshing flag. With onlyIfStale it also
// declines when the section is still inside its freshness window and
// non-empty.
func (c *Cache) acquire(section string, onlyIfStale bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(section)
	if e.refreshing {
		return false
	}
	if onlyIfStale && len(e.items) > 0 && c.now().Sub(e.lastRefreshed) <= c.ttl {
		return false
	}
	e.refreshing = true
	return true
}

// runRefresh performs one fetch-and-swap cycle. The refreshing flag is
// released unconditionally, including when the source panics: a wedged
// flag would permanently disable refreshes for the section.
func (c *Cache) runRefresh(ctx context.Context, section string, cfg config.SectionConfig) {
	defer func() {
		r := recover()

		c.mu.Lock()
		c.entryLocked(section).refreshing = false
		c.mu.Unlock()

		if r != nil {
			c.logger.Error("refresh panicked", "section", section, "panic", r)
		}
	}()

	src, err := c.registry.Resolve(cfg.Source)
	if err != nil {
		c.refreshFailed(ctx, section, err)
		return
	}

	feed, err := src.Fetch(ctx, cfg.FeedURL)
	if err != nil {
		c.refreshFailed(ctx, section, err)
		return
	}

	// Clear-then-repopulate: a fresh map is built aside and swapped in
	// whole, so readers see either the old set or the new one, never a mix.
	items := make(map[string]domain.Item, len(feed.Items))
	order := make([]string, 0, len(feed.Items))
	stored := make([]domain.Item, 0, len(feed.Items))
	dropped := 0
	for _, item := range feed.Items {
		// Items without a stable id cannot be deduplicated by identity and
		// are dropped from the keyed map, matching the source behavior.
		if item.ID == "" {
			dropped++
			continue
		}
		if _, exists := items[item.ID]; !exists {
			order = append(order, item.ID)
		}
		items[item.ID] = item
		stored = append(stored, item)
	}

	refreshedAt := c.now()

	c.mu.Lock()
	e := c.entryLocked(section)
	e.items = items
	e.order = order
	e.lastRefreshed = refreshedAt
	c.mu.Unlock()

	c.logger.Info("section refreshed",
		"section", section, "items", len(items), "dropped", dropped)

	if c.archive != nil {
		if err := c.archive.SaveItems(ctx, section, stored); err != nil {
			c.logger.Warn("archive items", "section", section, "error", err)
		}
	}
}

// refreshFailed logs and alerts but never propagates: the section keeps
// whatever it had before (possibly nothing).
func (c *Cache) refreshFailed(ctx context.Context, section string, err error) {
	c.logger.Error("refresh failed", "section", section, "error", err)

	if c.alerter == nil {
		return
	}
	msg := fmt.Sprintf("newsassist: refresh of section %q failed: %v", section, err)
	if alertErr := c.alerter.Alert(ctx, msg); alertErr != nil {
		c.logger.Warn("refresh alert", "section", section, "error", alertErr)
	}
}

// Items returns the current snapshot of the section's items in insertion
// order, ignoring freshness. Call EnsureFresh first when liveness matters.
func (c *Cache) Items(section string) []domain.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[section]
	if !ok {
		return nil
	}

	items := make([]domain.Item, 0, len(e.order))
	for _, id := range e.order {
		items = append(items, e.items[id])
	}
	return items
}

// PreloadAll concurrently refreshes every configured section. Each
// section is its own failure domain: one feed being down is logged inside
// its refresh and never aborts the others.
func (c *Cache) PreloadAll(ctx context.Context) {
	var wg sync.WaitGroup
	for name := range c.sections {
		wg.Add(1)
		go func(section string) {
			defer wg.Done()
			c.Refresh(ctx, section)
		}(name)
	}
	wg.Wait()
}

// Stats reports per-section item counts and last refresh times.
func (c *Cache) Stats() map[string]domain.SectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := make(map[string]domain.SectionStats, len(c.sections))
	for name := range c.sections {
		var s domain.SectionStats
		if e, ok := c.entries[name]; ok {
			s.ItemCount = len(e.items)
			s.LastRefreshedAt = e.lastRefreshed
		}
		stats[name] = s
	}
	return stats
}

// entryLocked returns the section's entry, creating it lazily. Caller must
// hold c.mu.
func (c *Cache) entryLocked(section string) *entry {
	e, ok := c.entries[section]
	if !ok {
		e = &entry{items: map[string]domain.Item{}}
		c.entries[section] = e
	}
	return e
}
