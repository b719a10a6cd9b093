package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newsassist/internal/cache"
	"newsassist/internal/domain"
	"newsassist/internal/filter"
	"newsassist/internal/ports"
	"newsassist/internal/search"
)

// AssistantDeps wires all driven adapters into the assistant service.
type AssistantDeps struct {
	Cache     *cache.Cache
	Engine    *search.Engine
	Chat      ports.ChatClient
	Processor *filter.Processor
	MaxBuffer int
	KeepTail  int
	Logger    *slog.Logger
}

// Assistant orchestrates the content-serving workflows: cached feed
// search, and chat replies passed through the safety filters.
type Assistant struct {
	cache     *cache.Cache
	engine    *search.Engine
	chat      ports.ChatClient
	processor *filter.Processor
	maxBuffer int
	keepTail  int
	logger    *slog.Logger
}

// NewAssistant constructs the orchestration component.
func NewAssistant(deps AssistantDeps) *Assistant {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		cache:     deps.Cache,
		engine:    deps.Engine,
		chat:      deps.Chat,
		processor: deps.Processor,
		maxBuffer: deps.MaxBuffer,
		keepTail:  deps.KeepTail,
		logger:    logger,
	}
}

// Search answers a relevance query against the section's cached items.
// It never returns an error: a missing section or an internal fault is
// reported through the Message field of a well-formed response.
func (a *Assistant) Search(ctx context.Context, section, query string) (resp domain.SearchResponse) {
	resp = domain.SearchResponse{
		Section:   section,
		Query:     query,
		Results:   []domain.SearchResult{},
		Timestamp: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("search failed", "section", section, "panic", r)
			resp.Results = []domain.SearchResult{}
			resp.Message = "search is temporarily unavailable, please try again"
		}
	}()

	if a.cache == nil || !a.cache.Known(section) {
		resp.Message = fmt.Sprintf("no cached content available for section %q", section)
		return resp
	}

	a.cache.EnsureFresh(ctx, section)

	results := a.engine.Search(a.cache.Items(section), query)
	if results != nil {
		resp.Results = results
	}
	return resp
}

// StreamReply requests a streamed completion and forwards each sanitized
// view to emit. Every emitted value is the full sanitized text so far
// (snapshot semantics), so consumers replace rather than append.
func (a *Assistant) StreamReply(ctx context.Context, messages []domain.ChatMessage, emit func(string) error) error {
	if a.chat == nil {
		return fmt.Errorf("chat client is not configured")
	}

	stream := filter.NewStream(a.maxBuffer, a.keepTail, a.logger)
	return a.chat.Stream(ctx, messages, func(fragment string) error {
		return emit(stream.Process(fragment))
	})
}

// Reply requests a whole completion and runs the full post-processing
// pipeline on it.
func (a *Assistant) Reply(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if a.chat == nil {
		return "", fmt.Errorf("chat client is not configured")
	}

	raw, err := a.chat.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return a.processor.ProcessMessage(raw), nil
}

// PostprocessTranscript sanitizes assistant turns in a whole message list,
// using the wider conversation length budget.
func (a *Assistant) PostprocessTranscript(messages []domain.ChatMessage) []domain.ChatMessage {
	return a.processor.ProcessMessages(messages)
}

// Stats exposes per-section cache observability.
func (a *Assistant) Stats() map[string]domain.SectionStats {
	if a.cache == nil {
		return map[string]domain.SectionStats{}
	}
	return a.cache.Stats()
}
