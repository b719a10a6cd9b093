package ports

import (
	"context"

	"newsassist/internal/domain"
)

// ItemArchive persists refreshed feed items for history/audit. Chat
// transcripts are never stored.
type ItemArchive interface {
	SaveItems(ctx context.Context, section string, items []domain.Item) error
	RecentItems(ctx context.Context, section string, limit int) ([]domain.Item, error)
}

// ChatClient talks to an LLM chat-completion API.
type ChatClient interface {
	// Complete returns the full assistant reply for the conversation.
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
	// Stream delivers the reply incrementally, invoking onFragment for each
	// raw text fragment in arrival order. A non-nil callback error aborts
	// the stream.
	Stream(ctx context.Context, messages []domain.ChatMessage, onFragment func(string) error) error
}

// Alerter pushes operational alerts to an out-of-band channel.
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// Refresher is what the background scheduler drives.
type Refresher interface {
	PreloadAll(ctx context.Context)
}

// Scheduler controls when background refreshes execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
