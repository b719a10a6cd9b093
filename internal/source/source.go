package source

import (
	"context"
	"fmt"

	"newsassist/internal/domain"
)

// Source captures a single feed-fetching strategy (RSS today; other
// syndication kinds register alongside it).
type Source interface {
	Name() string
	Fetch(ctx context.Context, feedURL string) (domain.Feed, error)
}

// Registry keeps a mapping from source kinds to their implementations.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register adds or replaces a source implementation.
func (r *Registry) Register(src Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	r.sources[src.Name()] = src
}

// Resolve returns a source by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Source, error) {
	if src, ok := r.sources[kind]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("source %s is not registered", kind)
}
