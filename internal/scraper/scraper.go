package scraper

import (
	"context"
	"fmt"

	"CineScanner/internal/domain"
)

// Request carries all parameters required to collect one movie from one source.
type Request struct {
	Query      domain.MovieQuery
	MaxReviews int
}

// Result is the per-source outcome of a scrape: the resolved identifier,
// the deduplicated review set, and optionally a live rating observation.
type Result struct {
	Identifier        domain.SourceIdentifier
	Reviews           []domain.RawReview
	Rating            *domain.RatingObservation
	DuplicatesDropped int
}

// Scraper captures a single source strategy (IMDb, Rotten Tomatoes, ...).
// Scrape returns ErrNoMatch when the movie cannot be resolved on the
// source; that is a valid terminal outcome, not a failure.
type Scraper interface {
	Name() domain.Source
	Scrape(ctx context.Context, req Request) (Result, error)
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	scrapers map[domain.Source]Scraper
	order    []domain.Source
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: map[domain.Source]Scraper{}}
}

// Register adds or replaces a scraper implementation, preserving
// registration order for iteration.
func (r *Registry) Register(s Scraper) {
	if _, exists := r.scrapers[s.Name()]; !exists {
		r.order = append(r.order, s.Name())
	}
	r.scrapers[s.Name()] = s
}

// Resolve returns a scraper by source name or an error if it is absent.
func (r *Registry) Resolve(name domain.Source) (Scraper, error) {
	if s, ok := r.scrapers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("scraper %s is not registered", name)
}

// Len reports how many scrapers are registered.
func (r *Registry) Len() int {
	return len(r.order)
}

// All returns every registered scraper in registration order.
func (r *Registry) All() []Scraper {
	out := make([]Scraper, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.scrapers[name])
	}
	return out
}
