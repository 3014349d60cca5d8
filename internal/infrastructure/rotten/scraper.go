package rotten

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"CineScanner/internal/dedup"
	"CineScanner/internal/domain"
	"CineScanner/internal/ports"
	"CineScanner/internal/scraper"
)

var _ scraper.Scraper = (*Scraper)(nil)

// Options tunes the scraper. Zero values fall back to defaults.
type Options struct {
	BaseURL         string
	RateLimit       time.Duration
	ElementTimeout  time.Duration
	FuzzyThreshold  float64
	MaxReviews      int
	MaxScrolls      int
	MinReviewLength int
}

// Scraper drives a headless browser session through the review site's
// client-rendered pages. All page access goes through the session port,
// so the extraction logic stays independent of the browser runtime.
type Scraper struct {
	browser     ports.Browser
	limiter     *rate.Limiter
	log         *slog.Logger
	baseURL     string
	threshold   float64
	waitTimeout time.Duration
	maxItems    int
	maxScrolls  int
	minLength   int
}

func New(browser ports.Browser, opts Options, log *slog.Logger) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.rottentomatoes.com"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 3 * time.Second
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 15 * time.Second
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = 0.7
	}
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = 50
	}
	if opts.MaxScrolls <= 0 {
		opts.MaxScrolls = 5
	}
	if opts.MinReviewLength <= 0 {
		opts.MinReviewLength = domain.MinReviewLength
	}
	return &Scraper{
		browser:     browser,
		limiter:     rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		log:         log,
		baseURL:     opts.BaseURL,
		threshold:   opts.FuzzyThreshold,
		waitTimeout: opts.ElementTimeout,
		maxItems:    opts.MaxReviews,
		maxScrolls:  opts.MaxScrolls,
		minLength:   opts.MinReviewLength,
	}
}

func (s *Scraper) Name() domain.Source {
	return domain.SourceRotten
}

// Scrape resolves the movie slug, reads the critic score and gathers
// reviews across all four audience segments, merging duplicates with
// category priority.
func (s *Scraper) Scrape(ctx context.Context, req scraper.Request) (scraper.Result, error) {
	session, err := s.browser.OpenSession(ctx)
	if err != nil {
		return scraper.Result{}, &scraper.SessionError{Err: err}
	}
	defer session.Close()

	id, err := s.resolve(ctx, session, req.Query)
	if err != nil {
		return scraper.Result{}, err
	}
	s.log.Info("resolved movie",
		"title", req.Query.Title, "slug", id.ExternalID,
		"via", id.ResolvedVia, "confidence", id.MatchConfidence)

	result := scraper.Result{Identifier: id}

	if obs, err := s.fetchScore(ctx, session, id.ExternalID); err != nil {
		s.log.Warn("score fetch failed", "slug", id.ExternalID, "error", err)
	} else {
		result.Rating = obs
	}

	limit := req.MaxReviews
	if limit <= 0 || limit > s.maxItems {
		limit = s.maxItems
	}

	var batches []dedup.Batch
	for _, ep := range endpoints {
		batch, err := s.fetchSegment(ctx, session, id.ExternalID, ep, limit)
		if err != nil {
			s.log.Warn("segment fetch failed", "slug", id.ExternalID, "segment", ep.name, "error", err)
			continue
		}
		batches = append(batches, dedup.Batch{Category: ep.category, Reviews: batch})
	}
	result.Reviews = dedup.Merge(batches)
	result.DuplicatesDropped = dedup.Count(batches) - len(result.Reviews)
	return result, nil
}

func (s *Scraper) navigate(ctx context.Context, session ports.BrowserSession, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := session.Navigate(ctx, url); err != nil {
		return &scraper.TransportError{Op: "navigate " + url, Err: err}
	}
	return nil
}
