package imdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"CineScanner/internal/domain"
	"CineScanner/internal/scraper"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var _ scraper.Scraper = (*Scraper)(nil)

// Options tunes the scraper. Zero values fall back to defaults.
type Options struct {
	BaseURL         string
	RateLimit       time.Duration
	FetchTimeout    time.Duration
	FuzzyThreshold  float64
	RetryAttempts   int
	MaxReviews      int
	MinReviewLength int
}

// Scraper collects ratings and user reviews from the server-rendered
// movie database site.
type Scraper struct {
	client    *http.Client
	limiter   *rate.Limiter
	log       *slog.Logger
	baseURL   string
	threshold float64
	retries   int
	maxItems  int
	minLength int
}

// New builds an IMDb scraper with a shared rate limiter so that
// resolution, review and rating fetches all respect the same delay.
func New(opts Options, log *slog.Logger) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.imdb.com"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = 0.7
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = 50
	}
	if opts.MinReviewLength <= 0 {
		opts.MinReviewLength = domain.MinReviewLength
	}
	return &Scraper{
		client:    &http.Client{Timeout: opts.FetchTimeout},
		limiter:   rate.NewLimiter(rate.Every(opts.RateLimit), 1),
		log:       log,
		baseURL:   opts.BaseURL,
		threshold: opts.FuzzyThreshold,
		retries:   opts.RetryAttempts,
		maxItems:  opts.MaxReviews,
		minLength: opts.MinReviewLength,
	}
}

// Name identifies the source in registries and run logs.
func (s *Scraper) Name() domain.Source {
	return domain.SourceIMDb
}

// Scrape resolves the movie, then gathers its aggregate rating and
// user reviews. Resolution failure aborts with ErrNoMatch; failures
// past that point degrade to a partial result.
func (s *Scraper) Scrape(ctx context.Context, req scraper.Request) (scraper.Result, error) {
	id, err := s.Resolve(ctx, req.Query)
	if err != nil {
		return scraper.Result{}, err
	}
	s.log.Info("resolved movie",
		"title", req.Query.Title, "imdb_id", id.ExternalID,
		"via", id.ResolvedVia, "confidence", id.MatchConfidence)

	result := scraper.Result{Identifier: id}

	if obs, err := s.FetchRating(ctx, id.ExternalID); err != nil {
		s.log.Warn("rating fetch failed", "imdb_id", id.ExternalID, "error", err)
	} else {
		result.Rating = obs
	}

	limit := req.MaxReviews
	if limit <= 0 || limit > s.maxItems {
		limit = s.maxItems
	}
	reviews, err := s.FetchReviews(ctx, id.ExternalID, limit)
	if err != nil {
		s.log.Warn("review fetch failed", "imdb_id", id.ExternalID, "error", err)
		return result, nil
	}
	result.Reviews = reviews
	return result, nil
}

// fetchDocument performs a polite GET with retries and parses the body.
func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		doc, err := s.fetchOnce(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		s.log.Debug("fetch attempt failed", "url", url, "attempt", attempt, "error", err)
		if attempt < s.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return nil, lastErr
}

func (s *Scraper) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &scraper.TransportError{Op: "get " + url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &scraper.TransportError{
			Op:  "get " + url,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
