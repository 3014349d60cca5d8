package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CineScanner/internal/domain"
	"CineScanner/internal/ports"
	"CineScanner/internal/rating"
	"CineScanner/internal/scraper"
)

// Run log status values.
const (
	StatusSuccess = "success"
	StatusNoMatch = "no_match"
	StatusError   = "error"
)

// PipelineDeps wires the adapters into the collection pipeline.
type PipelineDeps struct {
	Repository ports.MovieRepository
	Scrapers   *scraper.Registry
	Logger     *slog.Logger
	MaxReviews int
}

// Pipeline orchestrates collection for a list of movies: resolve each
// movie on every source, persist reviews, and fold the observed ratings
// into a recommendation.
type Pipeline struct {
	repository ports.MovieRepository
	scrapers   *scraper.Registry
	log        *slog.Logger
	maxReviews int
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		repository: deps.Repository,
		scrapers:   deps.Scrapers,
		log:        log,
		maxReviews: deps.MaxReviews,
	}
}

// MovieOutcome is the per-movie result of a collection run.
type MovieOutcome struct {
	Movie             domain.MovieRecord
	Rating            domain.ReconciledRating
	ReviewsCollected  int
	DuplicatesDropped int
	Unresolved        []domain.Source
	Errors            []error
}

// Run processes the queries sequentially. One movie's failure never
// aborts the rest of the run.
func (p *Pipeline) Run(ctx context.Context, queries []domain.MovieQuery) (domain.RunSummary, []MovieOutcome, error) {
	runID := uuid.NewString()
	p.log.Info("collection run started", "run_id", runID, "movies", len(queries))

	var (
		summary  domain.RunSummary
		outcomes []MovieOutcome
	)
	for _, q := range queries {
		outcome, err := p.CollectMovie(ctx, runID, q)
		if err != nil {
			if ctx.Err() != nil {
				return summary, outcomes, ctx.Err()
			}
			p.log.Error("movie collection failed", "title", q.Title, "error", err)
			summary.Errors++
			continue
		}
		outcomes = append(outcomes, outcome)

		summary.ReviewsCollected += outcome.ReviewsCollected
		summary.DuplicatesDropped += outcome.DuplicatesDropped
		summary.Errors += len(outcome.Errors)
		summary.Unresolved += len(outcome.Unresolved)
		if len(outcome.Unresolved) < p.scrapers.Len() {
			summary.Resolved++
		}
	}
	p.log.Info("collection run finished", "run_id", runID,
		"resolved", summary.Resolved, "unresolved", summary.Unresolved,
		"reviews", summary.ReviewsCollected, "duplicates", summary.DuplicatesDropped,
		"errors", summary.Errors)
	return summary, outcomes, nil
}

// CollectMovie runs every registered source for one movie. Each source
// gets its own run log entry; a failed resolution is a recorded outcome,
// not an error.
func (p *Pipeline) CollectMovie(ctx context.Context, runID string, q domain.MovieQuery) (MovieOutcome, error) {
	record, err := p.ensureMovie(ctx, q)
	if err != nil {
		return MovieOutcome{}, err
	}

	outcome := MovieOutcome{Movie: record}
	var observations []domain.RatingObservation
	if record.TMDBRating > 0 {
		observations = append(observations, domain.RatingObservation{
			Provider:   "tmdb_dataset",
			Value:      record.TMDBRating,
			VoteCount:  record.TMDBVoteCount,
			ObservedAt: record.UpdatedAt,
		})
	}

	for _, src := range p.scrapers.All() {
		started := time.Now()
		result, err := src.Scrape(ctx, scraper.Request{Query: q, MaxReviews: p.maxReviews})

		entry := domain.RunLog{
			RunID:    runID,
			Source:   src.Name(),
			Duration: time.Since(started),
		}
		switch {
		case errors.Is(err, scraper.ErrNoMatch):
			entry.Status = StatusNoMatch
			outcome.Unresolved = append(outcome.Unresolved, src.Name())
			p.log.Info("movie not resolved", "title", q.Title, "source", src.Name())
		case err != nil:
			entry.Status = StatusError
			entry.ErrorMessage = err.Error()
			outcome.Errors = append(outcome.Errors, err)
			p.log.Warn("source failed", "title", q.Title, "source", src.Name(),
				"retryable", scraper.IsRetryable(err), "error", err)
		default:
			inserted, insErr := p.repository.InsertReviews(ctx, record.ID, src.Name(), result.Reviews)
			if insErr != nil {
				entry.Status = StatusError
				entry.ErrorMessage = insErr.Error()
				outcome.Errors = append(outcome.Errors, insErr)
			} else {
				entry.Status = StatusSuccess
				entry.ItemsCollected = inserted
				outcome.ReviewsCollected += inserted
				outcome.DuplicatesDropped += result.DuplicatesDropped
			}

			record = applyResult(record, result)
			if result.Rating != nil {
				observations = append(observations, *result.Rating)
			}
		}
		if logErr := p.repository.RecordRunLog(ctx, entry); logErr != nil {
			p.log.Warn("run log write failed", "source", src.Name(), "error", logErr)
		}
	}

	record, err = p.repository.UpsertMovie(ctx, record)
	if err != nil {
		return MovieOutcome{}, err
	}
	outcome.Movie = record
	outcome.Rating = rating.Recommend(observations, time.Now())
	return outcome, nil
}

// ensureMovie loads the stored record or creates a bare one so reviews
// have a row to attach to.
func (p *Pipeline) ensureMovie(ctx context.Context, q domain.MovieQuery) (domain.MovieRecord, error) {
	existing, err := p.repository.FindMovie(ctx, q.Title, q.Year)
	if err != nil {
		return domain.MovieRecord{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	return p.repository.UpsertMovie(ctx, domain.MovieRecord{
		Title:       q.Title,
		ReleaseYear: q.Year,
	})
}

// applyResult copies a source's findings onto the movie record.
func applyResult(record domain.MovieRecord, result scraper.Result) domain.MovieRecord {
	switch result.Identifier.Source {
	case domain.SourceIMDb:
		record.IMDbID = result.Identifier.ExternalID
		if result.Rating != nil {
			record.IMDbRating = result.Rating.Value
			record.IMDbVoteCount = result.Rating.VoteCount
		}
		record.ScrapedAt = time.Now()
	case domain.SourceRotten:
		record.RTSlug = result.Identifier.ExternalID
		if result.Rating != nil {
			record.RTTomatometer = result.Rating.Value * 10
		}
	}
	return record
}
