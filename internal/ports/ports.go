package ports

import (
	"context"
	"time"

	"CineScanner/internal/domain"
)

// MovieRepository is the persistence port for consolidated movie records,
// reviews, and run logs. Review insertion is idempotent per row: a
// source_id conflict is a no-op, so reruns never duplicate content.
type MovieRepository interface {
	FindMovie(ctx context.Context, title string, year int) (*domain.MovieRecord, error)
	UpsertMovie(ctx context.Context, rec domain.MovieRecord) (domain.MovieRecord, error)
	InsertReviews(ctx context.Context, movieID int64, source domain.Source, reviews []domain.RawReview) (int, error)
	RecordRunLog(ctx context.Context, entry domain.RunLog) error
}

// Browser opens isolated interactive sessions for client-rendered sources.
// Sessions must never be shared across concurrent pipelines; each pipeline
// acquires its own and releases it on every exit path.
type Browser interface {
	OpenSession(ctx context.Context) (BrowserSession, error)
	Close() error
}

// BrowserSession is one live page handle. WaitForElement returns false on
// timeout; callers treat that as "no results", not an error.
type BrowserSession interface {
	Navigate(ctx context.Context, url string) error
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) bool
	Elements(selector string) []Element
	PageHeight() int
	ScrollToBottom()
	PageTitle() string
	Close() error
}

// Element is a DOM node handle. Lookup misses report ok=false; read
// failures on a detached node degrade to empty values, which extraction
// treats as a discarded record rather than an error.
type Element interface {
	Text() string
	Attribute(name string) string
	Find(selector string) (Element, bool)
	FindAll(selector string) []Element
}
