package domain

import "time"

// Source identifies an external provider of movie metadata or reviews.
type Source string

const (
	SourceIMDb   Source = "imdb"
	SourceRotten Source = "rotten_tomatoes"
	SourceTMDB   Source = "tmdb_csv"
)

// ResolvedVia records which resolution strategy produced an identifier.
type ResolvedVia string

const (
	ResolvedExact             ResolvedVia = "exact"
	ResolvedFuzzy             ResolvedVia = "fuzzy"
	ResolvedGeneratedFallback ResolvedVia = "generated-fallback"
)

// MovieQuery is the immutable input to identifier resolution.
// A zero Year means the release year is unknown.
type MovieQuery struct {
	Title string
	Year  int
}

// SourceIdentifier is a stable per-source movie key. May be absent for a
// movie: resolution failure is a valid terminal outcome, not an error.
type SourceIdentifier struct {
	Source          Source
	ExternalID      string
	MatchConfidence float64
	ResolvedVia     ResolvedVia
}

// CandidateResult is an ephemeral row parsed from a search-results page.
type CandidateResult struct {
	DisplayTitle string
	ExternalID   string
	Year         int
}

// MovieRecord is the persisted canonical movie with provenance metadata
// merged from every provider.
type MovieRecord struct {
	ID          int64
	Title       string
	ReleaseYear int
	Genres      []string
	Overview    string
	Runtime     int
	Language    string

	// Bulk-dataset ratings.
	TMDBRating    float64
	TMDBVoteCount int
	Popularity    float64

	// Live-scraped IMDb data.
	IMDbID        string
	IMDbRating    float64
	IMDbVoteCount int
	ScrapedAt     time.Time

	// Rotten Tomatoes data. Tomatometer is kept on its native 0-100 scale.
	RTSlug        string
	RTTomatometer float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunLog records one source's outcome within a collection run.
type RunLog struct {
	RunID          string
	Source         Source
	Status         string
	ItemsCollected int
	Duration       time.Duration
	ErrorMessage   string
}

// RunSummary aggregates outcomes across a whole run, enough to spot
// systemic breakage such as every resolution suddenly failing.
type RunSummary struct {
	Resolved          int
	Unresolved        int
	ReviewsCollected  int
	DuplicatesDropped int
	Errors            int
}
