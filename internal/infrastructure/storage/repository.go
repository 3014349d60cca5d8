package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CineScanner/internal/domain"
	"CineScanner/internal/ports"
)

const defaultCommitBatch = 100

var _ ports.MovieRepository = (*MovieRepository)(nil)

// MovieRepository implements the persistence port on the SQLite store.
type MovieRepository struct {
	store       *Store
	commitBatch int
}

// NewMovieRepository wires a repository over an open store.
func NewMovieRepository(store *Store) *MovieRepository {
	return &MovieRepository{store: store, commitBatch: defaultCommitBatch}
}

var movieColumns = []string{
	"id", "title", "release_year", "genres", "overview", "runtime", "language",
	"tmdb_rating", "tmdb_vote_count", "popularity",
	"imdb_id", "imdb_rating", "imdb_vote_count", "scraped_at",
	"rt_slug", "rt_tomatometer", "created_at", "updated_at",
}

// FindMovie looks a movie up by its canonical title and year. A miss
// returns nil without an error.
func (r *MovieRepository) FindMovie(ctx context.Context, title string, year int) (*domain.MovieRecord, error) {
	query := r.store.builder.
		Select(movieColumns...).
		From("movies").
		Where(sq.Eq{"title": title, "release_year": year})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}
	rec, err := scanMovie(r.store.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find movie: %w", err)
	}
	return &rec, nil
}

// UpsertMovie inserts or updates the record and returns it with its
// database ID filled in. Identity is the IMDb ID when known, the
// title and year pair otherwise.
func (r *MovieRepository) UpsertMovie(ctx context.Context, rec domain.MovieRecord) (domain.MovieRecord, error) {
	existing, err := r.lookupExisting(ctx, rec)
	if err != nil {
		return domain.MovieRecord{}, err
	}
	now := time.Now().UTC()

	if existing == nil {
		rec.CreatedAt = now
		rec.UpdatedAt = now
		query := r.store.builder.
			Insert("movies").
			Columns("title", "release_year", "genres", "overview", "runtime", "language",
				"tmdb_rating", "tmdb_vote_count", "popularity",
				"imdb_id", "imdb_rating", "imdb_vote_count", "scraped_at",
				"rt_slug", "rt_tomatometer", "created_at", "updated_at").
			Values(rec.Title, rec.ReleaseYear, joinGenres(rec.Genres), rec.Overview, rec.Runtime, rec.Language,
				rec.TMDBRating, rec.TMDBVoteCount, rec.Popularity,
				rec.IMDbID, rec.IMDbRating, rec.IMDbVoteCount, nullTime(rec.ScrapedAt),
				rec.RTSlug, rec.RTTomatometer, rec.CreatedAt, rec.UpdatedAt)

		sqlStr, args, err := query.ToSql()
		if err != nil {
			return domain.MovieRecord{}, fmt.Errorf("build insert: %w", err)
		}
		res, err := r.store.db.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return domain.MovieRecord{}, fmt.Errorf("insert movie: %w", err)
		}
		rec.ID, err = res.LastInsertId()
		if err != nil {
			return domain.MovieRecord{}, fmt.Errorf("read insert id: %w", err)
		}
		return rec, nil
	}

	merged := mergeRecord(*existing, rec)
	merged.UpdatedAt = now
	query := r.store.builder.
		Update("movies").
		SetMap(map[string]interface{}{
			"title":           merged.Title,
			"release_year":    merged.ReleaseYear,
			"genres":          joinGenres(merged.Genres),
			"overview":        merged.Overview,
			"runtime":         merged.Runtime,
			"language":        merged.Language,
			"tmdb_rating":     merged.TMDBRating,
			"tmdb_vote_count": merged.TMDBVoteCount,
			"popularity":      merged.Popularity,
			"imdb_id":         merged.IMDbID,
			"imdb_rating":     merged.IMDbRating,
			"imdb_vote_count": merged.IMDbVoteCount,
			"scraped_at":      nullTime(merged.ScrapedAt),
			"rt_slug":         merged.RTSlug,
			"rt_tomatometer":  merged.RTTomatometer,
			"updated_at":      merged.UpdatedAt,
		}).
		Where(sq.Eq{"id": existing.ID})

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return domain.MovieRecord{}, fmt.Errorf("build update: %w", err)
	}
	if _, err := r.store.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return domain.MovieRecord{}, fmt.Errorf("update movie: %w", err)
	}
	merged.ID = existing.ID
	return merged, nil
}

func (r *MovieRepository) lookupExisting(ctx context.Context, rec domain.MovieRecord) (*domain.MovieRecord, error) {
	if rec.ID != 0 {
		return r.findBy(ctx, sq.Eq{"id": rec.ID})
	}
	if rec.IMDbID != "" {
		if found, err := r.findBy(ctx, sq.Eq{"imdb_id": rec.IMDbID}); err != nil || found != nil {
			return found, err
		}
	}
	return r.findBy(ctx, sq.Eq{"title": rec.Title, "release_year": rec.ReleaseYear})
}

func (r *MovieRepository) findBy(ctx context.Context, where sq.Eq) (*domain.MovieRecord, error) {
	sqlStr, args, err := r.store.builder.
		Select(movieColumns...).
		From("movies").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookup: %w", err)
	}
	rec, err := scanMovie(r.store.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup movie: %w", err)
	}
	return &rec, nil
}

// mergeRecord overlays incoming non-zero fields on the stored record,
// so a partial source update never wipes another source's data.
func mergeRecord(base, in domain.MovieRecord) domain.MovieRecord {
	if in.Title != "" {
		base.Title = in.Title
	}
	if in.ReleaseYear != 0 {
		base.ReleaseYear = in.ReleaseYear
	}
	if len(in.Genres) > 0 {
		base.Genres = in.Genres
	}
	if in.Overview != "" {
		base.Overview = in.Overview
	}
	if in.Runtime != 0 {
		base.Runtime = in.Runtime
	}
	if in.Language != "" {
		base.Language = in.Language
	}
	if in.TMDBRating != 0 {
		base.TMDBRating = in.TMDBRating
		base.TMDBVoteCount = in.TMDBVoteCount
	}
	if in.Popularity != 0 {
		base.Popularity = in.Popularity
	}
	if in.IMDbID != "" {
		base.IMDbID = in.IMDbID
	}
	if in.IMDbRating != 0 {
		base.IMDbRating = in.IMDbRating
		base.IMDbVoteCount = in.IMDbVoteCount
	}
	if !in.ScrapedAt.IsZero() {
		base.ScrapedAt = in.ScrapedAt
	}
	if in.RTSlug != "" {
		base.RTSlug = in.RTSlug
	}
	if in.RTTomatometer != 0 {
		base.RTTomatometer = in.RTTomatometer
	}
	return base
}

// InsertReviews stores extracted reviews in batches. A source_id
// conflict is skipped silently, making reruns idempotent. Returns the
// number of rows actually written.
func (r *MovieRepository) InsertReviews(ctx context.Context, movieID int64, source domain.Source, reviews []domain.RawReview) (int, error) {
	inserted := 0
	for start := 0; start < len(reviews); start += r.commitBatch {
		end := start + r.commitBatch
		if end > len(reviews) {
			end = len(reviews)
		}
		n, err := r.insertBatch(ctx, movieID, source, reviews[start:end])
		inserted += n
		if err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

func (r *MovieRepository) insertBatch(ctx context.Context, movieID int64, source domain.Source, reviews []domain.RawReview) (int, error) {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, rev := range reviews {
		query := r.store.builder.
			Insert("reviews").
			Columns("movie_id", "source", "source_id", "fingerprint", "text", "rating",
				"title", "author", "published_at", "upvotes", "downvotes",
				"category", "length_chars", "word_count").
			Values(movieID, string(source), rev.SourceID, rev.Fingerprint(), rev.Text, rev.Rating,
				rev.Title, rev.Author, nullTime(rev.PublishedAt), rev.Upvotes, rev.Downvotes,
				string(rev.Category), rev.LengthChars, rev.WordCount).
			Suffix("ON CONFLICT (source_id) DO NOTHING")

		sqlStr, args, err := query.ToSql()
		if err != nil {
			return inserted, fmt.Errorf("build review insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return inserted, fmt.Errorf("insert review: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return inserted, nil
}

// RecordRunLog appends one source outcome for a collection run.
func (r *MovieRepository) RecordRunLog(ctx context.Context, entry domain.RunLog) error {
	sqlStr, args, err := r.store.builder.
		Insert("scraping_logs").
		Columns("run_id", "source", "status", "items_collected", "duration_ms", "error_message").
		Values(entry.RunID, string(entry.Source), entry.Status,
			entry.ItemsCollected, entry.Duration.Milliseconds(), entry.ErrorMessage).
		ToSql()
	if err != nil {
		return fmt.Errorf("build log insert: %w", err)
	}
	if _, err := r.store.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMovie(row rowScanner) (domain.MovieRecord, error) {
	var (
		rec       domain.MovieRecord
		genres    string
		scrapedAt sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.Title, &rec.ReleaseYear, &genres, &rec.Overview, &rec.Runtime, &rec.Language,
		&rec.TMDBRating, &rec.TMDBVoteCount, &rec.Popularity,
		&rec.IMDbID, &rec.IMDbRating, &rec.IMDbVoteCount, &scrapedAt,
		&rec.RTSlug, &rec.RTTomatometer, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.MovieRecord{}, err
	}
	rec.Genres = splitGenres(genres)
	if scrapedAt.Valid {
		rec.ScrapedAt = scrapedAt.Time
	}
	return rec, nil
}

func joinGenres(genres []string) string {
	return strings.Join(genres, "|")
}

func splitGenres(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "|")
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
