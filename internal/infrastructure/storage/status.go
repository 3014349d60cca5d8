package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CineScanner/internal/domain"
)

// MovieStatus is one row of the collection overview.
type MovieStatus struct {
	Title         string
	ReleaseYear   int
	IMDbID        string
	IMDbRating    float64
	RTTomatometer float64
	ReviewCount   int
	ScrapedAt     time.Time
}

// Status summarizes what the database currently holds.
type Status struct {
	Movies     int
	Reviews    int
	Runs       int
	BySource   map[string]int
	ByCategory map[string]int
	RecentRuns []domain.RunLog
	Collection []MovieStatus
}

// Status reports database totals, the latest run outcomes and a
// per-movie collection overview.
func (r *MovieRepository) Status(ctx context.Context, recentRuns int) (Status, error) {
	var st Status
	for _, q := range []struct {
		table string
		dest  *int
	}{
		{"movies", &st.Movies},
		{"reviews", &st.Reviews},
		{"scraping_logs", &st.Runs},
	} {
		sqlStr, args, err := r.store.builder.Select("COUNT(*)").From(q.table).ToSql()
		if err != nil {
			return Status{}, fmt.Errorf("build count: %w", err)
		}
		if err := r.store.db.QueryRowContext(ctx, sqlStr, args...).Scan(q.dest); err != nil {
			return Status{}, fmt.Errorf("count %s: %w", q.table, err)
		}
	}

	var err error
	st.BySource, err = r.reviewCounts(ctx, "source")
	if err != nil {
		return Status{}, err
	}
	st.ByCategory, err = r.reviewCounts(ctx, "category")
	if err != nil {
		return Status{}, err
	}

	runs, err := r.recentRunLogs(ctx, recentRuns)
	if err != nil {
		return Status{}, err
	}
	st.RecentRuns = runs

	collection, err := r.collectionOverview(ctx)
	if err != nil {
		return Status{}, err
	}
	st.Collection = collection
	return st, nil
}

// reviewCounts groups stored reviews by a low-cardinality column.
func (r *MovieRepository) reviewCounts(ctx context.Context, column string) (map[string]int, error) {
	sqlStr, args, err := r.store.builder.
		Select(column, "COUNT(*)").
		From("reviews").
		GroupBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s counts: %w", column, err)
	}
	rows, err := r.store.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s counts: %w", column, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", column, err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (r *MovieRepository) recentRunLogs(ctx context.Context, limit int) ([]domain.RunLog, error) {
	if limit <= 0 {
		limit = 10
	}
	sqlStr, args, err := r.store.builder.
		Select("run_id", "source", "status", "items_collected", "duration_ms", "error_message").
		From("scraping_logs").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run query: %w", err)
	}
	rows, err := r.store.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunLog
	for rows.Next() {
		var (
			entry      domain.RunLog
			source     string
			durationMS int64
		)
		if err := rows.Scan(&entry.RunID, &source, &entry.Status,
			&entry.ItemsCollected, &durationMS, &entry.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		entry.Source = domain.Source(source)
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *MovieRepository) collectionOverview(ctx context.Context) ([]MovieStatus, error) {
	sqlStr, args, err := r.store.builder.
		Select("m.title", "m.release_year", "m.imdb_id", "m.imdb_rating",
			"m.rt_tomatometer", "COUNT(rv.id)", "m.scraped_at").
		From("movies m").
		LeftJoin("reviews rv ON rv.movie_id = m.id").
		GroupBy("m.id").
		OrderBy("m.title").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overview query: %w", err)
	}
	rows, err := r.store.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}
	defer rows.Close()

	var out []MovieStatus
	for rows.Next() {
		var (
			ms        MovieStatus
			scrapedAt sql.NullTime
		)
		if err := rows.Scan(&ms.Title, &ms.ReleaseYear, &ms.IMDbID, &ms.IMDbRating,
			&ms.RTTomatometer, &ms.ReviewCount, &scrapedAt); err != nil {
			return nil, fmt.Errorf("scan overview: %w", err)
		}
		if scrapedAt.Valid {
			ms.ScrapedAt = scrapedAt.Time
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}
