// Package storage persists consolidated movies, reviews and run logs
// in a local SQLite database.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS movies (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    title           TEXT NOT NULL,
    release_year    INTEGER NOT NULL DEFAULT 0,
    genres          TEXT NOT NULL DEFAULT '',
    overview        TEXT NOT NULL DEFAULT '',
    runtime         INTEGER NOT NULL DEFAULT 0,
    language        TEXT NOT NULL DEFAULT '',
    tmdb_rating     REAL NOT NULL DEFAULT 0,
    tmdb_vote_count INTEGER NOT NULL DEFAULT 0,
    popularity      REAL NOT NULL DEFAULT 0,
    imdb_id         TEXT NOT NULL DEFAULT '',
    imdb_rating     REAL NOT NULL DEFAULT 0,
    imdb_vote_count INTEGER NOT NULL DEFAULT 0,
    scraped_at      TIMESTAMP,
    rt_slug         TEXT NOT NULL DEFAULT '',
    rt_tomatometer  REAL NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (title, release_year)
);
CREATE INDEX IF NOT EXISTS idx_movies_imdb_id ON movies (imdb_id);

CREATE TABLE IF NOT EXISTS reviews (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    movie_id     INTEGER NOT NULL REFERENCES movies (id),
    source       TEXT NOT NULL,
    source_id    TEXT NOT NULL UNIQUE,
    fingerprint  TEXT NOT NULL,
    text         TEXT NOT NULL,
    rating       REAL NOT NULL DEFAULT 0,
    title        TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP,
    upvotes      INTEGER NOT NULL DEFAULT 0,
    downvotes    INTEGER NOT NULL DEFAULT 0,
    category     TEXT NOT NULL DEFAULT '',
    length_chars INTEGER NOT NULL DEFAULT 0,
    word_count   INTEGER NOT NULL DEFAULT 0,
    created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reviews_movie ON reviews (movie_id);
CREATE INDEX IF NOT EXISTS idx_reviews_fingerprint ON reviews (fingerprint);

CREATE TABLE IF NOT EXISTS scraping_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT NOT NULL,
    source          TEXT NOT NULL,
    status          TEXT NOT NULL,
    items_collected INTEGER NOT NULL DEFAULT 0,
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    error_message   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_logs_run ON scraping_logs (run_id);
`

// Store owns the database handle and the shared statement builder.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// Open creates the database file if needed, enables WAL mode and
// applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
