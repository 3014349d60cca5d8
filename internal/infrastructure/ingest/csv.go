// Package ingest loads bulk movie datasets from CSV exports into the
// repository, tolerating the column-name drift between dataset versions.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"CineScanner/internal/domain"
	"CineScanner/internal/ports"
)

// columnSynonyms maps each logical field to header names seen across
// dataset exports, in preference order.
var columnSynonyms = map[string][]string{
	"title":      {"title", "original_title", "movie_title", "name"},
	"year":       {"release_year", "year"},
	"date":       {"release_date", "first_release_date"},
	"rating":     {"vote_average", "rating", "tmdb_rating", "score"},
	"votes":      {"vote_count", "votes"},
	"popularity": {"popularity"},
	"genres":     {"genres", "genre"},
	"overview":   {"overview", "description", "plot", "synopsis"},
	"runtime":    {"runtime", "duration"},
	"language":   {"original_language", "language"},
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006", "2006"}

// Stats summarizes one load.
type Stats struct {
	Total   int
	Loaded  int
	Skipped int
	Errors  int
}

// Loader reads CSV rows and upserts them through the repository port.
type Loader struct {
	repo ports.MovieRepository
	log  *slog.Logger
}

func NewLoader(repo ports.MovieRepository, log *slog.Logger) *Loader {
	return &Loader{repo: repo, log: log}
}

// Load ingests every row of the CSV stream. Rows without a usable title
// are skipped; per-row upsert failures are counted but do not stop the
// load.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Stats{}, fmt.Errorf("read header: %w", err)
	}
	cols := mapColumns(header)
	if _, ok := cols["title"]; !ok {
		return Stats{}, fmt.Errorf("no recognizable title column in %v", header)
	}

	var stats Stats
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.Errors++
			l.log.Debug("malformed csv row", "error", err)
			continue
		}
		stats.Total++

		rec, ok := parseRow(cols, row)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, err := l.repo.UpsertMovie(ctx, rec); err != nil {
			stats.Errors++
			l.log.Warn("upsert failed", "title", rec.Title, "error", err)
			continue
		}
		stats.Loaded++

		if stats.Loaded%100 == 0 {
			l.log.Info("load progress", "loaded", stats.Loaded, "total", stats.Total)
		}
	}
	l.log.Info("load complete",
		"total", stats.Total, "loaded", stats.Loaded,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

// mapColumns resolves each logical field to a column index, first
// synonym wins. Header comparison is case-insensitive and trimmed.
func mapColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make(map[string]int)
	for field, synonyms := range columnSynonyms {
		for _, syn := range synonyms {
			if i, ok := index[syn]; ok {
				cols[field] = i
				break
			}
		}
	}
	return cols
}

func parseRow(cols map[string]int, row []string) (domain.MovieRecord, bool) {
	title := strings.TrimSpace(cell(cols, row, "title"))
	if title == "" {
		return domain.MovieRecord{}, false
	}

	rec := domain.MovieRecord{
		Title:    title,
		Overview: strings.TrimSpace(cell(cols, row, "overview")),
		Language: strings.TrimSpace(cell(cols, row, "language")),
		Genres:   splitGenres(cell(cols, row, "genres")),
	}
	if y, err := strconv.Atoi(strings.TrimSpace(cell(cols, row, "year"))); err == nil {
		rec.ReleaseYear = y
	} else if t, ok := parseDate(cell(cols, row, "date")); ok {
		rec.ReleaseYear = t.Year()
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(cell(cols, row, "rating")), 64); err == nil && v >= 0 && v <= 10 {
		rec.TMDBRating = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(cell(cols, row, "votes"))); err == nil {
		rec.TMDBVoteCount = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(cell(cols, row, "popularity")), 64); err == nil {
		rec.Popularity = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(cell(cols, row, "runtime")), 64); err == nil {
		rec.Runtime = int(v)
	}
	return rec, true
}

func cell(cols map[string]int, row []string, field string) string {
	i, ok := cols[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func splitGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	sep := "|"
	if !strings.Contains(raw, "|") {
		sep = ","
	}
	var genres []string
	for _, g := range strings.Split(raw, sep) {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
