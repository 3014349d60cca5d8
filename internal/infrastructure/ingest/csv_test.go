package ingest

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CineScanner/internal/domain"
)

type fakeRepo struct {
	upserts []domain.MovieRecord
	fail    map[string]bool
}

func (f *fakeRepo) FindMovie(context.Context, string, int) (*domain.MovieRecord, error) {
	return nil, nil
}

func (f *fakeRepo) UpsertMovie(_ context.Context, rec domain.MovieRecord) (domain.MovieRecord, error) {
	if f.fail[rec.Title] {
		return domain.MovieRecord{}, assert.AnError
	}
	f.upserts = append(f.upserts, rec)
	rec.ID = int64(len(f.upserts))
	return rec, nil
}

func (f *fakeRepo) InsertReviews(context.Context, int64, domain.Source, []domain.RawReview) (int, error) {
	return 0, nil
}

func (f *fakeRepo) RecordRunLog(context.Context, domain.RunLog) error { return nil }

func testLoader(repo *fakeRepo) *Loader {
	return NewLoader(repo, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
}

func TestLoadStandardExport(t *testing.T) {
	csv := `title,release_date,vote_average,vote_count,popularity,genres,original_language,runtime
Heat,1995-12-15,7.9,6500,42.1,Crime|Thriller,en,170
Alien,1979-05-25,8.1,12000,55.8,"Horror|Science Fiction",en,117
`
	repo := &fakeRepo{}
	stats, err := testLoader(repo).Load(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Loaded: 2}, stats)

	require.Len(t, repo.upserts, 2)
	heat := repo.upserts[0]
	assert.Equal(t, "Heat", heat.Title)
	assert.Equal(t, 1995, heat.ReleaseYear)
	assert.Equal(t, 7.9, heat.TMDBRating)
	assert.Equal(t, 6500, heat.TMDBVoteCount)
	assert.Equal(t, []string{"Crime", "Thriller"}, heat.Genres)
	assert.Equal(t, 170, heat.Runtime)
	assert.Equal(t, "en", heat.Language)
}

func TestLoadSynonymColumns(t *testing.T) {
	csv := `movie_title,year,rating,genre
Blade Runner,1982,8.1,"Science Fiction, Noir"
`
	repo := &fakeRepo{}
	stats, err := testLoader(repo).Load(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Loaded)

	rec := repo.upserts[0]
	assert.Equal(t, "Blade Runner", rec.Title)
	assert.Equal(t, 1982, rec.ReleaseYear)
	assert.Equal(t, []string{"Science Fiction", "Noir"}, rec.Genres)
}

func TestLoadSkipsAndErrors(t *testing.T) {
	csv := `title,year
,1999
Broken Movie,2001
Good Movie,2003
`
	repo := &fakeRepo{fail: map[string]bool{"Broken Movie": true}}
	stats, err := testLoader(repo).Load(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Loaded: 1, Skipped: 1, Errors: 1}, stats)
}

func TestLoadRejectsUnknownHeader(t *testing.T) {
	_, err := testLoader(&fakeRepo{}).Load(context.Background(),
		strings.NewReader("foo,bar\n1,2\n"))
	assert.Error(t, err)
}
