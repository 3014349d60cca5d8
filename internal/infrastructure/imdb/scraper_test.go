package imdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CineScanner/internal/domain"
	"CineScanner/internal/scraper"
)

func testScraper(t *testing.T, baseURL string) *Scraper {
	t.Helper()
	return New(Options{
		BaseURL:       baseURL,
		RateLimit:     time.Millisecond,
		RetryAttempts: 1,
	}, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
}

const modernSearchPage = `
<html><body>
<ul>
  <li class="ipc-metadata-list-summary-item">
    <a href="/title/tt0133093/?ref_=fn_al">The Matrix</a>
    <div class="cli-title-metadata"><span>1999</span><span>2h 16m</span></div>
  </li>
  <li class="ipc-metadata-list-summary-item">
    <a href="/title/tt0234215/?ref_=fn_al">The Matrix Reloaded</a>
    <div class="cli-title-metadata"><span>2003</span></div>
  </li>
</ul>
</body></html>`

func TestResolveExactTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "ttype=ft")
		fmt.Fprint(w, modernSearchPage)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	id, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "The Matrix", Year: 1999})
	require.NoError(t, err)
	assert.Equal(t, "tt0133093", id.ExternalID)
	assert.Equal(t, domain.ResolvedExact, id.ResolvedVia)
	assert.Equal(t, 1.0, id.MatchConfidence)
}

func TestResolveFuzzyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, modernSearchPage)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	id, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "Matrix Reloaded"})
	require.NoError(t, err)
	assert.Equal(t, "tt0234215", id.ExternalID)
	assert.Equal(t, domain.ResolvedFuzzy, id.ResolvedVia)
	assert.GreaterOrEqual(t, id.MatchConfidence, 0.7)
}

func TestResolveLegacyLayout(t *testing.T) {
	page := `<html><body><table>
<tr><td class="result_text"><a href="/title/tt0068646/">The Godfather</a> (1972)</td></tr>
</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	id, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "The Godfather", Year: 1972})
	require.NoError(t, err)
	assert.Equal(t, "tt0068646", id.ExternalID)
}

func TestResolveGenericHeuristics(t *testing.T) {
	// Only the released entry carries runtime metadata next to its link.
	page := `<html><body>
<div><a href="/title/tt0111161/">The Shawshank Redemption</a> 2h 22m 9.3(2.9M)</div>
<div><a href="/title/tt9999999/">The Shawshank Redemption Remake</a> (in development)</div>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	id, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "The Shawshank Redemption"})
	require.NoError(t, err)
	assert.Equal(t, "tt0111161", id.ExternalID)
}

func TestResolveNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, modernSearchPage)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	_, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "Completely Unrelated Documentary"})
	assert.ErrorIs(t, err, scraper.ErrNoMatch)
}

func TestResolveTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	_, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "The Matrix"})
	var te *scraper.TransportError
	assert.ErrorAs(t, err, &te)
}

func reviewArticle(title, text string) string {
	return fmt.Sprintf(`
<article class="user-review-item">
  <span data-testid="review-summary">%s</span>
  <span class="ipc-rating-star--rating">8</span>
  <div data-testid="review-content">%s</div>
  <a data-testid="author-link">somereviewer</a>
  <span class="review-date">12 March 2024</span>
</article>`, title, text)
}

func TestFetchReviews(t *testing.T) {
	body := "<html><body>" +
		reviewArticle("8/10 Brilliant from start to finish", "A masterwork of tension that rewards repeat viewing.") +
		reviewArticle("Too short", "meh") +
		"</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	r := reviews[0]
	assert.Equal(t, "Brilliant from start to finish", r.Title)
	assert.Equal(t, 8.0, r.Rating)
	assert.Equal(t, "somereviewer", r.Author)
	assert.Equal(t, domain.CategoryAudience, r.Category)
	assert.Equal(t, 2024, r.PublishedAt.Year())
}

func TestFetchReviewsHelpfulVotes(t *testing.T) {
	body := `<html><body><article class="user-review-item">
<div data-testid="review-content">Holds up on a rewatch better than almost anything from that year.</div>
<span class="ipc-voting__label__count--up">1,204</span>
<span class="ipc-voting__label__count--down">86</span>
</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 1204, reviews[0].Upvotes)
	assert.Equal(t, 86, reviews[0].Downvotes)
}

func TestFetchReviewsMinLengthBoundary(t *testing.T) {
	exact := strings.Repeat("a", domain.MinReviewLength)
	short := strings.Repeat("a", domain.MinReviewLength-1)
	body := "<html><body>" +
		reviewArticle("At the boundary", exact) +
		reviewArticle("Below the boundary", short) +
		"</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, exact, reviews[0].Text)
}

func TestFetchReviewsStripsSpoilerMarker(t *testing.T) {
	body := "<html><body>" + reviewArticle("Spoilery",
		"Warning: Spoilers The twist lands because the setup earns every beat of it.") +
		"</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.True(t, strings.HasPrefix(reviews[0].Text, "The twist lands"))
}

func TestFetchReviewsPagination(t *testing.T) {
	var ajaxCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "_ajax") {
			ajaxCalls++
			assert.Equal(t, "cursor-1", r.URL.Query().Get("paginationKey"))
			fmt.Fprint(w, "<html><body>"+
				reviewArticle("Second page", "Arrived via the load-more cursor and still counts.")+
				"</body></html>")
			return
		}
		fmt.Fprint(w, "<html><body>"+
			reviewArticle("First page", "Strong opening page review with plenty to say here.")+
			`<div class="load-more-data" data-key="cursor-1"></div>`+
			"</body></html>")
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, 1, ajaxCalls)
}

func TestFetchReviewsLimit(t *testing.T) {
	body := "<html><body>" +
		reviewArticle("One", "The first of several reviews that all clear the length gate.") +
		reviewArticle("Two", "The second of several reviews that all clear the length gate.") +
		reviewArticle("Three", "The third of several reviews that all clear the length gate.") +
		"</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 2)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
}

func TestFetchReviewsGenericFallback(t *testing.T) {
	// No known container layout, but a leaf block with a real body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><div class="unknown-wrapper">
<div>A substantial review body that survives the layout change and still reads like a review.</div>
</div></body></html>`)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Contains(t, reviews[0].Text, "substantial review body")
}

func TestFetchReviewsStructureMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><div class='totally-new-layout'>nothing familiar</div></body></html>")
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	_, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	var sm *scraper.StructureMismatchError
	assert.ErrorAs(t, err, &sm)
}

func TestRatingFromDocument(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">
{"@type":"Movie","aggregateRating":{"ratingValue":8.7,"ratingCount":2100000}}
</script>
</head><body></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)

	obs, err := ratingFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, ProviderName, obs.Provider)
	assert.Equal(t, 8.7, obs.Value)
	assert.Equal(t, 2100000, obs.VoteCount)
	assert.True(t, obs.Live)
}

func TestRatingFromDocumentMissing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	_, err = ratingFromDocument(doc)
	var sm *scraper.StructureMismatchError
	assert.ErrorAs(t, err, &sm)
}

func TestResolveRetriesWithYearQuery(t *testing.T) {
	var queries []string
	heatPage := `<html><body><ul>
<li class="ipc-metadata-list-summary-item">
  <a href="/title/tt0113277/">Heat</a>
  <div class="cli-title-metadata"><span>1995</span><span>2h 50m</span></div>
</li>
</ul></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if strings.Contains(q, "1995") {
			fmt.Fprint(w, heatPage)
			return
		}
		fmt.Fprint(w, "<html><body><ul></ul></body></html>")
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	id, err := s.Resolve(context.Background(), domain.MovieQuery{Title: "Heat", Year: 1995})
	require.NoError(t, err)
	assert.Equal(t, "tt0113277", id.ExternalID)
	assert.Equal(t, []string{"Heat", "Heat 1995"}, queries)
}

func TestFetchReviewsPaginationStalls(t *testing.T) {
	// The cursor page yields no reviews, only another cursor. The walk
	// must stop rather than chase keys forever.
	var ajaxCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "_ajax") {
			ajaxCalls++
			fmt.Fprint(w, `<html><body><div class="load-more-data" data-key="cursor-2"></div></body></html>`)
			return
		}
		fmt.Fprint(w, "<html><body>"+
			reviewArticle("Only page", "A lone review followed by a cursor that leads nowhere useful.")+
			`<div class="load-more-data" data-key="cursor-1"></div>`+
			"</body></html>")
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.Equal(t, 1, ajaxCalls)
}

func TestFetchReviewsRepeatedCursorStops(t *testing.T) {
	var ajaxCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "_ajax") {
			ajaxCalls++
		}
		fmt.Fprint(w, "<html><body>"+
			reviewArticle("Same page", "The server keeps handing back the same cursor with each fetch.")+
			`<div class="load-more-data" data-key="cursor-1"></div>`+
			"</body></html>")
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)
	assert.Equal(t, 1, ajaxCalls)
}

func TestFetchReviewsCollapsesWhitespace(t *testing.T) {
	body := "<html><body>" + reviewArticle("Ragged formatting",
		"An opening   line.\n\n\tAnd a second line     separated by layout noise.") +
		"</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := testScraper(t, srv.URL)
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	r := reviews[0]
	assert.Equal(t, "An opening line. And a second line separated by layout noise.", r.Text)
	assert.Equal(t, len(r.Text), r.LengthChars)
	assert.Equal(t, 11, r.WordCount)
}

func TestFetchReviewsConfiguredMinLength(t *testing.T) {
	long := "A review body comfortably past the raised threshold for this source."
	short := "Short but over twenty characters."
	body := "<html><body>" +
		reviewArticle("Long enough", long) +
		reviewArticle("Cut off", short) +
		"</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := New(Options{
		BaseURL:         srv.URL,
		RateLimit:       time.Millisecond,
		RetryAttempts:   1,
		MinReviewLength: 40,
	}, slog.New(slog.NewTextHandler(&strings.Builder{}, nil)))
	reviews, err := s.FetchReviews(context.Background(), "tt0133093", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, long, reviews[0].Text)
}
