package imdb

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CineScanner/internal/domain"
	"CineScanner/internal/scraper"
)

var (
	ratingFragment = regexp.MustCompile(`^(\d{1,2})/10\s*`)
	spoilerMarker  = "Warning: Spoilers"
)

// reviewContainers is tried in order until one selector yields nodes.
var reviewContainers = []string{
	"article.user-review-item",
	"div.review-container",
	"div[data-testid*='review']",
}

// FetchReviews walks the reviews page, following the load-more cursor
// until the limit is met or the cursor runs out.
func (s *Scraper) FetchReviews(ctx context.Context, imdbID string, limit int) ([]domain.RawReview, error) {
	pageURL := fmt.Sprintf("%s/title/%s/reviews/", s.baseURL, imdbID)
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var (
		reviews []domain.RawReview
		lastKey string
	)
	for {
		batch, selErr := extractReviews(doc, s.minLength)
		if selErr != nil && len(reviews) == 0 {
			return nil, selErr
		}
		reviews = append(reviews, batch...)
		if len(reviews) >= limit {
			return reviews[:limit], nil
		}

		key := paginationKey(doc)
		if key == "" {
			return reviews, nil
		}
		// A page that advances neither the cursor nor the review set
		// would loop forever; stop paginating instead.
		if len(batch) == 0 || key == lastKey {
			s.log.Debug("pagination made no progress", "imdb_id", imdbID, "key", key)
			return reviews, nil
		}
		lastKey = key

		ajaxURL := fmt.Sprintf("%s/title/%s/reviews/_ajax?paginationKey=%s",
			s.baseURL, imdbID, url.QueryEscape(key))
		doc, err = s.fetchDocument(ctx, ajaxURL)
		if err != nil {
			s.log.Debug("pagination fetch failed", "imdb_id", imdbID, "error", err)
			return reviews, nil
		}
	}
}

// extractReviews tries each known container layout; when none matches
// it reports a structure mismatch so the caller can log the drift.
func extractReviews(doc *goquery.Document, minLength int) ([]domain.RawReview, error) {
	for _, selector := range reviewContainers {
		nodes := doc.Find(selector)
		if nodes.Length() == 0 {
			continue
		}
		var reviews []domain.RawReview
		nodes.Each(func(_ int, sel *goquery.Selection) {
			if r, ok := parseReview(sel, minLength); ok {
				reviews = append(reviews, r)
			}
		})
		return reviews, nil
	}
	if reviews := genericReviewBlocks(doc); len(reviews) > 0 {
		return reviews, nil
	}
	return nil, &scraper.StructureMismatchError{Selector: strings.Join(reviewContainers, ", ")}
}

// genericReviewBlocks is the last-resort layout guess: leaf div blocks
// with a substantial body and no interactive controls.
func genericReviewBlocks(doc *goquery.Document) []domain.RawReview {
	var reviews []domain.RawReview
	doc.Find("div").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Filter("div").Length() > 0 || sel.Find("button").Length() > 0 {
			return
		}
		text := collapseWhitespace(sel.Text())
		if len(text) <= 50 {
			return
		}
		r := domain.RawReview{
			Text:        text,
			Category:    domain.CategoryAudience,
			LengthChars: len(text),
			WordCount:   len(strings.Fields(text)),
		}
		r.SourceID = "imdb_" + r.Fingerprint()
		reviews = append(reviews, r)
	})
	return reviews
}

// parseReview pulls one review out of its container. Records missing a
// usable body are dropped rather than failing the whole page.
func parseReview(sel *goquery.Selection, minLength int) (domain.RawReview, bool) {
	text := firstText(sel,
		"div.text.show-more__control",
		"div[data-testid='review-content']",
		"div.content div.text",
	)
	if text == "" {
		text = sel.Find("div.content").First().Text()
	}
	text = collapseWhitespace(stripSpoilerMarker(text))
	if len(text) < minLength {
		return domain.RawReview{}, false
	}

	title := firstText(sel,
		"a.title",
		"span[data-testid='review-summary']",
		"h3.ipc-title__text",
	)
	title = ratingFragment.ReplaceAllString(title, "")

	r := domain.RawReview{
		Title:    strings.TrimSpace(title),
		Text:     text,
		Category: domain.CategoryAudience,
		Author: firstText(sel,
			"span.display-name-link a",
			"a[data-testid='author-link']",
			"div.display-name-date a",
		),
	}

	if raw := firstText(sel,
		"span.rating-other-user-rating span",
		"span.ipc-rating-star--rating",
	); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 10 {
			r.Rating = v
		}
	}

	if raw := firstText(sel, "span.review-date", "li.review-date"); raw != "" {
		if t, err := parseReviewDate(raw); err == nil {
			r.PublishedAt = t
		}
	}

	r.Upvotes, r.Downvotes = parseHelpfulVotes(sel)

	r.LengthChars = len(r.Text)
	r.WordCount = len(strings.Fields(r.Text))
	if id, ok := sel.Attr("data-review-id"); ok && id != "" {
		r.SourceID = "imdb_" + id
	} else {
		r.SourceID = "imdb_" + r.Fingerprint()
	}
	return r, true
}

var helpfulPattern = regexp.MustCompile(`([\d,]+)\s+out of\s+([\d,]+)`)

// parseHelpfulVotes reads the up/down vote counters, falling back to the
// old "N out of M found this helpful" sentence.
func parseHelpfulVotes(sel *goquery.Selection) (int, int) {
	up := parseCount(firstText(sel, "span.ipc-voting__label__count--up"))
	down := parseCount(firstText(sel, "span.ipc-voting__label__count--down"))
	if up > 0 || down > 0 {
		return up, down
	}
	if m := helpfulPattern.FindStringSubmatch(sel.Find("div.actions").Text()); m != nil {
		helpful := parseCount(m[1])
		total := parseCount(m[2])
		if total >= helpful {
			return helpful, total - helpful
		}
	}
	return 0, 0
}

func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func stripSpoilerMarker(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, spoilerMarker) {
		text = strings.TrimSpace(strings.TrimPrefix(text, spoilerMarker))
	}
	return text
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// firstText returns the first non-empty trimmed text among selectors.
func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if text := strings.TrimSpace(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

var reviewDateLayouts = []string{
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02",
}

func parseReviewDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func paginationKey(doc *goquery.Document) string {
	key, _ := doc.Find("div.load-more-data").First().Attr("data-key")
	return key
}
