package rotten

import (
	"context"
	"fmt"
	"strings"

	"CineScanner/internal/domain"
	"CineScanner/internal/ports"
)

type segment struct {
	name     string
	path     string
	category domain.Category
}

// endpoints are visited in priority order so the highest-trust copy of a
// duplicated review is seen first.
var endpoints = []segment{
	{name: "top_critics", path: "/reviews?type=top_critics", category: domain.CategoryTopCritic},
	{name: "all_critics", path: "/reviews", category: domain.CategoryCritic},
	{name: "verified_audience", path: "/reviews?type=verified_audience", category: domain.CategoryVerifiedAudience},
	{name: "all_audience", path: "/reviews?type=user", category: domain.CategoryAudience},
}

// collapsedArtifacts are UI fragments that leak into extracted text when
// a review is rendered behind an expander.
var collapsedArtifacts = []string{
	"Content collapsed.",
	"See More",
	"See Less",
}

// fetchSegment loads one review listing and scrolls until the target
// count is reached or the page stops growing.
func (s *Scraper) fetchSegment(ctx context.Context, session ports.BrowserSession, slug string, ep segment, limit int) ([]domain.RawReview, error) {
	pageURL := fmt.Sprintf("%s/m/%s%s", s.baseURL, slug, ep.path)
	if err := s.navigate(ctx, session, pageURL); err != nil {
		return nil, err
	}
	if !session.WaitForElement(ctx, "review-card, div.review-row", s.waitTimeout) {
		s.log.Debug("no review cards rendered", "slug", slug, "segment", ep.name)
		return nil, nil
	}

	lastHeight := session.PageHeight()
	for i := 0; i < s.maxScrolls; i++ {
		if countCards(session) >= limit {
			break
		}
		session.ScrollToBottom()
		height := session.PageHeight()
		if height == lastHeight {
			break
		}
		lastHeight = height
	}

	var reviews []domain.RawReview
	for _, card := range cards(session) {
		if len(reviews) >= limit {
			break
		}
		if r, ok := parseCard(card, ep, s.minLength); ok {
			reviews = append(reviews, r)
		}
	}
	return reviews, nil
}

func cards(session ports.BrowserSession) []ports.Element {
	if els := session.Elements("review-card"); len(els) > 0 {
		return els
	}
	return session.Elements("div.review-row")
}

func countCards(session ports.BrowserSession) int {
	return len(cards(session))
}

// parseCard extracts one review from a card element. Cards without a
// usable body are skipped silently; partial metadata is kept as is.
func parseCard(card ports.Element, ep segment, minLength int) (domain.RawReview, bool) {
	text := cardText(card)
	if len(text) < minLength {
		return domain.RawReview{}, false
	}

	r := domain.RawReview{
		Text:     text,
		Category: ep.category,
		Author:   elementText(card, `rt-link[slot="name"]`, `a[data-qa="review-critic-link"]`, `span.audience-reviews__name`),
	}
	if raw := elementText(card, `span[slot="timestamp"]`, `rt-text[slot="createDate"]`, `span.audience-reviews__duration`); raw != "" {
		if t, err := parseTimestamp(raw, timeNow()); err == nil {
			r.PublishedAt = t
		}
	}
	r.LengthChars = len(r.Text)
	r.WordCount = len(strings.Fields(r.Text))
	r.SourceID = fmt.Sprintf("rt_%s_%s", ep.name, r.Fingerprint())
	return r, true
}

// cardText walks the known locations of the review body, newest markup
// first, and scrubs expander artifacts.
func cardText(card ports.Element) string {
	text := ""
	if drawer, ok := card.Find(`drawer-more[slot="review"]`); ok {
		if content, ok := drawer.Find(`span[slot="content"]`); ok {
			text = content.Text()
		} else {
			text = drawer.Text()
		}
	}
	if text == "" {
		text = elementText(card,
			`span[slot="content"]`,
			`p[data-qa="review-quote"]`,
			`p.review-text`,
			`span[data-qa="review-text"]`,
		)
	}
	if text == "" {
		text = card.Text()
	}
	for _, artifact := range collapsedArtifacts {
		text = strings.ReplaceAll(text, artifact, "")
	}
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}

func elementText(el ports.Element, selectors ...string) string {
	for _, s := range selectors {
		if found, ok := el.Find(s); ok {
			if text := strings.TrimSpace(found.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}
