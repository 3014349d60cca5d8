package rotten

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"CineScanner/internal/domain"
	"CineScanner/internal/ports"
	"CineScanner/internal/scraper"
)

// ProviderName labels the critic score in reconciliation output.
const ProviderName = "rt_tomatometer"

var (
	percentPattern = regexp.MustCompile(`(\d{1,3})\s*%`)
	countPattern   = regexp.MustCompile(`([\d,]+)\s+(?:Reviews|Ratings)`)
)

// fetchScore reads the critic score from the movie page, falling back
// to the audience score when no critic score is published. Scores are
// converted from the native percentage to the shared ten-point scale.
func (s *Scraper) fetchScore(ctx context.Context, session ports.BrowserSession, slug string) (*domain.RatingObservation, error) {
	pageURL := fmt.Sprintf("%s/m/%s", s.baseURL, slug)
	if err := s.navigate(ctx, session, pageURL); err != nil {
		return nil, err
	}
	if !session.WaitForElement(ctx, "media-scorecard, div.score-wrap", s.waitTimeout) {
		return nil, &scraper.StructureMismatchError{Selector: "media-scorecard"}
	}

	percent, ok := scorePercent(session, `rt-text[slot="criticsScore"]`)
	if !ok {
		percent, ok = scorePercent(session, `rt-text[slot="audienceScore"]`)
	}
	if !ok {
		return nil, &scraper.StructureMismatchError{Selector: "rt-text[slot=criticsScore]"}
	}

	obs := &domain.RatingObservation{
		Provider:   ProviderName,
		Value:      float64(percent) / 10,
		ObservedAt: time.Now(),
		Live:       true,
	}
	if count, ok := reviewCount(session); ok {
		obs.VoteCount = count
	}
	return obs, nil
}

func scorePercent(session ports.BrowserSession, selector string) (int, bool) {
	for _, el := range session.Elements(selector) {
		m := percentPattern.FindStringSubmatch(el.Text())
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v > 100 {
			continue
		}
		return v, true
	}
	return 0, false
}

func reviewCount(session ports.BrowserSession) (int, bool) {
	for _, el := range session.Elements(`rt-link[slot="criticsReviews"], a[data-qa="tomatometer-review-count"]`) {
		m := countPattern.FindStringSubmatch(el.Text())
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
