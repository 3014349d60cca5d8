package rotten

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"CineScanner/internal/domain"
	"CineScanner/internal/match"
	"CineScanner/internal/ports"
)

const yearBonus = 0.1

var (
	slugPattern    = regexp.MustCompile(`/m/([a-z0-9_]+)`)
	nonSlugPattern = regexp.MustCompile(`[^a-z0-9\s]`)
)

// resolve finds the movie's URL slug through the site search. When the
// search yields nothing usable the slug is generated from the title, a
// guess that downstream fetches will confirm or refute.
func (s *Scraper) resolve(ctx context.Context, session ports.BrowserSession, q domain.MovieQuery) (domain.SourceIdentifier, error) {
	searchURL := fmt.Sprintf("%s/search?search=%s", s.baseURL, url.QueryEscape(q.Title))
	if err := s.navigate(ctx, session, searchURL); err != nil {
		return domain.SourceIdentifier{}, err
	}

	if !session.WaitForElement(ctx, "search-page-media-row", s.waitTimeout) {
		s.log.Debug("search returned no result rows", "title", q.Title)
		return s.generatedIdentifier(ctx, session, q), nil
	}

	var (
		bestSlug  string
		bestScore float64
	)
	for _, row := range session.Elements("search-page-media-row") {
		link, ok := row.Find(`a[data-qa="info-name"]`)
		if !ok {
			continue
		}
		href := link.Attribute("href")
		if href == "" || strings.Contains(href, "/tv/") {
			continue
		}
		slug := slugFromURL(href)
		if slug == "" {
			continue
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			continue
		}

		score := match.Score(title, q.Title)
		if q.Year != 0 {
			if y, err := strconv.Atoi(row.Attribute("startyear")); err == nil && y != 0 {
				diff := y - q.Year
				if diff < 0 {
					diff = -diff
				}
				if diff <= 2 {
					score += yearBonus
				}
			}
		}
		if score > bestScore {
			bestSlug, bestScore = slug, score
		}
	}

	if bestSlug == "" || bestScore < s.threshold {
		s.log.Debug("no search row above threshold",
			"title", q.Title, "best_score", bestScore)
		return s.generatedIdentifier(ctx, session, q), nil
	}

	via := domain.ResolvedFuzzy
	if bestScore >= 1.0 {
		via = domain.ResolvedExact
		bestScore = 1.0
	}
	return domain.SourceIdentifier{
		Source:          domain.SourceRotten,
		ExternalID:      bestSlug,
		MatchConfidence: bestScore,
		ResolvedVia:     via,
	}, nil
}

// generatedIdentifier guesses the slug from the title. The plain slug
// is the site's convention, so it is tried first; the year suffix only
// marks re-releases and becomes the answer when the plain slug does not
// render a movie page.
func (s *Scraper) generatedIdentifier(ctx context.Context, session ports.BrowserSession, q domain.MovieQuery) domain.SourceIdentifier {
	slug := GenerateSlug(q.Title, 0)
	if q.Year != 0 && !s.slugRenders(ctx, session, slug) {
		if withYear := GenerateSlug(q.Title, q.Year); s.slugRenders(ctx, session, withYear) {
			slug = withYear
		}
	}
	return domain.SourceIdentifier{
		Source:          domain.SourceRotten,
		ExternalID:      slug,
		MatchConfidence: 0,
		ResolvedVia:     domain.ResolvedGeneratedFallback,
	}
}

func (s *Scraper) slugRenders(ctx context.Context, session ports.BrowserSession, slug string) bool {
	if err := s.navigate(ctx, session, fmt.Sprintf("%s/m/%s", s.baseURL, slug)); err != nil {
		return false
	}
	return session.WaitForElement(ctx, "media-scorecard, div.score-wrap", s.waitTimeout)
}

// GenerateSlug builds the conventional URL slug for a title: lowercase,
// ampersands spelled out, punctuation dropped, underscores between
// words, release year appended when known.
func GenerateSlug(title string, year int) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, "&", " and ")
	slug = nonSlugPattern.ReplaceAllString(slug, "")
	slug = strings.Join(strings.Fields(slug), "_")
	if year != 0 {
		slug = fmt.Sprintf("%s_%d", slug, year)
	}
	return slug
}

func slugFromURL(href string) string {
	m := slugPattern.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}
