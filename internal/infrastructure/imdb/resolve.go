package imdb

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"CineScanner/internal/domain"
	"CineScanner/internal/match"
	"CineScanner/internal/scraper"
)

const maxCandidates = 10

var (
	titleIDPattern  = regexp.MustCompile(`/title/(tt\d+)`)
	yearPattern     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	durationPattern = regexp.MustCompile(`\d+h\s*\d+m`)
	votesPattern    = regexp.MustCompile(`\d+\.\d+\s*\(\d+(\.\d+)?[KM]?\)`)
)

type candidate struct {
	id    string
	title string
	year  int
}

// Resolve maps a title query to an IMDb identifier. The title-only
// search is tried first; when it yields nothing acceptable and a year is
// known, a second year-qualified search runs before giving up. Within
// each pass, exact title matches win outright and fuzzy scoring over the
// leading results is the last resort.
func (s *Scraper) Resolve(ctx context.Context, q domain.MovieQuery) (domain.SourceIdentifier, error) {
	id, found, err := s.resolveSearch(ctx, q, q.Title)
	if found {
		return id, nil
	}
	if ctx.Err() != nil {
		return domain.SourceIdentifier{}, ctx.Err()
	}

	if q.Year != 0 {
		id, found, yearErr := s.resolveSearch(ctx, q, fmt.Sprintf("%s %d", q.Title, q.Year))
		if found {
			return id, nil
		}
		if err == nil {
			err = yearErr
		}
	}
	if err != nil {
		return domain.SourceIdentifier{}, err
	}
	return domain.SourceIdentifier{}, scraper.ErrNoMatch
}

// resolveSearch runs one /find query and picks the best candidate. A
// fetch failure cascades: it is reported but never hides a later pass.
func (s *Scraper) resolveSearch(ctx context.Context, q domain.MovieQuery, term string) (domain.SourceIdentifier, bool, error) {
	searchURL := fmt.Sprintf("%s/find/?q=%s&s=tt&ttype=ft",
		s.baseURL, url.QueryEscape(term))
	doc, err := s.fetchDocument(ctx, searchURL)
	if err != nil {
		return domain.SourceIdentifier{}, false, err
	}

	cands := extractCandidates(doc)
	if len(cands) == 0 {
		return domain.SourceIdentifier{}, false, nil
	}
	if len(cands) > maxCandidates {
		cands = cands[:maxCandidates]
	}

	// Exact title match, ignoring year.
	want := strings.ToLower(strings.TrimSpace(q.Title))
	for _, c := range cands {
		if strings.ToLower(strings.TrimSpace(c.title)) == want {
			if q.Year == 0 || yearClose(c.year, q.Year, 1) {
				return identifier(c, 1.0, domain.ResolvedExact), true, nil
			}
		}
	}

	// Exact title with a one-year tolerance against re-releases.
	if q.Year != 0 {
		for _, c := range cands {
			if match.Score(c.title, q.Title) >= 0.95 && yearClose(c.year, q.Year, 1) {
				return identifier(c, 0.95, domain.ResolvedExact), true, nil
			}
		}
	}

	// Fuzzy scoring over the remaining candidates.
	var best candidate
	bestScore := 0.0
	for _, c := range cands {
		score := match.Score(c.title, q.Title)
		if q.Year != 0 && !yearClose(c.year, q.Year, 1) && c.year != 0 {
			score -= 0.1
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore >= s.threshold {
		return identifier(best, bestScore, domain.ResolvedFuzzy), true, nil
	}
	// An exact year agreement backs up a weaker title score.
	if q.Year != 0 && best.year == q.Year && bestScore >= match.FallbackThreshold {
		return identifier(best, bestScore, domain.ResolvedFuzzy), true, nil
	}
	s.log.Debug("no candidate above threshold",
		"title", q.Title, "best", best.title, "score", bestScore)
	return domain.SourceIdentifier{}, false, nil
}

func identifier(c candidate, confidence float64, via domain.ResolvedVia) domain.SourceIdentifier {
	return domain.SourceIdentifier{
		Source:          domain.SourceIMDb,
		ExternalID:      c.id,
		MatchConfidence: confidence,
		ResolvedVia:     via,
	}
}

func yearClose(a, b, tolerance int) bool {
	if a == 0 || b == 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// extractCandidates tries three page layouts in order, newest first.
func extractCandidates(doc *goquery.Document) []candidate {
	if cands := modernResults(doc); len(cands) > 0 {
		return cands
	}
	if cands := legacyResults(doc); len(cands) > 0 {
		return cands
	}
	return genericResults(doc)
}

func modernResults(doc *goquery.Document) []candidate {
	var cands []candidate
	doc.Find("li.ipc-metadata-list-summary-item").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a[href*='/title/tt']").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		id := titleID(href)
		if id == "" {
			return
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = strings.TrimSpace(sel.Find("h3.ipc-title__text").First().Text())
		}
		if title == "" {
			return
		}
		year := 0
		sel.Find(".cli-title-metadata span, .ipc-metadata-list-summary-item__li").
			EachWithBreak(func(_ int, meta *goquery.Selection) bool {
				if y := parseYear(meta.Text()); y != 0 {
					year = y
					return false
				}
				return true
			})
		cands = append(cands, candidate{id: id, title: title, year: year})
	})
	return cands
}

func legacyResults(doc *goquery.Document) []candidate {
	var cands []candidate
	doc.Find("td.result_text").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a[href*='/title/']").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		id := titleID(href)
		if id == "" {
			return
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		cands = append(cands, candidate{
			id:    id,
			title: title,
			year:  parseYear(sel.Text()),
		})
	})
	return cands
}

// genericResults scans bare title links, keeping only those whose
// surrounding text looks like a released movie (runtime, vote counts
// or a Metascore nearby). Filters out in-development entries.
func genericResults(doc *goquery.Document) []candidate {
	seen := make(map[string]bool)
	var cands []candidate
	doc.Find("a[href*='/title/tt']").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		id := titleID(href)
		if id == "" || seen[id] {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" || len(title) < 2 {
			return
		}
		context := sel.Parent().Text()
		if !looksReleased(context) {
			return
		}
		seen[id] = true
		cands = append(cands, candidate{id: id, title: title, year: parseYear(context)})
	})
	return cands
}

func looksReleased(text string) bool {
	return durationPattern.MatchString(text) ||
		votesPattern.MatchString(text) ||
		strings.Contains(text, "Metascore")
}

func titleID(href string) string {
	m := titleIDPattern.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[1]
}

func parseYear(text string) int {
	m := yearPattern.FindString(text)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}
