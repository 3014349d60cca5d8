package imdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"CineScanner/internal/domain"
	"CineScanner/internal/scraper"
)

// ProviderName labels ratings observed live on the site, as opposed to
// values carried in from a dataset import.
const ProviderName = "imdb_scraped"

type ldDocument struct {
	AggregateRating *ldAggregateRating `json:"aggregateRating"`
}

type ldAggregateRating struct {
	RatingValue json.Number `json:"ratingValue"`
	RatingCount int         `json:"ratingCount"`
}

// FetchRating reads the aggregate rating from the title page's
// structured-data block.
func (s *Scraper) FetchRating(ctx context.Context, imdbID string) (*domain.RatingObservation, error) {
	pageURL := fmt.Sprintf("%s/title/%s/", s.baseURL, imdbID)
	doc, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return ratingFromDocument(doc)
}

func ratingFromDocument(doc *goquery.Document) (*domain.RatingObservation, error) {
	var obs *domain.RatingObservation
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var ld ldDocument
		if err := json.Unmarshal([]byte(sel.Text()), &ld); err != nil {
			return true
		}
		if ld.AggregateRating == nil {
			return true
		}
		value, err := strconv.ParseFloat(ld.AggregateRating.RatingValue.String(), 64)
		if err != nil || value <= 0 || value > 10 {
			return true
		}
		obs = &domain.RatingObservation{
			Provider:   ProviderName,
			Value:      value,
			VoteCount:  ld.AggregateRating.RatingCount,
			ObservedAt: time.Now(),
			Live:       true,
		}
		return false
	})
	if obs == nil {
		return nil, &scraper.StructureMismatchError{Selector: "script[type='application/ld+json'] aggregateRating"}
	}
	return obs, nil
}
