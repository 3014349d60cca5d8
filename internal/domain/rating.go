package domain

import "time"

// RatingObservation is one provider's rating for a movie on a 0-10 scale.
// Live marks observations collected by scraping, eligible for the
// freshness override during reconciliation.
type RatingObservation struct {
	Provider   string
	Value      float64
	VoteCount  int       // 0 = unknown
	ObservedAt time.Time // zero = unknown age
	Live       bool
}

// RatingSource is an observation annotated with its derived age, as
// reported inside a ReconciledRating. AgeDays is -1 when unknown.
type RatingSource struct {
	RatingObservation
	AgeDays int
}

// ReconciledRating is a pure projection over the current observations for
// one movie. It is recomputed on demand and never stored.
type ReconciledRating struct {
	Recommended       float64
	HasRecommendation bool
	Sources           []RatingSource
	Difference        float64
	HasDifference     bool
	Note              string
}
