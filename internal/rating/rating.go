// Package rating reconciles per-provider rating observations into one
// recommended value with transparency metadata. Recommend is pure and
// deterministic given its inputs.
package rating

import (
	"math"
	"time"

	"CineScanner/internal/domain"
)

// FreshnessWindow is the maximum age at which a live-scraped observation
// overrides the weighted average outright.
const FreshnessWindow = 7 * 24 * time.Hour

const (
	noteLargeDifference = "Large difference - investigate"
	noteSimilar         = "Ratings are similar"
)

// Recommend computes the recommended rating for one movie from all current
// observations. Policy, in order: a live observation younger than
// FreshnessWindow wins outright; otherwise two or more observations yield a
// vote-count-weighted average; otherwise the single observation, or no
// recommendation at all.
func Recommend(observations []domain.RatingObservation, now time.Time) domain.ReconciledRating {
	result := domain.ReconciledRating{
		Sources: make([]domain.RatingSource, 0, len(observations)),
	}
	for _, obs := range observations {
		result.Sources = append(result.Sources, domain.RatingSource{
			RatingObservation: obs,
			AgeDays:           ageDays(obs.ObservedAt, now),
		})
	}

	if len(observations) == 2 && observations[0].Provider != observations[1].Provider {
		result.Difference = round2(math.Abs(observations[0].Value - observations[1].Value))
		result.HasDifference = true
		if result.Difference > 1.0 {
			result.Note = noteLargeDifference
		} else {
			result.Note = noteSimilar
		}
	}

	for _, obs := range observations {
		if obs.Live && !obs.ObservedAt.IsZero() && now.Sub(obs.ObservedAt) < FreshnessWindow {
			result.Recommended = obs.Value
			result.HasRecommendation = true
			return result
		}
	}

	switch {
	case len(observations) >= 2:
		var weightedSum, totalWeight float64
		for _, obs := range observations {
			weight := float64(obs.VoteCount)
			if weight <= 0 {
				weight = 1
			}
			weightedSum += obs.Value * weight
			totalWeight += weight
		}
		result.Recommended = round2(weightedSum / totalWeight)
		result.HasRecommendation = true
	case len(observations) == 1:
		result.Recommended = observations[0].Value
		result.HasRecommendation = true
	}
	return result
}

func ageDays(observedAt, now time.Time) int {
	if observedAt.IsZero() {
		return -1
	}
	return int(now.Sub(observedAt).Hours() / 24)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
