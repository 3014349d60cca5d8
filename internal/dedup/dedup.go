// Package dedup collapses review duplicates collected from multiple
// endpoints of one source. The same text frequently appears under several
// listing endpoints ("all critics" is a superset of "top critics"); the
// higher-trust category wins.
package dedup

import "CineScanner/internal/domain"

// priorities is the fixed ordinal rank of review categories. Categories
// not listed here (including the empty one) rank 0.
var priorities = map[domain.Category]int{
	domain.CategoryTopCritic:        4,
	domain.CategoryCritic:           3,
	domain.CategoryVerifiedAudience: 2,
	domain.CategoryAudience:         1,
}

// Priority returns the merge rank of a category; unknown categories are 0.
func Priority(c domain.Category) int {
	return priorities[c]
}

// Batch is one endpoint's haul, tagged with the category it was listed under.
type Batch struct {
	Category domain.Category
	Reviews  []domain.RawReview
}

// Merge collapses reviews across batches by content fingerprint, keeping
// the strictly-highest-priority variant of each duplicate (first seen wins
// ties). Merge is commutative and associative over batches, so callers may
// collect endpoint batches concurrently. Output order is unspecified.
func Merge(batches []Batch) []domain.RawReview {
	type entry struct {
		review   domain.RawReview
		priority int
	}
	seen := make(map[string]entry)
	for _, batch := range batches {
		for _, review := range batch.Reviews {
			if review.Category == "" {
				review.Category = batch.Category
			}
			p := Priority(review.Category)
			fp := review.Fingerprint()
			if cur, ok := seen[fp]; !ok || p > cur.priority {
				seen[fp] = entry{review: review, priority: p}
			}
		}
	}
	merged := make([]domain.RawReview, 0, len(seen))
	for _, e := range seen {
		merged = append(merged, e.review)
	}
	return merged
}

// Count returns the total number of reviews across batches, used to report
// how many duplicates a merge dropped.
func Count(batches []Batch) int {
	total := 0
	for _, b := range batches {
		total += len(b.Reviews)
	}
	return total
}
