package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category classifies a review's provenance within one source. The rank of
// categories is source-specific; unknown categories rank lowest during merge.
type Category string

const (
	CategoryTopCritic        Category = "top_critic"
	CategoryCritic           Category = "critic"
	CategoryVerifiedAudience Category = "verified_audience"
	CategoryAudience         Category = "audience"
)

// MinReviewLength is the default minimum body length for an extracted
// review; shorter containers are discarded as noise.
const MinReviewLength = 20

// RawReview is a single extracted review. Immutable once created. Identity
// for deduplication is content-derived (Fingerprint), distinct from SourceID.
type RawReview struct {
	SourceID    string
	Text        string
	Rating      float64 // 0 = no numeric rating on this review
	Title       string
	Author      string
	PublishedAt time.Time // zero = unknown
	Upvotes     int
	Downvotes   int
	Category    Category
	LengthChars int
	WordCount   int
}

// Fingerprint returns the stable content identity of the review: a hash of
// the lowercased, whitespace-collapsed body text. Same normalized text
// yields the same fingerprint across process runs.
func (r RawReview) Fingerprint() string {
	normalized := strings.Join(strings.Fields(strings.ToLower(r.Text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
