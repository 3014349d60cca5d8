// Package match scores movie title similarity for identifier resolution.
// The scoring mixes several heuristics and returns their maximum; the exact
// formulas and thresholds were tuned against live site content, so callers
// should not simplify them.
package match

import (
	"regexp"
	"strings"
)

// DefaultThreshold is the score above which two titles are considered the
// same movie. Fallback searches relax it to FallbackThreshold.
const (
	DefaultThreshold  = 0.7
	FallbackThreshold = 0.6
)

// romanNumerals maps numerals I-XII to digits, ordered longest-first so a
// shorter numeral never claims part of a longer one ("VIII" before "III").
var romanNumerals = []struct {
	roman  string
	arabic string
}{
	{"VIII", "8"},
	{"VII", "7"},
	{"XII", "12"},
	{"III", "3"},
	{"XI", "11"},
	{"IX", "9"},
	{"IV", "4"},
	{"VI", "6"},
	{"II", "2"},
	{"X", "10"},
	{"V", "5"},
	{"I", "1"},
}

var romanExprs = buildRomanExprs()

func buildRomanExprs() []*regexp.Regexp {
	exprs := make([]*regexp.Regexp, len(romanNumerals))
	for i, rn := range romanNumerals {
		// Numerals count only when trailing a word at the end of the
		// string or right before a colon/dash; mid-string numerals
		// ("XIV Ways to Die") are deliberately left alone.
		exprs[i] = regexp.MustCompile(`(?i)\b` + rn.roman + `(\s*[:\x{2013}\x{2014}-]|\s*$)`)
	}
	return exprs
}

// NormalizeRomanNumerals converts trailing roman numerals I-XII to arabic
// digits: "Rocky II" -> "Rocky 2", "Part III: Legacy" -> "Part 3: Legacy".
func NormalizeRomanNumerals(title string) string {
	normalized := title
	for i, expr := range romanExprs {
		normalized = expr.ReplaceAllString(normalized, romanNumerals[i].arabic+"$1")
	}
	return normalized
}

var articles = []string{"the ", "a ", "an "}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

func normalize(title string) string {
	t := strings.ToLower(NormalizeRomanNumerals(title))
	for _, article := range articles {
		if strings.HasPrefix(t, article) {
			t = t[len(article):]
			break
		}
	}
	t = nonAlnum.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

// Score rates how likely two titles name the same movie, in [0,1]. Four
// signals are computed and the maximum wins: exact equality, containment
// penalized by length ratio, LCS sequence similarity, and token-set overlap.
func Score(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" && nb == "" {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}
	if na == nb {
		return 1.0
	}

	best := 0.0

	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		best = 0.9 * float64(len(shorter)) / float64(len(longer))
	}

	if seq := sequenceRatio(na, nb); seq > best {
		best = seq
	}
	if overlap := tokenOverlap(na, nb); overlap > best {
		best = overlap
	}
	return best
}

// Matches reports whether a and b score at or above the threshold.
func Matches(a, b string, threshold float64) bool {
	return Score(a, b) >= threshold
}

// sequenceRatio is the symmetric longest-common-subsequence ratio:
// 2*LCS(a,b) / (len(a)+len(b)), the classic difflib measure.
func sequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

func tokenOverlap(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	seen := make(map[string]struct{}, len(ta))
	for _, tok := range ta {
		seen[tok] = struct{}{}
	}
	shared := 0
	counted := make(map[string]struct{}, len(tb))
	for _, tok := range tb {
		if _, dup := counted[tok]; dup {
			continue
		}
		counted[tok] = struct{}{}
		if _, ok := seen[tok]; ok {
			shared++
		}
	}
	maxLen := len(seen)
	if len(counted) > maxLen {
		maxLen = len(counted)
	}
	return float64(shared) / float64(maxLen)
}
