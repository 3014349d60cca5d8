package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreIdentity(t *testing.T) {
	t.Parallel()

	for _, title := range []string{"Inception", "The Matrix", "Rocky II", "Boyka: Undisputed IV"} {
		assert.Equal(t, 1.0, Score(title, title), "score(x,x) for %q", title)
	}
}

func TestScoreRomanNumerals(t *testing.T) {
	t.Parallel()

	assert.GreaterOrEqual(t, Score("Rocky II", "Rocky 2"), 0.95)
}

func TestScoreArticleStripped(t *testing.T) {
	t.Parallel()

	assert.GreaterOrEqual(t, Score("The Matrix", "Matrix"), 0.85)
}

func TestScoreUnrelated(t *testing.T) {
	t.Parallel()

	assert.Less(t, Score("a", "completely different long string"), 0.3)
}

func TestScoreEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Score("", "Inception"))
	assert.Equal(t, 0.0, Score("Inception", ""))
	assert.Equal(t, 1.0, Score("", ""))
}

func TestScoreContainmentPenalizedByLength(t *testing.T) {
	t.Parallel()

	// Containment caps out at 0.9 and shrinks with the length gap.
	score := Score("Dune", "Dune Part Two")
	assert.Less(t, score, 0.9)
	assert.Greater(t, score, 0.0)
}

func TestNormalizeRomanNumerals(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Rocky II", "Rocky 2"},
		{"Part III: Legacy", "Part 3: Legacy"},
		{"Star Wars: Episode IV - A New Hope", "Star Wars: Episode 4 - A New Hope"},
		{"Undisputed IV", "Undisputed 4"},
		{"Malcolm X", "Malcolm 10"},
		// Mid-string numerals are out of scope for the trailing-numeral rule.
		{"XIV Ways to Die", "XIV Ways to Die"},
		{"I Am Legend", "I Am Legend"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeRomanNumerals(tc.in), "input %q", tc.in)
	}
}

func TestMatchesThreshold(t *testing.T) {
	t.Parallel()

	assert.True(t, Matches("The Matrix", "Matrix", DefaultThreshold))
	assert.False(t, Matches("The Matrix", "Inception", DefaultThreshold))
}
