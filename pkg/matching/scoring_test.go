package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"KAIKU", "KAIKU", 0},
		{"KAIKU", "", 5},
		{"", "KAIKU", 5},
		{"KITTEN", "SITTING", 3},
		{"ZIERBENA", "ZIERBANA", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scorer.LevenshteinDistance(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.Levenshtein("", ""))
	assert.Equal(t, 1.0, scorer.Levenshtein("PUEBLA", "PUEBLA"))
	assert.InDelta(t, 0.875, scorer.Levenshtein("ZIERBENA", "ZIERBANA"), 1e-9)
	assert.Equal(t, 0.0, scorer.Levenshtein("ABC", "XYZ"))
}

func TestRatioNormalizesCaseAndWhitespace(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.Ratio("cabo da cruz", "CABO  DA  CRUZ"))
	assert.Less(t, scorer.Ratio("SAN PEDRO", "SAN JUAN"), 1.0)
}

func TestNormalizedLevenshtein(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 0.0, scorer.NormalizedLevenshtein("", ""))
	assert.Equal(t, 0.0, scorer.NormalizedLevenshtein("KAIKU", "KAIKU"))
	// distance 1 over average length 8
	assert.InDelta(t, 0.125, scorer.NormalizedLevenshtein("ZIERBENA", "ZIERBANA"), 1e-9)
}

func TestAcceptByLevenshteinBoundary(t *testing.T) {
	scorer := NewScorer()

	// distance 2 over average length 5: exactly 0.4 is rejected
	assert.Equal(t, 2, scorer.LevenshteinDistance("ABCDE", "ABCXY"))
	assert.False(t, scorer.AcceptByLevenshtein("ABCDE", "ABCXY", 0.4))

	// distance 1 over average length 5 clears the gate
	assert.True(t, scorer.AcceptByLevenshtein("ABCDE", "ABCDX", 0.4))
}

func TestClosestMatch(t *testing.T) {
	t.Run("picks the best candidate", func(t *testing.T) {
		got, score := ClosestMatch("PUEBLA", []string{"SAN JUAN", "PUEBLA", "ZIERBENA"})
		assert.Equal(t, "PUEBLA", got)
		assert.Equal(t, 1.0, score)
	})

	t.Run("returns empty for no candidates", func(t *testing.T) {
		got, score := ClosestMatch("PUEBLA", nil)
		assert.Equal(t, "", got)
		assert.Equal(t, 0.0, score)
	})
}

func TestExactMatch(t *testing.T) {
	scorer := NewScorer()

	assert.Equal(t, 1.0, scorer.ExactMatch("Kaiku", "kaiku", false))
	assert.Equal(t, 0.0, scorer.ExactMatch("Kaiku", "kaiku", true))
}
