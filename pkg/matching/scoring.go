// Package matching provides the string-similarity primitives used to pick
// the closest candidate name from a set.
package matching

import (
	"strings"
)

// Scorer provides string comparison algorithms
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// ExactMatch returns 1.0 for exact match, 0.0 otherwise
func (s *Scorer) ExactMatch(a, b string, caseSensitive bool) float64 {
	if !caseSensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	if a == b {
		return 1.0
	}
	return 0.0
}

// Ratio calculates a normalized similarity between two strings:
// case-insensitive, whitespace-collapsed, 1.0 for equal strings.
func (s *Scorer) Ratio(a, b string) float64 {
	return s.Levenshtein(normalizeForComparison(a), normalizeForComparison(b))
}

// Levenshtein calculates the Levenshtein distance between two strings
// expressed as a similarity score between 0.0 and 1.0
func (s *Scorer) Levenshtein(a, b string) float64 {
	distance := s.LevenshteinDistance(a, b)
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}

// NormalizedLevenshtein divides the edit distance by the average string
// length, giving a length-independent distance measure (smaller is better).
func (s *Scorer) NormalizedLevenshtein(a, b string) float64 {
	avgLen := float64(len(a)+len(b)) / 2
	if avgLen == 0 {
		return 0
	}
	return float64(s.LevenshteinDistance(a, b)) / avgLen
}

// AcceptByLevenshtein accepts a candidate when its normalized Levenshtein
// distance from the query is strictly below maxNormalized. Used as a
// second-stage confirmation after Ratio narrows candidates: ratio alone
// over-accepts short strings.
func (s *Scorer) AcceptByLevenshtein(query, candidate string, maxNormalized float64) bool {
	return s.NormalizedLevenshtein(query, candidate) < maxNormalized
}

// ClosestMatch returns the highest-similarity candidate and its score, or
// ("", 0) when candidates is empty.
func ClosestMatch(query string, candidates []string) (string, float64) {
	scorer := NewScorer()
	best, bestScore := "", 0.0
	for _, candidate := range candidates {
		if score := scorer.Ratio(query, candidate); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, bestScore
}

func normalizeForComparison(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
