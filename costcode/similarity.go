package costcode

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// MatchThreshold is the minimum similarity a fuzzy match must exceed (strictly).
const MatchThreshold = 0.85

// Distance returns the number of single-rune inserts, deletes and substitutions
// needed to turn a into b. No normalization is applied.
func Distance(a, b string) int {
	if a == "" {
		return utf8.RuneCountInString(b)
	}
	if b == "" {
		return utf8.RuneCountInString(a)
	}
	return levenshtein.ComputeDistance(a, b)
}

// Similarity returns 1 - Distance/max(len(a), len(b)), in [0, 1].
// Two empty strings are identical.
func Similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	// (max-d)/max keeps exact decimal fractions such as 17/20 equal to their literal.
	return float64(maxLen-Distance(a, b)) / float64(maxLen)
}
