package costcode

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Prefixes are the branch tokens a cost code may start with, in branch configuration order.
var Prefixes = []string{"PMB", "PTA", "QTN", "CPT"}

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)
	spacedDash      = regexp.MustCompile(`\s*-\s*`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// branch prefix followed by a dash or a space, e.g. "PMB-" or "PMB "
func matchPrefix(upper string) (string, bool) {
	for _, p := range Prefixes {
		if strings.HasPrefix(upper, p+"-") || strings.HasPrefix(upper, p+" ") {
			return p, true
		}
	}
	return "", false
}

// NormalizeForComparison returns the canonical key of a cost code.
// It is only suitable for equality and fuzzy comparison, never for display.
func NormalizeForComparison(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	if p, ok := matchPrefix(s); ok {
		s = s[len(p)+1:]
	}
	return nonAlphanumeric.ReplaceAllString(s, "")
}

// NormalizeForDisplay trims, uppercases and tightens whitespace around dashes.
func NormalizeForDisplay(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = spacedDash.ReplaceAllString(s, "-")
	return whitespaceRun.ReplaceAllString(s, " ")
}

// ExtractOwningBranch returns the branch implied by the code's textual prefix.
func ExtractOwningBranch(code string) (string, bool) {
	return matchPrefix(strings.ToUpper(strings.TrimSpace(code)))
}

// FindBestMatch picks the assigned code a candidate refers to.
// Exact canonical matches win; otherwise the most similar code is accepted
// only when its similarity is strictly above MatchThreshold.
func FindBestMatch(candidate string, assigned []string) (string, bool) {
	key := NormalizeForComparison(candidate)
	normalized := make([]string, len(assigned))
	for i, code := range assigned {
		normalized[i] = NormalizeForComparison(code)
		if normalized[i] == key {
			return code, true
		}
	}

	bestIdx := -1
	bestScore := 0.0
	for i, n := range normalized {
		score := Similarity(key, n)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore <= MatchThreshold {
		return "", false
	}
	return assigned[bestIdx], true
}

// Deduplicate keeps the first code seen for each canonical key, in its original text,
// and returns the survivors sorted lexicographically.
func Deduplicate(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	result := make([]string, 0, len(codes))
	for _, code := range codes {
		key := NormalizeForComparison(code)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, code)
	}
	sort.Strings(result)
	return result
}

// prefix token -> category
var categories = map[string]string{
	"MNT":  "General Maintenance",
	"ELEC": "Electrical",
	"PLB":  "Plumbing",
	"HVAC": "HVAC",
	"MECH": "Mechanical",
	"CIV":  "Civil Works",
	"IT":   "IT Equipment",
	"VEH":  "Vehicles",
	"SAF":  "Safety",
	"GEN":  "Generators",
	"CLN":  "Cleaning",
	"LAB":  "Labour",
}

const (
	CategoryOther   = "Other"
	CategoryUnknown = "Unknown"
)

// CategoryOf maps the first token of a code (after any branch prefix) to a category.
func CategoryOf(code string) string {
	s := NormalizeForDisplay(code)
	if s == "" {
		return CategoryUnknown
	}
	if p, ok := matchPrefix(s); ok {
		s = s[len(p)+1:]
	}
	token := s
	if i := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}); i >= 0 {
		token = s[:i]
	}
	if category, ok := categories[token]; ok {
		return category
	}
	return CategoryOther
}
