package identity

import "github.com/agext/levenshtein"

// Similarity scores two normalized labels from 0 (disjoint) to 100
// (identical), derived from the Levenshtein edit distance relative to the
// longer label.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.Distance(a, b, nil)
	if dist >= longest {
		return 0
	}
	return (longest - dist) * 100 / longest
}
