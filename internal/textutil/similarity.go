package textutil

import (
	"math"
	"strings"
	"unicode"
)

// Terms shorter than this are treated as filler ("a", "of", "in") and
// excluded from comparison so they cannot dominate short titles.
const minTermLen = 3

// TitleSimilarity scores how closely two titles match on a 0..1 scale.
// Case, punctuation, and word order are ignored. Titles that match
// exactly after trimming score 1 even when they are too short to carry
// any comparable terms.
func TitleSimilarity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return cosine(termCounts(a), termCounts(b))
}

// termCounts folds a title into lowercase terms and counts occurrences.
// Splitting happens on any rune that is neither a letter nor a digit,
// which keeps accented and non-Latin titles intact.
func termCounts(title string) map[string]int {
	counts := make(map[string]int)
	for _, term := range strings.FieldsFunc(strings.ToLower(title), isTermBoundary) {
		if len(term) >= minTermLen {
			counts[term]++
		}
	}
	return counts
}

func isTermBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// cosine computes the cosine similarity of two term-count vectors,
// returning 0 when either vector is empty or the terms are disjoint.
func cosine(a, b map[string]int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot, magA, magB float64
	for term, count := range a {
		magA += float64(count * count)
		if other, ok := b[term]; ok {
			dot += float64(count * other)
		}
	}
	for _, count := range b {
		magB += float64(count * count)
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
