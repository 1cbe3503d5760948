// Package similarity scores text resemblance with the same trigram model
// PostgreSQL's pg_trgm uses, so in-process scoring and SQL-side scoring stay
// interchangeable.
package similarity

import (
	"strings"
	"unicode"
)

// Normalize lowercases text, collapses whitespace runs to single spaces and
// trims the result. Two texts are exact duplicates when their normalized
// forms are equal.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Trigrams returns the set of three-character sequences extracted from the
// text after pg_trgm-style preparation: case folding, splitting on
// non-alphanumeric runes, and padding each word with two leading and one
// trailing space.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range splitWords(s) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// Score returns the Jaccard similarity of the two texts' trigram sets in
// [0, 1]. Texts with no extractable trigrams score 0 against everything.
func Score(a, b string) float64 {
	ta := Trigrams(a)
	tb := Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for gram := range ta {
		if _, ok := tb[gram]; ok {
			shared++
		}
	}

	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
