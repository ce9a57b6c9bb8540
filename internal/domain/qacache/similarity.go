package qacache

import (
	"math"
	"strings"
	"unicode"
)

// TrigramScore is the Sørensen–Dice coefficient of the word trigram sets of a
// and b. Words are runs of letters and digits, each padded with two leading
// spaces and one trailing space before slicing, the way pg_trgm builds its
// sets. pg_trgm's similarity() is the Jaccard index of the same sets, so the
// two rank pairs identically and relate by jaccard = dice / (2 - dice); use
// DiceToJaccard to carry a threshold into SQL. The score is 1 for identical
// inputs and 0 when either side has no trigrams.
//
// A single changed letter in a short word removes up to three trigrams, so
// one-character typos in short questions usually land below 0.85.
func TrigramScore(a, b string) float64 {
	if a == b && a != "" {
		return 1
	}
	ta, tb := Trigrams(a), Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

// DiceToJaccard converts a TrigramScore threshold into the equivalent
// pg_trgm similarity() threshold.
func DiceToJaccard(d float64) float64 {
	if d <= 0 {
		return 0
	}
	if d >= 1 {
		return 1
	}
	return d / (2 - d)
}

// Trigrams returns the distinct padded word trigrams of s.
func Trigrams(s string) map[string]struct{} {
	words := strings.FieldsFunc(lowerInvariant(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words)*4)
	for _, w := range words {
		padded := []rune("  " + w + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}
	return set
}

// CosineSimilarity returns the cosine of the angle between a and b. Vectors of
// different length or with zero magnitude score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
