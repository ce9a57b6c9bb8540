package qacache

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeQuestion returns the canonical lookup key for a question: trimmed,
// lower-cased without locale rules, and with internal whitespace runs collapsed
// to a single space. Punctuation is kept.
func NormalizeQuestion(q string) string {
	lowered := lowerInvariant(strings.TrimSpace(q))
	return strings.Join(strings.Fields(lowered), " ")
}

// lowerInvariant lower-cases s using root-locale rules. Full case mapping
// turns İ (U+0130) into "i" plus U+0307; the combining dot is dropped so the
// upper- and lower-case spellings of Turkish words agree. A Caser is stateful,
// so one is built per call.
func lowerInvariant(s string) string {
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(cases.Lower(language.Und).String(s), "i\u0307", "i")
}

// foldDotless maps Turkish dotless ı to i. Root-locale lowering turns I into i,
// so "YARIN" only meets "yarın" after both sides are folded.
func foldDotless(s string) string {
	return strings.ReplaceAll(s, "ı", "i")
}
