package qacache

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minKeyTermRunes = 3

// stopWords are function words, question particles and filler in English and
// Turkish. They carry no topic and would inflate overlap between unrelated questions.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the and for are but not you your yours with from this that these those there their
		they them what whats which who whom whose when where why how was were been being
		have has had does did doing can could would should will shall may might must
		about into onto over under than then also just only very much many more most some
		any all each other such own same too out off again once here its it's our ours
		please tell explain give show me
		bir ve ile için ama fakat veya ya da de da ki mi mı mu mü midir mıdır nedir ne
		neden niçin nasıl nasil nerede nereye hangi kim kimin kaç hangisi şu bu o şey
		gibi kadar daha çok en her hiç ise bana beni sen siz biz onlar olan olarak var
		yok mıdır lütfen acaba
	`) {
		stopWords[w] = struct{}{}
	}
}

// KeyTerms yields the significant terms of a question in order of appearance:
// lower-cased letter/digit tokens of at least three runes that are not stop
// words. Duplicates are yielded as they occur. The sequence can be ranged over
// any number of times.
func KeyTerms(q string) iter.Seq[string] {
	return func(yield func(string) bool) {
		lowered := lowerInvariant(q)
		start := -1
		emit := func(end int) bool {
			if start < 0 {
				return true
			}
			tok := lowered[start:end]
			start = -1
			if utf8.RuneCountInString(tok) < minKeyTermRunes {
				return true
			}
			if _, stop := stopWords[tok]; stop {
				return true
			}
			return yield(tok)
		}
		for i, r := range lowered {
			if isTermRune(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if !emit(i) {
				return
			}
		}
		emit(len(lowered))
	}
}

func isTermRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// TermSet collects a term sequence into a set.
func TermSet(seq iter.Seq[string]) map[string]struct{} {
	set := make(map[string]struct{})
	for t := range seq {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TermOverlap is the Jaccard coefficient of the key terms of two questions.
func TermOverlap(a, b string) float64 {
	return Jaccard(TermSet(KeyTerms(a)), TermSet(KeyTerms(b)))
}
