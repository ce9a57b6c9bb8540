package qacache

import "strings"

// defaultTimeSensitiveKeywords flag topics whose answer goes stale quickly.
// Matching is a plain substring test on the lower-cased question with dotted
// and dotless i treated alike.
var defaultTimeSensitiveKeywords = []string{
	// Turkish
	"bugün", "yarın", "şu an", "şimdi", "hava", "dolar", "euro", "kur", "döviz",
	"haber", "güncel", "son dakika", "skor", "maç",
	// English
	"today", "tomorrow", "now", "weather", "price", "exchange rate", "currency",
	"news", "latest", "score", "match",
}

// DefaultTimeSensitiveKeywords returns a copy of the built-in keyword set.
func DefaultTimeSensitiveKeywords() []string {
	return append([]string(nil), defaultTimeSensitiveKeywords...)
}

// Classifier decides whether a question is time-sensitive.
type Classifier struct {
	keywords []string
}

// NewClassifier builds a classifier. An empty list selects the default keywords.
func NewClassifier(keywords []string) *Classifier {
	if len(keywords) == 0 {
		keywords = defaultTimeSensitiveKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = foldDotless(lowerInvariant(strings.TrimSpace(k)))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Classifier{keywords: lowered}
}

// IsTimeSensitive reports whether q mentions any volatile topic.
func (c *Classifier) IsTimeSensitive(q string) bool {
	x := foldDotless(lowerInvariant(q))
	if x == "" {
		return false
	}
	for _, k := range c.keywords {
		if strings.Contains(x, k) {
			return true
		}
	}
	return false
}

var defaultClassifier = NewClassifier(nil)

// IsTimeSensitive classifies q with the default keyword set.
func IsTimeSensitive(q string) bool {
	return defaultClassifier.IsTimeSensitive(q)
}
