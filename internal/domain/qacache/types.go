package qacache

import "time"

// Mode identifies how a question was resolved.
type Mode string

const (
	// ModeExact is a non-expired entry with the same normalized question.
	ModeExact Mode = "exact"
	// ModeFuzzy is a lexically close entry above the trigram threshold.
	ModeFuzzy Mode = "fuzzy"
	// ModeSemantic is an embedding-similar entry that also passed the key-term guard.
	ModeSemantic Mode = "semantic"
	// ModeLLM means the answer came from the generative model.
	ModeLLM Mode = "llm"
)

// Entry is a persisted question/answer pair.
type Entry struct {
	ID                 int64
	NormalizedQuestion string
	OriginalQuestion   string
	Answer             string
	Embedding          []float32
	CreatedAt          time.Time
	ExpiresAt          time.Time
}

// HasEmbedding reports whether the entry can take part in semantic matching.
func (e Entry) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// ExpiredAt reports whether the entry is no longer eligible for reads at now.
func (e Entry) ExpiredAt(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

// NewEntry is the insert payload. ID and CreatedAt are assigned by the store.
type NewEntry struct {
	NormalizedQuestion string    `json:"normalizedQuestion"`
	OriginalQuestion   string    `json:"originalQuestion"`
	Answer             string    `json:"answer"`
	Embedding          []float32 `json:"embedding,omitempty"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// FuzzyCandidate is the best lexical match the store could find.
type FuzzyCandidate struct {
	Entry Entry
	Score float64
}

// SemanticCandidate is an embedding-bearing entry with its cosine similarity to the query.
type SemanticCandidate struct {
	Entry  Entry
	Cosine float64
}

// Request is the question submitted at the service boundary.
type Request struct {
	Question string `json:"question"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Answer          string      `json:"answer"`
	Cached          bool        `json:"cached"`
	Mode            Mode        `json:"mode"`
	Similarity      float64     `json:"similarity,omitempty"`
	MatchedQuestion string      `json:"matchedQuestion,omitempty"`
	TimeSensitive   bool        `json:"timeSensitive"`
	Retrieval       bool        `json:"retrieval"`
	Diagnostics     Diagnostics `json:"diagnostics"`
	DurationMs      int64       `json:"durationMs"`
}

// Diagnostics exposes the scores seen while resolving a question.
type Diagnostics struct {
	EntryID        int64    `json:"entryId,omitempty"`
	FuzzyBestScore float64  `json:"fuzzyBestScore,omitempty"`
	Cosine         float64  `json:"cosine,omitempty"`
	Overlap        float64  `json:"overlap,omitempty"`
	Blended        float64  `json:"blended,omitempty"`
	SemanticTried  bool     `json:"semanticTried"`
	Degraded       []string `json:"degraded,omitempty"`
	AnswerError    bool     `json:"answerError,omitempty"`
	Persisted      string   `json:"persisted,omitempty"`
}

// Answer is what the generative model returned.
type Answer struct {
	Text      string
	Retrieval bool
}

// TrendingQuery represents a frequently asked question.
type TrendingQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
