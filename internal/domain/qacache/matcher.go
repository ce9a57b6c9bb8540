package qacache

import (
	"context"
	"fmt"
)

// LexicalResult is the outcome of the exact/fuzzy tier.
type LexicalResult struct {
	Hit        bool
	Mode       Mode
	Entry      Entry
	Similarity float64
	// BestScore is the best fuzzy score seen, including on a miss.
	BestScore float64
}

// LexicalMatcher finds exact or near-exact cached questions.
type LexicalMatcher struct {
	store     Store
	threshold float64
}

// NewLexicalMatcher builds a matcher that accepts fuzzy scores at or above threshold.
func NewLexicalMatcher(store Store, threshold float64) *LexicalMatcher {
	return &LexicalMatcher{store: store, threshold: threshold}
}

// Match looks up normalized in the store. A miss returns a zero Hit and a nil
// error; store failures are returned as errors.
func (m *LexicalMatcher) Match(ctx context.Context, normalized string) (LexicalResult, error) {
	if normalized == "" {
		return LexicalResult{}, nil
	}
	entry, found, err := m.store.FindExact(ctx, normalized)
	if err != nil {
		return LexicalResult{}, fmt.Errorf("exact lookup: %w", err)
	}
	if found {
		return LexicalResult{Hit: true, Mode: ModeExact, Entry: entry, Similarity: 1, BestScore: 1}, nil
	}

	cand, found, err := m.store.FindFuzzyCandidate(ctx, normalized)
	if err != nil {
		return LexicalResult{}, fmt.Errorf("fuzzy lookup: %w", err)
	}
	if !found {
		return LexicalResult{}, nil
	}
	res := LexicalResult{BestScore: cand.Score}
	if cand.Score >= m.threshold {
		res.Hit = true
		res.Mode = ModeFuzzy
		res.Entry = cand.Entry
		res.Similarity = cand.Score
	}
	return res, nil
}

// SemanticResult is the outcome of the embedding tier.
type SemanticResult struct {
	Hit      bool
	Entry    Entry
	Cosine   float64
	Overlap  float64
	Blended  float64
	Examined int
}

// SemanticMatcher accepts embedding neighbours only when they also share
// enough key terms with the question.
type SemanticMatcher struct {
	store  Store
	policy MatchingConfig
}

// NewSemanticMatcher builds a matcher with the given scoring policy.
func NewSemanticMatcher(store Store, policy MatchingConfig) *SemanticMatcher {
	return &SemanticMatcher{store: store, policy: policy}
}

// Match picks the best guarded candidate for question. embedding must be the
// question's embedding; normalized is used for the lexical prefilter.
func (m *SemanticMatcher) Match(ctx context.Context, question, normalized string, embedding []float32) (SemanticResult, error) {
	if len(embedding) == 0 {
		return SemanticResult{}, nil
	}
	cands, err := m.store.FindSemanticCandidates(ctx, normalized, embedding, m.policy.LexicalFloor, m.policy.CandidateLimit)
	if err != nil {
		return SemanticResult{}, fmt.Errorf("semantic lookup: %w", err)
	}
	res := SemanticResult{Examined: len(cands)}
	if len(cands) == 0 {
		return res, nil
	}

	terms := TermSet(KeyTerms(question))
	for _, c := range cands {
		if c.Cosine < m.policy.CosineFloor {
			continue
		}
		overlap := Jaccard(terms, TermSet(KeyTerms(c.Entry.OriginalQuestion)))
		if overlap < m.policy.OverlapFloor {
			continue
		}
		blended := m.policy.CosineWeight*c.Cosine + m.policy.OverlapWeight*overlap
		if !res.Hit || blended > res.Blended || (blended == res.Blended && c.Entry.ID > res.Entry.ID) {
			res.Hit = true
			res.Entry = c.Entry
			res.Cosine = c.Cosine
			res.Overlap = overlap
			res.Blended = blended
		}
	}
	return res, nil
}
