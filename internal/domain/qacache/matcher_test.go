package qacache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLexicalMatcherThresholdIsInclusive(t *testing.T) {
	store := newFakeStore()
	_, err := store.Insert(context.Background(), NewEntry{
		NormalizedQuestion: "what is the capital of france?",
		OriginalQuestion:   "What is the capital of France?",
		Answer:             "Paris",
		ExpiresAt:          testNow.Add(time.Hour),
	})
	require.NoError(t, err)

	m := NewLexicalMatcher(store, 0.9)
	res, err := m.Match(context.Background(), "what is the capitol of france?")
	require.NoError(t, err)
	require.True(t, res.Hit)
	require.Equal(t, ModeFuzzy, res.Mode)

	strict := NewLexicalMatcher(store, 0.95)
	res, err = strict.Match(context.Background(), "what is the capitol of france?")
	require.NoError(t, err)
	require.False(t, res.Hit)
	require.InDelta(t, 0.9, res.BestScore, 1e-9)
}

func TestLexicalMatcherEmptyStoreAndEmptyKey(t *testing.T) {
	m := NewLexicalMatcher(newFakeStore(), 0.85)
	res, err := m.Match(context.Background(), "anything")
	require.NoError(t, err)
	require.False(t, res.Hit)

	res, err = m.Match(context.Background(), "")
	require.NoError(t, err)
	require.False(t, res.Hit)
}

func TestLexicalMatcherPrefersNewestExact(t *testing.T) {
	store := newFakeStore()
	for _, ans := range []string{"old", "new"} {
		_, err := store.Insert(context.Background(), NewEntry{
			NormalizedQuestion: "who wrote hamlet?",
			OriginalQuestion:   "Who wrote Hamlet?",
			Answer:             ans,
			ExpiresAt:          testNow.Add(time.Hour),
		})
		require.NoError(t, err)
	}
	res, err := NewLexicalMatcher(store, 0.85).Match(context.Background(), "who wrote hamlet?")
	require.NoError(t, err)
	require.Equal(t, ModeExact, res.Mode)
	require.Equal(t, "new", res.Entry.Answer)
	require.Equal(t, int64(2), res.Entry.ID)
}

func TestLexicalMatcherReturnsStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("boom")
	_, err := NewLexicalMatcher(store, 0.85).Match(context.Background(), "q")
	require.ErrorIs(t, err, store.findErr)
}

type candidateStore struct {
	fakeStore
	cands []SemanticCandidate
	err   error
}

func (c *candidateStore) FindSemanticCandidates(context.Context, string, []float32, float64, int) ([]SemanticCandidate, error) {
	return c.cands, c.err
}

func TestSemanticMatcherBlendsAndBreaksTiesByID(t *testing.T) {
	store := &candidateStore{cands: []SemanticCandidate{
		{Entry: Entry{ID: 3, OriginalQuestion: "capital city of france"}, Cosine: 0.95},
		{Entry: Entry{ID: 7, OriginalQuestion: "capital city of france"}, Cosine: 0.95},
		{Entry: Entry{ID: 9, OriginalQuestion: "population of france"}, Cosine: 0.99},
		{Entry: Entry{ID: 11, OriginalQuestion: "capital city of france"}, Cosine: 0.5},
	}}
	m := NewSemanticMatcher(store, DefaultMatching())

	res, err := m.Match(context.Background(), "What is the capital city of France?", "what is the capital city of france?", []float32{1})
	require.NoError(t, err)
	require.True(t, res.Hit)
	require.Equal(t, int64(7), res.Entry.ID)
	require.InDelta(t, 0.95, res.Cosine, 1e-9)
	require.InDelta(t, 1.0, res.Overlap, 1e-9)
	require.InDelta(t, 0.75*0.95+0.25, res.Blended, 1e-9)
	require.Equal(t, 4, res.Examined)
}

func TestSemanticMatcherMissesAndErrors(t *testing.T) {
	store := &candidateStore{}
	m := NewSemanticMatcher(store, DefaultMatching())

	res, err := m.Match(context.Background(), "q", "q", nil)
	require.NoError(t, err)
	require.False(t, res.Hit)

	res, err = m.Match(context.Background(), "q", "q", []float32{1})
	require.NoError(t, err)
	require.False(t, res.Hit)

	store.err = errors.New("pg down")
	_, err = m.Match(context.Background(), "q", "q", []float32{1})
	require.ErrorIs(t, err, store.err)
}
