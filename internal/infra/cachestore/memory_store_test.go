package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/pkg/util"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *MemoryStore, qnorm, answer string, embedding []float32, ttl time.Duration) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), qacache.NewEntry{
		NormalizedQuestion: qnorm,
		OriginalQuestion:   qnorm,
		Answer:             answer,
		Embedding:          embedding,
		ExpiresAt:          now.Add(ttl),
	})
	require.NoError(t, err)
	return id
}

func TestMemoryStoreFindExactNewestLive(t *testing.T) {
	s := NewMemoryStoreWithClock(util.FixedClock(now))
	seed(t, s, "who wrote hamlet?", "old", nil, time.Hour)
	newest := seed(t, s, "who wrote hamlet?", "new", nil, time.Hour)
	seed(t, s, "who wrote hamlet?", "expired", nil, -time.Minute)

	got, ok, err := s.FindExact(context.Background(), "who wrote hamlet?")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, newest, got.ID)
	require.Equal(t, "new", got.Answer)
	require.Equal(t, 3, s.Len())

	_, ok, err = s.FindExact(context.Background(), "who wrote macbeth?")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreExpiryBoundary(t *testing.T) {
	s := NewMemoryStoreWithClock(util.FixedClock(now))
	seed(t, s, "q", "a", nil, 0)
	_, ok, err := s.FindExact(context.Background(), "q")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreFuzzyPicksBestThenNewest(t *testing.T) {
	s := NewMemoryStoreWithClock(util.FixedClock(now))
	seed(t, s, "what is the capital of germany?", "Berlin", nil, time.Hour)
	first := seed(t, s, "what is the capital of france?", "Paris", nil, time.Hour)
	second := seed(t, s, "what is the capital of france?", "Paris!", nil, time.Hour)
	require.Greater(t, second, first)

	got, ok, err := s.FindFuzzyCandidate(context.Background(), "what is the capitol of france?")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, got.Entry.ID)
	require.InDelta(t, 0.9, got.Score, 1e-9)
}

func TestMemoryStoreSemanticCandidates(t *testing.T) {
	s := NewMemoryStoreWithClock(util.FixedClock(now))
	seed(t, s, "what is the capital of france?", "Paris", []float32{1, 0}, time.Hour)
	seed(t, s, "what is the capital of spain?", "Madrid", []float32{0.6, 0.8}, time.Hour)
	seed(t, s, "what is the capital of italy?", "Rome", nil, time.Hour)
	seed(t, s, "what is the capital of france?", "stale", []float32{1, 0}, -time.Hour)
	seed(t, s, "completely unrelated words", "x", []float32{1, 0}, time.Hour)

	got, err := s.FindSemanticCandidates(context.Background(), "capital of france?", []float32{1, 0}, 0.4, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Paris", got[0].Entry.Answer)
	require.InDelta(t, 1.0, got[0].Cosine, 1e-9)
	require.Equal(t, "Madrid", got[1].Entry.Answer)
	require.InDelta(t, 0.6, got[1].Cosine, 1e-6)

	limited, err := s.FindSemanticCandidates(context.Background(), "capital of france?", []float32{1, 0}, 0.4, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := s.FindSemanticCandidates(context.Background(), "capital of france?", nil, 0.4, 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStoreWithClock(util.FixedClock(now))
	seed(t, s, "q", "a", []float32{1, 2}, time.Hour)
	got, _, err := s.FindExact(context.Background(), "q")
	require.NoError(t, err)
	got.Embedding[0] = 99
	again, _, err := s.FindExact(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, float32(1), again.Embedding[0])
}

func TestParseVector(t *testing.T) {
	got, err := parseVector("[0.5, -1,2e-1]")
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, -1, 0.2}, got)

	got, err = parseVector("[]")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = parseVector("[a,b]")
	require.Error(t, err)
}

func TestSchemaStatements(t *testing.T) {
	withDims := SchemaStatements(1536)
	require.Contains(t, withDims[2], "VECTOR(1536)")
	require.Contains(t, withDims[len(withDims)-1], "hnsw")

	noDims := SchemaStatements(0)
	require.Len(t, noDims, len(withDims)-1)
	require.Contains(t, noDims[2], "embedding VECTOR NULL")
}
