package qacache

import (
	"context"
	"time"
)

// Store encapsulates persistence for cached question/answer entries. Reads never
// return expired entries.
type Store interface {
	FindExact(ctx context.Context, normalized string) (Entry, bool, error)
	FindFuzzyCandidate(ctx context.Context, normalized string) (FuzzyCandidate, bool, error)
	FindSemanticCandidates(ctx context.Context, normalized string, embedding []float32, lexicalFloor float64, limit int) ([]SemanticCandidate, error)
	Insert(ctx context.Context, entry NewEntry) (int64, error)
	Ping(ctx context.Context) error
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Answerer asks the generative model. useRetrieval requests live web context.
type Answerer interface {
	Answer(ctx context.Context, question string, useRetrieval bool) (Answer, error)
}

// EntryWriter accepts new entries for persistence.
type EntryWriter interface {
	Write(ctx context.Context, entry NewEntry) error
}

// StatsStore tracks how often questions are asked.
type StatsStore interface {
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}

// Observer receives per-request outcomes.
type Observer interface {
	ObserveAnswer(mode string, cached bool, elapsed time.Duration)
	ObserveDegraded(tier string)
	ObservePersist(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveAnswer(string, bool, time.Duration) {}
func (nopObserver) ObserveDegraded(string)                    {}
func (nopObserver) ObservePersist(error)                      {}

