package cachestore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/yanqian/askcache/internal/domain/qacache"
	"github.com/yanqian/askcache/pkg/util"
)

// MemoryStore is an in-memory qacache.Store used for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries []qacache.Entry
	now     util.Clock
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(util.NowUTC)
}

// NewMemoryStoreWithClock constructs a store that evaluates expiry against clock.
func NewMemoryStoreWithClock(clock util.Clock) *MemoryStore {
	return &MemoryStore{nextID: 1, now: clock}
}

// FindExact implements qacache.Store.
func (s *MemoryStore) FindExact(_ context.Context, normalized string) (qacache.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.NormalizedQuestion == normalized && !e.ExpiredAt(now) {
			return cloneEntry(e), true, nil
		}
	}
	return qacache.Entry{}, false, nil
}

// FindFuzzyCandidate implements qacache.Store.
func (s *MemoryStore) FindFuzzyCandidate(_ context.Context, normalized string) (qacache.FuzzyCandidate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var (
		best  qacache.FuzzyCandidate
		found bool
	)
	for _, e := range s.entries {
		if e.ExpiredAt(now) {
			continue
		}
		score := qacache.TrigramScore(normalized, e.NormalizedQuestion)
		if score == 0 {
			continue
		}
		if !found || better(score, e.ID, best.Score, best.Entry.ID) {
			best = qacache.FuzzyCandidate{Entry: e, Score: score}
			found = true
		}
	}
	if found {
		best.Entry = cloneEntry(best.Entry)
	}
	return best, found, nil
}

// FindSemanticCandidates implements qacache.Store.
func (s *MemoryStore) FindSemanticCandidates(_ context.Context, normalized string, embedding []float32, lexicalFloor float64, limit int) ([]qacache.SemanticCandidate, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []qacache.SemanticCandidate
	for _, e := range s.entries {
		if e.ExpiredAt(now) || !e.HasEmbedding() {
			continue
		}
		if qacache.TrigramScore(normalized, e.NormalizedQuestion) < lexicalFloor {
			continue
		}
		out = append(out, qacache.SemanticCandidate{
			Entry:  cloneEntry(e),
			Cosine: qacache.CosineSimilarity(embedding, e.Embedding),
		})
	}
	slices.SortFunc(out, func(a, b qacache.SemanticCandidate) int {
		if c := cmp.Compare(b.Cosine, a.Cosine); c != 0 {
			return c
		}
		return cmp.Compare(b.Entry.ID, a.Entry.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Insert implements qacache.Store.
func (s *MemoryStore) Insert(_ context.Context, entry qacache.NewEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, qacache.Entry{
		ID:                 id,
		NormalizedQuestion: entry.NormalizedQuestion,
		OriginalQuestion:   entry.OriginalQuestion,
		Answer:             entry.Answer,
		Embedding:          append([]float32(nil), entry.Embedding...),
		CreatedAt:          s.now(),
		ExpiresAt:          entry.ExpiresAt,
	})
	return id, nil
}

// Ping implements qacache.Store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len reports how many rows are stored, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntry(e qacache.Entry) qacache.Entry {
	if e.Embedding != nil {
		e.Embedding = append([]float32(nil), e.Embedding...)
	}
	return e
}

var _ qacache.Store = (*MemoryStore)(nil)
