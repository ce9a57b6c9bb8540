package qacache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/yanqian/askcache/pkg/errors"
	"github.com/yanqian/askcache/pkg/util"
)

// Degraded tiers reported in diagnostics and metrics.
const (
	TierLexical   = "lexical"
	TierSemantic  = "semantic"
	TierEmbedding = "embedding"
	TierPersist   = "persist"
)

// Persist outcomes reported in diagnostics.
const (
	PersistStored  = "stored"
	PersistQueued  = "queued"
	PersistFailed  = "failed"
	PersistSkipped = "skipped"
)

// Service answers questions through the cache tiers.
type Service interface {
	Ask(ctx context.Context, req Request) (Response, error)
	Trending(ctx context.Context) ([]TrendingQuery, error)
	CheckStore(ctx context.Context) error
	Drain(ctx context.Context) error
}

type stage int

const (
	stageStart stage = iota
	stageExactFuzzy
	stageSemantic
	stageExternalAnswer
	stagePersist
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageStart:
		return "start"
	case stageExactFuzzy:
		return "exact_fuzzy"
	case stageSemantic:
		return "semantic"
	case stageExternalAnswer:
		return "external_answer"
	case stagePersist:
		return "persist"
	default:
		return "done"
	}
}

// askState carries one request through the stages.
type askState struct {
	original      string
	question      string
	normalized    string
	timeSensitive bool
	embedding     []float32
	answerFailed  bool
	resp          Response
}

type service struct {
	cfg        Config
	store      Store
	writer     EntryWriter
	embedder   Embedder
	answerer   Answerer
	stats      StatsStore
	observer   Observer
	classifier *Classifier
	lexical    *LexicalMatcher
	semantic   *SemanticMatcher
	logger     *slog.Logger
	now        util.Clock

	pending sync.WaitGroup
}

// NewService wires up the question cache. embedder and stats may be nil; a nil
// writer inserts straight into the store.
func NewService(cfg Config, store Store, writer EntryWriter, embedder Embedder, answerer Answerer, stats StatsStore, observer Observer, logger *slog.Logger) Service {
	return newService(cfg, store, writer, embedder, answerer, stats, observer, logger)
}

func newService(cfg Config, store Store, writer EntryWriter, embedder Embedder, answerer Answerer, stats StatsStore, observer Observer, logger *slog.Logger) *service {
	cfg = cfg.withDefaults()
	if writer == nil {
		writer = storeWriter{store: store}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		cfg:        cfg,
		store:      store,
		writer:     writer,
		embedder:   embedder,
		answerer:   answerer,
		stats:      stats,
		observer:   observer,
		classifier: NewClassifier(cfg.TimeSensitive.Keywords),
		lexical:    NewLexicalMatcher(store, cfg.Matching.FuzzyThreshold),
		semantic:   NewSemanticMatcher(store, cfg.Matching),
		logger:     logger.With("component", "qacache.service"),
		now:        util.NowUTC,
	}
}

func (s *service) Ask(ctx context.Context, req Request) (Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}
	started := time.Now()

	st := &askState{original: req.Question, question: question}
	for next := stageStart; next != stageDone; {
		current := next
		next = s.step(ctx, current, st)
		s.logger.Debug("ask stage complete", "stage", current.String(), "next", next.String())
	}

	s.recordQuery(ctx, st)

	elapsed := time.Since(started)
	st.resp.DurationMs = elapsed.Milliseconds()
	s.observer.ObserveAnswer(string(st.resp.Mode), st.resp.Cached, elapsed)
	return st.resp, nil
}

func (s *service) step(ctx context.Context, current stage, st *askState) stage {
	switch current {
	case stageStart:
		return s.start(st)
	case stageExactFuzzy:
		return s.exactFuzzy(ctx, st)
	case stageSemantic:
		return s.semanticCheck(ctx, st)
	case stageExternalAnswer:
		return s.externalAnswer(ctx, st)
	case stagePersist:
		s.persistAnswer(ctx, st)
		return stageDone
	default:
		return stageDone
	}
}

func (s *service) start(st *askState) stage {
	st.normalized = NormalizeQuestion(st.question)
	st.timeSensitive = s.classifier.IsTimeSensitive(st.question)
	st.resp.TimeSensitive = st.timeSensitive
	if st.timeSensitive && s.cfg.TimeSensitive.Policy == PolicyBypass {
		return stageExternalAnswer
	}
	return stageExactFuzzy
}

func (s *service) exactFuzzy(ctx context.Context, st *askState) stage {
	res, err := s.lexical.Match(ctx, st.normalized)
	if err != nil {
		s.degrade(st, TierLexical, err)
		return stageSemantic
	}
	st.resp.Diagnostics.FuzzyBestScore = res.BestScore
	if !res.Hit {
		return stageSemantic
	}
	s.serveCached(st, res.Mode, res.Entry, res.Similarity)
	return stageDone
}

func (s *service) semanticCheck(ctx context.Context, st *askState) stage {
	if !s.semanticEnabled() {
		return stageExternalAnswer
	}
	st.resp.Diagnostics.SemanticTried = true
	embedding, err := s.embed(ctx, st.normalized)
	if err != nil {
		s.degrade(st, TierEmbedding, err)
		return stageExternalAnswer
	}
	st.embedding = embedding

	res, err := s.semantic.Match(ctx, st.question, st.normalized, embedding)
	if err != nil {
		s.degrade(st, TierSemantic, err)
		return stageExternalAnswer
	}
	if !res.Hit {
		return stageExternalAnswer
	}
	st.resp.Diagnostics.Cosine = res.Cosine
	st.resp.Diagnostics.Overlap = res.Overlap
	st.resp.Diagnostics.Blended = res.Blended
	s.serveCached(st, ModeSemantic, res.Entry, res.Blended)
	return stageDone
}

func (s *service) externalAnswer(ctx context.Context, st *askState) stage {
	st.resp.Mode = ModeLLM
	st.resp.Cached = false

	ans, err := s.answerer.Answer(ctx, st.question, st.timeSensitive)
	if err != nil {
		s.logger.Warn("model answer failed", "error", err)
		st.answerFailed = true
		st.resp.Answer = err.Error()
		st.resp.Diagnostics.AnswerError = true
		return stageDone
	}
	st.resp.Answer = ans.Text
	st.resp.Retrieval = ans.Retrieval
	return stagePersist
}

func (s *service) persistAnswer(ctx context.Context, st *askState) {
	if st.answerFailed || strings.TrimSpace(st.resp.Answer) == "" {
		st.resp.Diagnostics.Persisted = PersistSkipped
		return
	}
	ttl := s.cfg.LongTTL
	if st.timeSensitive {
		if s.cfg.TimeSensitive.Policy != PolicyShortTTL {
			st.resp.Diagnostics.Persisted = PersistSkipped
			return
		}
		ttl = s.cfg.ShortTTL
	}
	entry := NewEntry{
		NormalizedQuestion: st.normalized,
		OriginalQuestion:   st.original,
		Answer:             st.resp.Answer,
		Embedding:          st.embedding,
		ExpiresAt:          s.now().Add(ttl),
	}

	if s.cfg.AsyncPersist {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			_ = s.write(context.WithoutCancel(ctx), entry)
		}()
		st.resp.Diagnostics.Persisted = PersistQueued
		return
	}
	if err := s.write(ctx, entry); err != nil {
		st.resp.Diagnostics.Persisted = PersistFailed
		st.resp.Diagnostics.Degraded = append(st.resp.Diagnostics.Degraded, TierPersist)
		return
	}
	st.resp.Diagnostics.Persisted = PersistStored
}

// write completes the embedding if needed and hands the entry to the writer.
// Failures are logged and reported to the observer only.
func (s *service) write(ctx context.Context, entry NewEntry) error {
	if len(entry.Embedding) == 0 && s.semanticEnabled() {
		embedding, err := s.embed(ctx, entry.NormalizedQuestion)
		if err != nil {
			s.logger.Warn("embedding for persist failed", "error", err)
		} else {
			entry.Embedding = embedding
		}
	}
	err := s.writer.Write(ctx, entry)
	if err != nil {
		s.logger.Warn("cache persist failed", "error", err)
		s.observer.ObserveDegraded(TierPersist)
	}
	s.observer.ObservePersist(err)
	return err
}

func (s *service) embed(ctx context.Context, text string) ([]float32, error) {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeEmbedding, "embedding failed", err)
	}
	if len(embedding) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeEmbedding, "embedding response empty", nil)
	}
	if dims := s.cfg.Semantic.Dimensions; dims > 0 && len(embedding) != dims {
		s.logger.Warn("embedding dimension mismatch", "expected", dims, "got", len(embedding))
		return nil, apperrors.Wrap(apperrors.CodeEmbedding, "embedding dimension mismatch", nil)
	}
	return embedding, nil
}

func (s *service) serveCached(st *askState, mode Mode, entry Entry, similarity float64) {
	st.resp.Answer = entry.Answer
	st.resp.Cached = true
	st.resp.Mode = mode
	st.resp.Similarity = similarity
	st.resp.MatchedQuestion = entry.OriginalQuestion
	st.resp.Diagnostics.EntryID = entry.ID
}

func (s *service) degrade(st *askState, tier string, err error) {
	s.logger.Warn("cache tier degraded", "tier", tier, "error", err)
	s.observer.ObserveDegraded(tier)
	st.resp.Diagnostics.Degraded = append(st.resp.Diagnostics.Degraded, tier)
}

func (s *service) recordQuery(ctx context.Context, st *askState) {
	if s.stats == nil || st.answerFailed {
		return
	}
	if err := s.stats.IncrementQuery(ctx, st.normalized, st.question); err != nil {
		s.logger.Warn("trending increment failed", "error", err)
	}
}

func (s *service) semanticEnabled() bool {
	return s.cfg.Semantic.Enabled && s.embedder != nil
}

func (s *service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	if s.stats == nil {
		return []TrendingQuery{}, nil
	}
	recs, err := s.stats.TopQueries(ctx, s.cfg.TopTrending)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStore, "failed to load trending queries", err)
	}
	return recs, nil
}

func (s *service) CheckStore(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeStore, "store unavailable", err)
	}
	return nil
}

// Drain waits for background persists to finish or for ctx to end.
func (s *service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type storeWriter struct {
	store Store
}

func (w storeWriter) Write(ctx context.Context, entry NewEntry) error {
	_, err := w.store.Insert(ctx, entry)
	return err
}
