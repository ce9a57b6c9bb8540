package cachestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

const (
	// fuzzyScanLimit bounds how many trigram-index hits are rescored per lookup.
	fuzzyScanLimit = 50
	// semanticOverfetch widens the vector scan so the lexical floor can still fill the limit.
	semanticOverfetch = 4
)

const entryColumns = `id, qnorm, question, answer, embedding::text, created_at, expires_at`

// Candidate queries filter on similarity() explicitly. The % operator would
// apply the session pg_trgm.similarity_threshold (0.3 by default) as an
// extra floor that the memory store does not have.
const (
	fuzzyCandidateSQL = `
		SELECT ` + entryColumns + `
		FROM qa_cache
		WHERE expires_at > NOW() AND similarity(qnorm, $1) > 0
		ORDER BY similarity(qnorm, $1) DESC, id DESC
		LIMIT $2
	`
	semanticCandidateSQL = `
		SELECT ` + entryColumns + `, 1 - (embedding <=> $2) AS cosine
		FROM qa_cache
		WHERE embedding IS NOT NULL AND expires_at > NOW() AND similarity(qnorm, $1) >= $4
		ORDER BY embedding <=> $2, id DESC
		LIMIT $3
	`
)

// similaritySlack absorbs float4 rounding in similarity().
const similaritySlack = 1e-6

// lexicalPrefilter turns a TrigramScore floor into a slightly looser
// similarity() bound. Rows are rescored in Go afterwards.
func lexicalPrefilter(floor float64) float64 {
	return max(0, qacache.DiceToJaccard(floor)-similaritySlack)
}

// PostgresStore implements qacache.Store on a qa_cache table with pgvector and pg_trgm.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindExact returns the newest live row with the same normalized question.
func (s *PostgresStore) FindExact(ctx context.Context, normalized string) (qacache.Entry, bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM qa_cache
		WHERE qnorm = $1 AND expires_at > NOW()
		ORDER BY id DESC
		LIMIT 1
	`, normalized)
	if err != nil {
		return qacache.Entry{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return qacache.Entry{}, false, rows.Err()
	}
	entry, err := scanEntry(rows)
	if err != nil {
		return qacache.Entry{}, false, err
	}
	return entry, true, rows.Err()
}

// FindFuzzyCandidate ranks live rows sharing any trigram by pg_trgm
// similarity and rescores the top hits with qacache.TrigramScore. Both scores
// order pairs the same way, so the best row matches the memory store's.
func (s *PostgresStore) FindFuzzyCandidate(ctx context.Context, normalized string) (qacache.FuzzyCandidate, bool, error) {
	rows, err := s.pool.Query(ctx, fuzzyCandidateSQL, normalized, fuzzyScanLimit)
	if err != nil {
		return qacache.FuzzyCandidate{}, false, err
	}
	defer rows.Close()

	var (
		best  qacache.FuzzyCandidate
		found bool
	)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return qacache.FuzzyCandidate{}, false, err
		}
		score := qacache.TrigramScore(normalized, entry.NormalizedQuestion)
		if !found || better(score, entry.ID, best.Score, best.Entry.ID) {
			best = qacache.FuzzyCandidate{Entry: entry, Score: score}
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return qacache.FuzzyCandidate{}, false, err
	}
	return best, found, nil
}

// FindSemanticCandidates returns live embedding-bearing rows nearest to
// embedding by cosine distance whose trigram score clears lexicalFloor.
func (s *PostgresStore) FindSemanticCandidates(ctx context.Context, normalized string, embedding []float32, lexicalFloor float64, limit int) ([]qacache.SemanticCandidate, error) {
	if len(embedding) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, semanticCandidateSQL,
		normalized, pgvector.NewVector(embedding), limit*semanticOverfetch, lexicalPrefilter(lexicalFloor))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]qacache.SemanticCandidate, 0, limit)
	for rows.Next() {
		var cosine float64
		entry, err := scanEntry(rows, &cosine)
		if err != nil {
			return nil, err
		}
		if qacache.TrigramScore(normalized, entry.NormalizedQuestion) < lexicalFloor {
			continue
		}
		if len(out) < limit {
			out = append(out, qacache.SemanticCandidate{Entry: entry, Cosine: cosine})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert appends a row and returns its id.
func (s *PostgresStore) Insert(ctx context.Context, entry qacache.NewEntry) (int64, error) {
	var embedding any
	if len(entry.Embedding) > 0 {
		embedding = pgvector.NewVector(entry.Embedding)
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO qa_cache (qnorm, question, answer, embedding, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, entry.NormalizedQuestion, entry.OriginalQuestion, entry.Answer, embedding, entry.ExpiresAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner, extras ...any) (qacache.Entry, error) {
	var (
		entry qacache.Entry
		raw   *string
	)
	args := []any{&entry.ID, &entry.NormalizedQuestion, &entry.OriginalQuestion, &entry.Answer, &raw, &entry.CreatedAt, &entry.ExpiresAt}
	args = append(args, extras...)
	if err := row.Scan(args...); err != nil {
		return qacache.Entry{}, err
	}
	if raw != nil {
		embedding, err := parseVector(*raw)
		if err != nil {
			return qacache.Entry{}, err
		}
		entry.Embedding = embedding
	}
	return entry, nil
}

// parseVector reads the pgvector text form "[1,2,3]".
func parseVector(raw string) ([]float32, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		numStr := strings.TrimSpace(p)
		if numStr == "" {
			continue
		}
		f, err := strconv.ParseFloat(numStr, 32)
		if err != nil {
			return nil, fmt.Errorf("parse embedding: %w", err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

func better(score float64, id int64, bestScore float64, bestID int64) bool {
	return score > bestScore || (score == bestScore && id > bestID)
}

var _ qacache.Store = (*PostgresStore)(nil)
