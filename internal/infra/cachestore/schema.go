package cachestore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaStatements returns the DDL for the qa_cache table. dims fixes the
// vector column width and enables the HNSW index when positive.
func SchemaStatements(dims int) []string {
	vectorType := "VECTOR"
	if dims > 0 {
		vectorType = fmt.Sprintf("VECTOR(%d)", dims)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS qa_cache (
	id BIGSERIAL PRIMARY KEY,
	qnorm TEXT NOT NULL,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	embedding %s NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ DEFAULT NOW()
)`, vectorType),
		`CREATE INDEX IF NOT EXISTS idx_qa_cache_qnorm ON qa_cache (qnorm, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_qa_cache_qnorm_trgm ON qa_cache USING gin (qnorm gin_trgm_ops)`,
	}
	if dims > 0 {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_qa_cache_embedding ON qa_cache USING hnsw (embedding vector_cosine_ops)`)
	}
	return stmts
}

// EnsureSchema applies SchemaStatements. Every statement is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dims int) error {
	for _, stmt := range SchemaStatements(dims) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
