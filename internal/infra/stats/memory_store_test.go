package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

func TestMemoryStoreTopQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.IncrementQuery(ctx, "who wrote hamlet?", "Who wrote Hamlet?"))
	require.NoError(t, s.IncrementQuery(ctx, "who wrote hamlet?", "WHO WROTE HAMLET"))
	require.NoError(t, s.IncrementQuery(ctx, "capital of france?", ""))
	require.NoError(t, s.IncrementQuery(ctx, "bugün hava nasıl", "Bugün hava nasıl"))
	require.NoError(t, s.IncrementQuery(ctx, "", "ignored"))

	top, err := s.TopQueries(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []qacache.TrendingQuery{
		{Query: "Who wrote Hamlet?", Count: 2},
		{Query: "Bugün hava nasıl", Count: 1},
	}, top)

	all, err := s.TopQueries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "capital of france?", all[2].Query)
}
