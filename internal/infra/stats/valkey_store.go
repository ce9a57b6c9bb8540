package stats

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

// ValkeyStore keeps question counters in a Valkey sorted set.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store whose keys live under prefix.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "askcache"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// IncrementQuery bumps the counter for canonical and records display once.
func (s *ValkeyStore) IncrementQuery(ctx context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Zincrby().Key(s.trendingKey()).Increment(1).Member(canonical).Build()).Error(); err != nil {
		return err
	}
	if display == "" {
		return nil
	}
	// SET NX answers nil when the display already exists.
	cmd := s.client.B().Set().Key(s.displayKey(canonical)).Value(display).Nx().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil && !valkey.IsValkeyNil(err) {
		return err
	}
	return nil
}

// TopQueries returns the highest counters first.
func (s *ValkeyStore) TopQueries(ctx context.Context, limit int) ([]qacache.TrendingQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	resp := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.trendingKey()).Start(0).Stop(int64(limit-1)).Withscores().Build())
	arr, err := resp.ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return []qacache.TrendingQuery{}, nil
		}
		return nil, err
	}
	scored, err := scoredMembers(arr)
	if err != nil {
		return nil, err
	}
	out := make([]qacache.TrendingQuery, 0, len(scored))
	for _, m := range scored {
		out = append(out, qacache.TrendingQuery{Query: s.fetchDisplay(ctx, m.member), Count: int64(m.score)})
	}
	return out, nil
}

type scoredMember struct {
	member string
	score  float64
}

// scoredMembers flattens ZREVRANGE WITHSCORES replies. RESP3 nests each pair,
// RESP2 alternates member and score.
func scoredMembers(arr []valkey.ValkeyMessage) ([]scoredMember, error) {
	out := make([]scoredMember, 0, len(arr))
	for i := 0; i < len(arr); {
		var (
			m   scoredMember
			err error
		)
		if tuple, tupleErr := arr[i].ToArray(); tupleErr == nil && len(tuple) == 2 {
			if m.member, err = tuple[0].ToString(); err != nil {
				if valkey.IsValkeyNil(err) {
					i++
					continue
				}
				return nil, err
			}
			if m.score, err = tuple[1].ToFloat64(); err != nil {
				return nil, err
			}
			i++
		} else {
			if i+1 >= len(arr) {
				break
			}
			if m.member, err = arr[i].ToString(); err != nil {
				if valkey.IsValkeyNil(err) {
					i += 2
					continue
				}
				return nil, err
			}
			if m.score, err = arr[i+1].ToFloat64(); err != nil {
				return nil, err
			}
			i += 2
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *ValkeyStore) fetchDisplay(ctx context.Context, canonical string) string {
	display, err := s.client.Do(ctx, s.client.B().Get().Key(s.displayKey(canonical)).Build()).ToString()
	if err != nil || display == "" {
		return canonical
	}
	return display
}

func (s *ValkeyStore) trendingKey() string {
	return fmt.Sprintf("%s:trending", s.prefix)
}

func (s *ValkeyStore) displayKey(canonical string) string {
	return fmt.Sprintf("%s:display:%s", s.prefix, canonical)
}

var _ qacache.StatsStore = (*ValkeyStore)(nil)
