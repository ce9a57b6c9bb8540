package embedder

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

// DeterministicEmbedder avoids network calls by hashing key terms into a
// fixed number of buckets. Questions sharing key terms land close together.
type DeterministicEmbedder struct {
	dim int
}

// NewDeterministicEmbedder constructs the embedder.
func NewDeterministicEmbedder(dim int) *DeterministicEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &DeterministicEmbedder{dim: dim}
}

// Embed converts text into a unit vector.
func (e *DeterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, e.dim)
	hasTerms := false
	for term := range qacache.KeyTerms(text) {
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(term))
		sum := hash.Sum64()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vector[(sum>>1)%uint64(e.dim)] += sign
		hasTerms = true
	}
	if !hasTerms {
		// Fall back to a pseudo-random vector seeded by the whole text.
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(text))
		seed := hash.Sum64()
		for j := range vector {
			seed = seed*1099511628211 + 1469598103934665603
			vector[j] = float32(seed%997)/997.0 - 0.5
		}
	}
	normalize(vector)
	return vector, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

var _ qacache.Embedder = (*DeterministicEmbedder)(nil)
