package hashing

import (
	"context"
	"math"
	"strings"

	"github.com/minio/highwayhash"

	"eidrag/internal/summarizer"
)

// DefaultDimension is used when no output size is configured.
const DefaultDimension = 256

// hashKey is fixed so vectors stay comparable across processes.
var hashKey = []byte("eidrag-feature-hashing-key-00032")

// Embedder maps tokens into a fixed number of buckets (the hashing trick),
// weights them by term frequency and L2-normalizes the result. It needs no
// corpus preparation and no network, which makes it suitable for offline use.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder producing vectors of size dim.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{dimension: dim}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed term-frequency vector for text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	vec := make([]float64, e.dimension)
	tokens := summarizer.Words(text)
	if len(tokens) == 0 {
		return vec, nil
	}
	for _, tok := range tokens {
		h := highwayhash.Sum64([]byte(tok), hashKey)
		idx := int(h % uint64(e.dimension))
		// sign bit reduces collision bias
		if h&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}
