package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestEmbedder_Deterministic(t *testing.T) {
	e := NewEmbedder(64)
	a, err := e.Embed(context.Background(), "The fundamentals of Tawheed")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "the FUNDAMENTALS of tawheed")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestEmbedder_UnitNorm(t *testing.T) {
	vec, err := NewEmbedder(0).Embed(context.Background(), "following the sunnah of the prophet")
	require.NoError(t, err)
	assert.Len(t, vec, DefaultDimension)
	assert.InDelta(t, 1.0, math.Sqrt(cosine(vec, vec)), 1e-9)
}

func TestEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewEmbedder(512)
	q, _ := e.Embed(context.Background(), "tawheed worship")
	near, _ := e.Embed(context.Background(), "tawheed is singling out allah in worship")
	far, _ := e.Embed(context.Background(), "zakat al-fitr is paid before eid prayer")
	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestEmbedder_Blank(t *testing.T) {
	vec, err := NewEmbedder(8).Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, vec)
}
