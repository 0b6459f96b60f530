package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"eidrag/internal/domain"
)

func sources(n int, relevance float64) []domain.Source {
	out := make([]domain.Source, n)
	for i := range out {
		out[i].Relevance = relevance
	}
	return out
}

func TestScore_Empty(t *testing.T) {
	assert.Equal(t, 0.1, Score(nil))
	assert.Equal(t, 0.1, Score([]domain.Source{}))
}

func TestScore_Formula(t *testing.T) {
	assert.InDelta(t, 0.3+0.025, Score(sources(3, 0.5)), 1e-9)
	assert.InDelta(t, 0.8+0.05, Score(sources(9, 1)), 1e-9)
}

func TestScore_MonotonicAndBounded(t *testing.T) {
	prev := 0.0
	for n := 1; n <= 30; n++ {
		s := Score(sources(n, 0.7))
		assert.GreaterOrEqual(t, s, prev)
		assert.LessOrEqual(t, s, 0.95)
		prev = s
	}
	// raw keyword scores can exceed 1; the boost is capped
	assert.Equal(t, 0.95, Score(sources(20, 40)))
}
