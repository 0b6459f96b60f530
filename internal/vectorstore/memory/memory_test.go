package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/domain"
)

func TestStorage_UpsertReplacesByID(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Point{{ID: "a", Vector: []float64{1, 0}, Payload: domain.Payload{Text: "old"}}}))
	require.NoError(t, s.Upsert(ctx, []domain.Point{{ID: "a", Vector: []float64{0, 1}, Payload: domain.Payload{Text: "new"}}}))
	assert.Equal(t, 1, s.Len())
	p, ok := s.Point("a")
	require.True(t, ok)
	assert.Equal(t, "new", p.Payload.Text)
}

func TestStorage_DimensionMismatch(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, 2))
	assert.ErrorIs(t, s.EnsureCollection(ctx, 3), domain.ErrDimensionMismatch)
	assert.ErrorIs(t, s.Upsert(ctx, []domain.Point{{ID: "a", Vector: []float64{1, 0, 0}}}), domain.ErrDimensionMismatch)
}

func TestStorage_SearchRanksAndFilters(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Point{
		{ID: "near", Vector: []float64{1, 0.1}, Payload: domain.Payload{Domain: "troid.org"}},
		{ID: "far", Vector: []float64{0, 1}, Payload: domain.Payload{Domain: "bakkah.net"}},
		{ID: "mid", Vector: []float64{1, 1}, Payload: domain.Payload{Domain: "troid.org"}},
	}))

	hits, err := s.Search(ctx, []float64{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)

	hits, err = s.Search(ctx, []float64{1, 0}, 10, &domain.Filter{Domain: "bakkah.net"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "far", hits[0].ID)
}
