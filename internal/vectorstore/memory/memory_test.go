package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelaw/internal/domain"
)

func TestSearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Chunk{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}},
		[][]float64{{1, 0}, {0, 1}, {0.6, 0.8}},
	))
	assert.Equal(t, 3, s.Len())

	res, err := s.Search(ctx, []float64{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "b", res[0].Chunk.ChunkID)
	assert.Equal(t, "c", res[1].Chunk.ChunkID)
}

func TestUpsertValidates(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, nil))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float64{{1, 2, 3}}))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float64{{1}}))
	require.NoError(t, s.Clear(ctx))

	res, err := s.Search(ctx, []float64{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}
