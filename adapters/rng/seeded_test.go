package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(t *testing.T, a *SeededAdapter, key string, seed int64) []float64 {
	t.Helper()
	r, err := a.Stream(context.Background(), "run", "coherence", key, seed)
	require.NoError(t, err)
	out := make([]float64, 5)
	for i := range out {
		out[i] = r.NormFloat64()
	}
	return out
}

func TestStream_Deterministic(t *testing.T) {
	a := NewSeededAdapter()
	assert.Equal(t, draw(t, a, "draw-1", 42), draw(t, a, "draw-1", 42))
	assert.NotEqual(t, draw(t, a, "draw-1", 42), draw(t, a, "draw-2", 42))
	assert.NotEqual(t, draw(t, a, "draw-1", 42), draw(t, a, "draw-1", 43))
}

func TestStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSeededAdapter().SeededStream(ctx, "x", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
