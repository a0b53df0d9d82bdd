package rng

import (
	"context"
	"hash/fnv"
	"math/rand"

	"gowave/ports"
)

// SeededAdapter implements ports.RNGPort with math/rand sources derived from
// FNV hashes of the stream coordinates.
type SeededAdapter struct{}

var _ ports.RNGPort = (*SeededAdapter)(nil)

// NewSeededAdapter creates the default RNG adapter.
func NewSeededAdapter() *SeededAdapter {
	return &SeededAdapter{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *SeededAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(mix(seed, name))), nil
}

// Stream creates a deterministic RNG stream for one draw of one analysis stage.
func (r *SeededAdapter) Stream(ctx context.Context, runID, stageName, key string, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(mix(baseSeed, runID, stageName, key))), nil
}

func mix(seed int64, parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return seed ^ int64(h.Sum64())
}
