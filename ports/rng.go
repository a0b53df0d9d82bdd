package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream creates a deterministic RNG stream for one draw of one analysis stage.
	// The same run, stage, key and base seed always yield the same sequence.
	Stream(ctx context.Context, runID, stageName, key string, baseSeed int64) (*rand.Rand, error)
}
