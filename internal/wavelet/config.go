package wavelet

import (
	"gowave/domain/core"
)

// Config selects the basis and scale grid for a transform.
type Config struct {
	Family      Family    `yaml:"family" json:"family"`
	W0          float64   `yaml:"w0" json:"w0"`       // Morlet central frequency
	Order       int       `yaml:"order" json:"order"` // Paul / DOG order
	DJ          float64   `yaml:"dj" json:"dj"`       // octave sub-resolution
	S0          float64   `yaml:"s0" json:"s0"`       // smallest scale; 0 means 2·dt
	Standardize bool      `yaml:"standardize" json:"standardize"`
	Smoothing   Smoothing `yaml:"smoothing" json:"smoothing"`
}

// DefaultConfig is Morlet(6) with quarter-octave resolution and automatic s0.
func DefaultConfig() Config {
	return Config{
		Family: FamilyMorlet,
		W0:     6,
		DJ:     0.25,
	}
}

// Basis builds the configured mother wavelet.
func (c Config) Basis() (*Basis, error) {
	switch c.Family {
	case FamilyPaul, FamilyDOG:
		return NewBasis(c.Family, float64(c.Order))
	default:
		return NewBasis(FamilyMorlet, c.W0)
	}
}

// ResolveS0 returns the smallest scale for sampling interval dt.
func (c Config) ResolveS0(dt float64) float64 {
	if c.S0 > 0 {
		return c.S0
	}
	return 2 * dt
}

// Validate checks the grid parameters; basis parameters are checked by Basis.
func (c Config) Validate() error {
	if c.DJ <= 0 || c.DJ > 1 {
		return core.NewInvalidInputError("dj must be in (0,1], got %v", c.DJ)
	}
	if c.S0 < 0 {
		return core.NewInvalidInputError("s0 must be positive or 0 for auto, got %v", c.S0)
	}
	return nil
}
