package significance

import (
	"gowave/domain/core"
	"gowave/internal/wavelet"
	"gowave/ports"
)

// Options configures significance testing. The zero value is not usable; start
// from DefaultOptions.
type Options struct {
	Confidence float64        `yaml:"confidence" json:"confidence"`
	Draws      int            `yaml:"draws" json:"draws"` // Monte Carlo surrogate pairs for coherence
	RedNoise   RedNoiseMethod `yaml:"red_noise" json:"red_noise"`
	Seed       int64          `yaml:"seed" json:"seed"`

	// Smoothed tests time/scale smoothed power with the effective degrees of
	// freedom of the Smoothing windows instead of raw power.
	Smoothed  bool              `yaml:"smoothed" json:"smoothed"`
	Smoothing wavelet.Smoothing `yaml:"smoothing" json:"smoothing"`

	// RNG supplies surrogate streams; nil uses math/rand sources seeded from Seed.
	RNG   ports.RNGPort `yaml:"-" json:"-"`
	RunID string        `yaml:"-" json:"-"`
}

// DefaultDraws is the surrogate count used when none is configured.
const DefaultDraws = 200

// DefaultOptions tests at 95% against a lag-1 red noise background.
func DefaultOptions() Options {
	return Options{
		Confidence: 0.95,
		Draws:      DefaultDraws,
		RedNoise:   RedNoiseLag1,
		Seed:       1,
	}
}

// Validate checks confidence, draw count and red noise method.
func (o Options) Validate() error {
	if !(o.Confidence > 0 && o.Confidence < 1) {
		return core.NewInvalidInputError("confidence must be in (0,1), got %v", o.Confidence)
	}
	if o.Draws < 1 {
		return core.NewInvalidInputError("monte carlo draws must be positive, got %d", o.Draws)
	}
	if _, err := ParseRedNoiseMethod(string(o.RedNoise)); err != nil {
		return err
	}
	return nil
}
