package testkit

import (
	"math"
	"math/rand"

	"gowave/domain/core"
	"gowave/domain/series"
)

// Cycle is one deterministic sinusoidal component.
type Cycle struct {
	Period    float64 `json:"period" yaml:"period"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Phase     float64 `json:"phase" yaml:"phase"` // radians
}

// CycleGeneratorConfig configures the synthetic income/consumption generator
type CycleGeneratorConfig struct {
	Length int     `json:"length" yaml:"length"`
	DT     float64 `json:"dt" yaml:"dt"`
	Trend  float64 `json:"trend" yaml:"trend"` // income drift per unit time
	Cycles []Cycle `json:"cycles" yaml:"cycles"`

	// Income noise is AR(1) with coefficient NoiseAlpha and innovation std NoiseScale.
	NoiseAlpha float64 `json:"noise_alpha" yaml:"noise_alpha"`
	NoiseScale float64 `json:"noise_scale" yaml:"noise_scale"`

	// Consumption responds to income with MPC at long periods and smooths
	// through Lag periods of partial adjustment.
	MPC              float64 `json:"mpc" yaml:"mpc"`
	Adjustment       float64 `json:"adjustment" yaml:"adjustment"` // 0 < a ≤ 1, share of the gap closed each step
	ConsumptionNoise float64 `json:"consumption_noise" yaml:"consumption_noise"`

	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultCycleConfig returns twenty years of monthly data with a business cycle
// and a shorter inventory cycle.
func DefaultCycleConfig() CycleGeneratorConfig {
	return CycleGeneratorConfig{
		Length: 240,
		DT:     1.0 / 12,
		Trend:  0.02,
		Cycles: []Cycle{
			{Period: 6, Amplitude: 1.0},
			{Period: 1, Amplitude: 0.4, Phase: math.Pi / 3},
		},
		NoiseAlpha:       0.5,
		NoiseScale:       0.2,
		MPC:              0.8,
		Adjustment:       0.3,
		ConsumptionNoise: 0.1,
		Seed:             42,
	}
}

// CycleGenerator produces income and consumption series with known cycles
type CycleGenerator struct {
	config CycleGeneratorConfig
	rng    *rand.Rand
}

// NewCycleGenerator creates a generator; the same seed yields the same series.
func NewCycleGenerator(config CycleGeneratorConfig) *CycleGenerator {
	return &CycleGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns (income, consumption).
func (g *CycleGenerator) Generate() (*series.TimeSeries, *series.TimeSeries, error) {
	c := g.config
	if c.Length < series.MinLength || c.DT <= 0 {
		return nil, nil, core.NewInvalidInputError("generator needs length ≥ %d and dt > 0", series.MinLength)
	}
	if c.Adjustment <= 0 || c.Adjustment > 1 {
		return nil, nil, core.NewInvalidInputError("adjustment must be in (0,1], got %v", c.Adjustment)
	}

	noise := AR1(g.rng, c.Length, c.NoiseAlpha, c.NoiseScale)
	income := make([]float64, c.Length)
	for i := range income {
		t := float64(i) * c.DT
		income[i] = c.Trend*t + Sum(t, c.Cycles) + noise[i]
	}

	consumption := make([]float64, c.Length)
	consumption[0] = c.MPC * income[0]
	for i := 1; i < c.Length; i++ {
		target := c.MPC * income[i]
		consumption[i] = consumption[i-1] + c.Adjustment*(target-consumption[i-1]) + c.ConsumptionNoise*g.rng.NormFloat64()
	}

	inc, err := series.New("income", income, c.DT)
	if err != nil {
		return nil, nil, err
	}
	cons, err := series.New("consumption", consumption, c.DT)
	if err != nil {
		return nil, nil, err
	}
	return inc, cons, nil
}

// Sum evaluates the cycles at time t.
func Sum(t float64, cycles []Cycle) float64 {
	v := 0.0
	for _, cy := range cycles {
		v += cy.Amplitude * math.Sin(2*math.Pi*t/cy.Period+cy.Phase)
	}
	return v
}

// Sinusoid returns A·sin(2πt/period) sampled at t = i·dt.
func Sinusoid(name string, n int, dt, period, amplitude float64) *series.TimeSeries {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = amplitude * math.Sin(2*math.Pi*float64(i)*dt/period)
	}
	return series.MustNew(name, vals, dt)
}

// WhiteNoise returns n standard normal draws as a series.
func WhiteNoise(name string, n int, dt float64, seed int64) *series.TimeSeries {
	r := rand.New(rand.NewSource(seed))
	return series.MustNew(name, AR1(r, n, 0, 1), dt)
}

// RedNoise returns a stationary AR(1) series with unit innovations.
func RedNoise(name string, n int, dt, alpha float64, seed int64) *series.TimeSeries {
	r := rand.New(rand.NewSource(seed))
	return series.MustNew(name, AR1(r, n, alpha, 1), dt)
}

// AR1 draws a stationary AR(1) path with innovation standard deviation scale.
func AR1(r *rand.Rand, n int, alpha, scale float64) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = scale * r.NormFloat64() / math.Sqrt(1-alpha*alpha)
	for i := 1; i < n; i++ {
		out[i] = alpha*out[i-1] + scale*r.NormFloat64()
	}
	return out
}

// Combine adds series element-wise under a new name. All inputs must share length and dt.
func Combine(name string, parts ...*series.TimeSeries) (*series.TimeSeries, error) {
	if len(parts) == 0 {
		return nil, core.NewInvalidInputError("nothing to combine")
	}
	out := parts[0].Values()
	for _, p := range parts[1:] {
		if err := series.SameSampling(parts[0], p); err != nil {
			return nil, err
		}
		for i := range out {
			out[i] += p.At(i)
		}
	}
	return series.New(name, out, parts[0].DT())
}
