package series

import (
	"math"
	"time"

	"gowave/domain/core"

	"gonum.org/v1/gonum/stat"
)

// MinLength is the shortest series accepted for multiscale analysis.
const MinLength = 8

// MissingPolicy controls how non-finite values are treated when a series is built.
type MissingPolicy int

const (
	// MissingReject fails on any NaN or Inf.
	MissingReject MissingPolicy = iota
	// MissingTrimEdges drops leading and trailing NaNs; interior gaps still fail.
	MissingTrimEdges
	// MissingInterpolate trims the edges and fills interior NaNs linearly.
	MissingInterpolate
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingTrimEdges:
		return "trim_edges"
	case MissingInterpolate:
		return "interpolate"
	default:
		return "reject"
	}
}

// TimeSeries is an immutable, uniformly sampled real-valued sequence.
type TimeSeries struct {
	name       string
	values     []float64
	dt         float64
	start      time.Time
	timestamps []time.Time
	policy     MissingPolicy
}

// Option configures New.
type Option func(*TimeSeries)

// WithTimestamps attaches one timestamp per sample. Spacing must be uniform.
func WithTimestamps(ts []time.Time) Option {
	return func(s *TimeSeries) {
		s.timestamps = append([]time.Time(nil), ts...)
	}
}

// WithStart records the time of the first sample.
func WithStart(start time.Time) Option {
	return func(s *TimeSeries) {
		s.start = start
	}
}

// WithMissingPolicy selects how NaN values are handled.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(s *TimeSeries) {
		s.policy = p
	}
}

// New validates and copies values into a TimeSeries.
func New(name string, values []float64, dt float64, opts ...Option) (*TimeSeries, error) {
	s := &TimeSeries{name: name, dt: dt}
	for _, opt := range opts {
		opt(s)
	}

	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return nil, core.NewInvalidInputError("series %q: sampling interval must be positive, got %v", name, dt)
	}
	if s.timestamps != nil && len(s.timestamps) != len(values) {
		return nil, core.NewShapeMismatchError("series %q: %d timestamps for %d values", name, len(s.timestamps), len(values))
	}

	vals := append([]float64(nil), values...)
	for _, v := range vals {
		if math.IsInf(v, 0) {
			return nil, core.NewInvalidInputError("series %q: infinite value", name)
		}
	}

	if s.policy != MissingReject {
		first, last := finiteBounds(vals)
		if first < 0 {
			return nil, core.NewInsufficientDataError("series %q: no finite values", name)
		}
		vals = vals[first : last+1]
		if s.timestamps != nil {
			s.timestamps = s.timestamps[first : last+1]
		}
		if s.policy == MissingInterpolate {
			interpolateGaps(vals)
		}
	}

	for i, v := range vals {
		if math.IsNaN(v) {
			return nil, core.NewInvalidInputError("series %q: missing value at index %d (policy %s)", name, i, s.policy)
		}
	}

	if len(vals) < MinLength {
		return nil, core.NewInsufficientDataError("series %q: %d observations, need at least %d", name, len(vals), MinLength)
	}

	if s.timestamps != nil {
		if err := checkUniform(s.timestamps); err != nil {
			return nil, core.NewInvalidInputError("series %q: %v", name, err)
		}
		s.start = s.timestamps[0]
	}

	s.values = vals
	return s, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(name string, values []float64, dt float64, opts ...Option) *TimeSeries {
	s, err := New(name, values, dt, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *TimeSeries) Name() string { return s.name }
func (s *TimeSeries) Len() int { return len(s.values) }
func (s *TimeSeries) DT() float64 { return s.dt }
func (s *TimeSeries) Start() time.Time { return s.start }
func (s *TimeSeries) At(i int) float64 { return s.values[i] }
func (s *TimeSeries) MissingPolicy() MissingPolicy { return s.policy }

// Duration is N·dt.
func (s *TimeSeries) Duration() float64 {
	return float64(len(s.values)) * s.dt
}

// Values returns a copy of the samples.
func (s *TimeSeries) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Timestamps returns a copy of the timestamps, or nil when none were attached.
func (s *TimeSeries) Timestamps() []time.Time {
	if s.timestamps == nil {
		return nil
	}
	return append([]time.Time(nil), s.timestamps...)
}

// MeanVariance returns the sample mean and unbiased variance.
func (s *TimeSeries) MeanVariance() (mean, variance float64) {
	return stat.MeanVariance(s.values, nil)
}

// Standardize returns a copy with zero mean and unit variance.
func (s *TimeSeries) Standardize() (*TimeSeries, error) {
	mean, std := stat.MeanStdDev(s.values, nil)
	if std == 0 || math.IsNaN(std) {
		return nil, core.NewDegenerateSeriesError("series %q: zero variance, cannot standardize", s.name)
	}
	out := make([]float64, len(s.values))
	for i, v := range s.values {
		out[i] = (v - mean) / std
	}
	return s.derive(s.name, out), nil
}

// Rename returns a copy carrying a different name.
func (s *TimeSeries) Rename(name string) *TimeSeries {
	return s.derive(name, s.Values())
}

func (s *TimeSeries) derive(name string, values []float64) *TimeSeries {
	return &TimeSeries{
		name:       name,
		values:     values,
		dt:         s.dt,
		start:      s.start,
		timestamps: s.Timestamps(),
		policy:     s.policy,
	}
}

// SameSampling reports whether two series can be paired point by point.
func SameSampling(a, b *TimeSeries) error {
	if a.Len() != b.Len() {
		return core.NewShapeMismatchError("series %q has %d points, %q has %d", a.name, a.Len(), b.name, b.Len())
	}
	if math.Abs(a.dt-b.dt) > 1e-12*math.Max(a.dt, b.dt) {
		return core.NewShapeMismatchError("series %q has dt=%v, %q has dt=%v", a.name, a.dt, b.name, b.dt)
	}
	return nil
}

func finiteBounds(vals []float64) (first, last int) {
	first, last = -1, -1
	for i, v := range vals {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

// interpolateGaps fills interior NaN runs; vals must start and end with finite values.
func interpolateGaps(vals []float64) {
	i := 0
	for i < len(vals) {
		if !math.IsNaN(vals[i]) {
			i++
			continue
		}
		j := i
		for j < len(vals) && math.IsNaN(vals[j]) {
			j++
		}
		left, right := vals[i-1], vals[j]
		span := float64(j - i + 1)
		for k := i; k < j; k++ {
			frac := float64(k-i+1) / span
			vals[k] = left + frac*(right-left)
		}
		i = j
	}
}
