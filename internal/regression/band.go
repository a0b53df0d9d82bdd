package regression

import (
	"math"
	"strings"

	"gowave/domain/core"
	"gowave/domain/spectral"
)

// ScaleBand groups grid scales whose Fourier period lies in [MinPeriod, MaxPeriod).
// Periods are in the series' time unit. MaxPeriod 0 means unbounded.
type ScaleBand struct {
	Label     core.BandLabel `yaml:"label" json:"label" validate:"required"`
	MinPeriod float64        `yaml:"min_period" json:"min_period" validate:"gte=0"`
	MaxPeriod float64        `yaml:"max_period" json:"max_period" validate:"gte=0"`
}

// DefaultBands splits annual-unit data into short-run (< 1.5 years),
// business-cycle (1.5 to 8 years) and long-run (≥ 8 years).
func DefaultBands() []ScaleBand {
	return []ScaleBand{
		{Label: "short-run", MinPeriod: 0, MaxPeriod: 1.5},
		{Label: "business-cycle", MinPeriod: 1.5, MaxPeriod: 8},
		{Label: "long-run", MinPeriod: 8},
	}
}

func (b ScaleBand) upper() float64 {
	if b.MaxPeriod <= 0 {
		return math.Inf(1)
	}
	return b.MaxPeriod
}

// Contains reports whether period p belongs to the band.
func (b ScaleBand) Contains(p float64) bool {
	return p >= b.MinPeriod && p < b.upper()
}

// Resolve returns the first and last grid index inside the band.
func (b ScaleBand) Resolve(grid *spectral.ScaleGrid) (lo, hi int, err error) {
	lo, hi = -1, -1
	for j, p := range grid.Periods {
		if b.Contains(p) {
			if lo < 0 {
				lo = j
			}
			hi = j
		}
	}
	if lo < 0 {
		return 0, 0, core.NewInvalidInputError("band %q [%v,%v) contains no grid period (grid spans %v to %v)",
			b.Label, b.MinPeriod, b.upper(), grid.Periods[0], grid.Periods[grid.J()])
	}
	return lo, hi, nil
}

func validateBands(bands []ScaleBand) error {
	seen := make(map[core.BandLabel]bool, len(bands))
	for _, b := range bands {
		if strings.TrimSpace(b.Label.String()) == "" {
			return core.NewInvalidInputError("band without label")
		}
		if seen[b.Label] {
			return core.NewInvalidInputError("duplicate band label %q", b.Label)
		}
		seen[b.Label] = true
		if b.MinPeriod < 0 || (b.MaxPeriod > 0 && b.MaxPeriod <= b.MinPeriod) {
			return core.NewInvalidInputError("band %q has invalid period range [%v,%v)", b.Label, b.MinPeriod, b.MaxPeriod)
		}
	}
	return nil
}

// ConeScale picks which scale of a band decides whether a time index lies
// inside the cone of influence.
type ConeScale string

const (
	ConeSmallest ConeScale = "smallest"
	ConeCentral  ConeScale = "central"
	ConeLargest  ConeScale = "largest"
)

// ParseConeScale accepts the three policies; empty means central.
func ParseConeScale(s string) (ConeScale, error) {
	switch ConeScale(strings.ToLower(strings.TrimSpace(s))) {
	case "", ConeCentral:
		return ConeCentral, nil
	case ConeSmallest:
		return ConeSmallest, nil
	case ConeLargest:
		return ConeLargest, nil
	default:
		return "", core.NewInvalidInputError("unknown cone scale policy %q", s)
	}
}

func (c ConeScale) index(lo, hi int) int {
	switch c {
	case ConeSmallest:
		return lo
	case ConeLargest:
		return hi
	default:
		return (lo + hi) / 2
	}
}
