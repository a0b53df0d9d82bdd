package wavelet

import (
	"math"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/domain/spectral"
)

// NewGrid builds s_j = s0·2^(j·dj), j = 0..J with J = floor(log2(N·dt/s0)/dj).
// The top scales reach the full record length and lie entirely inside the cone of influence.
func NewGrid(n int, dt, dj, s0 float64, basis *Basis) (*spectral.ScaleGrid, error) {
	if n < series.MinLength {
		return nil, core.NewInsufficientDataError("%d observations, need at least %d", n, series.MinLength)
	}
	if dt <= 0 || dj <= 0 || s0 <= 0 {
		return nil, core.NewInvalidInputError("grid parameters must be positive: dt=%v dj=%v s0=%v", dt, dj, s0)
	}
	ratio := float64(n) * dt / s0
	if ratio < 1 {
		return nil, core.NewInsufficientDataError("smallest scale %v exceeds series duration %v", s0, float64(n)*dt)
	}
	// The epsilon keeps exact octave counts from being floored away by rounding.
	J := int(math.Floor(math.Log2(ratio)/dj + 1e-9))

	g := &spectral.ScaleGrid{
		Scales:  make([]float64, J+1),
		Periods: make([]float64, J+1),
		DJ:      dj,
		S0:      s0,
		DT:      dt,
	}
	for j := 0; j <= J; j++ {
		s := s0 * math.Pow(2, float64(j)*dj)
		g.Scales[j] = s
		g.Periods[j] = basis.FourierPeriod(s)
	}
	return g, nil
}

// GridFor builds the grid for a series under cfg.
func GridFor(ts *series.TimeSeries, cfg Config, basis *Basis) (*spectral.ScaleGrid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewGrid(ts.Len(), ts.DT(), cfg.DJ, cfg.ResolveS0(ts.DT()), basis)
}
