package wavelet

import (
	"math"

	"gowave/domain/core"
	"gowave/domain/spectral"

	"gonum.org/v1/gonum/floats"
)

// Reconstruct inverts the transform over scale indices [lo, hi]:
//
//	x_n = dj·√dt / (Cδ·ψ0(0)) · Σ_j Re W_n(s_j) / √s_j
//
// The result is the demeaned series filtered to that band; add w.Mean back
// for the original level.
func Reconstruct(w *spectral.Transform, basis *Basis, lo, hi int) ([]float64, error) {
	if lo < 0 || hi >= len(w.Coeffs) || lo > hi {
		return nil, core.NewInvalidInputError("scale range [%d,%d] outside 0..%d", lo, hi, len(w.Coeffs)-1)
	}
	factor := w.Grid.DJ * math.Sqrt(w.DT) / (basis.Cdelta() * basis.Psi0())
	out := make([]float64, w.N)
	for j := lo; j <= hi; j++ {
		inv := 1 / math.Sqrt(w.Grid.Scales[j])
		for n, z := range w.Coeffs[j] {
			out[n] += real(z) * inv
		}
	}
	floats.Scale(factor, out)
	return out, nil
}

// ReconstructAll inverts over the whole grid.
func ReconstructAll(w *spectral.Transform, basis *Basis) ([]float64, error) {
	return Reconstruct(w, basis, 0, len(w.Coeffs)-1)
}

// ReconstructPeriods inverts over the scales whose period lies in [minPeriod, maxPeriod).
func ReconstructPeriods(w *spectral.Transform, basis *Basis, minPeriod, maxPeriod float64) ([]float64, error) {
	lo, hi := -1, -1
	for j, p := range w.Grid.Periods {
		if p >= minPeriod && p < maxPeriod {
			if lo < 0 {
				lo = j
			}
			hi = j
		}
	}
	if lo < 0 {
		return nil, core.NewInvalidInputError("no scale with period in [%v,%v)", minPeriod, maxPeriod)
	}
	return Reconstruct(w, basis, lo, hi)
}
