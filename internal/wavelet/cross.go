package wavelet

import (
	"math"
	"math/cmplx"

	"gowave/domain/core"
	"gowave/domain/spectral"
)

// Cross returns Wa·conj(Wb). Both transforms must share length, dt and grid.
func Cross(a, b *spectral.Transform) (*spectral.CrossTransform, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	coeffs := make([][]complex128, len(a.Coeffs))
	for j := range coeffs {
		ra, rb := a.Coeffs[j], b.Coeffs[j]
		row := make([]complex128, a.N)
		for n := range row {
			row[n] = ra[n] * cmplx.Conj(rb[n])
		}
		coeffs[j] = row
	}
	return &spectral.CrossTransform{
		Grid:   a.Grid,
		Coeffs: coeffs,
		N:      a.N,
		DT:     a.DT,
		A:      a.Series,
		B:      b.Series,
	}, nil
}

// Coherence computes R² = |S(s⁻¹Wab)|² / (S(s⁻¹|Wa|²)·S(s⁻¹|Wb|²)) and the
// phase of the smoothed cross spectrum. Values are clipped to [0,1]; cells
// whose smoothed auto-power vanishes are 0.
func Coherence(a, b *spectral.Transform, basis *Basis, sm Smoothing) (*spectral.Coherence, error) {
	if err := sameShape(a, b); err != nil {
		return nil, err
	}
	sm = sm.Resolve(basis)
	grid := a.Grid
	if err := sm.check(grid); err != nil {
		return nil, err
	}

	rows := len(a.Coeffs)
	pa := make([][]complex128, rows)
	pb := make([][]complex128, rows)
	ab := make([][]complex128, rows)
	for j := 0; j < rows; j++ {
		inv := 1 / grid.Scales[j]
		pa[j] = make([]complex128, a.N)
		pb[j] = make([]complex128, a.N)
		ab[j] = make([]complex128, a.N)
		for n := 0; n < a.N; n++ {
			wa, wb := a.Coeffs[j][n], b.Coeffs[j][n]
			pa[j][n] = complex(inv*sqAbs(wa), 0)
			pb[j][n] = complex(inv*sqAbs(wb), 0)
			ab[j][n] = complex(inv, 0) * wa * cmplx.Conj(wb)
		}
	}
	spa, spb, sab := sm.smooth(pa, grid), sm.smooth(pb, grid), sm.smooth(ab, grid)

	values := make([][]float64, rows)
	phase := make([][]float64, rows)
	for j := 0; j < rows; j++ {
		values[j] = make([]float64, a.N)
		phase[j] = make([]float64, a.N)
		for n := 0; n < a.N; n++ {
			den := real(spa[j][n]) * real(spb[j][n])
			phase[j][n] = spectral.Angle(sab[j][n])
			if den <= 0 {
				continue
			}
			values[j][n] = clamp01(sqAbs(sab[j][n]) / den)
		}
	}
	return &spectral.Coherence{
		Grid:   grid,
		Values: values,
		Phase:  phase,
		N:      a.N,
		DT:     a.DT,
		A:      a.Series,
		B:      b.Series,
	}, nil
}

func sameShape(a, b *spectral.Transform) error {
	if a.N != b.N {
		return core.NewShapeMismatchError("%q has %d points, %q has %d", a.Series, a.N, b.Series, b.N)
	}
	if math.Abs(a.DT-b.DT) > 1e-12*a.DT {
		return core.NewShapeMismatchError("%q has dt=%v, %q has dt=%v", a.Series, a.DT, b.Series, b.DT)
	}
	if len(a.Coeffs) != len(b.Coeffs) {
		return core.NewShapeMismatchError("%q has %d scales, %q has %d", a.Series, len(a.Coeffs), b.Series, len(b.Coeffs))
	}
	for j := range a.Grid.Scales {
		if math.Abs(a.Grid.Scales[j]-b.Grid.Scales[j]) > 1e-9*a.Grid.Scales[j] {
			return core.NewShapeMismatchError("scale grids differ at index %d", j)
		}
	}
	return nil
}

func sqAbs(z complex128) float64 {
	return real(z)*real(z) + imag(z)*imag(z)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	}
	return x
}
