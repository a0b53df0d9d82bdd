package significance

import (
	"math"
	"math/cmplx"

	"gowave/domain/core"
	"gowave/domain/spectral"
	"gowave/internal/wavelet"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	MethodChiSquared = "chi-squared"
	MethodCrossPower = "cross-power"
	MethodMonteCarlo = "monte-carlo"
)

// Power tests wavelet power against the red noise background rn. Cell (j,n)
// is significant when its power exceeds σ²·P_j·χ²_ν(p)/ν.
//
// Raw power uses the basis degrees of freedom. With opts.Smoothed the tested
// quantity is smoothed power and ν grows with the smoothing windows.
func Power(w *spectral.Transform, basis *wavelet.Basis, rn RedNoise, opts Options) (*spectral.SignificanceMask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	grid := w.Grid
	background := rn.Spectra(grid.Periods, w.DT)

	power := w.Power()
	dof := make([]float64, grid.Len())
	for j := range dof {
		dof[j] = basis.DOF()
	}
	if opts.Smoothed {
		sm := opts.Smoothing.Resolve(basis)
		smoothed, err := wavelet.SmoothedPower(w, basis, sm)
		if err != nil {
			return nil, err
		}
		power = smoothed
		for j, s := range grid.Scales {
			dof[j] = SmoothedDOF(basis, sm, s, grid.DT, grid.DJ)
		}
	}

	levels := make([]float64, grid.Len())
	for j := range levels {
		chi := distuv.ChiSquared{K: dof[j]}.Quantile(opts.Confidence)
		levels[j] = rn.Variance * background[j] * chi / dof[j]
	}
	return threshold(grid, power, levels, opts.Confidence, MethodChiSquared, dof[0], w.N), nil
}

// SmoothedDOF is ν0·√(1+(na·dt/(γ·s))²)·√(1+((ns−1)·dj/δj0)²) for time window
// na samples and scale window ns scales.
func SmoothedDOF(basis *wavelet.Basis, sm wavelet.Smoothing, s, dt, dj float64) float64 {
	na := float64(sm.TimeWindow(s, dt))
	ns := float64(sm.ScaleWindow(dj))
	t := na * dt / (basis.DecorrelationTime() * s)
	k := (ns - 1) * dj / basis.DecorrelationScale()
	return basis.DOF() * math.Sqrt(1+t*t) * math.Sqrt(1+k*k)
}

// CrossPower tests |Wab| against the product of two red noise backgrounds:
// σaσb·Z_ν(p)/ν·√(Pa·Pb).
func CrossPower(c *spectral.CrossTransform, basis *wavelet.Basis, ra, rb RedNoise, opts Options) (*spectral.SignificanceMask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	grid := c.Grid
	nu := basis.DOF()
	z := CrossQuantile(nu, opts.Confidence)
	sigma := math.Sqrt(ra.Variance * rb.Variance)

	levels := make([]float64, grid.Len())
	for j, p := range grid.Periods {
		levels[j] = sigma * z / nu * math.Sqrt(ra.Spectrum(p, c.DT)*rb.Spectrum(p, c.DT))
	}
	power := make([][]float64, len(c.Coeffs))
	for j, row := range c.Coeffs {
		power[j] = make([]float64, len(row))
		for n, v := range row {
			power[j][n] = cmplx.Abs(v)
		}
	}
	return threshold(grid, power, levels, opts.Confidence, MethodCrossPower, nu, c.N), nil
}

func threshold(grid *spectral.ScaleGrid, field [][]float64, levels []float64, confidence float64, method string, dof float64, n int) *spectral.SignificanceMask {
	mask := make([][]bool, len(field))
	for j, row := range field {
		mask[j] = make([]bool, len(row))
		for t, v := range row {
			mask[j][t] = v > levels[j]
		}
	}
	return &spectral.SignificanceMask{
		Grid:       grid,
		Mask:       mask,
		Levels:     levels,
		Confidence: confidence,
		Method:     method,
		DOF:        dof,
		N:          n,
	}
}

func checkLength(name string, got, want int) error {
	if got != want {
		return core.NewShapeMismatchError("%s has %d points, transform has %d", name, got, want)
	}
	return nil
}
