package wavelet

import (
	"context"
	"math"
	"math/cmplx"
	"runtime"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/domain/spectral"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform computes the CWT of ts over grid: one forward FFT of the demeaned,
// zero-padded series, then one inverse FFT per scale.
//
// Rows are normalised by √(2π·s/dt) so that white noise of variance σ² has
// expected power σ² at every scale. gonum's inverse transform is unscaled, so
// each row is divided by the padded length explicitly.
func Transform(ctx context.Context, ts *series.TimeSeries, basis *Basis, grid *spectral.ScaleGrid) (*spectral.Transform, error) {
	n := ts.Len()
	dt := ts.DT()
	if math.Abs(grid.DT-dt) > 1e-12*dt {
		return nil, core.NewShapeMismatchError("grid built for dt=%v, series %q has dt=%v", grid.DT, ts.Name(), dt)
	}
	if float64(n) < 2*grid.S0/dt {
		return nil, core.NewInsufficientDataError("series %q: %d points, smallest scale needs %v", ts.Name(), n, 2*grid.S0/dt)
	}

	values := ts.Values()
	mean := 0.0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewInvalidInputError("series %q: non-finite value at index %d", ts.Name(), i)
		}
		mean += v
	}
	mean /= float64(n)

	padded := nextPow2(n)
	seq := make([]complex128, padded)
	for i, v := range values {
		seq[i] = complex(v-mean, 0)
	}
	xhat := fourier.NewCmplxFFT(padded).Coefficients(nil, seq)
	omega := angularFrequencies(padded, dt)

	coeffs := make([][]complex128, grid.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for j, s := range grid.Scales {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			coeffs[j] = scaleRow(xhat, omega, basis, s, dt, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &spectral.Transform{
		Grid:   grid,
		Coeffs: coeffs,
		N:      n,
		DT:     dt,
		Series: ts.Name(),
		Basis:  basis.Name(),
		Mean:   mean,
	}, nil
}

// scaleRow multiplies the spectrum by the daughter kernel at scale s and inverts it.
// Each call owns its FFT work buffers.
func scaleRow(xhat []complex128, omega []float64, basis *Basis, s, dt float64, n int) []complex128 {
	padded := len(xhat)
	norm := math.Sqrt(2 * math.Pi * s / dt)
	prod := make([]complex128, padded)
	for k, w := range omega {
		h := basis.FourierHat(w, s)
		if h == 0 {
			continue
		}
		prod[k] = xhat[k] * complex(norm, 0) * cmplx.Conj(h)
	}
	inv := fourier.NewCmplxFFT(padded).Sequence(nil, prod)
	row := make([]complex128, n)
	scale := complex(1/float64(padded), 0)
	for i := range row {
		row[i] = inv[i] * scale
	}
	return row
}

// angularFrequencies follows the DFT ordering: non-negative frequencies first,
// then negative ones.
func angularFrequencies(n int, dt float64) []float64 {
	omega := make([]float64, n)
	base := 2 * math.Pi / (float64(n) * dt)
	for k := 0; k < n; k++ {
		if k <= n/2 {
			omega[k] = base * float64(k)
		} else {
			omega[k] = -base * float64(n-k)
		}
	}
	return omega
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
