package significance

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"gowave/domain/series"
	"gowave/domain/spectral"
	"gowave/internal/wavelet"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

const surrogateStage = "coherence-surrogates"

// Coherence derives a Monte Carlo threshold for coh. Draws surrogate pairs of
// AR(1) series with the persistence of a and b are transformed and smoothed
// exactly like the observed pair; the threshold at scale j is the confidence
// quantile of surrogate coherence pooled over time outside the cone.
func Coherence(ctx context.Context, a, b *series.TimeSeries, coh *spectral.Coherence, basis *wavelet.Basis, sm wavelet.Smoothing, opts Options) (*spectral.SignificanceMask, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkLength(a.Name(), a.Len(), coh.N); err != nil {
		return nil, err
	}
	if err := checkLength(b.Name(), b.Len(), coh.N); err != nil {
		return nil, err
	}
	ra, err := FitRedNoise(a, opts.RedNoise)
	if err != nil {
		return nil, err
	}
	rb, err := FitRedNoise(b, opts.RedNoise)
	if err != nil {
		return nil, err
	}

	grid := coh.Grid
	coi := wavelet.ConeOfInfluence(grid, coh.N, basis)
	samples := make([][][]float64, opts.Draws) // [draw][scale][]values

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := 0; k < opts.Draws; k++ {
		g.Go(func() error {
			r, err := opts.stream(gctx, k)
			if err != nil {
				return err
			}
			sa, err := series.New("surrogate-a", AR1(r, coh.N, ra.Alpha), coh.DT)
			if err != nil {
				return err
			}
			sb, err := series.New("surrogate-b", AR1(r, coh.N, rb.Alpha), coh.DT)
			if err != nil {
				return err
			}
			wa, err := wavelet.Transform(gctx, sa, basis, grid)
			if err != nil {
				return err
			}
			wb, err := wavelet.Transform(gctx, sb, basis, grid)
			if err != nil {
				return err
			}
			sc, err := wavelet.Coherence(wa, wb, basis, sm)
			if err != nil {
				return err
			}
			samples[k] = pool(sc.Values, coi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	levels := make([]float64, grid.Len())
	for j := range levels {
		var all []float64
		for _, draw := range samples {
			all = append(all, draw[j]...)
		}
		q, err := stats.Percentile(all, 100*opts.Confidence)
		if err != nil {
			return nil, fmt.Errorf("coherence quantile at scale %d: %w", j, err)
		}
		levels[j] = q
	}

	return threshold(grid, coh.Values, levels, opts.Confidence, MethodMonteCarlo, 0, coh.N), nil
}

// pool collects, per scale, the values outside the cone; scales with no such
// cell contribute every value.
func pool(values [][]float64, coi *spectral.ConeOfInfluence) [][]float64 {
	out := make([][]float64, len(values))
	for j, row := range values {
		kept := make([]float64, 0, len(row))
		for n, v := range row {
			if coi.Outside(j, n) {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			kept = append(kept, row...)
		}
		out[j] = kept
	}
	return out
}

// AR1 draws a stationary unit-innovation AR(1) path of length n.
func AR1(r *rand.Rand, n int, alpha float64) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = r.NormFloat64() / math.Sqrt(1-alpha*alpha)
	for t := 1; t < n; t++ {
		out[t] = alpha*out[t-1] + r.NormFloat64()
	}
	return out
}

func (o Options) stream(ctx context.Context, k int) (*rand.Rand, error) {
	if o.RNG != nil {
		return o.RNG.Stream(ctx, o.RunID, surrogateStage, fmt.Sprintf("draw-%d", k), o.Seed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(o.Seed*1_000_003 + int64(k))), nil
}
