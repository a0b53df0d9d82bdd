package regression

import (
	"context"
	"errors"
	"testing"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/internal/testkit"
	"gowave/internal/wavelet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var fastBand = []ScaleBand{{Label: "fast", MinPeriod: 2, MaxPeriod: 8}}

// endogenous builds y = beta·x + e with x = z + 0.5·v + 0.5·e, so OLS is
// biased and z is a valid instrument.
func endogenous(t *testing.T, n int, beta float64, seed int64) Input {
	t.Helper()
	z := testkit.WhiteNoise("z", n, 1, seed)
	v := testkit.WhiteNoise("v", n, 1, seed+1000)
	e := testkit.WhiteNoise("e", n, 1, seed+2000)
	xv, yv := make([]float64, n), make([]float64, n)
	for i := range xv {
		xv[i] = z.At(i) + 0.5*v.At(i) + 0.5*e.At(i)
		yv[i] = beta*xv[i] + e.At(i)
	}
	return Input{
		Outcome:     series.MustNew("y", yv, 1),
		Regressors:  []*series.TimeSeries{series.MustNew("x", xv, 1)},
		Instruments: []*series.TimeSeries{z},
	}
}

func TestRun_IVRecoversCoefficient(t *testing.T) {
	in := endogenous(t, 512, 2, 1)
	results, err := Run(context.Background(), in, fastBand, DefaultOptions())
	require.NoError(t, err)

	res := results["fast"]
	require.NotNil(t, res)
	assert.Equal(t, Method2SLS, res.Method)
	assert.Equal(t, []string{"const", "x"}, res.Terms)
	coef, se, ok := res.Coefficient("x")
	require.True(t, ok)
	assert.InDelta(t, 2.0, coef, 0.25)
	assert.Greater(t, se, 0.0)
	assert.Less(t, res.PValues[1], 0.01)
	require.Len(t, res.FirstStageF, 1)
	assert.Greater(t, res.FirstStageF[0], DefaultMinFirstStageF)
	assert.Equal(t, 512, res.Observations+res.Dropped)
	assert.Greater(t, res.Dropped, 0)
	assert.GreaterOrEqual(t, res.PeriodLo, 2.0)
	assert.Less(t, res.PeriodHi, 8.0)

	opts := DefaultOptions()
	opts.IV = false
	results, err = Run(context.Background(), in, fastBand, opts)
	require.NoError(t, err)
	ols := results["fast"]
	assert.Equal(t, MethodOLS, ols.Method)
	assert.Nil(t, ols.FirstStageF)
	// x is positively correlated with e, so OLS overshoots.
	assert.Greater(t, ols.Coefficients[1], coef)
}

func TestRun_NullRejectionRate(t *testing.T) {
	const sims = 100
	rejections := 0
	for i := 0; i < sims; i++ {
		seed := int64(100 + 3*i)
		z := testkit.WhiteNoise("z", 512, 1, seed)
		v := testkit.WhiteNoise("v", 512, 1, seed+1)
		x, err := testkit.Combine("x", z, v)
		require.NoError(t, err)
		y := testkit.WhiteNoise("y", 512, 1, seed+2)

		in := Input{Outcome: y, Regressors: []*series.TimeSeries{x}, Instruments: []*series.TimeSeries{z}}
		results, err := Run(context.Background(), in, fastBand, DefaultOptions())
		require.NoError(t, err)
		if results["fast"].PValues[1] < 0.05 {
			rejections++
		}
	}
	assert.Less(t, float64(rejections)/sims, 0.2)
}

func TestRun_WeakInstrument(t *testing.T) {
	in := endogenous(t, 256, 1, 5)
	opts := DefaultOptions()
	opts.MinFirstStageF = 1e12

	results, err := Run(context.Background(), in, fastBand, opts)
	require.Error(t, err)
	assert.Empty(t, results)
	assert.ErrorIs(t, err, core.ErrWeakInstrument)

	var be *BandError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, core.BandLabel("fast"), be.Band)
	assert.Equal(t, core.KindWeakInstrument, core.Kind(err))
}

func TestRun_RankDeficiency(t *testing.T) {
	in := endogenous(t, 256, 1, 6)
	dup := in.Regressors[0].Rename("x2")
	in.Regressors = append(in.Regressors, dup)

	opts := DefaultOptions()
	opts.IV = false
	_, err := Run(context.Background(), in, fastBand, opts)
	assert.ErrorIs(t, err, core.ErrRankDeficiency)

	// Two regressors, one instrument.
	_, err = Run(context.Background(), in, fastBand, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrRankDeficiency)
}

func TestRun_PartialBands(t *testing.T) {
	in := endogenous(t, 256, 1, 7)
	bands := []ScaleBand{
		{Label: "fast", MinPeriod: 2, MaxPeriod: 8},
		{Label: "none", MinPeriod: 5000, MaxPeriod: 6000},
	}
	results, err := Run(context.Background(), in, bands, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Contains(t, results, core.BandLabel("fast"))
	assert.NotContains(t, results, core.BandLabel("none"))
}

func TestRun_Validation(t *testing.T) {
	in := endogenous(t, 128, 1, 8)
	ctx := context.Background()

	_, err := Run(ctx, in, []ScaleBand{{Label: "a", MinPeriod: 2, MaxPeriod: 4}, {Label: "a", MinPeriod: 4, MaxPeriod: 8}}, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Run(ctx, in, []ScaleBand{{Label: "bad", MinPeriod: 8, MaxPeriod: 2}}, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	opts := DefaultOptions()
	opts.SE = "bootstrap"
	_, err = Run(ctx, in, fastBand, opts)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	opts = DefaultOptions()
	opts.ConeScale = "widest"
	_, err = Run(ctx, in, fastBand, opts)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Run(ctx, Input{Regressors: in.Regressors}, fastBand, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	noInst := in
	noInst.Instruments = nil
	_, err = Run(ctx, noInst, fastBand, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	short := in
	short.Instruments = []*series.TimeSeries{testkit.WhiteNoise("z", 64, 1, 9)}
	_, err = Run(ctx, short, fastBand, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	opts = DefaultOptions()
	opts.Wavelet.W0 = 3
	_, err = Run(ctx, in, fastBand, opts)
	assert.ErrorIs(t, err, core.ErrInvalidWaveletParameter)
}

func TestRun_ConeScaleDropsMoreAtLargerScales(t *testing.T) {
	in := endogenous(t, 256, 1, 10)
	dropped := map[ConeScale]int{}
	for _, c := range []ConeScale{ConeSmallest, ConeCentral, ConeLargest} {
		opts := DefaultOptions()
		opts.ConeScale = c
		results, err := Run(context.Background(), in, fastBand, opts)
		require.NoError(t, err)
		dropped[c] = results["fast"].Dropped
	}
	assert.LessOrEqual(t, dropped[ConeSmallest], dropped[ConeCentral])
	assert.Less(t, dropped[ConeCentral], dropped[ConeLargest])
}

func TestScaleBand_Resolve(t *testing.T) {
	b, err := wavelet.NewMorlet(6)
	require.NoError(t, err)
	grid, err := wavelet.NewGrid(240, 1.0/12, 0.25, 2.0/12, b)
	require.NoError(t, err)

	for _, band := range DefaultBands() {
		lo, hi, err := band.Resolve(grid)
		require.NoError(t, err, band.Label)
		for j := lo; j <= hi; j++ {
			assert.True(t, band.Contains(grid.Periods[j]))
		}
	}
	_, _, err = ScaleBand{Label: "x", MinPeriod: 100, MaxPeriod: 200}.Resolve(grid)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAutoLags(t *testing.T) {
	assert.Equal(t, 8, AutoLags(500, 8, 1))
	assert.Equal(t, 5, AutoLags(500, 2, 1))
	assert.Equal(t, 10, AutoLags(30, 100, 1))
	assert.Equal(t, 24, AutoLags(600, 2, 1.0/12))
}

func TestCovariance_ZeroLagNeweyWestIsRobust(t *testing.T) {
	x := mat.NewDense(6, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3, 1, 4, 1, 5})
	u := []float64{0.3, -0.2, 0.5, -0.4, 0.1, -0.3}

	hc1, _, err := covariance(x, u, CovRobust, 0)
	require.NoError(t, err)
	nw, used, err := covariance(x, u, CovNeweyWest, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, used)
	assert.True(t, mat.EqualApprox(hc1, nw, 1e-12))

	nw2, used, err := covariance(x, u, CovNeweyWest, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, used)
	assert.False(t, mat.EqualApprox(hc1, nw2, 1e-12))
}

func TestParsers(t *testing.T) {
	c, err := ParseCovarianceType("HC1")
	require.NoError(t, err)
	assert.Equal(t, CovRobust, c)
	c, err = ParseCovarianceType("newey-west")
	require.NoError(t, err)
	assert.Equal(t, CovNeweyWest, c)
	_, err = ParseCovarianceType("jackknife")
	assert.Error(t, err)

	cs, err := ParseConeScale("")
	require.NoError(t, err)
	assert.Equal(t, ConeCentral, cs)
}
