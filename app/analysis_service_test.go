package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"gowave/adapters/rng"
	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/internal"
	"gowave/internal/descriptive"
	apperrors "gowave/internal/errors"
	"gowave/internal/regression"
	"gowave/internal/significance"
	"gowave/internal/testkit"
	"gowave/internal/wavelet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*AnalysisService, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := internal.NewLoggerTo(&buf, internal.LogLevelDebug, true)
	return NewAnalysisService(rng.NewSeededAdapter(), logger), &buf
}

func TestComputeCWT_FindsCycle(t *testing.T) {
	svc, logs := newService(t)
	ts := testkit.Sinusoid("x", 256, 1, 16, 1)

	res, err := svc.ComputeCWT(context.Background(), ts, wavelet.DefaultConfig())
	require.NoError(t, err)

	peak := 0
	for j, p := range res.Global {
		if p > res.Global[peak] {
			peak = j
		}
	}
	assert.InDelta(t, 16, res.Transform.Grid.Periods[peak], 16*0.1)
	require.NotNil(t, res.Manifest)
	assert.NoError(t, res.Manifest.Validate())
	assert.Equal(t, "cwt", res.Manifest.Operation)
	assert.Contains(t, logs.String(), res.Manifest.RunID.String())
	assert.Contains(t, logs.String(), `"op":"cwt"`)
}

func TestComputeCWT_MapsDomainErrors(t *testing.T) {
	svc, _ := newService(t)
	cfg := wavelet.DefaultConfig()
	cfg.S0 = 100

	_, err := svc.ComputeCWT(context.Background(), testkit.WhiteNoise("w", 64, 1, 1), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
	assert.Equal(t, apperrors.CodeInsufficientData, apperrors.GetCode(err))
	assert.Equal(t, 2, apperrors.ExitCode(err))

	cfg = wavelet.DefaultConfig()
	cfg.W0 = 2
	_, err = svc.ComputeCWT(context.Background(), testkit.WhiteNoise("w", 64, 1, 1), cfg)
	assert.Equal(t, apperrors.CodeInvalidWaveletParameter, apperrors.GetCode(err))
}

func TestComputeSignificance_CycleAboveRedNoise(t *testing.T) {
	svc, _ := newService(t)
	ts, err := testkit.Combine("x",
		testkit.WhiteNoise("noise", 512, 1, 22),
		testkit.Sinusoid("cycle", 512, 1, 16, 2),
	)
	require.NoError(t, err)

	cfg := wavelet.DefaultConfig()
	cfg.Standardize = true
	res, err := svc.ComputeCWT(context.Background(), ts, cfg)
	require.NoError(t, err)

	mask, err := svc.ComputeSignificance(context.Background(), res, significance.DefaultOptions())
	require.NoError(t, err)

	j := res.Transform.Grid.NearestPeriod(16)
	hits := 0
	for n := 64; n < 448; n++ {
		if mask.Mask[j][n] {
			hits++
		}
	}
	assert.Greater(t, hits, 300)
}

func TestComputeCross_ShapesAndCoherence(t *testing.T) {
	svc, _ := newService(t)
	a := testkit.Sinusoid("a", 128, 1, 16, 1)
	b := testkit.Sinusoid("b", 128, 1, 16, 2)

	res, err := svc.ComputeCross(context.Background(), a, b, wavelet.DefaultConfig())
	require.NoError(t, err)

	scales, n := res.Coherence.Shape()
	assert.Equal(t, res.Cross.Grid.Len(), scales)
	assert.Equal(t, 128, n)
	j := res.Cross.Grid.NearestPeriod(16)
	assert.InDelta(t, 1, res.Coherence.Values[j][64], 1e-6)
}

func TestComputeCross_ReplayedRunSharesFingerprint(t *testing.T) {
	svc, _ := newService(t)
	a := testkit.RedNoise("a", 64, 1, 0.4, 1)
	b := testkit.RedNoise("b", 64, 1, 0.4, 2)

	first, err := svc.ComputeCross(context.Background(), a, b, wavelet.DefaultConfig())
	require.NoError(t, err)
	second, err := svc.ComputeCross(context.Background(), a, b, wavelet.DefaultConfig())
	require.NoError(t, err)

	assert.NotEqual(t, first.Manifest.RunID, second.Manifest.RunID)
	assert.True(t, first.Manifest.SameRun(second.Manifest))
	assert.Equal(t, first.Coherence.Values, second.Coherence.Values)
}

func TestComputeCross_RejectsMismatchedSampling(t *testing.T) {
	svc, _ := newService(t)
	a := testkit.WhiteNoise("a", 64, 1, 1)
	b := testkit.WhiteNoise("b", 64, 0.5, 2)

	_, err := svc.ComputeCross(context.Background(), a, b, wavelet.DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))
}

func TestComputeCoherenceSignificance_UsesPort(t *testing.T) {
	svc, _ := newService(t)
	a := testkit.RedNoise("a", 64, 1, 0.4, 1)
	b := testkit.RedNoise("b", 64, 1, 0.4, 2)

	res, err := svc.ComputeCross(context.Background(), a, b, wavelet.DefaultConfig())
	require.NoError(t, err)

	opts := significance.DefaultOptions()
	opts.Draws = 20
	first, err := svc.ComputeCoherenceSignificance(context.Background(), res, wavelet.Smoothing{}, opts)
	require.NoError(t, err)
	second, err := svc.ComputeCoherenceSignificance(context.Background(), res, wavelet.Smoothing{}, opts)
	require.NoError(t, err)

	// Streams are keyed by run id, so two runs draw different surrogates but the
	// thresholds stay in the unit interval.
	for _, m := range [][]float64{first.Levels, second.Levels} {
		for _, l := range m {
			assert.True(t, l >= 0 && l <= 1, "level %v", l)
		}
	}
	assert.Equal(t, significance.MethodMonteCarlo, first.Method)
}

func TestComputeCOI(t *testing.T) {
	svc, _ := newService(t)
	cfg := wavelet.DefaultConfig()
	basis, err := cfg.Basis()
	require.NoError(t, err)
	grid, err := wavelet.NewGrid(100, 1, cfg.DJ, 2, basis)
	require.NoError(t, err)

	coi, err := svc.ComputeCOI(100, 1, grid, cfg)
	require.NoError(t, err)
	assert.Len(t, coi.EFolding, grid.Len())

	_, err = svc.ComputeCOI(100, 0.5, grid, cfg)
	assert.True(t, errors.Is(err, core.ErrShapeMismatch))

	_, err = svc.ComputeCOI(3, 1, grid, cfg)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestRunScaleRegression_OLS(t *testing.T) {
	svc, logs := newService(t)
	x := testkit.WhiteNoise("x", 256, 1, 3)
	e := testkit.WhiteNoise("e", 256, 1, 4)
	y := make([]float64, x.Len())
	for i := range y {
		y[i] = 1.5*x.At(i) + 0.1*e.At(i)
	}

	opts := regression.DefaultOptions()
	opts.IV = false
	bands := []regression.ScaleBand{{Label: "fast", MinPeriod: 2, MaxPeriod: 8}}
	results, err := svc.RunScaleRegression(context.Background(), regression.Input{
		Outcome:    series.MustNew("y", y, 1),
		Regressors: []*series.TimeSeries{x},
	}, bands, opts)
	require.NoError(t, err)
	require.Contains(t, results, core.BandLabel("fast"))

	coef, _, ok := results["fast"].Coefficient("x")
	require.True(t, ok)
	assert.InDelta(t, 1.5, coef, 0.1)
	assert.Contains(t, logs.String(), `"band":"fast"`)
}

func TestRunScaleRegression_WeakInstrumentExitCode(t *testing.T) {
	svc, _ := newService(t)
	x := testkit.WhiteNoise("x", 256, 1, 5)
	z := testkit.WhiteNoise("z", 256, 1, 6)
	y := testkit.WhiteNoise("y", 256, 1, 7)

	bands := []regression.ScaleBand{{Label: "fast", MinPeriod: 2, MaxPeriod: 8}}
	results, err := svc.RunScaleRegression(context.Background(), regression.Input{
		Outcome:     y,
		Regressors:  []*series.TimeSeries{x},
		Instruments: []*series.TimeSeries{z},
	}, bands, regression.DefaultOptions())
	require.Error(t, err)
	assert.Empty(t, results)
	assert.True(t, errors.Is(err, core.ErrWeakInstrument))
	assert.Equal(t, 3, apperrors.ExitCode(err))
}

func TestDescribe(t *testing.T) {
	svc, _ := newService(t)
	out, err := svc.Describe(descriptive.DefaultOptions(), testkit.WhiteNoise("w", 200, 1, 9))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "w", out[0].Series)
	assert.Equal(t, 200, out[0].Count)
}
