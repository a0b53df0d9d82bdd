package wavelet

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/domain/spectral"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinusoid(name string, n int, period float64) *series.TimeSeries {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.Sin(2 * math.Pi * float64(i) / period)
	}
	return series.MustNew(name, vals, 1)
}

func noise(name string, n int, seed uint64) *series.TimeSeries {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = r.NormFloat64()
	}
	return series.MustNew(name, vals, 1)
}

func transform(t *testing.T, ts *series.TimeSeries, cfg Config) (*spectral.Transform, *Basis) {
	t.Helper()
	b, err := cfg.Basis()
	require.NoError(t, err)
	grid, err := GridFor(ts, cfg, b)
	require.NoError(t, err)
	w, err := Transform(context.Background(), ts, b, grid)
	require.NoError(t, err)
	return w, b
}

func TestNewGrid(t *testing.T) {
	b, err := NewMorlet(6)
	require.NoError(t, err)

	g, err := NewGrid(200, 1, 0.25, 2, b)
	require.NoError(t, err)
	// log2(200/2)/0.25 = 26.58
	assert.Equal(t, 26, g.J())
	assert.InDelta(t, 2.0, g.Scales[0], 1e-12)
	assert.InDelta(t, 2*math.Pow(2, 6.5), g.Scales[26], 1e-9)
	assert.InDelta(t, b.FourierPeriod(g.Scales[10]), g.Periods[10], 1e-12)

	g, err = NewGrid(64, 1, 0.5, 2, b)
	require.NoError(t, err)
	assert.Equal(t, 10, g.J(), "exact octave counts are kept")

	_, err = NewGrid(5, 1, 0.25, 2, b)
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = NewGrid(16, 1, 0.25, 32, b)
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = NewGrid(16, 1, 0, 2, b)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestTransform_PeakAtSignalPeriod(t *testing.T) {
	ts := sinusoid("sin12", 200, 12)
	w, b := transform(t, ts, DefaultConfig())

	rows, cols := w.Shape()
	assert.Equal(t, w.Grid.Len(), rows)
	assert.Equal(t, 200, cols)

	coi := ConeOfInfluence(w.Grid, w.N, b)
	global := w.GlobalSpectrum(coi.Outside)
	peak := 0
	for j, p := range global {
		if !math.IsNaN(p) && p > global[peak] {
			peak = j
		}
	}
	assert.GreaterOrEqual(t, w.Grid.Periods[peak], 11.0)
	assert.LessOrEqual(t, w.Grid.Periods[peak], 13.0)
}

func TestTransform_WhiteNoisePowerIsFlat(t *testing.T) {
	ts := noise("white", 1024, 7)
	w, _ := transform(t, ts, DefaultConfig())
	_, variance := ts.MeanVariance()

	global := w.GlobalSpectrum(nil)
	// Normalised power of white noise is σ² once the kernel clears Nyquist.
	mean := 0.0
	for j := 2; j <= 6; j++ {
		mean += global[j] / 5
	}
	assert.InDelta(t, variance, mean, 0.2*variance)
}

func TestTransform_Errors(t *testing.T) {
	ts := sinusoid("short", 16, 4)
	b, err := NewMorlet(6)
	require.NoError(t, err)

	grid, err := NewGrid(16, 1, 0.25, 10, b)
	require.NoError(t, err)
	_, err = Transform(context.Background(), ts, b, grid)
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	other, err := NewGrid(16, 0.5, 0.25, 1, b)
	require.NoError(t, err)
	_, err = Transform(context.Background(), ts, b, other)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := NewGrid(16, 1, 0.25, 2, b)
	require.NoError(t, err)
	_, err = Transform(ctx, ts, b, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConeOfInfluence(t *testing.T) {
	ts := sinusoid("sin12", 200, 12)
	w, b := transform(t, ts, DefaultConfig())
	coi := ConeOfInfluence(w.Grid, w.N, b)

	// s_10 = 2·2^2.5, e-folding √2·s = 16.
	assert.InDelta(t, 16.0, coi.EFolding[10], 1e-9)
	assert.True(t, coi.Inside(10, 15))
	assert.False(t, coi.Inside(10, 18))
	assert.False(t, coi.Inside(10, 182))
	assert.True(t, coi.Inside(10, 185))

	// The scale whose period is nearest 12 is s_10 (period ≈ 11.7).
	j := w.Grid.NearestPeriod(12)
	assert.Equal(t, 10, j)
	assert.InDelta(t, 16.0, coi.Left[j], 1e-9)
	assert.InDelta(t, 184.0, coi.Right[j], 1e-9)
	for n := 0; n < 16; n++ {
		assert.True(t, coi.Inside(j, n), "t=%d", n)
	}
	for n := 185; n < 200; n++ {
		assert.True(t, coi.Inside(j, n), "t=%d", n)
	}
	for n := 17; n < 184; n++ {
		assert.False(t, coi.Inside(j, n), "t=%d", n)
	}

	// The largest scale spans the whole record.
	_, _, ok := coi.ValidRange(w.Grid.J())
	assert.False(t, ok)
}

func TestCross_Symmetry(t *testing.T) {
	cfg := DefaultConfig()
	wa, _ := transform(t, noise("a", 128, 1), cfg)
	wb, _ := transform(t, noise("b", 128, 2), cfg)

	ab, err := Cross(wa, wb)
	require.NoError(t, err)
	ba, err := Cross(wb, wa)
	require.NoError(t, err)

	pab, pba := ab.Power(), ba.Power()
	phab, phba := ab.Phase(), ba.Phase()
	for j := range pab {
		for n := range pab[j] {
			assert.InDelta(t, pab[j][n], pba[j][n], 1e-9)
			d := math.Mod(phab[j][n]+phba[j][n]+4*math.Pi, 2*math.Pi)
			assert.True(t, d < 1e-9 || 2*math.Pi-d < 1e-9, "phase (%d,%d)", j, n)
		}
	}
}

func TestCross_ShapeMismatch(t *testing.T) {
	cfg := DefaultConfig()
	wa, _ := transform(t, noise("a", 128, 1), cfg)
	wb, _ := transform(t, noise("b", 100, 2), cfg)
	_, err := Cross(wa, wb)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestCoherence_SelfIsOne(t *testing.T) {
	w, b := transform(t, noise("a", 128, 3), DefaultConfig())
	coh, err := Coherence(w, w, b, Smoothing{})
	require.NoError(t, err)
	for j := range coh.Values {
		for n := range coh.Values[j] {
			assert.InDelta(t, 1.0, coh.Values[j][n], 1e-9)
			assert.InDelta(t, 0.0, coh.Phase[j][n], 1e-9)
		}
	}
}

func TestCoherence_BoundsAndShift(t *testing.T) {
	cfg := DefaultConfig()
	wa, b := transform(t, noise("a", 256, 4), cfg)
	wb, _ := transform(t, noise("b", 256, 5), cfg)
	coh, err := Coherence(wa, wb, b, Smoothing{})
	require.NoError(t, err)
	for j := range coh.Values {
		for _, v := range coh.Values[j] {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	// A quarter-period lag shows up as a phase near π/2 at the signal period.
	vals := make([]float64, 256)
	for i := range vals {
		vals[i] = math.Cos(2 * math.Pi * float64(i) / 16)
	}
	lead := series.MustNew("cos", vals, 1)
	wl, _ := transform(t, lead, cfg)
	ws, _ := transform(t, sinusoid("sin", 256, 16), cfg)
	coh, err = Coherence(wl, ws, b, Smoothing{})
	require.NoError(t, err)
	j := coh.Grid.NearestPeriod(16)
	assert.InDelta(t, 1.0, coh.Values[j][128], 1e-3)
	assert.InDelta(t, math.Pi/2, coh.Phase[j][128], 0.05)
}

func TestCoherence_DegenerateSmoothing(t *testing.T) {
	w, b := transform(t, noise("a", 64, 6), DefaultConfig())
	_, err := Coherence(w, w, b, Smoothing{TimeWidth: 0.001, ScaleWidth: 0.001})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	// Large scales still get a wide time window here; only the small-scale
	// rows would collapse to a single cell.
	wa, _ := transform(t, noise("a", 256, 1), DefaultConfig())
	wb, _ := transform(t, noise("b", 256, 2), DefaultConfig())
	narrow := Smoothing{TimeWidth: 0.1, ScaleWidth: 0.01}
	require.Equal(t, 1, narrow.ScaleWindow(wa.Grid.DJ))
	require.Equal(t, 1, narrow.TimeWindow(wa.Grid.Scales[0], wa.Grid.DT))
	require.Greater(t, narrow.TimeWindow(wa.Grid.Scales[wa.Grid.J()], wa.Grid.DT), 1)

	_, err = Coherence(wa, wb, b, narrow)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	_, err = SmoothedPower(wa, b, narrow)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	// A time window of three cells at the smallest scale is enough.
	coh, err := Coherence(wa, wb, b, Smoothing{TimeWidth: 1, ScaleWidth: 0.01})
	require.NoError(t, err)
	below := 0
	for _, v := range coh.Values[0] {
		if v < 0.999 {
			below++
		}
	}
	assert.Positive(t, below, "smallest scale coherence must not be identically one")
}

func TestSmoothing_Windows(t *testing.T) {
	b, err := NewMorlet(6)
	require.NoError(t, err)
	sm := Smoothing{}.Resolve(b)
	assert.Equal(t, 1.0, sm.TimeWidth)
	assert.Equal(t, 0.6, sm.ScaleWidth)
	assert.Equal(t, 3, sm.ScaleWindow(0.25))
	assert.Equal(t, 5, sm.TimeWindow(4.6, 1))
	assert.Equal(t, 1, sm.TimeWindow(0.2, 1))

	out := boxcar([]complex128{1, 2, 3, 4}, 1)
	assert.Equal(t, []complex128{1.5, 2, 3, 3.5}, out)
}

func TestReconstruct_RoundTrip(t *testing.T) {
	ts := sinusoid("sin16", 256, 16)
	cfg := DefaultConfig()
	cfg.DJ = 0.125
	w, b := transform(t, ts, cfg)

	rec, err := ReconstructAll(w, b)
	require.NoError(t, err)
	require.Len(t, rec, 256)
	for n := 32; n < 224; n++ {
		assert.InDelta(t, ts.At(n), rec[n], 0.1, "n=%d", n)
	}

	_, err = Reconstruct(w, b, 5, 2)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	band, err := ReconstructPeriods(w, b, 8, 32)
	require.NoError(t, err)
	assert.InDelta(t, ts.At(100), band[100], 0.15)
}

func TestReconstruct_BroadbandDefaults(t *testing.T) {
	ts := noise("white", 256, 11)
	w, b := transform(t, ts, DefaultConfig())
	require.Equal(t, 0.25, w.Grid.DJ)

	all, err := ReconstructAll(w, b)
	require.NoError(t, err)

	// Bands that partition the grid sum to the full inverse.
	J := w.Grid.J()
	cuts := [][2]int{{0, 7}, {8, 15}, {16, J}}
	sum := make([]float64, w.N)
	for _, c := range cuts {
		part, err := Reconstruct(w, b, c[0], c[1])
		require.NoError(t, err)
		for n, v := range part {
			sum[n] += v
		}
	}
	for n := range all {
		assert.InDelta(t, all[n], sum[n], 1e-9, "n=%d", n)
	}

	// Away from the edges the inverse recovers the demeaned series to
	// within 25% relative RMS error.
	var num, den float64
	for n := 32; n < 224; n++ {
		x := ts.At(n) - w.Mean
		d := x - all[n]
		num += d * d
		den += x * x
	}
	assert.Less(t, math.Sqrt(num/den), 0.25)
}
