package wavelet

import (
	"math"

	"gowave/domain/core"
	"gowave/domain/spectral"
)

// Smoothing controls the boxcar windows used for coherence.
// TimeWidth is in units of the local scale, ScaleWidth in octaves.
type Smoothing struct {
	TimeWidth  float64 `yaml:"time_width" json:"time_width"`
	ScaleWidth float64 `yaml:"scale_width" json:"scale_width"`
}

// DefaultTimeWidth is the time window as a multiple of the scale.
const DefaultTimeWidth = 1.0

// Resolve fills zero fields: TimeWidth from DefaultTimeWidth, ScaleWidth from
// the basis decorrelation length.
func (sm Smoothing) Resolve(basis *Basis) Smoothing {
	if sm.TimeWidth <= 0 {
		sm.TimeWidth = DefaultTimeWidth
	}
	if sm.ScaleWidth <= 0 {
		sm.ScaleWidth = basis.DecorrelationScale()
	}
	return sm
}

// TimeWindow is the odd number of samples averaged at scale s.
func (sm Smoothing) TimeWindow(s, dt float64) int {
	return oddAtLeastOne(sm.TimeWidth * s / dt)
}

// ScaleWindow is the odd number of adjacent scales averaged.
func (sm Smoothing) ScaleWindow(dj float64) int {
	return oddAtLeastOne(sm.ScaleWidth / dj)
}

func oddAtLeastOne(x float64) int {
	w := int(math.Round(x))
	if w < 1 {
		return 1
	}
	if w%2 == 0 {
		w++
	}
	return w
}

// check rejects windows that leave any row averaging a single cell, which
// would make coherence identically one there. The time window grows with
// scale, so the smallest scale decides.
func (sm Smoothing) check(grid *spectral.ScaleGrid) error {
	if sm.ScaleWindow(grid.DJ) == 1 && sm.TimeWindow(grid.Scales[0], grid.DT) == 1 {
		return core.NewInvalidInputError("smoothing windows are degenerate: time width %v, scale width %v", sm.TimeWidth, sm.ScaleWidth)
	}
	return nil
}

// smooth applies the time boxcar per scale, then the scale boxcar per time.
// Windows are truncated at the edges and renormalised by the number of
// cells actually averaged.
func (sm Smoothing) smooth(field [][]complex128, grid *spectral.ScaleGrid) [][]complex128 {
	rows := len(field)
	timed := make([][]complex128, rows)
	for j, row := range field {
		timed[j] = boxcar(row, sm.TimeWindow(grid.Scales[j], grid.DT)/2)
	}

	half := sm.ScaleWindow(grid.DJ) / 2
	if half == 0 || rows == 0 {
		return timed
	}
	n := len(timed[0])
	out := make([][]complex128, rows)
	for j := range out {
		out[j] = make([]complex128, n)
	}
	column := make([]complex128, rows)
	for t := 0; t < n; t++ {
		for j := range column {
			column[j] = timed[j][t]
		}
		for j, v := range boxcar(column, half) {
			out[j][t] = v
		}
	}
	return out
}

// boxcar returns the centred moving mean with half-width h using prefix sums.
func boxcar(in []complex128, h int) []complex128 {
	out := make([]complex128, len(in))
	if h <= 0 {
		copy(out, in)
		return out
	}
	prefix := make([]complex128, len(in)+1)
	for i, v := range in {
		prefix[i+1] = prefix[i] + v
	}
	for i := range in {
		lo := max(0, i-h)
		hi := min(len(in)-1, i+h)
		out[i] = (prefix[hi+1] - prefix[lo]) / complex(float64(hi-lo+1), 0)
	}
	return out
}

// SmoothedPower returns s·S(s⁻¹|W|²), smoothed power in the units of |W|².
func SmoothedPower(w *spectral.Transform, basis *Basis, sm Smoothing) ([][]float64, error) {
	sm = sm.Resolve(basis)
	if err := sm.check(w.Grid); err != nil {
		return nil, err
	}
	field := make([][]complex128, len(w.Coeffs))
	for j, row := range w.Coeffs {
		inv := 1 / w.Grid.Scales[j]
		field[j] = make([]complex128, len(row))
		for n, z := range row {
			field[j][n] = complex(inv*sqAbs(z), 0)
		}
	}
	smoothed := sm.smooth(field, w.Grid)
	out := make([][]float64, len(smoothed))
	for j, row := range smoothed {
		out[j] = make([]float64, len(row))
		for n, z := range row {
			out[j][n] = w.Grid.Scales[j] * real(z)
		}
	}
	return out, nil
}
