package spectral

import (
	"math"
	"math/cmplx"
)

// ScaleGrid is the geometric sequence of analysis scales s_j = s0·2^(j·dj).
type ScaleGrid struct {
	Scales  []float64 `json:"scales"`
	Periods []float64 `json:"periods"` // equivalent Fourier periods, same units as DT
	DJ      float64   `json:"dj"`
	S0      float64   `json:"s0"`
	DT      float64   `json:"dt"`
}

// Len is the number of scales, J+1.
func (g *ScaleGrid) Len() int { return len(g.Scales) }

// J is the index of the largest scale.
func (g *ScaleGrid) J() int { return len(g.Scales) - 1 }

// NearestPeriod returns the scale index whose period is closest to p in log space.
func (g *ScaleGrid) NearestPeriod(p float64) int {
	best, bestDist := 0, math.Inf(1)
	for j, per := range g.Periods {
		if d := math.Abs(math.Log(per / p)); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// Transform is the continuous wavelet transform of one series, indexed [scale][time].
type Transform struct {
	Grid   *ScaleGrid     `json:"grid"`
	Coeffs [][]complex128 `json:"-"`
	N      int            `json:"n"`
	DT     float64        `json:"dt"`
	Series string         `json:"series"`
	Basis  string         `json:"basis"`
	Mean   float64        `json:"mean"` // removed before transforming
}

// Shape returns (scales, time points).
func (w *Transform) Shape() (int, int) { return len(w.Coeffs), w.N }

// Power returns |W|².
func (w *Transform) Power() [][]float64 {
	return mapComplex(w.Coeffs, func(z complex128) float64 {
		a := cmplx.Abs(z)
		return a * a
	})
}

// GlobalSpectrum averages power over time for each scale. When keep is non-nil
// only cells with keep(j, n) true contribute; scales with no such cell report NaN.
func (w *Transform) GlobalSpectrum(keep func(j, n int) bool) []float64 {
	out := make([]float64, len(w.Coeffs))
	for j, row := range w.Coeffs {
		sum, count := 0.0, 0
		for n, z := range row {
			if keep != nil && !keep(j, n) {
				continue
			}
			a := cmplx.Abs(z)
			sum += a * a
			count++
		}
		if count == 0 {
			out[j] = math.NaN()
			continue
		}
		out[j] = sum / float64(count)
	}
	return out
}

// CrossTransform is Wa·conj(Wb) for two transforms on the same grid.
type CrossTransform struct {
	Grid   *ScaleGrid     `json:"grid"`
	Coeffs [][]complex128 `json:"-"`
	N      int            `json:"n"`
	DT     float64        `json:"dt"`
	A      string         `json:"a"`
	B      string         `json:"b"`
}

// Shape returns (scales, time points).
func (c *CrossTransform) Shape() (int, int) { return len(c.Coeffs), c.N }

// Power returns the cross-wavelet power |Wa·conj(Wb)|.
func (c *CrossTransform) Power() [][]float64 {
	return mapComplex(c.Coeffs, cmplx.Abs)
}

// Phase returns the phase difference of a relative to b, in (−π, π].
func (c *CrossTransform) Phase() [][]float64 {
	return mapComplex(c.Coeffs, Angle)
}

// Coherence is smoothed wavelet coherence in [0,1] with its phase difference.
type Coherence struct {
	Grid   *ScaleGrid  `json:"grid"`
	Values [][]float64 `json:"values"`
	Phase  [][]float64 `json:"phase"`
	N      int         `json:"n"`
	DT     float64     `json:"dt"`
	A      string      `json:"a"`
	B      string      `json:"b"`
}

// Shape returns (scales, time points).
func (c *Coherence) Shape() (int, int) { return len(c.Values), c.N }

// SignificanceMask marks cells exceeding the null-model threshold.
type SignificanceMask struct {
	Grid       *ScaleGrid `json:"grid"`
	Mask       [][]bool   `json:"mask"`
	Levels     []float64  `json:"levels"` // threshold per scale, in the units of the tested quantity
	Confidence float64    `json:"confidence"`
	Method     string     `json:"method"`
	DOF        float64    `json:"dof,omitempty"`
	N          int        `json:"n"`
}

// Fraction is the share of cells flagged significant. keep filters cells as in GlobalSpectrum.
func (m *SignificanceMask) Fraction(keep func(j, n int) bool) float64 {
	hits, total := 0, 0
	for j, row := range m.Mask {
		for n, sig := range row {
			if keep != nil && !keep(j, n) {
				continue
			}
			total++
			if sig {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// ConeOfInfluence holds, per scale, the e-folding time and the valid time window.
// A time t (= n·dt) is inside the cone at scale j when t < Left[j] or t > Right[j].
type ConeOfInfluence struct {
	Grid     *ScaleGrid `json:"grid"`
	EFolding []float64  `json:"e_folding"`
	Left     []float64  `json:"left"`
	Right    []float64  `json:"right"`
	N        int        `json:"n"`
	DT       float64    `json:"dt"`
}

// Inside reports whether cell (j, n) is affected by edge effects.
func (c *ConeOfInfluence) Inside(j, n int) bool {
	t := float64(n) * c.DT
	return t < c.Left[j] || t > c.Right[j]
}

// Outside is the complement of Inside, shaped for GlobalSpectrum and Fraction filters.
func (c *ConeOfInfluence) Outside(j, n int) bool {
	return !c.Inside(j, n)
}

// ValidRange returns the first and last time index outside the cone at scale j.
// ok is false when every index is inside.
func (c *ConeOfInfluence) ValidRange(j int) (first, last int, ok bool) {
	first, last = -1, -1
	for n := 0; n < c.N; n++ {
		if c.Inside(j, n) {
			continue
		}
		if first < 0 {
			first = n
		}
		last = n
	}
	return first, last, first >= 0
}

// PeriodCurve gives, for every time index, the largest grid period outside the cone
// (0 when even the smallest scale is affected).
func (c *ConeOfInfluence) PeriodCurve() []float64 {
	out := make([]float64, c.N)
	for n := range out {
		for j := range c.EFolding {
			if !c.Inside(j, n) {
				out[n] = c.Grid.Periods[j]
			}
		}
	}
	return out
}

// Angle returns arg(z) normalised to (−π, π].
func Angle(z complex128) float64 {
	a := math.Atan2(imag(z), real(z))
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func mapComplex(in [][]complex128, f func(complex128) float64) [][]float64 {
	out := make([][]float64, len(in))
	for j, row := range in {
		out[j] = make([]float64, len(row))
		for n, z := range row {
			out[j][n] = f(z)
		}
	}
	return out
}
