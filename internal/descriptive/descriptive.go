// Package descriptive summarises input series before wavelet analysis:
// moments, normality and serial correlation.
package descriptive

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gowave/domain/core"
	"gowave/domain/series"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Thresholds are the p-value cut-offs that each earn one star.
var Thresholds = []float64{0.1, 0.05, 0.001}

// Options configures the summary.
type Options struct {
	LjungBoxLags int `yaml:"ljung_box_lags" json:"ljung_box_lags"`
	ACFLags      int `yaml:"acf_lags" json:"acf_lags"`
}

// DefaultOptions tests ten lags and reports twelve autocorrelations.
func DefaultOptions() Options {
	return Options{LjungBoxLags: 10, ACFLags: 12}
}

// Test is a test statistic with its p-value.
type Test struct {
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	DOF       int     `json:"dof"`
}

// Stars returns one "*" per threshold the p-value reaches.
func (t Test) Stars() string {
	var b strings.Builder
	for _, th := range Thresholds {
		if t.PValue <= th {
			b.WriteByte('*')
		}
	}
	return b.String()
}

// String formats the statistic with its stars, e.g. "12.3456**".
func (t Test) String() string {
	return fmt.Sprintf("%.4f%s", t.Statistic, t.Stars())
}

// Summary describes one series.
type Summary struct {
	Series     string    `json:"series"`
	Count      int       `json:"count"`
	Mean       float64   `json:"mean"`
	Std        float64   `json:"std"`
	Skewness   float64   `json:"skewness"`
	Kurtosis   float64   `json:"kurtosis"` // excess
	Median     float64   `json:"median"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	JarqueBera Test      `json:"jarque_bera"`
	LjungBox   Test      `json:"ljung_box"`
	ACF        []float64 `json:"acf"` // lags 1..ACFLags
}

// Computer produces descriptive summaries
type Computer struct {
	opts Options
}

// NewComputer creates a computer; non-positive lags take the defaults.
func NewComputer(opts Options) *Computer {
	def := DefaultOptions()
	if opts.LjungBoxLags <= 0 {
		opts.LjungBoxLags = def.LjungBoxLags
	}
	if opts.ACFLags <= 0 {
		opts.ACFLags = def.ACFLags
	}
	return &Computer{opts: opts}
}

// Describe summarises each series in order.
func (c *Computer) Describe(list ...*series.TimeSeries) ([]Summary, error) {
	out := make([]Summary, 0, len(list))
	for _, ts := range list {
		s, err := c.describe(ts)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", ts.Name(), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Computer) describe(ts *series.TimeSeries) (Summary, error) {
	data := stats.Float64Data(ts.Values())
	n := data.Len()

	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}
	std, err := stats.StandardDeviationSample(data)
	if err != nil {
		return Summary{}, err
	}
	if std == 0 {
		return Summary{}, core.NewDegenerateSeriesError("series %q is constant", ts.Name())
	}
	median, _ := stats.Median(data)
	lo, _ := stats.Min(data)
	hi, _ := stats.Max(data)

	skew, kurt := moments(data, mean)
	jb := float64(n) / 6 * (skew*skew + kurt*kurt/4)

	acf := autocorrelations(data, mean, max(c.opts.ACFLags, c.opts.LjungBoxLags))
	h := min(c.opts.LjungBoxLags, n-1)
	q := 0.0
	for k := 1; k <= h; k++ {
		q += acf[k-1] * acf[k-1] / float64(n-k)
	}
	q *= float64(n) * float64(n+2)

	return Summary{
		Series:     ts.Name(),
		Count:      n,
		Mean:       mean,
		Std:        std,
		Skewness:   skew,
		Kurtosis:   kurt,
		Median:     median,
		Min:        lo,
		Max:        hi,
		JarqueBera: Test{Statistic: jb, PValue: distuv.ChiSquared{K: 2}.Survival(jb), DOF: 2},
		LjungBox:   Test{Statistic: q, PValue: distuv.ChiSquared{K: float64(h)}.Survival(q), DOF: h},
		ACF:        acf[:min(c.opts.ACFLags, len(acf))],
	}, nil
}

// moments returns the biased sample skewness and excess kurtosis.
func moments(data []float64, mean float64) (skew, kurt float64) {
	var m2, m3, m4 float64
	for _, v := range data {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	n := float64(len(data))
	m2, m3, m4 = m2/n, m3/n, m4/n
	return m3 / math.Pow(m2, 1.5), m4/(m2*m2) - 3
}

// autocorrelations returns ρ_1..ρ_lags with the full-sample mean and variance.
func autocorrelations(data []float64, mean float64, lags int) []float64 {
	lags = min(lags, len(data)-1)
	den := 0.0
	for _, v := range data {
		den += (v - mean) * (v - mean)
	}
	out := make([]float64, lags)
	for k := 1; k <= lags; k++ {
		num := 0.0
		for i := k; i < len(data); i++ {
			num += (data[i] - mean) * (data[i-k] - mean)
		}
		out[k-1] = num / den
	}
	return out
}

// Columns lists the row labels of Table, in order.
var Columns = []string{"count", "mean", "std", "skewness", "kurtosis", "Jarque-Bera", "Ljung-Box"}

// Table lays summaries out as rows of statistics by series, matching Columns.
func Table(summaries []Summary) map[string][]string {
	out := make(map[string][]string, len(summaries))
	for _, s := range summaries {
		out[s.Series] = []string{
			fmt.Sprintf("%d", s.Count),
			fmt.Sprintf("%.4f", s.Mean),
			fmt.Sprintf("%.4f", s.Std),
			fmt.Sprintf("%.4f", s.Skewness),
			fmt.Sprintf("%.4f", s.Kurtosis),
			s.JarqueBera.String(),
			s.LjungBox.String(),
		}
	}
	return out
}

// SortedNames returns the series names of a Table in lexical order.
func SortedNames(table map[string][]string) []string {
	names := make([]string, 0, len(table))
	for k := range table {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
