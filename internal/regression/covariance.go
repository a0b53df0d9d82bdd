package regression

import (
	"math"
	"strings"

	"gowave/domain/core"

	"gonum.org/v1/gonum/mat"
)

// CovarianceType selects the coefficient covariance estimator.
type CovarianceType string

const (
	// CovRobust is White's HC1 heteroskedasticity-robust sandwich.
	CovRobust CovarianceType = "robust"
	// CovNeweyWest adds Bartlett-weighted autocovariances up to a lag.
	CovNeweyWest CovarianceType = "newey_west"
)

// ParseCovarianceType accepts "robust"/"hc1" and "newey_west"/"hac".
func ParseCovarianceType(s string) (CovarianceType, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))) {
	case "robust", "hc1":
		return CovRobust, nil
	case "", "newey_west", "neweywest", "hac":
		return CovNeweyWest, nil
	default:
		return "", core.NewInvalidInputError("unknown standard error type %q", s)
	}
}

// covariance returns (X'X)⁻¹·Ω·(X'X)⁻¹·n/(n−k) with Ω from the residuals u.
func covariance(x *mat.Dense, u []float64, kind CovarianceType, lags int) (*mat.Dense, int, error) {
	n, k := x.Dims()

	var xtx, bread mat.Dense
	xtx.Mul(x.T(), x)
	if err := bread.Inverse(&xtx); err != nil {
		return nil, 0, core.NewRankDeficiencyError("X'X is singular: %v", err)
	}

	meat := mat.NewDense(k, k, nil)
	row := func(i int) []float64 { return x.RawRowView(i) }
	for i := 0; i < n; i++ {
		addOuter(meat, row(i), row(i), u[i]*u[i])
	}
	used := 0
	if kind == CovNeweyWest {
		used = lags
		if used > n-1 {
			used = n - 1
		}
		for l := 1; l <= used; l++ {
			w := 1 - float64(l)/float64(used+1)
			for i := l; i < n; i++ {
				s := w * u[i] * u[i-l]
				addOuter(meat, row(i), row(i-l), s)
				addOuter(meat, row(i-l), row(i), s)
			}
		}
	}

	var half, v mat.Dense
	half.Mul(&bread, meat)
	v.Mul(&half, &bread)
	v.Scale(float64(n)/float64(n-k), &v)
	return &v, used, nil
}

func addOuter(m *mat.Dense, a, b []float64, s float64) {
	for i, ai := range a {
		for j, bj := range b {
			m.Set(i, j, m.At(i, j)+s*ai*bj)
		}
	}
}

// AutoLags is the Newey-West lag for n observations of a band whose longest
// period is maxPeriod: the larger of ⌊4(n/100)^(2/9)⌋ and one full cycle,
// capped at n/3.
func AutoLags(n int, maxPeriod, dt float64) int {
	rule := int(math.Floor(4 * math.Pow(float64(n)/100, 2.0/9)))
	cycle := int(math.Ceil(maxPeriod/dt - 1e-9))
	lags := max(rule, cycle, 1)
	return min(lags, max(n/3, 1))
}
