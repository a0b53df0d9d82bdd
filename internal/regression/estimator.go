package regression

import (
	"math"

	"gowave/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// rankTol is the relative singular value cutoff for the rank check.
const rankTol = 1e-10

// estimate holds one fitted linear model.
type estimate struct {
	coef        []float64
	se          []float64
	t           []float64
	p           []float64
	r2          float64
	firstStageF []float64
	lags        int
}

// sample is the band-filtered data of one regression: y, regressors as
// columns of x and instruments as columns of z, all without intercept.
type sample struct {
	y []float64
	x [][]float64
	z [][]float64
}

func (s sample) rows() int { return len(s.y) }

// withIntercept builds [1, cols...] as an n×(k+1) matrix.
func withIntercept(n int, cols [][]float64) *mat.Dense {
	m := mat.NewDense(n, len(cols)+1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, 1)
		for k, c := range cols {
			m.Set(i, k+1, c[i])
		}
	}
	return m
}

// leastSquares solves min‖Xb − y‖ after checking X has full column rank.
func leastSquares(x *mat.Dense, y *mat.VecDense, what string) (*mat.VecDense, error) {
	_, cols := x.Dims()
	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, core.NewRankDeficiencyError("%s: SVD did not converge", what)
	}
	if rank := svd.Rank(rankTol); rank < cols {
		return nil, core.NewRankDeficiencyError("%s: rank %d < %d columns", what, rank, cols)
	}
	var b mat.VecDense
	svd.SolveVecTo(&b, y, cols)
	return &b, nil
}

// fit runs OLS (iv false) or 2SLS and the requested covariance estimator.
func fit(s sample, iv bool, cov CovarianceType, lags int, minF float64) (*estimate, error) {
	n := s.rows()
	k := len(s.x) + 1
	if n <= k+1 {
		return nil, core.NewInsufficientDataError("%d observations for %d parameters", n, k)
	}
	y := mat.NewVecDense(n, append([]float64(nil), s.y...))
	x := withIntercept(n, s.x)

	design := x
	var firstF []float64
	if iv {
		if len(s.z) < len(s.x) {
			return nil, core.NewRankDeficiencyError("under-identified: %d instruments for %d regressors", len(s.z), len(s.x))
		}
		z := withIntercept(n, s.z)
		if n <= len(s.z)+1 {
			return nil, core.NewInsufficientDataError("%d observations for %d instruments", n, len(s.z))
		}
		fitted, f, err := firstStage(z, s.x, n)
		if err != nil {
			return nil, err
		}
		firstF = f
		for i, fv := range f {
			if fv < minF {
				return nil, core.NewWeakInstrumentError("first-stage F for regressor %d is %.3g, below %v", i+1, fv, minF)
			}
		}
		design = withIntercept(n, fitted)
	}

	beta, err := leastSquares(design, y, "second stage")
	if err != nil {
		return nil, err
	}

	// Residuals use the observed regressors, not the first-stage fit.
	var resid mat.VecDense
	resid.MulVec(x, beta)
	resid.SubVec(y, &resid)
	u := resid.RawVector().Data

	vcov, usedLags, err := covariance(design, u, cov, lags)
	if err != nil {
		return nil, err
	}

	est := &estimate{
		coef:        make([]float64, k),
		se:          make([]float64, k),
		t:           make([]float64, k),
		p:           make([]float64, k),
		firstStageF: firstF,
		lags:        usedLags,
	}
	student := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - k)}
	for i := 0; i < k; i++ {
		est.coef[i] = beta.AtVec(i)
		est.se[i] = math.Sqrt(math.Max(vcov.At(i, i), 0))
		if est.se[i] > 0 {
			est.t[i] = est.coef[i] / est.se[i]
			est.p[i] = 2 * student.Survival(math.Abs(est.t[i]))
		} else {
			est.t[i] = math.NaN()
			est.p[i] = math.NaN()
		}
	}

	mean := stat.Mean(s.y, nil)
	rss, tss := 0.0, 0.0
	for i, v := range s.y {
		rss += u[i] * u[i]
		tss += (v - mean) * (v - mean)
	}
	if tss > 0 {
		est.r2 = 1 - rss/tss
	} else {
		est.r2 = math.NaN()
	}
	return est, nil
}

// firstStage regresses every endogenous column on z and returns the fitted
// values with the F statistic of the excluded instruments.
func firstStage(z *mat.Dense, endog [][]float64, n int) ([][]float64, []float64, error) {
	_, zc := z.Dims()
	m := zc - 1
	fitted := make([][]float64, len(endog))
	fstats := make([]float64, len(endog))
	for i, col := range endog {
		xv := mat.NewVecDense(n, append([]float64(nil), col...))
		gamma, err := leastSquares(z, xv, "first stage")
		if err != nil {
			return nil, nil, err
		}
		var hat mat.VecDense
		hat.MulVec(z, gamma)
		fitted[i] = append([]float64(nil), hat.RawVector().Data...)

		mean := stat.Mean(col, nil)
		rss, tss := 0.0, 0.0
		for t, v := range col {
			e := v - fitted[i][t]
			rss += e * e
			tss += (v - mean) * (v - mean)
		}
		if rss <= 0 {
			fstats[i] = math.Inf(1)
			continue
		}
		fstats[i] = ((tss - rss) / float64(m)) / (rss / float64(n-m-1))
	}
	return fitted, fstats, nil
}
