package significance

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// CrossQuantile returns Z_ν(p): the p-quantile of √(X·Y) for independent
// X, Y ~ χ²_ν. For ν = 2 and p = 0.95 it is ≈ 3.999.
func CrossQuantile(nu, p float64) float64 {
	chi := distuv.ChiSquared{K: nu}
	tail := func(z float64) float64 {
		z2 := z * z
		// P(√(XY) > z) = ∫ f(x)·S(z²/x) dx with x = e^y.
		return logSpaceIntegral(func(x float64) float64 {
			return chi.Prob(x) * x * chi.Survival(z2/x)
		}, nu)
	}

	lo, hi := 0.0, 4*nu+40
	for tail(hi) > 1-p {
		hi *= 2
	}
	for i := 0; i < 100 && hi-lo > 1e-10*hi; i++ {
		mid := (lo + hi) / 2
		if tail(mid) > 1-p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// logSpaceIntegral computes ∫ g(e^y) dy over a range that covers the χ²_ν mass.
func logSpaceIntegral(g func(x float64) float64, nu float64) float64 {
	const (
		panels = 60
		nodes  = 20
	)
	lo := math.Log(1e-14)
	hi := math.Log(nu + 60*math.Sqrt(nu) + 200)
	width := (hi - lo) / panels
	f := func(y float64) float64 { return g(math.Exp(y)) }
	sum := 0.0
	for k := 0; k < panels; k++ {
		a := lo + float64(k)*width
		sum += quad.Fixed(f, a, a+width, nodes, quad.Legendre{}, 0)
	}
	return sum
}
