package significance

import (
	"math"
	"strings"

	"gowave/domain/core"
	"gowave/domain/series"

	"gonum.org/v1/gonum/stat"
)

// RedNoiseMethod selects how the AR(1) coefficient is estimated.
type RedNoiseMethod string

const (
	// RedNoiseLag1 uses the sample lag-1 autocorrelation.
	RedNoiseLag1 RedNoiseMethod = "lag1"
	// RedNoiseOLS regresses x_t on x_{t-1} with an intercept (conditional MLE).
	RedNoiseOLS RedNoiseMethod = "ols"
)

// ParseRedNoiseMethod accepts "lag1", "ols" and the empty string (lag1).
func ParseRedNoiseMethod(s string) (RedNoiseMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lag1", "acf":
		return RedNoiseLag1, nil
	case "ols", "mle":
		return RedNoiseOLS, nil
	default:
		return "", core.NewInvalidInputError("unknown red noise method %q", s)
	}
}

// RedNoise is an AR(1) background x_t = α·x_{t-1} + ε_t fitted to one series.
type RedNoise struct {
	Alpha    float64        `json:"alpha"`
	Mean     float64        `json:"mean"`
	Variance float64        `json:"variance"`
	Method   RedNoiseMethod `json:"method"`
}

// FitRedNoise estimates the AR(1) background of ts.
func FitRedNoise(ts *series.TimeSeries, method RedNoiseMethod) (RedNoise, error) {
	x := ts.Values()
	mean, variance := stat.MeanVariance(x, nil)
	if variance <= 0 || math.IsNaN(variance) {
		return RedNoise{}, core.NewDegenerateSeriesError("series %q has zero variance", ts.Name())
	}

	var alpha float64
	switch method {
	case RedNoiseOLS:
		_, alpha = stat.LinearRegression(x[:len(x)-1], x[1:], nil, false)
	case RedNoiseLag1, "":
		method = RedNoiseLag1
		num, den := 0.0, 0.0
		for i, v := range x {
			d := v - mean
			den += d * d
			if i+1 < len(x) {
				num += d * (x[i+1] - mean)
			}
		}
		alpha = num / den
	default:
		return RedNoise{}, core.NewInvalidInputError("unknown red noise method %q", method)
	}
	if math.IsNaN(alpha) || math.Abs(alpha) >= 1 {
		return RedNoise{}, core.NewDegenerateSeriesError("series %q: AR(1) coefficient %v is not stationary", ts.Name(), alpha)
	}
	return RedNoise{Alpha: alpha, Mean: mean, Variance: variance, Method: method}, nil
}

// Spectrum is the normalised AR(1) Fourier power at the given period:
// (1−α²) / (1 + α² − 2α·cos(2π·dt/period)).
func (r RedNoise) Spectrum(period, dt float64) float64 {
	a := r.Alpha
	return (1 - a*a) / (1 + a*a - 2*a*math.Cos(2*math.Pi*dt/period))
}

// Spectra evaluates Spectrum at every period.
func (r RedNoise) Spectra(periods []float64, dt float64) []float64 {
	out := make([]float64, len(periods))
	for j, p := range periods {
		out[j] = r.Spectrum(p, dt)
	}
	return out
}
