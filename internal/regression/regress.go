package regression

import (
	"context"
	"errors"
	"fmt"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/domain/spectral"
	"gowave/internal/wavelet"
)

// Method names the estimator recorded on a Result.
type Method string

const (
	MethodOLS  Method = "ols"
	Method2SLS Method = "2sls"
)

// Options configures a scale regression.
type Options struct {
	IV             bool           `yaml:"iv" json:"iv"`
	SE             CovarianceType `yaml:"se" json:"se"`
	MinFirstStageF float64        `yaml:"min_first_stage_f" json:"min_first_stage_f"`
	NeweyWestLags  int            `yaml:"newey_west_lags" json:"newey_west_lags"` // 0 selects AutoLags
	ConeScale      ConeScale      `yaml:"cone_scale" json:"cone_scale"`
	Wavelet        wavelet.Config `yaml:"wavelet" json:"wavelet"`
}

// DefaultMinFirstStageF is the Staiger-Stock rule of thumb.
const DefaultMinFirstStageF = 10.0

// DefaultOptions runs 2SLS with Newey-West errors on a Morlet grid.
func DefaultOptions() Options {
	return Options{
		IV:             true,
		SE:             CovNeweyWest,
		MinFirstStageF: DefaultMinFirstStageF,
		ConeScale:      ConeCentral,
		Wavelet:        wavelet.DefaultConfig(),
	}
}

// Input is the set of series entering the regression. Instruments are
// ignored when Options.IV is false.
type Input struct {
	Outcome     *series.TimeSeries
	Regressors  []*series.TimeSeries
	Instruments []*series.TimeSeries
}

// Result is the fit of one band. Coefficient slices are aligned with Terms,
// whose first entry is the intercept.
type Result struct {
	Band         ScaleBand      `json:"band"`
	ScaleLo      int            `json:"scale_lo"`
	ScaleHi      int            `json:"scale_hi"`
	PeriodLo     float64        `json:"period_lo"`
	PeriodHi     float64        `json:"period_hi"`
	Method       Method         `json:"method"`
	Covariance   CovarianceType `json:"covariance"`
	Lags         int            `json:"lags,omitempty"`
	Terms        []string       `json:"terms"`
	Coefficients []float64      `json:"coefficients"`
	StdErrors    []float64      `json:"std_errors"`
	TStats       []float64      `json:"t_stats"`
	PValues      []float64      `json:"p_values"`
	RSquared     float64        `json:"r_squared"`
	FirstStageF  []float64      `json:"first_stage_f,omitempty"` // per regressor
	Observations int            `json:"observations"`
	Dropped      int            `json:"dropped"` // rows inside the cone of influence
}

// Coefficient returns the estimate and standard error for term.
func (r *Result) Coefficient(term string) (coef, se float64, ok bool) {
	for i, t := range r.Terms {
		if t == term {
			return r.Coefficients[i], r.StdErrors[i], true
		}
	}
	return 0, 0, false
}

// BandError attributes a failure to one band.
type BandError struct {
	Band core.BandLabel
	Err  error
}

func (e *BandError) Error() string {
	return fmt.Sprintf("band %s: %v", e.Band, e.Err)
}

func (e *BandError) Unwrap() error { return e.Err }

// Run reconstructs every input series in each band, drops rows inside the
// cone of influence and fits the band model. Bands that fail are reported as
// *BandError values joined into the returned error; the map still holds every
// band that succeeded. A nil bands slice selects DefaultBands.
func Run(ctx context.Context, in Input, bands []ScaleBand, opts Options) (map[core.BandLabel]*Result, error) {
	if bands == nil {
		bands = DefaultBands()
	}
	if err := validateBands(bands); err != nil {
		return nil, err
	}
	if err := validateInput(in, opts); err != nil {
		return nil, err
	}
	cone, err := ParseConeScale(string(opts.ConeScale))
	if err != nil {
		return nil, err
	}
	if opts.SE != CovRobust && opts.SE != CovNeweyWest {
		return nil, core.NewInvalidInputError("unknown standard error type %q", opts.SE)
	}

	basis, err := opts.Wavelet.Basis()
	if err != nil {
		return nil, err
	}
	grid, err := wavelet.GridFor(in.Outcome, opts.Wavelet, basis)
	if err != nil {
		return nil, err
	}

	all := append([]*series.TimeSeries{in.Outcome}, in.Regressors...)
	if opts.IV {
		all = append(all, in.Instruments...)
	}
	transforms := make([]*spectral.Transform, len(all))
	for i, ts := range all {
		if transforms[i], err = wavelet.Transform(ctx, ts, basis, grid); err != nil {
			return nil, fmt.Errorf("transform %s: %w", ts.Name(), err)
		}
	}
	coi := wavelet.ConeOfInfluence(grid, in.Outcome.Len(), basis)

	results := make(map[core.BandLabel]*Result, len(bands))
	var errs []error
	for _, band := range bands {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := runBand(band, in, transforms, basis, coi, cone, opts)
		if err != nil {
			errs = append(errs, &BandError{Band: band.Label, Err: err})
			continue
		}
		results[band.Label] = res
	}
	return results, errors.Join(errs...)
}

func runBand(band ScaleBand, in Input, transforms []*spectral.Transform, basis *wavelet.Basis,
	coi *spectral.ConeOfInfluence, cone ConeScale, opts Options) (*Result, error) {
	grid := coi.Grid
	lo, hi, err := band.Resolve(grid)
	if err != nil {
		return nil, err
	}

	filtered := make([][]float64, len(transforms))
	for i, w := range transforms {
		if filtered[i], err = wavelet.Reconstruct(w, basis, lo, hi); err != nil {
			return nil, err
		}
	}

	jc := cone.index(lo, hi)
	var keep []int
	for n := 0; n < coi.N; n++ {
		if coi.Outside(jc, n) {
			keep = append(keep, n)
		}
	}
	k := len(in.Regressors)
	if len(keep) == 0 {
		return nil, core.NewInsufficientDataError("every time index lies inside the cone at period %.3g", grid.Periods[jc])
	}

	s := sample{
		y: pick(filtered[0], keep),
		x: make([][]float64, k),
	}
	for i := 0; i < k; i++ {
		s.x[i] = pick(filtered[1+i], keep)
	}
	if opts.IV {
		s.z = make([][]float64, len(in.Instruments))
		for i := range in.Instruments {
			s.z[i] = pick(filtered[1+k+i], keep)
		}
	}

	lags := opts.NeweyWestLags
	if lags <= 0 {
		lags = AutoLags(len(keep), grid.Periods[hi], grid.DT)
	}
	minF := opts.MinFirstStageF
	if minF <= 0 {
		minF = DefaultMinFirstStageF
	}
	est, err := fit(s, opts.IV, opts.SE, lags, minF)
	if err != nil {
		return nil, err
	}

	terms := make([]string, 0, k+1)
	terms = append(terms, "const")
	for _, r := range in.Regressors {
		terms = append(terms, r.Name())
	}
	method := MethodOLS
	if opts.IV {
		method = Method2SLS
	}
	return &Result{
		Band:         band,
		ScaleLo:      lo,
		ScaleHi:      hi,
		PeriodLo:     grid.Periods[lo],
		PeriodHi:     grid.Periods[hi],
		Method:       method,
		Covariance:   opts.SE,
		Lags:         est.lags,
		Terms:        terms,
		Coefficients: est.coef,
		StdErrors:    est.se,
		TStats:       est.t,
		PValues:      est.p,
		RSquared:     est.r2,
		FirstStageF:  est.firstStageF,
		Observations: len(keep),
		Dropped:      coi.N - len(keep),
	}, nil
}

func validateInput(in Input, opts Options) error {
	if in.Outcome == nil {
		return core.NewInvalidInputError("outcome series is required")
	}
	if len(in.Regressors) == 0 {
		return core.NewInvalidInputError("at least one regressor is required")
	}
	others := append([]*series.TimeSeries(nil), in.Regressors...)
	if opts.IV {
		if len(in.Instruments) == 0 {
			return core.NewInvalidInputError("instrumental variable regression needs instruments")
		}
		others = append(others, in.Instruments...)
	}
	for _, ts := range others {
		if ts == nil {
			return core.NewInvalidInputError("nil series")
		}
		if err := series.SameSampling(in.Outcome, ts); err != nil {
			return err
		}
	}
	for _, r := range in.Regressors {
		if r.Name() == "const" {
			return core.NewInvalidInputError("regressor name %q is reserved", r.Name())
		}
	}
	return nil
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, n := range idx {
		out[i] = values[n]
	}
	return out
}
