package app

import (
	"context"
	"math"
	"time"

	"gowave/domain/core"
	"gowave/domain/run"
	"gowave/domain/series"
	"gowave/domain/spectral"
	"gowave/internal"
	"gowave/internal/descriptive"
	"gowave/internal/errors"
	"gowave/internal/regression"
	"gowave/internal/significance"
	"gowave/internal/wavelet"
	"gowave/ports"
)

// AnalysisService runs wavelet and scale regression analyses on caller-supplied series
type AnalysisService struct {
	rngPort ports.RNGPort
	logger  *internal.Logger
}

// NewAnalysisService creates an analysis service. A nil logger uses internal.DefaultLogger;
// a nil RNG port makes Monte Carlo draws use seeded math/rand sources.
func NewAnalysisService(rngPort ports.RNGPort, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AnalysisService{rngPort: rngPort, logger: logger}
}

// CWTResult bundles a transform with the basis that produced it
type CWTResult struct {
	Manifest  *run.Manifest             `json:"manifest,omitempty"`
	Transform *spectral.Transform       `json:"transform"`
	COI       *spectral.ConeOfInfluence `json:"coi"`
	Global    []float64                 `json:"-"` // outside the cone; NaN where no cell is
	Basis     *wavelet.Basis            `json:"-"`

	// The series actually transformed, after optional standardisation.
	Input *series.TimeSeries `json:"-"`
}

// CrossResult bundles the cross transform and coherence of one pair
type CrossResult struct {
	Manifest  *run.Manifest             `json:"manifest,omitempty"`
	Cross     *spectral.CrossTransform  `json:"cross"`
	Coherence *spectral.Coherence       `json:"coherence"`
	COI       *spectral.ConeOfInfluence `json:"coi"`
	Basis     *wavelet.Basis            `json:"-"`

	// The series actually transformed, after optional standardisation.
	A *series.TimeSeries `json:"-"`
	B *series.TimeSeries `json:"-"`
}

func (s *AnalysisService) begin(op string) (core.RunID, *internal.Logger, time.Time) {
	runID := core.NewRunID()
	return runID, s.logger.WithFields(internal.Fields{"run_id": runID.String(), "op": op}), time.Now()
}

// manifest records the inputs of a call. A manifest that cannot be built is
// logged and skipped; it never fails the analysis.
func (s *AnalysisService) manifest(log *internal.Logger, runID core.RunID, op string, settings interface{}, seed int64, inputs ...*series.TimeSeries) *run.Manifest {
	m, err := run.NewManifest(runID, op, settings, seed, inputs...)
	if err != nil {
		log.Warn("no manifest: %v", err)
		return nil
	}
	log.Debug("fingerprint %s", m.Fingerprint.Short())
	return m
}

// ComputeCWT transforms ts with the basis and grid described by cfg.
func (s *AnalysisService) ComputeCWT(ctx context.Context, ts *series.TimeSeries, cfg wavelet.Config) (*CWTResult, error) {
	runID, log, start := s.begin("cwt")
	log.Info("transforming %s (n=%d, dt=%g) with %s", ts.Name(), ts.Len(), ts.DT(), cfg.Family)

	basis, err := cfg.Basis()
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	input, err := prepare(ts, cfg)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	grid, err := wavelet.GridFor(input, cfg, basis)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	w, err := wavelet.Transform(ctx, input, basis, grid)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	coi := wavelet.ConeOfInfluence(grid, w.N, basis)

	log.Debug("%d scales, periods %.4g to %.4g", grid.Len(), grid.Periods[0], grid.Periods[grid.J()])
	log.Info("cwt finished in %s", time.Since(start))
	return &CWTResult{
		Manifest:  s.manifest(log, runID, "cwt", cfg, 0, ts),
		Transform: w,
		COI:       coi,
		Global:    w.GlobalSpectrum(coi.Outside),
		Basis:     basis,
		Input:     input,
	}, nil
}

// ComputeCross computes the cross transform and smoothed coherence of a and b.
func (s *AnalysisService) ComputeCross(ctx context.Context, a, b *series.TimeSeries, cfg wavelet.Config) (*CrossResult, error) {
	runID, log, start := s.begin("xwt")
	log.Info("cross analysis of %s and %s", a.Name(), b.Name())

	if err := series.SameSampling(a, b); err != nil {
		return nil, errors.FromDomain(err)
	}
	basis, err := cfg.Basis()
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	ia, err := prepare(a, cfg)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	ib, err := prepare(b, cfg)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	grid, err := wavelet.GridFor(ia, cfg, basis)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	wa, err := wavelet.Transform(ctx, ia, basis, grid)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	wb, err := wavelet.Transform(ctx, ib, basis, grid)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	cross, err := wavelet.Cross(wa, wb)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	coh, err := wavelet.Coherence(wa, wb, basis, cfg.Smoothing)
	if err != nil {
		return nil, errors.FromDomain(err)
	}

	log.Info("xwt finished in %s", time.Since(start))
	return &CrossResult{
		Manifest:  s.manifest(log, runID, "xwt", cfg, 0, a, b),
		Cross:     cross,
		Coherence: coh,
		COI:       wavelet.ConeOfInfluence(grid, wa.N, basis),
		Basis:     basis,
		A:         ia,
		B:         ib,
	}, nil
}

// ComputeSignificance tests the power of res against an AR(1) background fitted
// to the series res was computed from.
func (s *AnalysisService) ComputeSignificance(ctx context.Context, res *CWTResult, opts significance.Options) (*spectral.SignificanceMask, error) {
	_, log, start := s.begin("significance")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rn, err := significance.FitRedNoise(res.Input, opts.RedNoise)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	mask, err := significance.Power(res.Transform, res.Basis, rn, opts)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	log.Info("power significance at %.0f%%: alpha=%.3f, %.1f%% of cells outside the cone significant (%s)",
		100*opts.Confidence, rn.Alpha, 100*mask.Fraction(res.COI.Outside), time.Since(start))
	return mask, nil
}

// ComputeCrossSignificance tests cross-wavelet power against two AR(1) backgrounds.
func (s *AnalysisService) ComputeCrossSignificance(ctx context.Context, res *CrossResult, opts significance.Options) (*spectral.SignificanceMask, error) {
	_, log, start := s.begin("cross-significance")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ra, err := significance.FitRedNoise(res.A, opts.RedNoise)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	rb, err := significance.FitRedNoise(res.B, opts.RedNoise)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	mask, err := significance.CrossPower(res.Cross, res.Basis, ra, rb, opts)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	log.Info("cross power significance: %.1f%% of cells outside the cone (%s)", 100*mask.Fraction(res.COI.Outside), time.Since(start))
	return mask, nil
}

// ComputeCoherenceSignificance runs the Monte Carlo coherence test for res.
func (s *AnalysisService) ComputeCoherenceSignificance(ctx context.Context, res *CrossResult, smoothing wavelet.Smoothing, opts significance.Options) (*spectral.SignificanceMask, error) {
	runID, log, start := s.begin("coherence-significance")
	if opts.RNG == nil {
		opts.RNG = s.rngPort
	}
	if opts.RunID == "" {
		opts.RunID = runID.String()
	}
	if m := s.manifest(log, runID, "coherence-significance", opts, opts.Seed, res.A, res.B); m != nil {
		log = log.WithFields(internal.Fields{"fingerprint": m.Fingerprint.Short()})
	}
	log.Info("drawing %d surrogate pairs", opts.Draws)

	mask, err := significance.Coherence(ctx, res.A, res.B, res.Coherence, res.Basis, smoothing, opts)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	log.Info("coherence significance: %.1f%% of cells outside the cone (%s)", 100*mask.Fraction(res.COI.Outside), time.Since(start))
	return mask, nil
}

// ComputeCOI builds the cone of influence for a series of length n sampled at dt on grid.
func (s *AnalysisService) ComputeCOI(n int, dt float64, grid *spectral.ScaleGrid, cfg wavelet.Config) (*spectral.ConeOfInfluence, error) {
	if n < series.MinLength {
		return nil, errors.FromDomain(core.NewInsufficientDataError("%d observations, need at least %d", n, series.MinLength))
	}
	if math.Abs(dt-grid.DT) > 1e-12*dt {
		return nil, errors.FromDomain(core.NewShapeMismatchError("grid built for dt=%v, got dt=%v", grid.DT, dt))
	}
	basis, err := cfg.Basis()
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return wavelet.ConeOfInfluence(grid, n, basis), nil
}

// RunScaleRegression fits the band regression. Failed bands are logged and
// returned joined in the error next to the bands that succeeded.
func (s *AnalysisService) RunScaleRegression(ctx context.Context, in regression.Input, bands []regression.ScaleBand, opts regression.Options) (map[core.BandLabel]*regression.Result, error) {
	runID, log, start := s.begin("regress")
	log.Info("regressing on %d regressors (iv=%t, se=%s)", len(in.Regressors), opts.IV, opts.SE)

	results, err := regression.Run(ctx, in, bands, opts)
	if len(results) > 0 {
		// Inputs passed validation, so every series is present.
		inputs := append([]*series.TimeSeries{in.Outcome}, in.Regressors...)
		if opts.IV {
			inputs = append(inputs, in.Instruments...)
		}
		settings := struct {
			Bands   []regression.ScaleBand `json:"bands"`
			Options regression.Options     `json:"options"`
		}{bands, opts}
		if m := s.manifest(log, runID, "regress", settings, 0, inputs...); m != nil {
			log = log.WithFields(internal.Fields{"fingerprint": m.Fingerprint.Short()})
		}
	}
	for label, r := range results {
		log.WithFields(internal.Fields{"band": label.String()}).
			Debug("n=%d dropped=%d r2=%.3f", r.Observations, r.Dropped, r.RSquared)
	}
	if err != nil {
		log.Warn("regression finished with failures: %v", err)
		return results, errors.FromDomain(err)
	}
	log.Info("regression finished for %d bands in %s", len(results), time.Since(start))
	return results, nil
}

// Describe summarises the given series.
func (s *AnalysisService) Describe(opts descriptive.Options, list ...*series.TimeSeries) ([]descriptive.Summary, error) {
	out, err := descriptive.NewComputer(opts).Describe(list...)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return out, nil
}

func prepare(ts *series.TimeSeries, cfg wavelet.Config) (*series.TimeSeries, error) {
	if !cfg.Standardize {
		return ts, nil
	}
	return ts.Standardize()
}
