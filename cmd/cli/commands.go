package main

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gowave/domain/series"
	"gowave/internal/config"
	"gowave/internal/descriptive"
	"gowave/internal/errors"
	"gowave/internal/regression"
	"gowave/internal/testkit"
	"gowave/internal/wavelet"

	"github.com/spf13/cobra"
)

func newDescribeCmd(cc *cliContext) *cobra.Command {
	opts := descriptive.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "describe [file] [columns...]",
		Short: "Summary statistics, normality and serial correlation tests",
		Long: `Describe every column (or the named ones) of a CSV or XLSX file.

Example: wavecli describe data/us_macro.csv income consumption --lb-lags 12`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := cc.load(args[0], args[1:]...)
			if err != nil {
				return err
			}
			summaries, err := cc.service.Describe(opts, list...)
			if err != nil {
				return err
			}
			if cc.asJSON {
				return printJSON(cmd.OutOrStdout(), summaries)
			}
			return printDescribe(cmd.OutOrStdout(), summaries)
		},
	}

	cmd.Flags().IntVar(&opts.LjungBoxLags, "lb-lags", opts.LjungBoxLags, "Lags in the Ljung-Box statistic")
	cmd.Flags().IntVar(&opts.ACFLags, "acf-lags", opts.ACFLags, "Autocorrelations to report")
	return cmd
}

func newCWTCmd(cc *cliContext) *cobra.Command {
	var (
		withSignificance bool
		reconstructMin   float64
		reconstructMax   float64
	)

	cmd := &cobra.Command{
		Use:   "cwt [file] [column]",
		Short: "Continuous wavelet transform of one series",
		Long: `Transform one column and print its global spectrum outside the cone of influence.

Example: wavecli cwt data/us_macro.csv income --significance --reconstruct-min 1.5 --reconstruct-max 8`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := cc.load(args[0], args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res, err := cc.service.ComputeCWT(ctx, list[0], cc.cfg.WaveletConfig())
			if err != nil {
				return err
			}

			report := cwtReport{Result: res}
			if withSignificance {
				mask, err := cc.service.ComputeSignificance(ctx, res, cc.cfg.SignificanceOptions())
				if err != nil {
					return err
				}
				report.Significance = mask
			}
			if cmd.Flags().Changed("reconstruct-min") || cmd.Flags().Changed("reconstruct-max") {
				if reconstructMax <= 0 {
					reconstructMax = math.Inf(1)
				}
				band, err := wavelet.ReconstructPeriods(res.Transform, res.Basis, reconstructMin, reconstructMax)
				if err != nil {
					return errors.FromDomain(err)
				}
				report.Reconstruction = band
			}

			if cc.asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printCWT(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&withSignificance, "significance", false, "Test power against a fitted red noise background")
	cmd.Flags().Float64Var(&reconstructMin, "reconstruct-min", 0, "Shortest period of the band to reconstruct")
	cmd.Flags().Float64Var(&reconstructMax, "reconstruct-max", 0, "Longest period of the band to reconstruct (0 is unbounded)")
	return cmd
}

func newXWTCmd(cc *cliContext) *cobra.Command {
	var (
		withPower     bool
		withCoherence bool
	)

	cmd := &cobra.Command{
		Use:   "xwt [file] [column-a] [column-b]",
		Short: "Cross wavelet transform and coherence of two series",
		Long: `Compute cross-wavelet power, coherence and phase for two columns.

Example: wavecli xwt data/us_macro.csv income consumption --coherence-significance`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := cc.load(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			wcfg := cc.cfg.WaveletConfig()
			res, err := cc.service.ComputeCross(ctx, list[0], list[1], wcfg)
			if err != nil {
				return err
			}

			report := xwtReport{Result: res}
			sigOpts := cc.cfg.SignificanceOptions()
			if withPower {
				if report.PowerSignificance, err = cc.service.ComputeCrossSignificance(ctx, res, sigOpts); err != nil {
					return err
				}
			}
			if withCoherence {
				if report.CoherenceSignificance, err = cc.service.ComputeCoherenceSignificance(ctx, res, wcfg.Smoothing, sigOpts); err != nil {
					return err
				}
			}

			if cc.asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return printXWT(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&withPower, "power-significance", false, "Test cross-wavelet power against two red noise backgrounds")
	cmd.Flags().BoolVar(&withCoherence, "coherence-significance", false, "Monte Carlo test of coherence (MONTE_CARLO_DRAWS surrogates)")
	return cmd
}

func newRegressCmd(cc *cliContext) *cobra.Command {
	var (
		outcome     string
		regressors  []string
		instruments []string
		ols         bool
		bandsFile   string
	)

	cmd := &cobra.Command{
		Use:   "regress [file]",
		Short: "Scale-by-scale OLS or 2SLS regression",
		Long: `Reconstruct every series within each period band and fit the band regression.

Bands come from --bands (or BANDS_FILE), a YAML file of the form

  bands:
    - {label: short-run, min_period: 0, max_period: 1.5}
    - {label: long-run, min_period: 8}

Example: wavecli regress data/us_macro.csv --y consumption --x income --z income_lag`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cc.cfg.RegressionOptions()
			if ols {
				opts.IV = false
			}
			if bandsFile == "" {
				bandsFile = cc.cfg.Regression.BandsFile
			}
			bands, err := config.LoadBands(bandsFile)
			if err != nil {
				return err
			}

			columns := append([]string{outcome}, regressors...)
			if opts.IV {
				columns = append(columns, instruments...)
			}
			list, err := cc.load(args[0], columns...)
			if err != nil {
				return err
			}
			in := regression.Input{
				Outcome:    list[0],
				Regressors: list[1 : 1+len(regressors)],
			}
			if opts.IV {
				in.Instruments = list[1+len(regressors):]
			}

			results, runErr := cc.service.RunScaleRegression(cmd.Context(), in, bands, opts)
			if len(results) == 0 {
				return runErr
			}
			if cc.asJSON {
				err = printJSON(cmd.OutOrStdout(), results)
			} else {
				err = printRegression(cmd.OutOrStdout(), bands, results)
			}
			return stderrors.Join(err, runErr)
		},
	}

	cmd.Flags().StringVar(&outcome, "y", "", "Outcome column")
	cmd.Flags().StringSliceVar(&regressors, "x", nil, "Regressor columns")
	cmd.Flags().StringSliceVar(&instruments, "z", nil, "Instrument columns")
	cmd.Flags().BoolVar(&ols, "ols", false, "Fit OLS instead of 2SLS")
	cmd.Flags().StringVar(&bandsFile, "bands", "", "YAML band profile (defaults to BANDS_FILE or the built-in bands)")
	_ = cmd.MarkFlagRequired("y")
	_ = cmd.MarkFlagRequired("x")
	return cmd
}

func newSimulateCmd(cc *cliContext) *cobra.Command {
	genCfg := testkit.DefaultCycleConfig()
	var (
		out   string
		start string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write synthetic income and consumption series with known cycles",
		Long: `Generate a CSV with date, income, consumption and income_lag columns.

Example: wavecli simulate --out sample.csv --length 480 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			first, err := time.Parse("2006-01-02", start)
			if err != nil {
				return errors.ValidationError(fmt.Sprintf("invalid --start %q: %v", start, err))
			}
			income, consumption, err := testkit.NewCycleGenerator(genCfg).Generate()
			if err != nil {
				return errors.FromDomain(err)
			}
			if err := writeSimulation(out, cc.cfg.Data.DateColumn, first, income, consumption); err != nil {
				return err
			}
			cc.logger.Info("wrote %d observations to %s", income.Len(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "simulated.csv", "Output CSV path")
	cmd.Flags().StringVar(&start, "start", "2000-01-01", "Date of the first observation")
	cmd.Flags().IntVar(&genCfg.Length, "length", genCfg.Length, "Number of observations")
	cmd.Flags().Float64Var(&genCfg.DT, "sim-dt", genCfg.DT, "Sampling interval in years")
	cmd.Flags().Float64Var(&genCfg.MPC, "mpc", genCfg.MPC, "Long-run marginal propensity to consume")
	cmd.Flags().Int64Var(&genCfg.Seed, "seed", genCfg.Seed, "Random seed")
	return cmd
}

// writeSimulation writes the generated pair plus one-period-lagged income, a
// usable instrument for consumption on income.
func writeSimulation(path, dateColumn string, first time.Time, income, consumption *series.TimeSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{dateColumn, income.Name(), consumption.Name(), income.Name() + "_lag"}); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	for i := 0; i < income.Len(); i++ {
		lag := income.At(0)
		if i > 0 {
			lag = income.At(i - 1)
		}
		row := []string{
			stepDate(first, income.DT(), i).Format("2006-01-02"),
			strconv.FormatFloat(income.At(i), 'g', -1, 64),
			strconv.FormatFloat(consumption.At(i), 'g', -1, 64),
			strconv.FormatFloat(lag, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "failed to flush csv")
	}
	return f.Close()
}

// stepDate advances first by i steps of dt years, in whole months when dt is a
// whole number of months.
func stepDate(first time.Time, dt float64, i int) time.Time {
	months := dt * 12
	if m := math.Round(months); m >= 1 && math.Abs(months-m) < 1e-9 {
		return first.AddDate(0, int(m)*i, 0)
	}
	days := dt * 365.25 * float64(i)
	return first.Add(time.Duration(days * float64(24*time.Hour)))
}
