package main

import (
	"fmt"
	"os"
	"strings"

	"gowave/adapters/rng"
	"gowave/adapters/seriesfile"
	"gowave/app"
	"gowave/domain/series"
	"gowave/internal"
	"gowave/internal/config"
	"gowave/internal/errors"

	"github.com/spf13/cobra"
)

// cliContext is shared by every subcommand after configuration is loaded.
type cliContext struct {
	cfg     *config.Config
	logger  *internal.Logger
	service *app.AnalysisService

	envFile string
	asJSON  bool
	dt      float64
	missing string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cc := &cliContext{}
	rootCmd := newRootCmd(cc)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return errors.ExitCode(err)
	}
	return 0
}

func newRootCmd(cc *cliContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wavecli",
		Short:         "Wavelet transforms, coherence and scale-by-scale regression for economic time series",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cc.envFile, "env-file", "", "Read settings from this .env file before the environment")
	rootCmd.PersistentFlags().BoolVar(&cc.asJSON, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().Float64Var(&cc.dt, "dt", 0, "Sampling interval in years (0 infers it from the dates)")
	rootCmd.PersistentFlags().StringVar(&cc.missing, "missing", "reject", "Missing value policy: reject, trim or interpolate")

	rootCmd.AddCommand(
		newDescribeCmd(cc),
		newCWTCmd(cc),
		newXWTCmd(cc),
		newRegressCmd(cc),
		newSimulateCmd(cc),
	)
	return rootCmd
}

func (cc *cliContext) init() error {
	var files []string
	if cc.envFile != "" {
		files = append(files, cc.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	cc.cfg = cfg
	cc.logger = internal.NewLoggerTo(os.Stderr, internal.ParseLogLevel(cfg.Log.Level), cfg.Log.Format == "json")
	cc.service = app.NewAnalysisService(rng.NewSeededAdapter(), cc.logger)
	return nil
}

// load reads the named columns of path, or all of them when none are given.
func (cc *cliContext) load(path string, columns ...string) ([]*series.TimeSeries, error) {
	policy, err := parseMissing(cc.missing)
	if err != nil {
		return nil, err
	}
	fileCfg := seriesfile.DefaultConfig(path)
	fileCfg.Sheet = cc.cfg.Data.Sheet
	fileCfg.DateColumn = cc.cfg.Data.DateColumn
	fileCfg.DateLayout = cc.cfg.Data.DateLayout
	fileCfg.Columns = columns
	fileCfg.DT = cc.dt
	fileCfg.Missing = policy
	list, err := seriesfile.Load(fileCfg, cc.logger)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return list, nil
}

func parseMissing(s string) (series.MissingPolicy, error) {
	switch strings.ToLower(s) {
	case "", "reject":
		return series.MissingReject, nil
	case "trim", "trim_edges":
		return series.MissingTrimEdges, nil
	case "interpolate":
		return series.MissingInterpolate, nil
	default:
		return 0, errors.ValidationError(fmt.Sprintf("unknown missing value policy %q", s))
	}
}
