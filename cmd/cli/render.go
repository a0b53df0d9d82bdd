package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"gowave/app"
	"gowave/domain/core"
	"gowave/domain/spectral"
	"gowave/internal/descriptive"
	"gowave/internal/errors"
	"gowave/internal/regression"

	"github.com/montanaflynn/stats"
)

type cwtReport struct {
	Result         *app.CWTResult             `json:"result"`
	Significance   *spectral.SignificanceMask `json:"significance,omitempty"`
	Reconstruction []float64                  `json:"reconstruction,omitempty"`
}

// MarshalJSON adds the global spectrum, with null for scales that have no cell
// outside the cone.
func (r cwtReport) MarshalJSON() ([]byte, error) {
	type plain cwtReport
	global := make([]*float64, len(r.Result.Global))
	for j, v := range r.Result.Global {
		if !math.IsNaN(v) {
			v := v
			global[j] = &v
		}
	}
	return json.Marshal(struct {
		plain
		Global []*float64 `json:"global_spectrum"`
	}{plain(r), global})
}

type xwtReport struct {
	Result                *app.CrossResult           `json:"result"`
	PowerSignificance     *spectral.SignificanceMask `json:"power_significance,omitempty"`
	CoherenceSignificance *spectral.SignificanceMask `json:"coherence_significance,omitempty"`
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode result")
	}
	return nil
}

func printDescribe(w io.Writer, summaries []descriptive.Summary) error {
	table := descriptive.Table(summaries)
	names := descriptive.SortedNames(table)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(names, "\t"))
	for i, col := range descriptive.Columns {
		row := make([]string, len(names))
		for k, name := range names {
			row[k] = table[name][i]
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", col, strings.Join(row, "\t"))
	}
	fmt.Fprintf(tw, "\n")
	fmt.Fprintf(tw, "stars: p ≤ %v\t\n", descriptive.Thresholds)
	return tw.Flush()
}

func printCWT(w io.Writer, r cwtReport) error {
	res := r.Result
	t := res.Transform
	fmt.Fprintf(w, "series %s, basis %s, n=%d, dt=%g, %d scales\n\n", t.Series, t.Basis, t.N, t.DT, t.Grid.Len())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := "j\tscale\tperiod\tglobal power\tvalid window\t"
	if r.Significance != nil {
		header += "significant\t"
	}
	fmt.Fprintln(tw, header)
	for j := range t.Grid.Scales {
		window := "none"
		if first, last, ok := res.COI.ValidRange(j); ok {
			window = fmt.Sprintf("%d..%d", first, last)
		}
		line := fmt.Sprintf("%d\t%.4g\t%.4g\t%s\t%s\t", j, t.Grid.Scales[j], t.Grid.Periods[j], formatFloat(res.Global[j]), window)
		if r.Significance != nil {
			line += fmt.Sprintf("%.1f%%\t", 100*rowFraction(r.Significance.Mask[j], j, res.COI))
		}
		fmt.Fprintln(tw, line)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Reconstruction != nil {
		variance, err := stats.PopulationVariance(r.Reconstruction)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nband reconstruction: %d values, variance %.4g\n", len(r.Reconstruction), variance)
	}
	return nil
}

func printXWT(w io.Writer, r xwtReport) error {
	res := r.Result
	coh := res.Coherence
	fmt.Fprintf(w, "%s vs %s, n=%d, dt=%g\n", coh.A, coh.B, coh.N, coh.DT)
	fmt.Fprintf(w, "positive phase: %s leads %s\n\n", coh.A, coh.B)

	power := res.Cross.Power()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := "period\tcross power\tcoherence\tphase\tlead\t"
	if r.PowerSignificance != nil {
		header += "power sig\t"
	}
	if r.CoherenceSignificance != nil {
		header += "coherence sig\tlevel\t"
	}
	fmt.Fprintln(tw, header)
	for j, period := range coh.Grid.Periods {
		var p, c, sumSin, sumCos float64
		count := 0
		for n := 0; n < coh.N; n++ {
			if res.COI.Inside(j, n) {
				continue
			}
			p += power[j][n]
			c += coh.Values[j][n]
			sumSin += math.Sin(coh.Phase[j][n])
			sumCos += math.Cos(coh.Phase[j][n])
			count++
		}
		if count == 0 {
			continue
		}
		phase := math.Atan2(sumSin, sumCos)
		line := fmt.Sprintf("%.4g\t%.4g\t%.3f\t%.3f\t%.3g\t", period, p/float64(count), c/float64(count), phase, phase/(2*math.Pi)*period)
		if r.PowerSignificance != nil {
			line += fmt.Sprintf("%.1f%%\t", 100*rowFraction(r.PowerSignificance.Mask[j], j, res.COI))
		}
		if r.CoherenceSignificance != nil {
			line += fmt.Sprintf("%.1f%%\t%.3f\t", 100*rowFraction(r.CoherenceSignificance.Mask[j], j, res.COI), r.CoherenceSignificance.Levels[j])
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func printRegression(w io.Writer, bands []regression.ScaleBand, results map[core.BandLabel]*regression.Result) error {
	for _, band := range bands {
		r, ok := results[band.Label]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s: periods %.3g to %.3g (scales %d..%d), %s, %s",
			band.Label, r.PeriodLo, r.PeriodHi, r.ScaleLo, r.ScaleHi, r.Method, r.Covariance)
		if r.Lags > 0 {
			fmt.Fprintf(w, " (%d lags)", r.Lags)
		}
		fmt.Fprintf(w, "\n  n=%d, dropped=%d, R²=%.4f\n", r.Observations, r.Dropped, r.RSquared)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "\tterm\tcoef\tstd err\tt\tp\t\t")
		for i, term := range r.Terms {
			test := descriptive.Test{Statistic: r.Coefficients[i], PValue: r.PValues[i]}
			fmt.Fprintf(tw, "\t%s\t%.4f\t%.4f\t%.3f\t%.4f\t%s\t\n",
				term, r.Coefficients[i], r.StdErrors[i], r.TStats[i], r.PValues[i], test.Stars())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for i, f := range r.FirstStageF {
			fmt.Fprintf(w, "  first-stage F (%s): %.2f\n", r.Terms[i+1], f)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func rowFraction(row []bool, j int, coi *spectral.ConeOfInfluence) float64 {
	hits, total := 0, 0
	for n, sig := range row {
		if coi.Inside(j, n) {
			continue
		}
		total++
		if sig {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}
