package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gonum.org/v1/plot"

	"pharmacoepi/pkg/data"
	"pharmacoepi/pkg/plotting"
	"pharmacoepi/pkg/stats"
	"pharmacoepi/pkg/survival"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// FormatReport renders the propensity diagnostics, the covariate balance
// table, the Cox summary and, when present, the bootstrap interval.
func FormatReport(r *Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Propensity model"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "covariates: %s\n", strings.Join(r.Propensity.Covariates, ", "))
	pm := r.Propensity
	fmt.Fprintf(&b, "AUC: %.3f, Brier: %.4f, log-loss: %.4f, accuracy: %.3f\n", pm.AUC, pm.Brier, pm.LogLoss, pm.Accuracy)
	lo, hi := stats.MinMax(r.Weights)
	fmt.Fprintf(&b, "IP weights: mean %.3f, sd %.3f, median %.3f, range [%.3f, %.3f]\n",
		stats.Mean(r.Weights), stats.Std(r.Weights), stats.Median(r.Weights), lo, hi)
	fmt.Fprintf(&b, "effective sample size: %.1f of %d\n", r.ESS, r.Cohort.NumRows())

	rows := make([][]string, 0, len(r.Balance))
	for _, cb := range r.Balance {
		rows = append(rows, []string{
			cb.Covariate,
			strconv.FormatFloat(cb.MeanTreated, 'f', 3, 64),
			strconv.FormatFloat(cb.MeanControl, 'f', 3, 64),
			strconv.FormatFloat(cb.SMD, 'f', 3, 64),
			strconv.FormatFloat(cb.WeightedSMD, 'f', 3, 64),
		})
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("covariate", "mean treated", "mean control", "SMD", "weighted SMD").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	b.WriteString(tbl.Render())
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Outcome model"))
	b.WriteString("\n")
	b.WriteString(survival.FormatSummary(r.Cox))

	if bs := r.Bootstrap; bs != nil {
		fmt.Fprintf(&b, "bootstrap %g%% CI for exp(coef) of %s: [%.4f, %.4f] (%d replicates)\n",
			100*bs.Level, data.ColTreatment, bs.Lower, bs.Upper, bs.Replicates)
	}
	return b.String()
}

// PlotCurves draws the Kaplan-Meier curves of the cohort by treatment arm,
// weighted by the IP weights when the configuration asks for it.
func PlotCurves(r *Result) (*plot.Plot, error) {
	opts := []plotting.Option{plotting.WithCensorMarks()}
	if r.Config.Plot.Weighted {
		opts = append(opts, plotting.WithWeightCol(data.ColWeight))
	}
	p, err := plotting.PlotKaplanMeier(r.Cohort, opts...)
	if err != nil {
		return nil, fmt.Errorf("kaplan-meier plot: %w", err)
	}
	return p, nil
}
