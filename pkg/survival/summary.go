package survival

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// FormatSummary renders the coefficient table of m followed by the model
// fit statistics.
func FormatSummary(m *CoxModel) string {
	level := strconv.FormatFloat(100*(1-m.Alpha), 'g', -1, 64)
	headers := []string{
		"covariate", "coef", "exp(coef)", "se(coef)",
		"coef lower " + level + "%", "coef upper " + level + "%",
		"exp(coef) lower " + level + "%", "exp(coef) upper " + level + "%",
		"z", "p", "-log2(p)",
	}
	rows := make([][]string, 0, len(m.Params))
	for _, r := range m.Summary() {
		rows = append(rows, []string{
			r.Covariate,
			num(r.Coef), num(r.HR), num(r.SE),
			num(r.Lower), num(r.Upper),
			num(r.HRLower), num(r.HRUpper),
			num(r.Z), pval(r.P), num(r.Log2P),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	variance := "model-based"
	if m.Robust {
		variance = "robust (sandwich)"
	}
	stat, df, p := m.LikelihoodRatioTest()

	var b strings.Builder
	fmt.Fprintf(&b, "model: weighted Cox proportional hazards (ties=%s, variance=%s)\n", m.Ties, variance)
	fmt.Fprintf(&b, "observations: %d, events: %d (weighted %.2f)\n", m.NumObs, m.NumEvents, m.WeightedEvents)
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "concordance: %.3f\n", m.Concordance)
	fmt.Fprintf(&b, "partial log-likelihood: %.3f\n", m.LogLikelihood)
	fmt.Fprintf(&b, "log-likelihood ratio test: %.2f on %d df, p=%s\n", stat, df, pval(p))
	return b.String()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func pval(p float64) string {
	if p < 0.005 {
		return "<0.005"
	}
	return strconv.FormatFloat(p, 'f', 3, 64)
}
