package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ukenergy/energyflow/internal/chart"
)

var (
	validateAll     bool
	validateEpsilon float64
)

var validateCmd = &cobra.Command{
	Use:   "validate [chart...]",
	Short: "Check chart definitions for balance and connection errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		charts, err := resolveCharts(args, validateAll)
		if err != nil {
			return err
		}
		eps := validateEpsilon
		if eps <= 0 {
			eps = cfg.BalanceEpsilon
		}

		failed := 0
		for _, c := range charts {
			if !reportChart(cmd.OutOrStdout(), c, eps) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d chart(s) failed validation", failed, len(charts))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateAll, "all", false, "Validate every built-in chart")
	validateCmd.Flags().Float64Var(&validateEpsilon, "epsilon", 0, "Stage balance tolerance (default ENERGYFLOW_BALANCE_EPSILON or 1e-3)")
	rootCmd.AddCommand(validateCmd)
}

// reportChart prints one chart's findings and reports whether it is free of errors.
// A chart that passes the checks is also laid out so engine errors surface here.
func reportChart(w io.Writer, c *chart.Chart, epsilon float64) bool {
	issues := chart.Check(c, epsilon)
	if !issues.HasErrors() {
		if _, err := c.LayoutAfterCheck(logger); err != nil {
			issues = append(issues, chart.Issue{Severity: chart.SeverityError, Stage: -1, Message: err.Error()})
		}
	}

	color.New(color.Bold).Fprintf(w, "%s\n", c.Name)
	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintln(w, "  ok")
		return true
	}
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)
	for _, i := range issues {
		p := warn
		if i.Severity == chart.SeverityError {
			p = bad
		}
		p.Fprintf(w, "  %s\n", i.Error())
	}
	return !issues.HasErrors()
}
