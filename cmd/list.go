package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ukenergy/energyflow/internal/chart"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in charts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		for _, c := range chart.Builtin() {
			bold.Fprintf(out, "  %-18s", c.Name)
			fmt.Fprintf(out, " %-30s %d stages  %s\n", c.Output, len(c.Stages), c.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
