package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ukenergy/energyflow/internal/chart"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <chart>",
	Short: "Write a chart definition as YAML, as a starting point for a custom chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ResolveChart(args[0], chartDir())
		if err != nil {
			return err
		}
		data, err := chart.Marshal(c)
		if err != nil {
			return err
		}
		if exportOutput == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportOutput, err)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "File to write instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
