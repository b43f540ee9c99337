package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ukenergy/energyflow/internal/render"
)

var (
	renderAll    bool
	renderOutDir string
	renderOutput string
	renderDPI    int
	renderFormat string
	renderStrict bool
	renderShow   bool
)

var renderCmd = &cobra.Command{
	Use:   "render [chart...]",
	Short: "Render charts to PNG or SVG",
	Long: "Renders each chart to its output file. Charts are built-in names, chart files, " +
		"names in the chart directory, or unique prefixes of built-in names.",
	RunE: func(cmd *cobra.Command, args []string) error {
		charts, err := resolveCharts(args, renderAll)
		if err != nil {
			return err
		}
		if renderOutput != "" && len(charts) != 1 {
			return fmt.Errorf("--output needs exactly one chart, got %d", len(charts))
		}

		opts := renderOptions{
			OutDir:  renderOutDir,
			Output:  renderOutput,
			DPI:     renderDPI,
			Strict:  renderStrict,
			Epsilon: cfg.BalanceEpsilon,
		}
		if opts.OutDir == "" {
			opts.OutDir = cfg.OutputDir
		}
		if opts.DPI == 0 {
			opts.DPI = cfg.DPI
		}
		if f := firstNonEmpty(renderFormat, cfg.Format); f != "" {
			if opts.Format, err = render.ParseFormat(f); err != nil {
				return err
			}
		}

		fonts := render.NewFonts(cfg.FontPath, cfg.FontDirs, logger)
		defer fonts.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, c := range charts {
			path, err := renderChart(c, opts, fonts, logger)
			if err != nil {
				failed++
				color.New(color.FgRed).Fprintf(out, "  ✗ %s: %v\n", c.Name, err)
				continue
			}
			color.New(color.FgGreen).Fprintf(out, "  ✓ %s -> %s\n", c.Name, path)
			if renderShow {
				if err := openViewer(path); err != nil {
					logger.Warn("cannot open viewer", "path", path, "error", err)
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d chart(s) failed to render", failed, len(charts))
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().BoolVar(&renderAll, "all", false, "Render every built-in chart")
	renderCmd.Flags().StringVar(&renderOutDir, "out-dir", "", "Directory for output files (default ENERGYFLOW_OUTPUT_DIR or .)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file for a single chart")
	renderCmd.Flags().IntVar(&renderDPI, "dpi", 0, "Override the chart DPI")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "Output format: png or svg (default from the file extension)")
	renderCmd.Flags().BoolVar(&renderStrict, "strict", false, "Treat validation warnings as errors")
	renderCmd.Flags().BoolVar(&renderShow, "show", false, "Open each written file in the system viewer")
	rootCmd.AddCommand(renderCmd)
}

// openViewer hands path to the platform's default application
func openViewer(path string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", path)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		c = exec.Command("xdg-open", path)
	}
	if err := c.Start(); err != nil {
		return err
	}
	go func() { _ = c.Wait() }()
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
