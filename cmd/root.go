package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ukenergy/energyflow/internal/chart"
	"ukenergy/energyflow/internal/config"
)

var (
	envFile  string
	logLevel string

	cfg    *config.Config
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "energyflow",
	Short:         "Render UK energy-flow Sankey diagrams",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
			if err := c.Validate(); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
		slog.SetDefault(logger)
		cfg = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load settings from")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides ENERGYFLOW_LOG_LEVEL)")
}

// ResolveChart finds a chart using priority: built-in name > file path >
// <chartDir>/<ref>.yaml > unique built-in name prefix
func ResolveChart(ref, chartDir string) (*chart.Chart, error) {
	// 1. Built-in name
	if c, ok := chart.Lookup(ref); ok {
		return c, nil
	}

	// 2. File path
	if isFile(ref) {
		return chart.Load(ref)
	}

	// 3. Chart directory
	if chartDir != "" {
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(chartDir, ref+ext)
			if isFile(candidate) {
				return chart.Load(candidate)
			}
		}
	}

	// 4. Built-in prefix
	matches := chart.LookupPrefix(ref)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return nil, fmt.Errorf("chart not found: %s (built-in charts: %s)", ref, strings.Join(chart.BuiltinNames(), ", "))
	default:
		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = fmt.Sprintf("  %s  %s", m.Name, m.Title)
		}
		return nil, fmt.Errorf("ambiguous chart '%s'. %d matches:\n%s\nUse a full chart name instead.",
			ref, len(matches), strings.Join(lines, "\n"))
	}
}

// resolveCharts expands the command arguments, or every built-in chart with --all
func resolveCharts(args []string, all bool) ([]*chart.Chart, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with chart arguments")
		}
		return chart.Builtin(), nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no charts given (name one or more, or use --all)")
	}
	charts := make([]*chart.Chart, 0, len(args))
	for _, ref := range args {
		c, err := ResolveChart(ref, chartDir())
		if err != nil {
			return nil, err
		}
		charts = append(charts, c)
	}
	return charts, nil
}

func chartDir() string {
	if cfg == nil {
		return "charts"
	}
	return cfg.ChartDir
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
