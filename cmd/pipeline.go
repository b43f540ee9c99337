package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"ukenergy/energyflow/internal/chart"
	"ukenergy/energyflow/internal/render"
	"ukenergy/energyflow/internal/sankey"
)

// renderOptions are the per-run overrides applied to every chart
type renderOptions struct {
	OutDir  string
	Output  string        // explicit file, single chart only
	DPI     int           // 0 keeps the chart's DPI
	Format  render.Format // empty follows the file extension
	Strict  bool          // warnings fail the chart
	Epsilon float64
}

// renderChart checks, lays out and writes one chart, returning the file written
func renderChart(c *chart.Chart, opts renderOptions, fonts *render.Fonts, log *slog.Logger) (string, error) {
	log = log.With("chart", c.Name)

	issues := chart.Check(c, opts.Epsilon)
	for _, i := range issues {
		if i.Severity == chart.SeverityWarning {
			log.Warn(i.Message, "stage", i.Stage, "field", i.Field)
		}
	}
	if errs := issues.Errors(); len(errs) > 0 {
		return "", fmt.Errorf("chart %s is invalid: %w", c.Name, errs)
	}
	if opts.Strict && len(issues) > 0 {
		return "", fmt.Errorf("chart %s has %d warning(s) in strict mode: %w", c.Name, len(issues), issues)
	}

	layout, err := c.LayoutAfterCheck(log)
	if err != nil {
		return "", err
	}

	path, format := outputPath(c, opts)
	log.Debug("rendering", "path", path, "stages", len(layout.Stages))
	if err := render.WriteFile(path, format, sceneFor(c, layout, opts.DPI), fonts); err != nil {
		return "", fmt.Errorf("chart %s: %w", c.Name, err)
	}
	return path, nil
}

// outputPath picks the destination. A format override swaps the extension of
// the chart's own file name but leaves an explicit --output alone.
func outputPath(c *chart.Chart, opts renderOptions) (string, render.Format) {
	if opts.Output != "" {
		return opts.Output, opts.Format
	}
	name := c.Output
	if opts.Format != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "." + string(opts.Format)
	}
	return filepath.Join(opts.OutDir, name), opts.Format
}

func sceneFor(c *chart.Chart, layout *sankey.Layout, dpi int) render.Scene {
	f := c.Figure
	if dpi <= 0 {
		dpi = f.DPI
	}
	ann := make([]render.Annotation, len(c.Annotations))
	for i, a := range c.Annotations {
		ann[i] = render.Annotation{
			Pos:        sankey.Point{X: a.X, Y: a.Y},
			Text:       a.Text,
			HAlign:     a.HAlign,
			VAlign:     a.VAlign,
			FontFamily: a.FontFamily,
			FontSize:   a.FontSize,
		}
	}
	return render.Scene{
		Figure: render.Figure{
			Width:       f.Width,
			Height:      f.Height,
			DPI:         float64(dpi),
			Title:       c.Title,
			FontFamily:  f.FontFamily,
			FontSize:    f.FontSize,
			Transparent: f.Transparent,
			Background:  f.Background,
		},
		Layout:      layout,
		Annotations: ann,
	}
}
