package cmd

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukenergy/energyflow/internal/chart"
	"ukenergy/energyflow/internal/render"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietFonts() *render.Fonts { return render.NewFonts("", nil, quietLogger()) }

// runCLI executes the command tree with fresh flag values
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	renderAll, renderOutDir, renderOutput, renderDPI = false, "", "", 0
	renderFormat, renderStrict, renderShow = "", false, false
	validateAll, validateEpsilon = false, 0
	analyzeJSON, analyzeFrom, analyzeTopN, analyzeHubThreshold, analyzeEpsilon = false, -1, 10, 1, 0
	exportOutput = ""
	envFile, logLevel = filepath.Join(t.TempDir(), "none.env"), "error"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeChart(t *testing.T, dir, name string) string {
	t.Helper()
	src, err := chart.BuiltinSource("electricity-2013")
	require.NoError(t, err)
	src = bytes.Replace(src, []byte("name: electricity-2013"), []byte("name: "+name), 1)
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, src, 0o644))
	return path
}

func TestResolveChart(t *testing.T) {
	dir := t.TempDir()
	path := writeChart(t, dir, "custom")

	c, err := ResolveChart("electricity-2022", dir)
	require.NoError(t, err)
	assert.Equal(t, "electricity-2022", c.Name)

	c, err = ResolveChart(path, "")
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Name)

	c, err = ResolveChart("custom", dir)
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Name)

	c, err = ResolveChart("petro", dir)
	require.NoError(t, err)
	assert.Equal(t, "petroleum-2023", c.Name)

	_, err = ResolveChart("electricity", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
	assert.Contains(t, err.Error(), "electricity-2013")

	_, err = ResolveChart("coal", dir)
	assert.ErrorContains(t, err, "not found")
	assert.ErrorContains(t, err, "natural-gas-2023", "the message lists the built-in charts")
}

func TestResolveCharts(t *testing.T) {
	charts, err := resolveCharts(nil, true)
	require.NoError(t, err)
	assert.Len(t, charts, 5)

	_, err = resolveCharts([]string{"petroleum-2023"}, true)
	assert.Error(t, err)

	_, err = resolveCharts(nil, false)
	assert.Error(t, err)
}

func TestRenderChart_WritesOriginalFileName(t *testing.T) {
	c, ok := chart.Lookup("electricity-2023")
	require.True(t, ok)
	dir := t.TempDir()

	path, err := renderChart(c, renderOptions{OutDir: dir, DPI: 10, Epsilon: 1e-3}, quietFonts(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "electricity-sankey-2023.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 150, img.Width)
	assert.Equal(t, 70, img.Height)
}

func TestRenderChart_FormatSwapsExtension(t *testing.T) {
	c, ok := chart.Lookup("petroleum-2023")
	require.True(t, ok)
	dir := t.TempDir()

	path, err := renderChart(c, renderOptions{OutDir: dir, Format: render.FormatSVG, Epsilon: 1e-3}, quietFonts(), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sankey-petroleum-2023.svg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("<svg ")))
	assert.Equal(t, 8, bytes.Count(data, []byte("<path ")), "one outline per stage")
}

func TestRenderChart_StrictModeRejectsWarnings(t *testing.T) {
	c, ok := chart.Lookup("natural-gas-2023")
	require.True(t, ok)
	dir := t.TempDir()

	_, err := renderChart(c, renderOptions{OutDir: dir, DPI: 10, Strict: true, Epsilon: 1e-3}, quietFonts(), quietLogger())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "natural-gas-sankey-2023.png"))

	_, err = renderChart(c, renderOptions{OutDir: dir, DPI: 10, Epsilon: 1e-3}, quietFonts(), quietLogger())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "natural-gas-sankey-2023.png"))
}

func TestRenderChart_ImbalanceWarnedOnce(t *testing.T) {
	c, ok := chart.Lookup("natural-gas-2023")
	require.True(t, ok)
	var logs bytes.Buffer

	_, err := renderChart(c, renderOptions{OutDir: t.TempDir(), DPI: 10, Epsilon: 1e-3}, quietFonts(),
		slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(logs.String(), "level=WARN"), logs.String())
}

func TestRenderChart_InvalidChartWritesNothing(t *testing.T) {
	c, ok := chart.Lookup("electricity-2013")
	require.True(t, ok)
	c.Stages[1].Flows[1] *= 2 // no longer matches the flow it connects to
	dir := t.TempDir()

	_, err := renderChart(c, renderOptions{OutDir: dir, DPI: 10, Epsilon: 1e-3}, quietFonts(), quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
	assert.NoFileExists(t, filepath.Join(dir, c.Output))
}

func TestOutputPath(t *testing.T) {
	c := &chart.Chart{Output: "a.png"}
	p, f := outputPath(c, renderOptions{OutDir: "out"})
	assert.Equal(t, filepath.Join("out", "a.png"), p)
	assert.Equal(t, render.Format(""), f)

	p, f = outputPath(c, renderOptions{OutDir: "out", Output: "x/custom.img", Format: render.FormatPNG})
	assert.Equal(t, "x/custom.img", p)
	assert.Equal(t, render.FormatPNG, f)
}

func TestCLI_RenderAll(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "render", "--all", "--out-dir", dir, "--dpi", "8")
	require.NoError(t, err, out)

	for _, name := range []string{
		"natural-gas-sankey-2023.png",
		"electricity-sankey-2013.png",
		"electricity-sankey-2022.png",
		"electricity-sankey-2023.png",
		"sankey-petroleum-2023.png",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Equal(t, 5, strings.Count(out, "✓"))
}

func TestCLI_RenderOutputNeedsOneChart(t *testing.T) {
	_, err := runCLI(t, "render", "--all", "--output", filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestCLI_List(t *testing.T) {
	out, err := runCLI(t, "list")
	require.NoError(t, err)
	for _, name := range chart.BuiltinNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "sankey-petroleum-2023.png")
}

func TestCLI_Validate(t *testing.T) {
	out, err := runCLI(t, "validate", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "natural-gas-2023")
	assert.Contains(t, out, "warning: stage 0 flows")
	assert.Contains(t, out, "ok")

	dir := t.TempDir()
	path := writeChart(t, dir, "broken")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bytes.Replace(data, []byte("prior: 0"), []byte("prior: 5"), 1), 0o644))

	out, err = runCLI(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "error: stage 1 prior")
}

func TestCLI_AnalyzeJSON(t *testing.T) {
	out, err := runCLI(t, "analyze", "petroleum-2023", "--json")
	require.NoError(t, err)

	var report struct {
		IntegrityScore float64 `json:"integrity_score"`
		Topology       struct {
			TotalStages int `json:"total_stages"`
			MaxDepth    int `json:"max_depth"`
		} `json:"topology"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 8, report.Topology.TotalStages)
	assert.Equal(t, 4, report.Topology.MaxDepth)
	assert.Greater(t, report.IntegrityScore, 0.0)
}

func TestCLI_AnalyzeFrom(t *testing.T) {
	out, err := runCLI(t, "analyze", "petroleum-2023", "--from", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Stages: 4")
	assert.Contains(t, out, "Chart Integrity")

	_, err = runCLI(t, "analyze", "petroleum-2023", "--from", "99")
	assert.Error(t, err)
}

func TestCLI_ExportThenRenderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gas.yaml")
	_, err := runCLI(t, "export", "natural-gas-2023", "-o", path)
	require.NoError(t, err)

	c, err := chart.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "natural-gas-2023", c.Name)

	out, err := runCLI(t, "render", path, "--out-dir", dir, "--dpi", "8", "--format", "svg")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(dir, "natural-gas-sankey-2023.svg"))
}
