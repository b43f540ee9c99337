// Package chart holds energy-flow chart definitions: the hand-transcribed
// flow data, figure styling and output target for one Sankey diagram.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"ukenergy/energyflow/internal/sankey"
)

// Chart is one diagram definition
type Chart struct {
	Name        string       `yaml:"name" json:"name" validate:"required,chart_name"`
	Title       string       `yaml:"title" json:"title"`
	Source      string       `yaml:"source,omitempty" json:"source,omitempty"`
	Output      string       `yaml:"output" json:"output" validate:"required"`
	Figure      Figure       `yaml:"figure" json:"figure"`
	Sankey      Params       `yaml:"sankey" json:"sankey"`
	Stages      []Stage      `yaml:"stages" json:"stages" validate:"required,min=1,dive"`
	Annotations []Annotation `yaml:"annotations,omitempty" json:"annotations,omitempty" validate:"dive"`
}

// Figure is the rendering surface
type Figure struct {
	Width       float64 `yaml:"width" json:"width" validate:"gt=0,lte=100"`   // inches
	Height      float64 `yaml:"height" json:"height" validate:"gt=0,lte=100"` // inches
	DPI         int     `yaml:"dpi" json:"dpi" validate:"gte=10,lte=2400"`
	FontFamily  string  `yaml:"font_family,omitempty" json:"font_family,omitempty"`
	FontSize    float64 `yaml:"font_size" json:"font_size" validate:"gt=0,lte=200"` // points
	Transparent bool    `yaml:"transparent,omitempty" json:"transparent,omitempty"`
	Background  string  `yaml:"background,omitempty" json:"background,omitempty" validate:"omitempty,sankey_color"`
}

// Params overrides the diagram drawing parameters; unset fields keep the defaults
type Params struct {
	Scale     *float64 `yaml:"scale,omitempty" json:"scale,omitempty" validate:"omitempty,gt=0"`
	Unit      *string  `yaml:"unit,omitempty" json:"unit,omitempty"`
	Format    string   `yaml:"format,omitempty" json:"format,omitempty"`
	Gap       *float64 `yaml:"gap,omitempty" json:"gap,omitempty" validate:"omitempty,gte=0"`
	Radius    *float64 `yaml:"radius,omitempty" json:"radius,omitempty" validate:"omitempty,gte=0"`
	Shoulder  *float64 `yaml:"shoulder,omitempty" json:"shoulder,omitempty" validate:"omitempty,gte=0"`
	Offset    *float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	HeadAngle *float64 `yaml:"head_angle,omitempty" json:"head_angle,omitempty" validate:"omitempty,gte=0,lte=180"`
	Margin    *float64 `yaml:"margin,omitempty" json:"margin,omitempty" validate:"omitempty,gte=0"`
	Tolerance *float64 `yaml:"tolerance,omitempty" json:"tolerance,omitempty" validate:"omitempty,gte=0"`
}

// Stage is one group of flows around a trunk
type Stage struct {
	PatchLabel   string    `yaml:"patch_label,omitempty" json:"patch_label,omitempty"`
	Flows        []float64 `yaml:"flows" json:"flows" validate:"required,min=1"`
	Labels       []string  `yaml:"labels,omitempty" json:"labels,omitempty"`
	Orientations []int     `yaml:"orientations,omitempty" json:"orientations,omitempty" validate:"omitempty,dive,oneof=-1 0 1"`
	FaceColor    string    `yaml:"facecolor,omitempty" json:"facecolor,omitempty" validate:"omitempty,sankey_color"`
	TrunkLength  *float64  `yaml:"trunk_length,omitempty" json:"trunk_length,omitempty" validate:"omitempty,gte=0"`
	PathLengths  []float64 `yaml:"path_lengths,omitempty" json:"path_lengths,omitempty" validate:"omitempty,dive,gte=0"`
	Prior        *int      `yaml:"prior,omitempty" json:"prior,omitempty" validate:"omitempty,gte=0"`
	Connect      []int     `yaml:"connect,omitempty" json:"connect,omitempty" validate:"omitempty,len=2,dive,gte=0"`
	Rotation     float64   `yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

// Annotation is free text placed at diagram coordinates
type Annotation struct {
	Text       string  `yaml:"text" json:"text" validate:"required"`
	X          float64 `yaml:"x" json:"x"`
	Y          float64 `yaml:"y" json:"y"`
	HAlign     string  `yaml:"ha,omitempty" json:"ha,omitempty" validate:"omitempty,oneof=left center right"`
	VAlign     string  `yaml:"va,omitempty" json:"va,omitempty" validate:"omitempty,oneof=top center bottom baseline"`
	FontFamily string  `yaml:"font_family,omitempty" json:"font_family,omitempty"`
	FontSize   float64 `yaml:"font_size,omitempty" json:"font_size,omitempty" validate:"gte=0"`
}

// ConnectPair returns the (prior flow, own flow) connection, defaulting to (0, 0)
func (s Stage) ConnectPair() [2]int {
	if len(s.Connect) != 2 {
		return [2]int{}
	}
	return [2]int{s.Connect[0], s.Connect[1]}
}

// Trunk returns the trunk length, 1.0 when unset
func (s Stage) Trunk() float64 {
	if s.TrunkLength == nil {
		return 1.0
	}
	return *s.TrunkLength
}

// Spec converts the stage into engine input
func (s Stage) Spec() sankey.StageSpec {
	return sankey.StageSpec{
		PatchLabel:   s.PatchLabel,
		Flows:        s.Flows,
		Orientations: s.Orientations,
		Labels:       s.Labels,
		TrunkLength:  s.Trunk(),
		PathLengths:  s.PathLengths,
		Prior:        s.Prior,
		Connect:      s.ConnectPair(),
		Rotation:     s.Rotation,
		FaceColor:    s.FaceColor,
	}
}

// SankeyOptions merges the chart's overrides onto the engine defaults
func (c *Chart) SankeyOptions(log *slog.Logger) sankey.Options {
	opts := sankey.DefaultOptions()
	p := c.Sankey
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&opts.Scale, p.Scale)
	set(&opts.Gap, p.Gap)
	set(&opts.Radius, p.Radius)
	set(&opts.Shoulder, p.Shoulder)
	set(&opts.Offset, p.Offset)
	set(&opts.HeadAngle, p.HeadAngle)
	set(&opts.Margin, p.Margin)
	set(&opts.Tolerance, p.Tolerance)
	if p.Format != "" {
		opts.Format = p.Format
	}
	opts.Unit = p.Unit
	opts.Logger = log
	return opts
}

// Layout runs every stage through the engine and returns the finished diagram
func (c *Chart) Layout(log *slog.Logger) (*sankey.Layout, error) {
	return c.layout(c.SankeyOptions(log))
}

// LayoutAfterCheck is Layout for callers that have already reported Check's
// findings. The engine's own balance warning drops to debug level.
func (c *Chart) LayoutAfterCheck(log *slog.Logger) (*sankey.Layout, error) {
	opts := c.SankeyOptions(log)
	opts.BalanceChecked = true
	return c.layout(opts)
}

func (c *Chart) layout(opts sankey.Options) (*sankey.Layout, error) {
	d, err := sankey.New(opts)
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", c.Name, err)
	}
	for i, s := range c.Stages {
		if _, err := d.Add(s.Spec()); err != nil {
			return nil, fmt.Errorf("chart %s: adding stage %d: %w", c.Name, i, err)
		}
	}
	return d.Finish(), nil
}

// Tolerance returns the engine tolerance in effect for this chart
func (c *Chart) Tolerance() float64 {
	if c.Sankey.Tolerance != nil {
		return *c.Sankey.Tolerance
	}
	return sankey.DefaultOptions().Tolerance
}

// Parse decodes a YAML (or JSON) chart definition and fills figure defaults
func Parse(data []byte) (*Chart, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Chart
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty chart definition")
		}
		return nil, fmt.Errorf("decoding chart: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// Load reads and parses a chart file
func Load(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chart: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal encodes the chart back to YAML
func Marshal(c *Chart) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding chart: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Chart) applyDefaults() {
	if c.Figure.Width == 0 {
		c.Figure.Width = 15
	}
	if c.Figure.Height == 0 {
		c.Figure.Height = 7
	}
	if c.Figure.DPI == 0 {
		c.Figure.DPI = 800
	}
	if c.Figure.FontSize == 0 {
		c.Figure.FontSize = 10.5
	}
	if c.Output == "" && c.Name != "" {
		c.Output = c.Name + ".png"
	}
}
