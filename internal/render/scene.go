// Package render draws a finished Sankey layout as a PNG raster or an SVG
// document. Both outputs share one scene description and one viewport so the
// two formats place every patch and label identically.
package render

import (
	"fmt"
	"image/color"
	"math"

	"ukenergy/energyflow/internal/sankey"
)

// Subplot box as fractions of the figure, origin bottom-left
const (
	axesLeft   = 0.125
	axesRight  = 0.9
	axesBottom = 0.11
	axesTop    = 0.88

	titlePad    = 6.0 // points above the axes box
	titleScale  = 1.2
	lineSpacing = 1.2
)

// Figure describes the drawing surface
type Figure struct {
	Width       float64 // inches
	Height      float64 // inches
	DPI         float64
	Title       string
	FontFamily  string
	FontSize    float64 // points
	Transparent bool
	Background  string // colour; empty means white
}

// Annotation is free text at diagram coordinates
type Annotation struct {
	Pos        sankey.Point
	Text       string
	HAlign     string // left, center (default), right
	VAlign     string // top, center, bottom, baseline (default, first line)
	FontFamily string // empty uses the figure font
	FontSize   float64
}

// Scene is everything one image shows
type Scene struct {
	Figure      Figure
	Layout      *sankey.Layout
	Annotations []Annotation
}

func (s Scene) check() error {
	f := s.Figure
	if f.Width <= 0 || f.Height <= 0 || math.IsNaN(f.Width) || math.IsNaN(f.Height) {
		return fmt.Errorf("figure size %gx%g must be positive", f.Width, f.Height)
	}
	if f.DPI <= 0 {
		return fmt.Errorf("figure dpi %g must be positive", f.DPI)
	}
	if f.FontSize <= 0 {
		return fmt.Errorf("font size %g must be positive", f.FontSize)
	}
	if s.Layout == nil {
		return fmt.Errorf("scene has no layout")
	}
	return nil
}

func (f Figure) background() (color.RGBA, error) {
	if f.Transparent {
		return color.RGBA{}, nil
	}
	if f.Background == "" {
		return color.RGBA{0xff, 0xff, 0xff, 0xff}, nil
	}
	return sankey.ParseColor(f.Background)
}

// annotationVAlign anchors free text on its first baseline. Stage and flow
// labels stay vertically centred.
const annotationVAlign = "baseline"

// item is one piece of text positioned in data coordinates
type item struct {
	pos    sankey.Point
	text   string
	ha, va string
	family string
	size   float64
}

// texts lists every text item in drawing order: patch labels, flow labels,
// then annotations
func (s Scene) texts() []item {
	var out []item
	fam, size := s.Figure.FontFamily, s.Figure.FontSize
	for _, st := range s.Layout.Stages {
		out = append(out, item{pos: st.PatchLabel.Pos, text: st.PatchLabel.Text, family: fam, size: size})
	}
	for _, st := range s.Layout.Stages {
		for _, l := range st.Labels {
			out = append(out, item{pos: l.Pos, text: l.Text, family: fam, size: size})
		}
	}
	for _, a := range s.Annotations {
		it := item{pos: a.Pos, text: a.Text, ha: a.HAlign, va: a.VAlign, family: a.FontFamily, size: a.FontSize}
		if it.va == "" {
			it.va = annotationVAlign
		}
		if it.family == "" {
			it.family = fam
		}
		if it.size <= 0 {
			it.size = size
		}
		out = append(out, it)
	}
	return out
}
