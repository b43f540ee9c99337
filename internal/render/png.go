package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"ukenergy/energyflow/internal/sankey"
)

var textColor = color.RGBA{0, 0, 0, 0xff}

// Raster draws the scene into a new image
func Raster(s Scene, fonts *Fonts) (*image.RGBA, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	bg, err := s.Figure.background()
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}

	f := s.Figure
	vp := NewViewport(f.Width, f.Height, f.DPI, s.Layout.Min, s.Layout.Max)
	img := image.NewRGBA(image.Rect(0, 0, vp.W, vp.H))
	if bg.A != 0 {
		draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	for _, st := range s.Layout.Stages {
		fillPath(img, vp, st.Outline, st.Fill)
	}

	ink := image.NewUniform(textColor)
	for _, it := range s.texts() {
		face, err := fonts.Face(it.family, it.size, f.DPI)
		if err != nil {
			return nil, err
		}
		x, y := vp.ToPixel(it.pos)
		drawLines(img, ink, face, layoutText(face, it.text, x, y, it.ha, it.va))
	}

	if f.Title != "" {
		face, err := fonts.Face(f.FontFamily, f.FontSize*titleScale, f.DPI)
		if err != nil {
			return nil, err
		}
		x := (vp.Left + vp.Right) / 2
		y := vp.Top - vp.points(titlePad)
		drawLines(img, ink, face, layoutText(face, f.Title, x, y, "center", "baseline"))
	}
	return img, nil
}

// PNG encodes the scene as a PNG image
func PNG(w io.Writer, s Scene, fonts *Fonts) error {
	img, err := Raster(s, fonts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// fillPath rasterises one closed outline, curves included. The rasteriser
// only covers the outline's bounding box.
func fillPath(img *image.RGBA, vp Viewport, p sankey.Path, fill color.RGBA) {
	if len(p) == 0 || fill.A == 0 {
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range p {
		x, y := vp.ToPixel(v.P)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	r := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1).
		Intersect(img.Bounds())
	if r.Empty() {
		return
	}

	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	at := func(pt sankey.Point) (float32, float32) {
		x, y := vp.ToPixel(pt)
		return float32(x - ox), float32(y - oy)
	}

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	for _, c := range p.Commands() {
		switch c.Code {
		case sankey.MoveTo:
			z.MoveTo(at(c.Pts[0]))
		case sankey.LineTo:
			z.LineTo(at(c.Pts[0]))
		case sankey.Curve4:
			bx, by := at(c.Pts[0])
			cx, cy := at(c.Pts[1])
			dx, dy := at(c.Pts[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		case sankey.Close:
			z.ClosePath()
		}
	}
	z.Draw(img, r, image.NewUniform(fill), image.Point{})
}

func drawLines(dst draw.Image, ink image.Image, face font.Face, lines []textLine) {
	d := &font.Drawer{Dst: dst, Src: ink, Face: face}
	for _, l := range lines {
		d.Dot = fixed.Point26_6{X: toFixed(l.X), Y: toFixed(l.Y)}
		d.DrawString(l.Text)
	}
}
