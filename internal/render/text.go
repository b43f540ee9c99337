package render

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// textLine is one line of text with its left edge and baseline in pixels
type textLine struct {
	X, Y  float64
	Width float64
	Text  string
}

// layoutText splits text into lines and positions them around (x, y).
// ha picks which edge of the block sits on x and also aligns the lines
// within it; va picks which edge sits on y.
func layoutText(face font.Face, text string, x, y float64, ha, va string) []textLine {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	m := face.Metrics()
	ascent := fixedFloat(m.Ascent)
	descent := fixedFloat(m.Descent)
	step := lineSpacing * (ascent + descent)

	lines := strings.Split(text, "\n")
	height := ascent + descent + float64(len(lines)-1)*step

	var top float64
	switch va {
	case "top":
		top = y
	case "bottom":
		top = y - height
	case "baseline":
		top = y - ascent
	default:
		top = y - height/2
	}

	out := make([]textLine, 0, len(lines))
	for i, l := range lines {
		w := fixedFloat(font.MeasureString(face, l))
		lx := x - w/2
		switch ha {
		case "left":
			lx = x
		case "right":
			lx = x - w
		}
		out = append(out, textLine{X: lx, Y: top + ascent + float64(i)*step, Width: w, Text: l})
	}
	return out
}

func fixedFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }
