package render

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"ukenergy/energyflow/internal/sankey"
)

// svgDPI makes one SVG user unit one point
const svgDPI = 72

type svgDoc struct {
	Width, Height string
	Background    string
	BgOpacity     string
	Paths         []svgPath
	Texts         []svgText
}

type svgPath struct {
	D, Fill, Opacity string
}

type svgText struct {
	Family, Size, Anchor string
	Lines                []svgLine
}

type svgLine struct {
	X, Y, Text string
}

var svgTemplate = template.Must(template.New("svg").Parse(`<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="{{.Width}}pt" height="{{.Height}}pt" viewBox="0 0 {{.Width}} {{.Height}}">
{{- if .Background}}
  <rect width="{{.Width}}" height="{{.Height}}" fill="{{.Background}}"{{if .BgOpacity}} fill-opacity="{{.BgOpacity}}"{{end}}/>
{{- end}}
{{- range .Paths}}
  <path d="{{.D}}" fill="{{.Fill}}"{{if .Opacity}} fill-opacity="{{.Opacity}}"{{end}}/>
{{- end}}
{{- range .Texts}}
  <text font-family="{{.Family}}" font-size="{{.Size}}" text-anchor="{{.Anchor}}" fill="#000000">
  {{- range .Lines}}<tspan x="{{.X}}" y="{{.Y}}">{{.Text}}</tspan>{{end -}}
  </text>
{{- end}}
</svg>
`))

// SVG writes the scene as an SVG document measured in points
func SVG(w io.Writer, s Scene, fonts *Fonts) error {
	if err := s.check(); err != nil {
		return err
	}
	bg, err := s.Figure.background()
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}

	f := s.Figure
	vp := NewViewport(f.Width, f.Height, svgDPI, s.Layout.Min, s.Layout.Max)
	doc := svgDoc{
		Width:  num(f.Width * svgDPI),
		Height: num(f.Height * svgDPI),
	}
	if bg.A != 0 {
		doc.Background = sankey.Hex(bg)
		doc.BgOpacity = opacity(bg.A)
	}

	for _, st := range s.Layout.Stages {
		if len(st.Outline) == 0 || st.Fill.A == 0 {
			continue
		}
		doc.Paths = append(doc.Paths, svgPath{
			D:       pathData(vp, st.Outline),
			Fill:    sankey.Hex(st.Fill),
			Opacity: opacity(st.Fill.A),
		})
	}

	for _, it := range s.texts() {
		face, err := fonts.Face(it.family, it.size, svgDPI)
		if err != nil {
			return err
		}
		x, y := vp.ToPixel(it.pos)
		if t, ok := svgTextFor(layoutText(face, it.text, x, y, it.ha, it.va), it.family, it.size, it.ha); ok {
			doc.Texts = append(doc.Texts, t)
		}
	}
	if f.Title != "" {
		size := f.FontSize * titleScale
		face, err := fonts.Face(f.FontFamily, size, svgDPI)
		if err != nil {
			return err
		}
		x := (vp.Left + vp.Right) / 2
		y := vp.Top - titlePad
		if t, ok := svgTextFor(layoutText(face, f.Title, x, y, "center", "baseline"), f.FontFamily, size, "center"); ok {
			doc.Texts = append(doc.Texts, t)
		}
	}

	if err := svgTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("writing svg: %w", err)
	}
	return nil
}

// svgTextFor anchors each line at the edge named by ha so viewers using a
// different font still keep the alignment
func svgTextFor(lines []textLine, family string, size float64, ha string) (svgText, bool) {
	if len(lines) == 0 {
		return svgText{}, false
	}
	t := svgText{Family: cssFamily(family), Size: num(size), Anchor: "middle"}
	switch ha {
	case "left":
		t.Anchor = "start"
	case "right":
		t.Anchor = "end"
	}
	for _, l := range lines {
		x := l.X + l.Width/2
		switch ha {
		case "left":
			x = l.X
		case "right":
			x = l.X + l.Width
		}
		t.Lines = append(t.Lines, svgLine{X: num(x), Y: num(l.Y), Text: l.Text})
	}
	return t, true
}

func pathData(vp Viewport, p sankey.Path) string {
	var b strings.Builder
	pt := func(q sankey.Point) {
		x, y := vp.ToPixel(q)
		b.WriteString(num(x))
		b.WriteByte(',')
		b.WriteString(num(y))
	}
	for i, c := range p.Commands() {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Code {
		case sankey.MoveTo:
			b.WriteString("M")
			pt(c.Pts[0])
		case sankey.LineTo:
			b.WriteString("L")
			pt(c.Pts[0])
		case sankey.Curve4:
			b.WriteString("C")
			pt(c.Pts[0])
			b.WriteByte(' ')
			pt(c.Pts[1])
			b.WriteByte(' ')
			pt(c.Pts[2])
		case sankey.Close:
			b.WriteString("Z")
		}
	}
	return b.String()
}

func cssFamily(family string) string {
	if family == "" {
		return "sans-serif"
	}
	return family + ", sans-serif"
}

func opacity(a uint8) string {
	if a == 0xff {
		return ""
	}
	return num(float64(a) / 255)
}

// num formats a coordinate with fixed precision so output is stable
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
