package sankey

import "math"

// Point is a position in diagram (data) units
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// rotate turns p counter-clockwise about the origin by quarter turns
func (p Point) rotate(quarters int) Point {
	switch ((quarters % 4) + 4) % 4 {
	case 1:
		return Point{-p.Y, p.X}
	case 2:
		return Point{-p.X, -p.Y}
	case 3:
		return Point{p.Y, -p.X}
	default:
		return p
	}
}

// Code tags a path vertex with the drawing action that reaches it
type Code int

const (
	MoveTo Code = iota
	LineTo
	Curve4 // one of three consecutive cubic Bézier vertices
	Close
)

// Vertex is a single coded path vertex
type Vertex struct {
	Code Code
	P    Point
}

// Path is an outline built from coded vertices. Cubic segments occupy three
// vertices: two control points and the end point. Only the first of the three
// is guaranteed to carry Curve4, which lets partial paths be reversed cheaply.
type Path []Vertex

// Command is a normalised drawing instruction
type Command struct {
	Code Code
	Pts  []Point // 1 point for MoveTo/LineTo, 3 for Curve4, 0 for Close
}

// Commands expands the vertex list into drawing instructions, consuming cubic
// vertices in triples regardless of the codes carried by the 2nd and 3rd vertex.
func (p Path) Commands() []Command {
	cmds := make([]Command, 0, len(p))
	for i := 0; i < len(p); {
		v := p[i]
		switch v.Code {
		case MoveTo, LineTo:
			cmds = append(cmds, Command{Code: v.Code, Pts: []Point{v.P}})
			i++
		case Curve4:
			if i+2 >= len(p) {
				// truncated curve, degrade to a line
				cmds = append(cmds, Command{Code: LineTo, Pts: []Point{p[len(p)-1].P}})
				i = len(p)
				continue
			}
			cmds = append(cmds, Command{Code: Curve4, Pts: []Point{v.P, p[i+1].P, p[i+2].P}})
			i += 3
		case Close:
			cmds = append(cmds, Command{Code: Close})
			i++
		}
	}
	return cmds
}

// Bounds returns the min and max corners of all vertices
func (p Path) Bounds() (min, max Point) {
	min = Point{math.Inf(1), math.Inf(1)}
	max = Point{math.Inf(-1), math.Inf(-1)}
	for _, v := range p {
		min.X = math.Min(min.X, v.P.X)
		min.Y = math.Min(min.Y, v.P.Y)
		max.X = math.Max(max.X, v.P.X)
		max.Y = math.Max(max.Y, v.P.Y)
	}
	return min, max
}

func (p Path) last() Point { return p[len(p)-1].P }

func (p Path) transform(quarters int, offset Point) Path {
	out := make(Path, len(p))
	for i, v := range p {
		out[i] = Vertex{Code: v.Code, P: v.P.rotate(quarters).Add(offset)}
	}
	return out
}

// reversed walks the path backwards, shifting codes by one so every vertex is
// reached by the action that originally left it.
func (p Path) reversed() Path {
	out := make(Path, 0, len(p))
	next := LineTo
	for i := len(p) - 1; i >= 0; i-- {
		out = append(out, Vertex{Code: next, P: p[i].P})
		next = p[i].Code
	}
	return out
}

// unitArc is a cubic approximation of the 90° arc from (1,0) to (0,1)
var unitArc = [7]Point{
	{1, 0},
	{1, 0.265114773},
	{0.894571235, 0.519642327},
	{0.707106781, 0.707106781},
	{0.519642327, 0.894571235},
	{0.265114773, 1},
	{0, 1},
}

// arc returns a quarter circle in the given quadrant (0 = lower right,
// counting counter-clockwise) around center.
func arc(quadrant int, cw bool, radius float64, center Point) Path {
	out := make(Path, len(unitArc))
	if quadrant > 1 {
		radius = -radius
	}
	for i, u := range unitArc {
		var v Point
		switch {
		case (quadrant == 0 || quadrant == 2) && cw:
			v = u
		case quadrant == 0 || quadrant == 2:
			v = Point{u.Y, u.X}
		case cw:
			v = Point{-u.Y, u.X}
		default:
			v = Point{-u.X, u.Y}
		}
		code := Curve4
		if i == 0 {
			code = LineTo
		}
		out[i] = Vertex{Code: code, P: Point{radius*v.X + center.X, radius*v.Y + center.Y}}
	}
	return out
}
