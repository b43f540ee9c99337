package sankey

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath_ReversedShiftsCodes(t *testing.T) {
	p := Path{
		{LineTo, Point{0, 0}},
		{Curve4, Point{1, 0}},
		{Curve4, Point{2, 0}},
		{Curve4, Point{3, 0}},
	}
	r := p.reversed()
	require.Len(t, r, 4)
	assert.Equal(t, Vertex{LineTo, Point{3, 0}}, r[0])
	assert.Equal(t, Vertex{Curve4, Point{2, 0}}, r[1])
	assert.Equal(t, Vertex{Curve4, Point{1, 0}}, r[2])
	assert.Equal(t, Vertex{Curve4, Point{0, 0}}, r[3])

	cmds := r.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, Curve4, cmds[1].Code)
	assert.Equal(t, []Point{{2, 0}, {1, 0}, {0, 0}}, cmds[1].Pts)
}

func TestPath_CommandsConsumeCubicTriples(t *testing.T) {
	// the trunk edge ends its curve on a vertex coded as a line
	p := Path{
		{MoveTo, Point{0, 0}},
		{Curve4, Point{1, 1}},
		{Curve4, Point{2, 1}},
		{LineTo, Point{3, 0}},
		{LineTo, Point{4, 0}},
		{Close, Point{0, 0}},
	}
	cmds := p.Commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, MoveTo, cmds[0].Code)
	assert.Equal(t, Curve4, cmds[1].Code)
	assert.Equal(t, Point{3, 0}, cmds[1].Pts[2])
	assert.Equal(t, LineTo, cmds[2].Code)
	assert.Equal(t, Close, cmds[3].Code)
}

func TestArc_Quadrants(t *testing.T) {
	cases := []struct {
		quadrant    int
		cw          bool
		first, last Point
	}{
		{0, true, Point{1, 0}, Point{0, 1}},
		{0, false, Point{0, 1}, Point{1, 0}},
		{1, true, Point{0, 1}, Point{-1, 0}},
		{1, false, Point{-1, 0}, Point{0, 1}},
		{2, true, Point{-1, 0}, Point{0, -1}},
		{3, true, Point{0, -1}, Point{1, 0}},
	}
	for _, tc := range cases {
		a := arc(tc.quadrant, tc.cw, 1, Point{})
		require.Len(t, a, 7)
		assert.Equal(t, LineTo, a[0].Code)
		assert.InDelta(t, tc.first.X, a[0].P.X, 1e-9, "quadrant %d cw=%v", tc.quadrant, tc.cw)
		assert.InDelta(t, tc.first.Y, a[0].P.Y, 1e-9, "quadrant %d cw=%v", tc.quadrant, tc.cw)
		assert.InDelta(t, tc.last.X, a[6].P.X, 1e-9, "quadrant %d cw=%v", tc.quadrant, tc.cw)
		assert.InDelta(t, tc.last.Y, a[6].P.Y, 1e-9, "quadrant %d cw=%v", tc.quadrant, tc.cw)
	}
}

func TestPoint_Rotate(t *testing.T) {
	p := Point{1, 2}
	assert.Equal(t, Point{-2, 1}, p.rotate(1))
	assert.Equal(t, Point{-1, -2}, p.rotate(2))
	assert.Equal(t, Point{2, -1}, p.rotate(3))
	assert.Equal(t, Point{2, -1}, p.rotate(-1))
	assert.Equal(t, p, p.rotate(4))
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
	}{
		{"#669BBC", color.RGBA{0x66, 0x9b, 0xbc, 0xff}},
		{"orange", color.RGBA{0xff, 0xa5, 0x00, 0xff}},
		{"#abc", color.RGBA{0xaa, 0xbb, 0xcc, 0xff}},
		{"C1", color.RGBA{0xff, 0x7f, 0x0e, 0xff}},
		{" Teal ", color.RGBA{0x00, 0x80, 0x80, 0xff}},
		{"#ff000000", color.RGBA{}},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "notacolor", "#12345", "#gggggg"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestHex_RoundTrip(t *testing.T) {
	for _, s := range []string{"#127475", "#f5dfbb", "#f2542d"} {
		c, err := ParseColor(s)
		require.NoError(t, err)
		assert.Equal(t, s, Hex(c))
	}
	assert.Equal(t, "none", Hex(color.RGBA{}))
}
