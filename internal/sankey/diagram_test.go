package sankey

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return opts
}

func newDiagram(t *testing.T, opts Options) *Diagram {
	t.Helper()
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

// pitch for the default 100° head angle
var defaultPitch = math.Tan(40 * math.Pi / 180)

func TestNew_RejectsBadOptions(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Options)
	}{
		{"negative gap", func(o *Options) { o.Gap = -0.1 }},
		{"radius larger than gap", func(o *Options) { o.Radius = 0.5 }},
		{"head angle above 180", func(o *Options) { o.HeadAngle = 200 }},
		{"negative head angle", func(o *Options) { o.HeadAngle = -1 }},
		{"negative tolerance", func(o *Options) { o.Tolerance = -1 }},
		{"zero scale", func(o *Options) { o.Scale = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := quietOptions()
			tc.mod(&opts)
			_, err := New(opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestAdd_PassThroughGeometry(t *testing.T) {
	d := newDiagram(t, quietOptions())
	s, err := d.Add(StageSpec{
		Flows:        []float64{1, -1},
		Orientations: []int{0, 0},
		TrunkLength:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, []Direction{Right, Right}, s.Angles)

	// input dip notches into the left edge of the trunk
	assert.InDelta(t, -0.25+0.5*defaultPitch, s.Tips[0].X, 1e-9)
	assert.InDelta(t, 0, s.Tips[0].Y, 1e-9)

	// output tip extends past the right edge by the head height
	assert.InDelta(t, 0.25+0.53*defaultPitch, s.Tips[1].X, 1e-9)
	assert.InDelta(t, 0, s.Tips[1].Y, 1e-9)

	// labels sit offset from the tip and dip
	assert.InDelta(t, s.Tips[1].X+0.15, s.Labels[1].Pos.X, 1e-9)
	assert.InDelta(t, s.Tips[0].X-0.15, s.Labels[0].Pos.X, 1e-9)

	require.NotEmpty(t, s.Outline)
	assert.Equal(t, MoveTo, s.Outline[0].Code)
	assert.Equal(t, Close, s.Outline[len(s.Outline)-1].Code)
}

func TestAdd_ThreeArrowStage(t *testing.T) {
	d := newDiagram(t, quietOptions())
	s, err := d.Add(StageSpec{
		Flows:        []float64{1.0, -0.4, -0.6},
		Orientations: []int{0, 1, -1},
		Labels:       []string{"in", "up", "down"},
		TrunkLength:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, []Direction{Right, Up, Down}, s.Angles)

	assert.Greater(t, s.Tips[1].Y, 0.5, "upward output should end above the trunk")
	assert.Less(t, s.Tips[2].Y, -0.5, "downward output should end below the trunk")
	assert.Greater(t, s.Labels[1].Pos.Y, s.Tips[1].Y)
	assert.Less(t, s.Labels[2].Pos.Y, s.Tips[2].Y)
	for i, l := range s.Labels {
		assert.NotEmpty(t, l.Text, "label %d", i)
	}
}

func TestAdd_OrientationMapping(t *testing.T) {
	d := newDiagram(t, quietOptions())
	s, err := d.Add(StageSpec{
		Flows:        []float64{0.25, 0.25, 0.5, -0.25, -0.25, -0.5},
		Orientations: []int{1, -1, 0, 1, -1, 0},
		TrunkLength:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, []Direction{Down, Up, Right, Up, Down, Right}, s.Angles)
}

func TestAdd_ZeroFlowHasNoArrow(t *testing.T) {
	d := newDiagram(t, quietOptions())
	s, err := d.Add(StageSpec{
		Flows:       []float64{1, 0, -1},
		Labels:      []string{"in", "nothing", "out"},
		TrunkLength: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, NoDirection, s.Angles[1])
	assert.Equal(t, "", s.Labels[1].Text)
	assert.Equal(t, "in", s.Labels[0].Text)
}

func TestAdd_UnitAppendsQuantity(t *testing.T) {
	opts := quietOptions()
	opts.Unit = strPtr(" TWh")
	d := newDiagram(t, opts)
	s, err := d.Add(StageSpec{
		Flows:       []float64{1, -0.25, -0.75},
		Labels:      []string{"Supply", "", "Use"},
		TrunkLength: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Supply\n1 TWh", s.Labels[0].Text)
	assert.Equal(t, "0.25 TWh", s.Labels[1].Text)
	assert.Equal(t, "Use\n0.75 TWh", s.Labels[2].Text)
}

func TestAdd_ConnectedStagesMeet(t *testing.T) {
	d := newDiagram(t, quietOptions())
	first, err := d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1})
	require.NoError(t, err)

	second, err := d.Add(StageSpec{
		Flows:        []float64{1, -0.5, -0.5},
		Orientations: []int{0, 1, 0},
		TrunkLength:  1,
		Prior:        intPtr(0),
		Connect:      [2]int{1, 0},
	})
	require.NoError(t, err)

	assert.InDelta(t, first.Tips[1].X, second.Tips[0].X, 1e-9)
	assert.InDelta(t, first.Tips[1].Y, second.Tips[0].Y, 1e-9)
	assert.Equal(t, Right, second.Angles[0])
	assert.InDelta(t, first.Tips[1].X-second.Tips[0].X, 0, 1e-9)
	assert.NotEqual(t, Point{}, second.PatchLabel.Pos)
}

func TestAdd_LoopBackIsRotated(t *testing.T) {
	// a stock loop: an input drawn from above fed by an output drawn upwards
	d := newDiagram(t, quietOptions())
	first, err := d.Add(StageSpec{
		Flows:        []float64{0.1, -0.1, 1, -1},
		Orientations: []int{1, 1, 0, 0},
		TrunkLength:  1,
	})
	require.NoError(t, err)
	require.Equal(t, Down, first.Angles[0])

	loop, err := d.Add(StageSpec{
		Flows:        []float64{0.1, -0.1},
		Orientations: []int{1, 1},
		TrunkLength:  1,
		Prior:        intPtr(0),
		Connect:      [2]int{0, 1},
	})
	require.NoError(t, err)

	// the loop's output was "up" before placement; joined to a "down" input it turns half way
	assert.Equal(t, Down, loop.Angles[1])
	assert.InDelta(t, first.Tips[0].X, loop.Tips[1].X, 1e-9)
	assert.InDelta(t, first.Tips[0].Y, loop.Tips[1].Y, 1e-9)
}

func TestAdd_RotationTurnsUnanchoredStage(t *testing.T) {
	d := newDiagram(t, quietOptions())
	s, err := d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, Rotation: 90})
	require.NoError(t, err)
	assert.Equal(t, []Direction{Up, Up}, s.Angles)
	assert.InDelta(t, 0, s.Tips[1].X, 1e-9)
	assert.InDelta(t, 0.25+0.53*defaultPitch, s.Tips[1].Y, 1e-9)

	_, err = d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, Rotation: 45})
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestAdd_Errors(t *testing.T) {
	cases := []struct {
		name  string
		stage StageSpec
		want  error
	}{
		{
			name:  "orientation out of range",
			stage: StageSpec{Flows: []float64{1, -1}, Orientations: []int{0, 2}, TrunkLength: 1},
			want:  ErrInvalidOrientation,
		},
		{
			name:  "label count mismatch",
			stage: StageSpec{Flows: []float64{1, -1}, Labels: []string{"a"}, TrunkLength: 1},
			want:  ErrLengthMismatch,
		},
		{
			name:  "orientation count mismatch",
			stage: StageSpec{Flows: []float64{1, -1}, Orientations: []int{0, 0, 0}, TrunkLength: 1},
			want:  ErrLengthMismatch,
		},
		{
			name:  "path length count mismatch",
			stage: StageSpec{Flows: []float64{1, -0.5, -0.5}, PathLengths: []float64{0.1, 0.2}, TrunkLength: 1},
			want:  ErrLengthMismatch,
		},
		{
			name:  "negative trunk",
			stage: StageSpec{Flows: []float64{1, -1}, TrunkLength: -1},
			want:  ErrInvalidStage,
		},
		{
			name:  "prior not yet added",
			stage: StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, Prior: intPtr(3)},
			want:  ErrBadPrior,
		},
		{
			name:  "connect index beyond prior flows",
			stage: StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, Prior: intPtr(0), Connect: [2]int{5, 0}},
			want:  ErrBadConnection,
		},
		{
			name:  "connect index beyond own flows",
			stage: StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, Prior: intPtr(0), Connect: [2]int{1, 7}},
			want:  ErrBadConnection,
		},
		{
			name:  "connected flows do not match",
			stage: StageSpec{Flows: []float64{0.5, -0.5}, TrunkLength: 1, Prior: intPtr(0), Connect: [2]int{1, 0}},
			want:  ErrBadConnection,
		},
		{
			name:  "bad face colour",
			stage: StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, FaceColor: "not-a-colour"},
			want:  ErrInvalidStage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDiagram(t, quietOptions())
			_, err := d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1})
			require.NoError(t, err)
			_, err = d.Add(tc.stage)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAdd_ConnectionOnZeroFlow(t *testing.T) {
	d := newDiagram(t, quietOptions())
	_, err := d.Add(StageSpec{Flows: []float64{1, 0, -1}, TrunkLength: 1})
	require.NoError(t, err)
	_, err = d.Add(StageSpec{Flows: []float64{0, 0}, TrunkLength: 1, Prior: intPtr(0), Connect: [2]int{1, 0}})
	assert.ErrorIs(t, err, ErrBadConnection)
}

func TestAdd_UnbalancedStageWarnsButRenders(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	d := newDiagram(t, opts)

	_, err := d.Add(StageSpec{Flows: []float64{1, -0.6}, TrunkLength: 1})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "do not sum to zero")
}

func TestAdd_BalanceCheckedLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts.BalanceChecked = true
	d := newDiagram(t, opts)

	_, err := d.Add(StageSpec{Flows: []float64{1, -0.6}, TrunkLength: 1})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=DEBUG msg=\"stage flows do not sum to zero")
	assert.NotContains(t, buf.String(), "level=WARN")
}

func TestAdd_SingleFlowTakesItsPathLength(t *testing.T) {
	plain := newDiagram(t, quietOptions())
	a, err := plain.Add(StageSpec{Flows: []float64{-1}, TrunkLength: 1})
	require.NoError(t, err)

	long := newDiagram(t, quietOptions())
	b, err := long.Add(StageSpec{Flows: []float64{-1}, PathLengths: []float64{0.5}, TrunkLength: 1})
	require.NoError(t, err)

	require.Equal(t, []Direction{Right}, b.Angles)
	assert.InDelta(t, a.Tips[0].X+0.5, b.Tips[0].X, 1e-9)
	assert.InDelta(t, a.Tips[0].Y, b.Tips[0].Y, 1e-9)
}

func TestAdd_DefaultColoursCycle(t *testing.T) {
	d := newDiagram(t, quietOptions())
	a, err := d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1})
	require.NoError(t, err)
	b, err := d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1, FaceColor: "orange"})
	require.NoError(t, err)
	c, err := d.Add(StageSpec{Flows: []float64{1, -1}, TrunkLength: 1})
	require.NoError(t, err)

	assert.Equal(t, DefaultCycle[0], Hex(a.Fill))
	assert.Equal(t, "#ffa500", Hex(b.Fill))
	assert.Equal(t, DefaultCycle[1], Hex(c.Fill))
}

func TestFinish_ExtentCoversOutlineAndLabels(t *testing.T) {
	opts := quietOptions()
	d := newDiagram(t, opts)
	s, err := d.Add(StageSpec{
		Flows:        []float64{1.0, -0.4, -0.6},
		Orientations: []int{0, 1, -1},
		TrunkLength:  1,
	})
	require.NoError(t, err)
	layout := d.Finish()

	lo, hi := s.Outline.Bounds()
	assert.LessOrEqual(t, layout.Min.X, lo.X-opts.Margin+1e-12)
	assert.LessOrEqual(t, layout.Min.Y, lo.Y-opts.Margin+1e-12)
	assert.GreaterOrEqual(t, layout.Max.X, hi.X+opts.Margin-1e-12)
	assert.GreaterOrEqual(t, layout.Max.Y, hi.Y+opts.Margin-1e-12)
	for _, l := range s.Labels {
		assert.True(t, l.Pos.X >= layout.Min.X && l.Pos.X <= layout.Max.X)
		assert.True(t, l.Pos.Y >= layout.Min.Y && l.Pos.Y <= layout.Max.Y)
	}
}

func TestFinish_EmptyDiagram(t *testing.T) {
	d := newDiagram(t, quietOptions())
	layout := d.Finish()
	assert.Empty(t, layout.Stages)
	assert.Less(t, layout.Min.X, layout.Max.X)
}

func TestAdd_IsDeterministic(t *testing.T) {
	build := func() *Layout {
		d := newDiagram(t, quietOptions())
		_, err := d.Add(StageSpec{Flows: []float64{1, -0.3, -0.7}, Orientations: []int{0, -1, 0}, TrunkLength: 1.5})
		require.NoError(t, err)
		_, err = d.Add(StageSpec{Flows: []float64{0.7, -0.7}, Orientations: []int{0, 1}, TrunkLength: 1, Prior: intPtr(0), Connect: [2]int{2, 0}})
		require.NoError(t, err)
		return d.Finish()
	}
	assert.Equal(t, build(), build())
}
