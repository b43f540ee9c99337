package sankey

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
)

// Direction is an arrow heading in quarter turns counter-clockwise from +x
type Direction int

const (
	Right Direction = 0
	Up    Direction = 1
	Left  Direction = 2
	Down  Direction = 3

	// NoDirection marks a flow too small to draw
	NoDirection Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Up:
		return "up"
	case Left:
		return "left"
	case Down:
		return "down"
	default:
		return "none"
	}
}

func (d Direction) turn(quarters int) Direction {
	if d == NoDirection {
		return d
	}
	return Direction(((int(d)+quarters)%4 + 4) % 4)
}

// StageSpec describes one group of flows around a single trunk
type StageSpec struct {
	PatchLabel   string
	Flows        []float64 // nil draws a unit pass-through
	Orientations []int     // nil means all 0
	Labels       []string  // nil means all blank
	TrunkLength  float64   // zero is a valid, if cramped, length
	PathLengths  []float64 // nil = 0.25; a single value applies to every vertical arrow
	Prior        *int
	Connect      [2]int  // (flow index in prior, flow index in this stage)
	Rotation     float64 // degrees, multiple of 90; ignored when Prior is set
	FaceColor    string  // empty takes the next DefaultCycle colour
}

// Label is text anchored at its centre
type Label struct {
	Pos  Point  `json:"pos"`
	Text string `json:"text"`
}

// Stage is a placed stage: its outline, arrow tips and labels in diagram units
type Stage struct {
	Index      int         `json:"index"`
	Flows      []float64   `json:"flows"`
	Angles     []Direction `json:"angles"`
	Tips       []Point     `json:"tips"`
	Labels     []Label     `json:"labels"`
	PatchLabel Label       `json:"patch_label"`
	Outline    Path        `json:"-"`
	Fill       color.RGBA  `json:"-"`
}

// Layout is a finished diagram
type Layout struct {
	Stages []*Stage
	Min    Point // lower-left of the extent, margin included
	Max    Point // upper-right of the extent, margin included
}

// Diagram accumulates stages
type Diagram struct {
	opts   Options
	pitch  float64
	log    *slog.Logger
	stages []*Stage
	min    Point
	max    Point
	cycle  int
}

// New returns an empty diagram
func New(opts Options) (*Diagram, error) {
	if opts.Format == "" {
		opts.Format = "%.6G"
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Diagram{
		opts:  opts,
		pitch: opts.pitch(),
		log:   log,
		min:   Point{math.Inf(1), math.Inf(1)},
		max:   Point{math.Inf(-1), math.Inf(-1)},
	}, nil
}

// flowKind is +1 for inputs, -1 for outputs, 0 for negligible flows
func (d *Diagram) flowKind(f float64) int {
	switch {
	case f >= d.opts.Tolerance:
		return 1
	case f <= -d.opts.Tolerance:
		return -1
	default:
		return 0
	}
}

// Add lays out a stage and, when anchored, joins it to its prior stage
func (d *Diagram) Add(spec StageSpec) (*Stage, error) {
	flows := spec.Flows
	if len(flows) == 0 {
		flows = []float64{1, -1}
	}
	n := len(flows)
	idx := len(d.stages)

	orients := spec.Orientations
	if orients == nil {
		orients = make([]int, n)
	}
	if len(orients) != n {
		return nil, fmt.Errorf("stage %d: %w: %d orientations for %d flows", idx, ErrLengthMismatch, len(orients), n)
	}
	labels := spec.Labels
	if labels == nil {
		labels = make([]string, n)
	}
	if len(labels) != n {
		return nil, fmt.Errorf("stage %d: %w: %d labels for %d flows", idx, ErrLengthMismatch, len(labels), n)
	}
	if spec.TrunkLength < 0 {
		return nil, fmt.Errorf("stage %d: %w: trunk length is negative (%g)", idx, ErrInvalidStage, spec.TrunkLength)
	}
	if math.Mod(spec.Rotation, 90) != 0 {
		return nil, fmt.Errorf("stage %d: %w: rotation %g is not a multiple of 90", idx, ErrInvalidStage, spec.Rotation)
	}

	var sum float64
	scaled := make([]float64, n)
	var gain, loss float64
	for i, f := range flows {
		sum += f
		scaled[i] = d.opts.Scale * f
		if scaled[i] > 0 {
			gain += scaled[i]
		} else {
			loss += scaled[i]
		}
	}
	if math.Abs(sum) > d.opts.Tolerance {
		level := slog.LevelWarn
		if d.opts.BalanceChecked {
			level = slog.LevelDebug
		}
		d.log.Log(context.Background(), level, "stage flows do not sum to zero; the diagram may be unbalanced",
			"stage", idx, "sum", sum, "patch_label", spec.PatchLabel)
	}
	if gain < 0.5 || gain > 2.0 {
		d.log.Debug("scaled input sum is far from 1.0, layout may be poor", "stage", idx, "gain", gain)
	}
	if loss > -0.5 || loss < -2.0 {
		d.log.Debug("scaled output sum is far from -1.0, layout may be poor", "stage", idx, "loss", loss)
	}

	var prior *Stage
	if spec.Prior != nil {
		p := *spec.Prior
		if p < 0 || p >= idx {
			return nil, fmt.Errorf("stage %d: %w: prior %d, %d stage(s) added so far", idx, ErrBadPrior, p, idx)
		}
		prior = d.stages[p]
		c0, c1 := spec.Connect[0], spec.Connect[1]
		if c0 < 0 || c1 < 0 {
			return nil, fmt.Errorf("stage %d: %w: negative connection index %v", idx, ErrBadConnection, spec.Connect)
		}
		if c0 >= len(prior.Flows) {
			return nil, fmt.Errorf("stage %d: %w: prior stage %d has %d flows, connection index is %d",
				idx, ErrBadConnection, p, len(prior.Flows), c0)
		}
		if c1 >= n {
			return nil, fmt.Errorf("stage %d: %w: stage has %d flows, connection index is %d", idx, ErrBadConnection, n, c1)
		}
		if prior.Angles[c0] == NoDirection {
			return nil, fmt.Errorf("stage %d: %w: flow %d of stage %d is zero", idx, ErrBadConnection, c0, p)
		}
		if d.flowKind(flows[c1]) == 0 {
			return nil, fmt.Errorf("stage %d: %w: flow %d is zero", idx, ErrBadConnection, c1)
		}
		if e := prior.Flows[c0] + flows[c1]; math.Abs(e) >= d.opts.Tolerance {
			return nil, fmt.Errorf("stage %d: %w: connected flows sum to %g, outside tolerance %g",
				idx, ErrBadConnection, e, d.opts.Tolerance)
		}
	}

	kinds := make([]int, n)
	angles := make([]Direction, n)
	for i, o := range orients {
		kinds[i] = d.flowKind(flows[i])
		angles[i] = NoDirection
		switch o {
		case 1:
			if kinds[i] > 0 {
				angles[i] = Down
			} else if kinds[i] < 0 {
				angles[i] = Up
			}
		case 0:
			if kinds[i] != 0 {
				angles[i] = Right
			}
		case -1:
			if kinds[i] > 0 {
				angles[i] = Up
			} else if kinds[i] < 0 {
				angles[i] = Down
			}
		default:
			return nil, fmt.Errorf("stage %d: flow %d: %w, got %d", idx, i, ErrInvalidOrientation, o)
		}
	}

	lengths, err := d.pathLengths(spec.PathLengths, angles, kinds, scaled)
	if err != nil {
		return nil, fmt.Errorf("stage %d: %w", idx, err)
	}

	tips := make([]Point, n)
	anchors := make([]Point, n)
	outline := d.outline(spec.TrunkLength, gain, loss, angles, kinds, scaled, lengths, tips, anchors)

	var patchAt Point
	if prior == nil {
		q := int(spec.Rotation / 90)
		if q != 0 {
			for i := range angles {
				angles[i] = angles[i].turn(q)
				tips[i] = tips[i].rotate(q)
				anchors[i] = anchors[i].rotate(q)
			}
			outline = outline.transform(q, Point{})
		}
	} else {
		c0, c1 := spec.Connect[0], spec.Connect[1]
		q := int(prior.Angles[c0]) - int(angles[c1])
		for i := range angles {
			angles[i] = angles[i].turn(q)
			tips[i] = tips[i].rotate(q)
		}
		offset := prior.Tips[c0].Sub(tips[c1])
		for i := range tips {
			tips[i] = tips[i].Add(offset)
			anchors[i] = anchors[i].rotate(q).Add(offset)
		}
		outline = outline.transform(q, offset)
		patchAt = offset
	}

	fill, err := d.fill(spec.FaceColor)
	if err != nil {
		return nil, fmt.Errorf("stage %d: %w: %v", idx, ErrInvalidStage, err)
	}

	placed := make([]Label, n)
	for i := range labels {
		text := labels[i]
		if angles[i] == NoDirection {
			text = ""
		} else if d.opts.Unit != nil {
			q := fmt.Sprintf(d.opts.Format, math.Abs(flows[i])) + *d.opts.Unit
			if text != "" {
				text += "\n"
			}
			text += q
		}
		placed[i] = Label{Pos: anchors[i], Text: text}
	}

	stage := &Stage{
		Index:      idx,
		Flows:      append([]float64(nil), flows...),
		Angles:     angles,
		Tips:       tips,
		Labels:     placed,
		PatchLabel: Label{Pos: patchAt, Text: spec.PatchLabel},
		Outline:    outline,
		Fill:       fill,
	}

	lo, hi := outline.Bounds()
	d.grow(lo)
	d.grow(hi)
	for _, a := range anchors {
		d.grow(a)
	}

	d.stages = append(d.stages, stage)
	return stage, nil
}

// Finish returns the layout with the margin applied to the extent
func (d *Diagram) Finish() *Layout {
	m := d.opts.Margin
	if len(d.stages) == 0 {
		return &Layout{Min: Point{-m, -m}, Max: Point{m, m}}
	}
	return &Layout{
		Stages: d.stages,
		Min:    Point{d.min.X - m, d.min.Y - m},
		Max:    Point{d.max.X + m, d.max.Y + m},
	}
}

func (d *Diagram) grow(p Point) {
	d.min.X = math.Min(d.min.X, p.X)
	d.min.Y = math.Min(d.min.Y, p.Y)
	d.max.X = math.Max(d.max.X, p.X)
	d.max.Y = math.Max(d.max.Y, p.Y)
}

func (d *Diagram) fill(face string) (color.RGBA, error) {
	if face == "" {
		face = DefaultCycle[d.cycle%len(DefaultCycle)]
		d.cycle++
	}
	return ParseColor(face)
}

// pathLengths resolves the arrow lengths. One value per flow is used as given.
// Otherwise a single value becomes the length of the innermost vertical arrow
// on each side; outer arrows grow by the width of
// the arrows inside them so they do not overlap.
func (d *Diagram) pathLengths(given []float64, angles []Direction, kinds []int, scaled []float64) ([]float64, error) {
	n := len(angles)
	if len(given) == n {
		return append([]float64(nil), given...), nil
	}
	base := 0.25
	switch len(given) {
	case 0:
	case 1:
		base = given[0]
	default:
		return nil, fmt.Errorf("%w: %d path lengths for %d flows", ErrLengthMismatch, len(given), n)
	}

	lengths := make([]float64, n)
	ur, ul, lr, ll := base, base, base, base
	for i := 0; i < n; i++ {
		switch {
		case angles[i] == Down && kinds[i] > 0:
			lengths[i] = ul
			ul += scaled[i]
		case angles[i] == Up && kinds[i] < 0:
			lengths[i] = ur
			ur -= scaled[i]
		}
	}
	for i := n - 1; i >= 0; i-- {
		switch {
		case angles[i] == Up && kinds[i] > 0:
			lengths[i] = ll
			ll += scaled[i]
		case angles[i] == Down && kinds[i] < 0:
			lengths[i] = lr
			lr -= scaled[i]
		}
	}
	return lengths, nil
}

// outline traces the stage clockwise from the top-left of the trunk. It fills
// tips with arrow tip/dip positions and anchors with label positions, both
// before any rotation or translation.
func (d *Diagram) outline(trunk, gain, loss float64, angles []Direction, kinds []int, scaled, lengths []float64, tips, anchors []Point) Path {
	g := d.opts.Gap
	n := len(angles)
	left := g - trunk/2
	right := trunk/2 - g

	upperRight := Path{
		{MoveTo, Point{left, gain / 2}},
		{LineTo, Point{left / 2, gain / 2}},
		{Curve4, Point{left / 8, gain / 2}},
		{Curve4, Point{right / 8, -loss / 2}},
		{LineTo, Point{right / 2, -loss / 2}},
		{LineTo, Point{right, -loss / 2}},
	}
	lowerLeft := Path{
		{LineTo, Point{right, loss / 2}},
		{LineTo, Point{right / 2, loss / 2}},
		{Curve4, Point{right / 8, loss / 2}},
		{Curve4, Point{left / 8, -gain / 2}},
		{LineTo, Point{left / 2, -gain / 2}},
		{LineTo, Point{left, -gain / 2}},
	}
	lowerRight := Path{{LineTo, Point{right, loss / 2}}}
	upperLeft := Path{{LineTo, Point{left, gain / 2}}}

	// top side, from the middle outwards
	for i := 0; i < n; i++ {
		switch {
		case angles[i] == Down && kinds[i] > 0:
			tips[i], anchors[i] = d.addInput(&upperLeft, angles[i], scaled[i], lengths[i])
		case angles[i] == Up && kinds[i] < 0:
			tips[i], anchors[i] = d.addOutput(&upperRight, angles[i], scaled[i], lengths[i])
		}
	}
	// bottom side, from the middle outwards
	for i := n - 1; i >= 0; i-- {
		switch {
		case angles[i] == Up && kinds[i] > 0:
			tips[i], anchors[i] = d.addInput(&lowerLeft, angles[i], scaled[i], lengths[i])
		case angles[i] == Down && kinds[i] < 0:
			tips[i], anchors[i] = d.addOutput(&lowerRight, angles[i], scaled[i], lengths[i])
		}
	}
	// left inputs, bottom upwards
	hasLeftInput := false
	for i := n - 1; i >= 0; i-- {
		if angles[i] != Right || kinds[i] <= 0 {
			continue
		}
		if !hasLeftInput {
			// the lower edge must reach at least as far left as the upper one
			if ll, ul := lowerLeft.last(), upperLeft.last(); ll.X > ul.X {
				lowerLeft = append(lowerLeft, Vertex{LineTo, Point{ul.X, ll.Y}})
			}
			hasLeftInput = true
		}
		tips[i], anchors[i] = d.addInput(&lowerLeft, angles[i], scaled[i], lengths[i])
	}
	// right outputs, top downwards
	hasRightOutput := false
	for i := 0; i < n; i++ {
		if angles[i] != Right || kinds[i] >= 0 {
			continue
		}
		if !hasRightOutput {
			if ur, lr := upperRight.last(), lowerRight.last(); ur.X < lr.X {
				upperRight = append(upperRight, Vertex{LineTo, Point{lr.X, ur.Y}})
			}
			hasRightOutput = true
		}
		tips[i], anchors[i] = d.addOutput(&upperRight, angles[i], scaled[i], lengths[i])
	}

	if !hasLeftInput {
		upperLeft = upperLeft[:len(upperLeft)-1]
		lowerLeft = lowerLeft[:len(lowerLeft)-1]
	}
	if !hasRightOutput {
		lowerRight = lowerRight[:len(lowerRight)-1]
		upperRight = upperRight[:len(upperRight)-1]
	}

	out := make(Path, 0, len(upperRight)+len(lowerRight)+len(lowerLeft)+len(upperLeft)+1)
	out = append(out, upperRight...)
	out = append(out, lowerRight.reversed()...)
	out = append(out, lowerLeft...)
	out = append(out, upperLeft.reversed()...)
	out = append(out, Vertex{Close, upperRight[0].P})
	return out
}

// addInput appends an incoming arrow (a notch) to path and returns its dip
// and label anchor
func (d *Diagram) addInput(path *Path, angle Direction, flow, length float64) (Point, Point) {
	if angle == NoDirection {
		return Point{}, Point{}
	}
	o := d.opts
	ref := path.last()
	x, y := ref.X, ref.Y
	depth := flow / 2 * d.pitch

	if angle == Right {
		x -= length
		dip := Point{x + depth, y + flow/2}
		*path = append(*path,
			Vertex{LineTo, Point{x, y}},
			Vertex{LineTo, dip},
			Vertex{LineTo, Point{x, y + flow}},
			Vertex{LineTo, Point{x + o.Gap, y + flow}},
		)
		return dip, Point{dip.X - o.Offset, dip.Y}
	}

	x -= o.Gap
	sign, quadrant := -1.0, 2
	if angle == Up {
		sign, quadrant = 1.0, 1
	}
	dip := Point{x - flow/2, y - sign*(length-depth)}
	center := Point{x + o.Radius, y - sign*o.Radius}
	if o.Radius != 0 {
		*path = append(*path, arc(quadrant, angle == Up, o.Radius, center)...)
	} else {
		*path = append(*path, Vertex{LineTo, Point{x, y}})
	}
	*path = append(*path,
		Vertex{LineTo, Point{x, y - sign*length}},
		Vertex{LineTo, dip},
		Vertex{LineTo, Point{x - flow, y - sign*length}},
	)
	*path = append(*path, arc(quadrant, angle == Down, flow+o.Radius, center)...)
	*path = append(*path, Vertex{LineTo, Point{x - flow, y + sign*flow}})
	return dip, Point{dip.X, dip.Y - sign*o.Offset}
}

// addOutput appends an outgoing arrow to path and returns its tip and label
// anchor
func (d *Diagram) addOutput(path *Path, angle Direction, flow, length float64) (Point, Point) {
	if angle == NoDirection {
		return Point{}, Point{}
	}
	o := d.opts
	ref := path.last()
	x, y := ref.X, ref.Y
	height := (o.Shoulder - flow/2) * d.pitch

	if angle == Right {
		x += length
		tip := Point{x + height, y + flow/2}
		*path = append(*path,
			Vertex{LineTo, Point{x, y}},
			Vertex{LineTo, Point{x, y + o.Shoulder}},
			Vertex{LineTo, tip},
			Vertex{LineTo, Point{x, y - o.Shoulder + flow}},
			Vertex{LineTo, Point{x, y + flow}},
			Vertex{LineTo, Point{x - o.Gap, y + flow}},
		)
		return tip, Point{tip.X + o.Offset, tip.Y}
	}

	x += o.Gap
	sign, quadrant := -1.0, 0
	if angle == Up {
		sign, quadrant = 1.0, 3
	}
	tip := Point{x - flow/2, y + sign*(length+height)}
	center := Point{x - o.Radius, y + sign*o.Radius}
	if o.Radius != 0 {
		*path = append(*path, arc(quadrant, angle == Up, o.Radius, center)...)
	} else {
		*path = append(*path, Vertex{LineTo, Point{x, y}})
	}
	*path = append(*path,
		Vertex{LineTo, Point{x, y + sign*length}},
		Vertex{LineTo, Point{x - o.Shoulder, y + sign*length}},
		Vertex{LineTo, tip},
		Vertex{LineTo, Point{x + o.Shoulder - flow, y + sign*length}},
		Vertex{LineTo, Point{x - flow, y + sign*length}},
	)
	*path = append(*path, arc(quadrant, angle == Down, o.Radius-flow, center)...)
	*path = append(*path, Vertex{LineTo, Point{x - flow, y + sign*flow}})
	return tip, Point{tip.X, tip.Y + sign*o.Offset}
}
