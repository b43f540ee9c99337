// Package sankey computes the outline geometry of Sankey flow diagrams.
//
// A diagram is built from stages. Each stage is one trunk with a set of
// signed flows (positive in, negative out) drawn as arrows around it. A stage
// may be anchored to a flow of an earlier stage, in which case it is rotated
// and translated so the two flows join into one continuous band.
package sankey

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

var (
	ErrInvalidOptions     = errors.New("invalid diagram options")
	ErrInvalidOrientation = errors.New("orientation must be -1, 0 or 1")
	ErrLengthMismatch     = errors.New("per-flow sequence length does not match flows")
	ErrBadPrior           = errors.New("prior stage does not exist")
	ErrBadConnection      = errors.New("invalid stage connection")
	ErrInvalidStage       = errors.New("invalid stage")
)

// Options holds the diagram-wide drawing parameters
type Options struct {
	Scale     float64 // multiplier applied to every flow
	Unit      *string // nil leaves labels without a quantity line
	Format    string  // printf verb for quantities
	Gap       float64 // space between adjacent arrows
	Radius    float64 // inner radius of vertical arrow bends
	Shoulder  float64 // width of output arrow shoulders
	Offset    float64 // label distance from arrow tip or dip
	HeadAngle float64 // arrow head angle in degrees
	Margin    float64 // padding around the extent
	Tolerance float64 // magnitude below which a flow is treated as zero
	Logger    *slog.Logger

	// BalanceChecked marks stage sums as already reported by the caller, so
	// unbalanced stages are only logged at debug level
	BalanceChecked bool
}

// DefaultOptions returns the stock drawing parameters
func DefaultOptions() Options {
	return Options{
		Scale:     1.0,
		Format:    "%.6G",
		Gap:       0.25,
		Radius:    0.1,
		Shoulder:  0.03,
		Offset:    0.15,
		HeadAngle: 100,
		Margin:    0.4,
		Tolerance: 1e-6,
	}
}

func (o Options) validate() error {
	switch {
	case o.Scale <= 0:
		return fmt.Errorf("%w: scale must be positive, got %g", ErrInvalidOptions, o.Scale)
	case o.Gap < 0:
		return fmt.Errorf("%w: gap is negative (%g), which makes the trunk too narrow", ErrInvalidOptions, o.Gap)
	case o.Radius > o.Gap:
		return fmt.Errorf("%w: inner radius (%g) is larger than the gap (%g)", ErrInvalidOptions, o.Radius, o.Gap)
	case o.Radius < 0:
		return fmt.Errorf("%w: radius is negative (%g)", ErrInvalidOptions, o.Radius)
	case o.HeadAngle < 0 || o.HeadAngle > 180:
		return fmt.Errorf("%w: head angle must be within [0, 180], got %g", ErrInvalidOptions, o.HeadAngle)
	case o.Tolerance < 0:
		return fmt.Errorf("%w: tolerance is negative (%g)", ErrInvalidOptions, o.Tolerance)
	}
	return nil
}

// pitch converts a half-width into the arrow head's run along the arrow
func (o Options) pitch() float64 {
	return math.Tan(math.Pi * (1 - o.HeadAngle/180) / 2)
}
