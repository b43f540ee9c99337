package render

import (
	"math"

	"ukenergy/energyflow/internal/sankey"
)

// Viewport maps diagram coordinates onto an image with equal aspect
type Viewport struct {
	W, H int // pixels

	// axes box in pixels, y down
	Left, Top, Right, Bottom float64

	scale          float64 // pixels per diagram unit
	centre         sankey.Point
	boxCX, boxCY   float64
	pointsPerPixel float64
}

// NewViewport fits the extent [min, max] into the axes box of a figure drawn
// at dpi. The shorter data range is widened about its centre so one unit is
// the same length on both axes.
func NewViewport(widthIn, heightIn, dpi float64, min, max sankey.Point) Viewport {
	w := int(math.Round(widthIn * dpi))
	h := int(math.Round(heightIn * dpi))
	v := Viewport{
		W:              w,
		H:              h,
		Left:           axesLeft * float64(w),
		Right:          axesRight * float64(w),
		Top:            (1 - axesTop) * float64(h),
		Bottom:         (1 - axesBottom) * float64(h),
		pointsPerPixel: 72 / dpi,
	}
	v.boxCX = (v.Left + v.Right) / 2
	v.boxCY = (v.Top + v.Bottom) / 2

	dx := max.X - min.X
	dy := max.Y - min.Y
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	v.scale = math.Min((v.Right-v.Left)/dx, (v.Bottom-v.Top)/dy)
	v.centre = sankey.Point{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2}
	return v
}

// ToPixel converts a diagram point to image coordinates
func (v Viewport) ToPixel(p sankey.Point) (float64, float64) {
	return v.boxCX + (p.X-v.centre.X)*v.scale, v.boxCY - (p.Y-v.centre.Y)*v.scale
}

// Scale returns pixels per diagram unit
func (v Viewport) Scale() float64 { return v.scale }

// points converts a length in points to pixels
func (v Viewport) points(pt float64) float64 { return pt / v.pointsPerPixel }
