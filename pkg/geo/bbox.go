package geo

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/lintang-b-s/awooter/pkg/device"
)

// BoundingBox. inclusive integer box [X0, X1] x [Y0, Y1].
type BoundingBox struct {
	X0, X1 int32
	Y0, Y1 int32
}

func NewBoundingBox(x0, x1, y0, y1 int32) BoundingBox {
	return BoundingBox{X0: x0, X1: x1, Y0: y0, Y1: y1}
}

// GridBoundingBox covers the full device grid.
func GridBoundingBox(gridDimX, gridDimY int32) BoundingBox {
	return BoundingBox{X0: 0, X1: gridDimX - 1, Y0: 0, Y1: gridDimY - 1}
}

func (b BoundingBox) Rect() r2.Rect {
	return r2.RectFromPoints(r2.Point{X: float64(b.X0), Y: float64(b.Y0)},
		r2.Point{X: float64(b.X1), Y: float64(b.Y1)})
}

func (b BoundingBox) Contains(l device.Loc) bool {
	return b.Rect().ContainsPoint(r2.Point{X: float64(l.X), Y: float64(l.Y)})
}

func (b BoundingBox) ContainsCoord(c Coord) bool {
	return b.Contains(c.Loc())
}

func (b BoundingBox) IsEmpty() bool {
	return b.Rect().IsEmpty()
}

func (b BoundingBox) Width() int32 {
	return b.X1 - b.X0 + 1
}

func (b BoundingBox) Height() int32 {
	return b.Y1 - b.Y0 + 1
}

func (b BoundingBox) Center() Coord {
	return Coord{X: b.X0 + b.Width()/2, Y: b.Y0 + b.Height()/2}
}

// Quadrant returns the sub box of seg when split at p. the partition lines belong to both neighbouring quadrants.
func (b BoundingBox) Quadrant(seg Segment, p Coord) BoundingBox {
	q := b
	if seg.IsNorth() {
		q.X1 = p.X
	} else {
		q.X0 = p.X
	}
	if seg.IsEast() {
		q.Y1 = p.Y
	} else {
		q.Y0 = p.Y
	}
	return q
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%d..%d]x[%d..%d]", b.X0, b.X1, b.Y0, b.Y1)
}
