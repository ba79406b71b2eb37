package geo

import (
	"fmt"

	"github.com/lintang-b-s/awooter/pkg/device"
)

// Segment. quadrant of a point relative to a partition point.
type Segment uint8

const (
	NORTHEAST Segment = iota
	SOUTHEAST
	SOUTHWEST
	NORTHWEST
)

var Segments = [4]Segment{NORTHEAST, SOUTHEAST, SOUTHWEST, NORTHWEST}

func (s Segment) String() string {
	switch s {
	case NORTHEAST:
		return "northeast"
	case SOUTHEAST:
		return "southeast"
	case SOUTHWEST:
		return "southwest"
	case NORTHWEST:
		return "northwest"
	}
	return "unknown"
}

// FullSegment. quadrant, half-plane direction or the partition point itself.
type FullSegment uint8

const (
	FULL_NORTHEAST FullSegment = iota
	FULL_SOUTHEAST
	FULL_SOUTHWEST
	FULL_NORTHWEST
	NORTH
	SOUTH
	EAST
	WEST
	EXACT
)

func (fs FullSegment) String() string {
	switch fs {
	case FULL_NORTHEAST:
		return "northeast"
	case FULL_SOUTHEAST:
		return "southeast"
	case FULL_SOUTHWEST:
		return "southwest"
	case FULL_NORTHWEST:
		return "northwest"
	case NORTH:
		return "north"
	case SOUTH:
		return "south"
	case EAST:
		return "east"
	case WEST:
		return "west"
	}
	return "exact"
}

//	       (x < P.x)
//	           N
//	           ^
//	           |
//	(y > P.y)  |  (y < P.y)
//	    W <----P----> E
//	           |
//	           |
//	           v
//	           S
//	       (x > P.x)

// Coord. a tile position; north and east are towards smaller x and y.
type Coord struct {
	X, Y int32
}

func NewCoord(x, y int32) Coord {
	return Coord{X: x, Y: y}
}

func FromLoc(l device.Loc) Coord {
	return Coord{X: l.X, Y: l.Y}
}

func (c Coord) Loc() device.Loc {
	return device.Loc{X: c.X, Y: c.Y}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

func (c Coord) IsNorthOf(other Coord) bool {
	return c.X < other.X
}

func (c Coord) IsEastOf(other Coord) bool {
	return c.Y < other.Y
}

func (c Coord) IsSouthOf(other Coord) bool {
	return c.X > other.X
}

func (c Coord) IsWestOf(other Coord) bool {
	return c.Y > other.Y
}

// SegmentFrom. points on a partition line fall to the south/west side.
func (c Coord) SegmentFrom(other Coord) Segment {
	return SegmentOf(c.IsNorthOf(other), c.IsEastOf(other))
}

func SegmentOf(north, east bool) Segment {
	switch {
	case north && east:
		return NORTHEAST
	case north && !east:
		return NORTHWEST
	case !north && east:
		return SOUTHEAST
	}
	return SOUTHWEST
}

func (c Coord) FullSegment(from Coord) FullSegment {
	north, east := c.IsNorthOf(from), c.IsEastOf(from)
	south, west := c.IsSouthOf(from), c.IsWestOf(from)
	switch {
	case north && east:
		return FULL_NORTHEAST
	case north && west:
		return FULL_NORTHWEST
	case south && east:
		return FULL_SOUTHEAST
	case south && west:
		return FULL_SOUTHWEST
	case north:
		return NORTH
	case east:
		return EAST
	case south:
		return SOUTH
	case west:
		return WEST
	}
	return EXACT
}

func (s Segment) IsNorth() bool {
	return s == NORTHEAST || s == NORTHWEST
}

func (s Segment) IsEast() bool {
	return s == NORTHEAST || s == SOUTHEAST
}
