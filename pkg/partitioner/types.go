package partitioner

import (
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
)

// Bucket. direction a boundary pip carries traffic and the side of the partition point it sits on.
type Bucket uint8

const (
	WEST_BOUND_NORTH Bucket = iota
	WEST_BOUND_SOUTH
	EAST_BOUND_NORTH
	EAST_BOUND_SOUTH
	SOUTH_BOUND_EAST
	SOUTH_BOUND_WEST
	NORTH_BOUND_EAST
	NORTH_BOUND_WEST
	NUM_BUCKETS
)

func (b Bucket) String() string {
	switch b {
	case WEST_BOUND_NORTH:
		return "west-bound/north"
	case WEST_BOUND_SOUTH:
		return "west-bound/south"
	case EAST_BOUND_NORTH:
		return "east-bound/north"
	case EAST_BOUND_SOUTH:
		return "east-bound/south"
	case SOUTH_BOUND_EAST:
		return "south-bound/east"
	case SOUTH_BOUND_WEST:
		return "south-bound/west"
	case NORTH_BOUND_EAST:
		return "north-bound/east"
	case NORTH_BOUND_WEST:
		return "north-bound/west"
	}
	return "invalid"
}

// onHorizontalLine. buckets 0-3 hold pips on the east-west border (y == partition y).
func (b Bucket) onHorizontalLine() bool {
	return b <= EAST_BOUND_SOUTH
}

// Crossing. a boundary pip an arc of net was split at.
type Crossing struct {
	Pip device.PipId
	Net device.NetIndex
}

type PartitionStats struct {
	Same       int
	Horizontal int // crossed the north-south split only
	Vertical   int // crossed the east-west split only
	Diagonal   int
	Special    int
}

type PartitionResult struct {
	Point      geo.Coord
	Bounds     geo.BoundingBox
	Quadrants  [4][]da.Arc
	Special    []da.Arc
	Crossings  []Crossing
	Distortion float64
	Stats      PartitionStats
}

func (pr *PartitionResult) Quadrant(seg geo.Segment) []da.Arc {
	return pr.Quadrants[seg]
}

func (pr *PartitionResult) Counts() [4]int {
	var counts [4]int
	for i := range pr.Quadrants {
		counts[i] = len(pr.Quadrants[i])
	}
	return counts
}

// Region. leaf of the recursive partitioning, routed independently.
type Region struct {
	Name   string
	Bounds geo.BoundingBox
	Arcs   []da.Arc
}

// Plan. outcome of recursive partitioning.
type Plan struct {
	Regions   []Region
	Special   []da.Arc
	Crossings []Crossing
}
