package geo

import (
	"testing"

	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/stretchr/testify/assert"
)

func TestSplitLineOverX(t *testing.T) {
	testCases := []struct {
		name string
		a, b device.Loc
		x    int32
		want int32
	}{
		{name: "diagonal", a: device.NewLoc(0, 0), b: device.NewLoc(4, 4), x: 2, want: 2},
		{name: "steep", a: device.NewLoc(0, 0), b: device.NewLoc(4, 8), x: 2, want: 4},
		{name: "reversed endpoints", a: device.NewLoc(4, 8), b: device.NewLoc(0, 0), x: 2, want: 4},
		{name: "constant x uses midpoint", a: device.NewLoc(2, 1), b: device.NewLoc(2, 5), x: 2, want: 3},
		{name: "anti diagonal", a: device.NewLoc(3, 0), b: device.NewLoc(0, 3), x: 2, want: 1},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLineOverX(tt.a, tt.b, tt.x))
		})
	}
}

func TestSplitLineOverY(t *testing.T) {
	assert.Equal(t, int32(4), SplitLineOverY(device.NewLoc(0, 0), device.NewLoc(8, 4), 2))
	assert.Equal(t, int32(5), SplitLineOverY(device.NewLoc(3, 1), device.NewLoc(7, 1), 1))
}

func TestClampInDirection(t *testing.T) {
	testCases := []struct {
		name            string
		v, lo, hi, line int32
		below           bool
		want            int32
		wantOk          bool
	}{
		{name: "below clamps to line-1", v: 10, lo: 0, hi: 7, line: 3, below: true, want: 2, wantOk: true},
		{name: "below clamps to lo", v: -4, lo: 0, hi: 7, line: 3, below: true, want: 0, wantOk: true},
		{name: "above clamps to hi", v: 10, lo: 0, hi: 7, line: 3, below: false, want: 7, wantOk: true},
		{name: "above clamps to line+1", v: 0, lo: 0, hi: 7, line: 3, below: false, want: 4, wantOk: true},
		{name: "inside is kept", v: 1, lo: 0, hi: 7, line: 3, below: true, want: 1, wantOk: true},
		{name: "no side below", v: 1, lo: 3, hi: 7, line: 3, below: true, want: 1, wantOk: false},
		{name: "no side above", v: 5, lo: 0, hi: 3, line: 3, below: false, want: 5, wantOk: false},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClampInDirection(tt.v, tt.lo, tt.hi, tt.line, tt.below)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNudgeOffLine(t *testing.T) {
	assert.Equal(t, int32(4), NudgeOffLine(3, 3, true))
	assert.Equal(t, int32(2), NudgeOffLine(3, 3, false))
	assert.Equal(t, int32(7), NudgeOffLine(7, 3, false))
}

func TestSegmentFrom(t *testing.T) {
	p := NewCoord(2, 2)
	testCases := []struct {
		c    Coord
		want Segment
		full FullSegment
	}{
		{c: NewCoord(0, 0), want: NORTHEAST, full: FULL_NORTHEAST},
		{c: NewCoord(0, 3), want: NORTHWEST, full: FULL_NORTHWEST},
		{c: NewCoord(3, 0), want: SOUTHEAST, full: FULL_SOUTHEAST},
		{c: NewCoord(3, 3), want: SOUTHWEST, full: FULL_SOUTHWEST},
		{c: NewCoord(2, 0), want: SOUTHEAST, full: EAST},
		{c: NewCoord(0, 2), want: NORTHWEST, full: NORTH},
		{c: NewCoord(3, 2), want: SOUTHWEST, full: SOUTH},
		{c: NewCoord(2, 3), want: SOUTHWEST, full: WEST},
		{c: NewCoord(2, 2), want: SOUTHWEST, full: EXACT},
	}

	for _, tt := range testCases {
		t.Run(tt.c.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.SegmentFrom(p))
			assert.Equal(t, tt.full, tt.c.FullSegment(p))
		})
	}
}

func TestSegmentOf(t *testing.T) {
	for _, seg := range Segments {
		assert.Equal(t, seg, SegmentOf(seg.IsNorth(), seg.IsEast()), seg.String())
	}
}

func TestBoundingBox(t *testing.T) {
	bb := GridBoundingBox(4, 4)
	assert.Equal(t, NewBoundingBox(0, 3, 0, 3), bb)
	assert.Equal(t, NewCoord(2, 2), bb.Center())
	assert.Equal(t, int32(4), bb.Width())
	assert.True(t, bb.Contains(device.NewLoc(3, 0)))
	assert.False(t, bb.Contains(device.NewLoc(4, 0)))
	assert.False(t, bb.Contains(device.NewLoc(0, -1)))
	assert.False(t, bb.IsEmpty())

	p := NewCoord(2, 2)
	testCases := []struct {
		seg  Segment
		want BoundingBox
	}{
		{seg: NORTHEAST, want: NewBoundingBox(0, 2, 0, 2)},
		{seg: SOUTHEAST, want: NewBoundingBox(2, 3, 0, 2)},
		{seg: SOUTHWEST, want: NewBoundingBox(2, 3, 2, 3)},
		{seg: NORTHWEST, want: NewBoundingBox(0, 2, 2, 3)},
	}
	for _, tt := range testCases {
		t.Run(tt.seg.String(), func(t *testing.T) {
			q := bb.Quadrant(tt.seg, p)
			assert.Equal(t, tt.want, q)
			assert.True(t, q.ContainsCoord(p), "partition point belongs to every quadrant")
		})
	}
}
