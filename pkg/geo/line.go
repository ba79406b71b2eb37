package geo

import (
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
)

// SplitLineOverX. y where the infinite line through a and b crosses x = xLocation (truncated).
// a line with constant x has no single crossing, so the midpoint of the y coordinates is returned instead.
func SplitLineOverX(a, b device.Loc, xLocation int32) int32 {
	if a.X == b.X {
		return int32((int64(a.Y) + int64(b.Y)) / 2)
	}

	xDiff := int64(a.X) - int64(b.X)
	yDiff := int64(a.Y) - int64(b.Y)

	return int32((yDiff*int64(xLocation) + int64(a.Y)*xDiff - int64(a.X)*yDiff) / xDiff)
}

// SplitLineOverY. x where the infinite line through a and b crosses y = yLocation.
func SplitLineOverY(a, b device.Loc, yLocation int32) int32 {
	return SplitLineOverX(device.Loc{X: a.Y, Y: a.X}, device.Loc{X: b.Y, Y: b.X}, yLocation)
}

// ClampInDirection clamps v into [lo, line-1] (below) or [line+1, hi]: strictly one side of the partition line,
// inside the inclusive box range. ok is false when that side is empty.
func ClampInDirection(v, lo, hi, line int32, below bool) (int32, bool) {
	var lower, upper int32
	if below {
		lower, upper = lo, line-1
	} else {
		lower, upper = line+1, hi
	}
	if lower > upper {
		return v, false
	}
	return util.Clamp(v, lower, upper), true
}

// NudgeOffLine moves v one step off line in the direction given by up.
func NudgeOffLine(v, line int32, up bool) int32 {
	if v != line {
		return v
	}
	if up {
		return line + 1
	}
	return line - 1
}
