package partitioner

import (
	"sort"
	"sync"

	"github.com/lintang-b-s/awooter/pkg"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/lintang-b-s/awooter/pkg/spatialindex"
	"go.uber.org/zap"
)

// bucketPips. candidate pips of one bucket keyed by their position along the partition line.
type bucketPips struct {
	byPos map[int32][]device.PipId
	size  int
}

type cacheEntry struct {
	mu  sync.Mutex
	pip device.PipId
}

// PipSelectorStats. boundary pip census of one partition.
type PipSelectorStats struct {
	Candidates int
	Buckets    [NUM_BUCKETS]int
}

// PipSelector picks boundary pips that let an arc cross the partition lines of bounds at partition.
// it is safe for concurrent use; selection races between nets are resolved by the shared ClaimTable.
type PipSelector struct {
	g         device.Oracle
	bounds    geo.BoundingBox
	partition geo.Coord
	claims    *ClaimTable
	buckets   [NUM_BUCKETS]bucketPips
	// last pip handed out per bucket and net, so a net keeps crossing through the same pip.
	cache [NUM_BUCKETS][]cacheEntry
	stats PipSelectorStats
}

// NewPipSelector classifies every general-routing pip on the partition lines inside bounds whose wires
// also lie inside bounds. the partition point itself is excluded.
func NewPipSelector(g device.Oracle, index *spatialindex.PipIndex, claims *ClaimTable, bounds geo.BoundingBox,
	partition geo.Coord, log *zap.Logger) *PipSelector {
	ps := &PipSelector{
		g:         g,
		bounds:    bounds,
		partition: partition,
		claims:    claims,
	}
	for b := range ps.buckets {
		ps.buckets[b].byPos = make(map[int32][]device.PipId)
		ps.cache[b] = make([]cacheEntry, g.NumNets())
		for n := range ps.cache[b] {
			ps.cache[b][n].pip = device.INVALID_PIP_ID
		}
	}

	for _, pip := range index.SearchPartitionLines(bounds, partition) {
		loc := geo.FromLoc(g.PipLocation(pip))
		if loc == partition {
			continue
		}
		srcWire, dstWire := g.PipSrcWire(pip), g.PipDstWire(pip)
		if !g.IsGeneralRouting(srcWire) || !g.IsGeneralRouting(dstWire) {
			continue
		}
		// both halves of a split arc are routed inside bounds
		if !bounds.Contains(g.WireLocation(srcWire)) || !bounds.Contains(g.WireLocation(dstWire)) {
			continue
		}
		ps.stats.Candidates++

		bucket, ok := ps.classify(pip, loc)
		if !ok {
			continue
		}
		pos := loc.X
		if !bucket.onHorizontalLine() {
			pos = loc.Y
		}
		bp := &ps.buckets[bucket]
		bp.byPos[pos] = append(bp.byPos[pos], pip)
		bp.size++
		ps.stats.Buckets[bucket]++
	}

	for b := range ps.buckets {
		for _, pips := range ps.buckets[b].byPos {
			sort.Slice(pips, func(i, j int) bool { return pips[i] < pips[j] })
		}
	}

	log.Debug("pip selector built",
		zap.String("bounds", bounds.String()),
		zap.String("partition", partition.String()),
		zap.Int("candidates", ps.stats.Candidates),
		zap.Int("west_bound", ps.stats.Buckets[WEST_BOUND_NORTH]+ps.stats.Buckets[WEST_BOUND_SOUTH]),
		zap.Int("east_bound", ps.stats.Buckets[EAST_BOUND_NORTH]+ps.stats.Buckets[EAST_BOUND_SOUTH]),
		zap.Int("south_bound", ps.stats.Buckets[SOUTH_BOUND_EAST]+ps.stats.Buckets[SOUTH_BOUND_WEST]),
		zap.Int("north_bound", ps.stats.Buckets[NORTH_BOUND_EAST]+ps.stats.Buckets[NORTH_BOUND_WEST]),
	)
	return ps
}

func (ps *PipSelector) Stats() PipSelectorStats {
	return ps.stats
}

func (ps *PipSelector) BucketSize(b Bucket) int {
	return ps.buckets[b].size
}

// reach. sides of the partition point that a pip's neighbourhood touches.
type reach struct {
	north, south, east, west, middle bool
}

// walk visits the pips adjacent to wire up to BOUNDARY_WALK_DEPTH hops away, uphill or downhill.
// only neighbours on the same side of the other partition line as the pip count.
func (ps *PipSelector) walk(wire device.WireId, loc geo.Coord, onHorizontalLine, uphill bool) reach {
	var r reach
	p := ps.partition
	frontier := []device.WireId{wire}
	seen := map[device.WireId]struct{}{wire: {}}

	for depth := 0; depth < pkg.BOUNDARY_WALK_DEPTH && len(frontier) > 0; depth++ {
		next := make([]device.WireId, 0)
		for _, w := range frontier {
			var pips []device.PipId
			if uphill {
				pips = ps.g.UphillPips(w)
			} else {
				pips = ps.g.DownhillPips(w)
			}
			for _, pip := range pips {
				c := geo.FromLoc(ps.g.PipLocation(pip))
				if onHorizontalLine {
					if c.IsNorthOf(p) != loc.IsNorthOf(p) {
						continue
					}
					r.middle = r.middle || c.Y == loc.Y
					r.east = r.east || c.IsEastOf(p)
					r.west = r.west || c.IsWestOf(p)
				} else {
					if c.IsEastOf(p) != loc.IsEastOf(p) {
						continue
					}
					r.middle = r.middle || c.X == loc.X
					r.north = r.north || c.IsNorthOf(p)
					r.south = r.south || c.IsSouthOf(p)
				}

				nw := ps.g.PipDstWire(pip)
				if uphill {
					nw = ps.g.PipSrcWire(pip)
				}
				if _, ok := seen[nw]; !ok {
					seen[nw] = struct{}{}
					next = append(next, nw)
				}
			}
		}
		frontier = next
	}
	return r
}

// classify decides the bucket of a pip located on a partition line from where its source wire is driven
// and where its destination wire leads.
func (ps *PipSelector) classify(pip device.PipId, loc geo.Coord) (Bucket, bool) {
	p := ps.partition
	onHorizontalLine := loc.Y == p.Y

	src := ps.walk(ps.g.PipSrcWire(pip), loc, onHorizontalLine, true)
	dst := ps.walk(ps.g.PipDstWire(pip), loc, onHorizontalLine, false)

	if onHorizontalLine {
		westBound := (src.east && (dst.west || dst.middle)) || (src.middle && dst.west)
		eastBound := (src.west && (dst.east || dst.middle)) || (src.middle && dst.east)
		switch {
		case westBound && loc.IsNorthOf(p):
			return WEST_BOUND_NORTH, true
		case westBound:
			return WEST_BOUND_SOUTH, true
		case eastBound && loc.IsNorthOf(p):
			return EAST_BOUND_NORTH, true
		case eastBound:
			return EAST_BOUND_SOUTH, true
		}
		return NUM_BUCKETS, false
	}

	southBound := (src.north && (dst.south || dst.middle)) || (src.middle && dst.south)
	northBound := (src.south && (dst.north || dst.middle)) || (src.middle && dst.north)
	switch {
	case southBound && loc.IsEastOf(p):
		return SOUTH_BOUND_EAST, true
	case southBound:
		return SOUTH_BOUND_WEST, true
	case northBound && loc.IsEastOf(p):
		return NORTH_BOUND_EAST, true
	case northBound:
		return NORTH_BOUND_WEST, true
	}
	return NUM_BUCKETS, false
}

// FindPipIndex maps a desired crossing location and the location the arc arrives from to a bucket.
// desired must lie on exactly one partition line; anything else has no bucket.
func (ps *PipSelector) FindPipIndex(desired, from device.Loc) (Bucket, bool) {
	d, f := geo.FromLoc(desired), geo.FromLoc(from)
	switch d.FullSegment(ps.partition) {
	case geo.NORTH:
		if f.IsEastOf(ps.partition) {
			return WEST_BOUND_NORTH, true
		}
		return EAST_BOUND_NORTH, true
	case geo.SOUTH:
		if f.IsEastOf(ps.partition) {
			return WEST_BOUND_SOUTH, true
		}
		return EAST_BOUND_SOUTH, true
	case geo.EAST:
		if f.IsNorthOf(ps.partition) {
			return SOUTH_BOUND_EAST, true
		}
		return NORTH_BOUND_EAST, true
	case geo.WEST:
		if f.IsNorthOf(ps.partition) {
			return SOUTH_BOUND_WEST, true
		}
		return NORTH_BOUND_WEST, true
	}
	return NUM_BUCKETS, false
}

// FindPip returns a boundary pip near desired that carries net across the partition line from the side of from.
// the pip and both of its wires are claimed for net; a second call for the same crossing returns the same pip.
func (ps *PipSelector) FindPip(desired, from device.Loc, net device.NetIndex) (device.PipId, bool) {
	pip, _, ok := ps.findPip(desired, from, net)
	return pip, ok
}

// findPip is FindPip that also reports whether the pip was claimed by this call.
func (ps *PipSelector) findPip(desired, from device.Loc, net device.NetIndex) (device.PipId, bool, bool) {
	bucket, ok := ps.FindPipIndex(desired, from)
	if !ok || !net.Valid() || int(net) >= len(ps.cache[bucket]) {
		return device.INVALID_PIP_ID, false, false
	}

	entry := &ps.cache[bucket][net]
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.pip.IsNull() {
		return entry.pip, false, true
	}

	pip, fresh, ok := ps.search(bucket, desired, net)
	if !ok {
		return device.INVALID_PIP_ID, false, false
	}
	entry.pip = pip
	return pip, fresh, true
}

// search scans the bucket outward from the desired position, alternating sides, within the bounds.
func (ps *PipSelector) search(bucket Bucket, desired device.Loc, net device.NetIndex) (device.PipId, bool, bool) {
	bp := &ps.buckets[bucket]
	if bp.size == 0 {
		return device.INVALID_PIP_ID, false, false
	}

	start, lo, hi := desired.X, ps.bounds.X0, ps.bounds.X1
	if !bucket.onHorizontalLine() {
		start, lo, hi = desired.Y, ps.bounds.Y0, ps.bounds.Y1
	}

	try := func(pos int32) (device.PipId, bool, bool) {
		for _, pip := range bp.byPos[pos] {
			if ok, fresh := ps.claims.Claim(ps.g, pip, net); ok {
				return pip, fresh, true
			}
		}
		return device.INVALID_PIP_ID, false, false
	}

	for d := int32(0); start-d >= lo || start+d <= hi; d++ {
		if start+d >= lo && start+d <= hi {
			if pip, fresh, ok := try(start + d); ok {
				return pip, fresh, true
			}
		}
		if d > 0 && start-d >= lo && start-d <= hi {
			if pip, fresh, ok := try(start - d); ok {
				return pip, fresh, true
			}
		}
	}
	return device.INVALID_PIP_ID, false, false
}

// SegmentBasedFindPip finds a pip for a crossing between two adjacent quadrants, aiming one step off the partition point.
func (ps *PipSelector) SegmentBasedFindPip(from, to geo.Segment, net device.NetIndex) (device.PipId, bool) {
	pip, _, ok := ps.segmentBasedFindPip(from, to, net)
	return pip, ok
}

func (ps *PipSelector) segmentBasedFindPip(from, to geo.Segment, net device.NetIndex) (device.PipId, bool, bool) {
	p := ps.partition
	var desired geo.Coord
	switch {
	case from.IsNorth() != to.IsNorth() && from.IsEast() == to.IsEast():
		// crossing x == p.X on the source's east/west side
		desired = geo.NewCoord(p.X, p.Y+1)
		if from.IsEast() {
			desired.Y = p.Y - 1
		}
	case from.IsEast() != to.IsEast() && from.IsNorth() == to.IsNorth():
		desired = geo.NewCoord(p.X+1, p.Y)
		if from.IsNorth() {
			desired.X = p.X - 1
		}
	default:
		return device.INVALID_PIP_ID, false, false
	}

	// any point strictly inside the source quadrant identifies the side the arc arrives from
	fromCoord := geo.NewCoord(p.X+1, p.Y+1)
	if from.IsNorth() {
		fromCoord.X = p.X - 1
	}
	if from.IsEast() {
		fromCoord.Y = p.Y - 1
	}
	return ps.findPip(desired.Loc(), fromCoord.Loc(), net)
}

// Release drops net's claim on pip and forgets it as the cached crossing for net.
func (ps *PipSelector) Release(pip device.PipId, net device.NetIndex) {
	if !net.Valid() {
		return
	}
	for b := range ps.cache {
		if int(net) >= len(ps.cache[b]) {
			continue
		}
		entry := &ps.cache[b][net]
		entry.mu.Lock()
		if entry.pip == pip {
			entry.pip = device.INVALID_PIP_ID
		}
		entry.mu.Unlock()
	}
	ps.claims.Release(ps.g, pip, net)
}
