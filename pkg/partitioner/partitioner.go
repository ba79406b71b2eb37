package partitioner

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lintang-b-s/awooter/pkg"
	"github.com/lintang-b-s/awooter/pkg/concurrent"
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/lintang-b-s/awooter/pkg/spatialindex"
	"github.com/lintang-b-s/awooter/pkg/util"
	"go.uber.org/zap"
)

type Partitioner struct {
	g      device.Oracle
	index  *spatialindex.PipIndex
	claims *ClaimTable
	cfg    util.PartitionConfig
	log    *zap.Logger
}

func NewPartitioner(g device.Oracle, index *spatialindex.PipIndex, claims *ClaimTable, cfg util.PartitionConfig,
	log *zap.Logger) *Partitioner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Partitioner{
		g:      g,
		index:  index,
		claims: claims,
		cfg:    cfg,
		log:    log,
	}
}

func (p *Partitioner) Claims() *ClaimTable {
	return p.claims
}

// Distortion. percentage deviation of the quadrant loads from an even four-way split.
func Distortion(counts [4]int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	d := 0.0
	for _, c := range counts {
		d += math.Abs(float64(c)/float64(total) - pkg.QUADRANT_SHARE)
	}
	return 100 * d
}

// EstimateCounts predicts the per-quadrant arc counts of a split at point without selecting any pip.
// diagonal arcs also load the quadrant they pass through.
func (p *Partitioner) EstimateCounts(point geo.Coord, arcs []da.Arc) [4]int {
	var counts [4]int
	for _, arc := range arcs {
		src, snk := geo.FromLoc(arc.GetSourceLoc()), geo.FromLoc(arc.GetSinkLoc())
		srcSeg, snkSeg := src.SegmentFrom(point), snk.SegmentFrom(point)
		counts[srcSeg]++
		if srcSeg == snkSeg {
			continue
		}
		counts[snkSeg]++
		if srcSeg.IsNorth() != snkSeg.IsNorth() && srcSeg.IsEast() != snkSeg.IsEast() {
			mh := geo.SplitLineOverX(arc.GetSourceLoc(), arc.GetSinkLoc(), point.X)
			if (mh < point.Y) == srcSeg.IsEast() {
				counts[geo.SegmentOf(snkSeg.IsNorth(), srcSeg.IsEast())]++
			} else {
				counts[geo.SegmentOf(srcSeg.IsNorth(), snkSeg.IsEast())]++
			}
		}
	}
	return counts
}

// FindPartitionPoint searches for a point inside bounds that balances arcs across the four quadrants and splits them there.
// the point starts at the centre and moves by a quarter of the box, halving the step each iteration,
// towards the sparser half on each axis until the distortion falls under the configured threshold.
func (p *Partitioner) FindPartitionPoint(ctx context.Context, bounds geo.BoundingBox, arcs []da.Arc) (*PartitionResult, error) {
	point := bounds.Center()
	if p.cfg.Bisect {
		xDiff, yDiff := bounds.Width()/4, bounds.Height()/4
		for xDiff != 0 || yDiff != 0 {
			counts := p.EstimateCounts(point, arcs)
			if Distortion(counts) <= p.cfg.DistortionThreshold {
				break
			}
			north := counts[geo.NORTHEAST] + counts[geo.NORTHWEST]
			south := counts[geo.SOUTHEAST] + counts[geo.SOUTHWEST]
			east := counts[geo.NORTHEAST] + counts[geo.SOUTHEAST]
			west := counts[geo.NORTHWEST] + counts[geo.SOUTHWEST]

			// moving the point south grows the northern quadrants
			if north < south {
				point.X += xDiff
			} else if north > south {
				point.X -= xDiff
			}
			if east < west {
				point.Y += yDiff
			} else if east > west {
				point.Y -= yDiff
			}
			xDiff /= 2
			yDiff /= 2
		}
	}
	return p.PartitionAt(ctx, bounds, point, arcs)
}

type classified struct {
	index     int
	pieces    []piece
	crossings []Crossing
	special   bool
}

type piece struct {
	seg geo.Segment
	arc da.Arc
}

type splitCounters struct {
	same, horizontal, vertical, diagonal, special int
}

type arcKind int

const (
	arcOutside arcKind = iota
	arcSame
	arcHorizontal
	arcVertical
	arcDiagonal
)

// hop. one crossing of a split arc: a pip near desired, entered from the side of from.
type hop struct {
	desired        geo.Coord
	from           device.Loc
	fromSeg, toSeg geo.Segment
}

// arcPlan. geometric split of one arc, fixed before any pip is claimed.
// routes are alternatives tried in order; each one crosses its hops in sequence.
type arcPlan struct {
	index  int
	kind   arcKind
	seg    geo.Segment
	routes [][]hop
}

// PartitionAt splits every arc at point, assigning each piece to the quadrant holding it.
// arcs that cannot be split through an admissible boundary pip come back as special.
// the geometry of every split is worked out in parallel; pips are then claimed arc by arc in input order,
// so the same input always yields the same crossings.
func (p *Partitioner) PartitionAt(ctx context.Context, bounds geo.BoundingBox, point geo.Coord,
	arcs []da.Arc) (*PartitionResult, error) {
	if !bounds.ContainsCoord(point) {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "partition point %v outside %v", point, bounds)
	}

	ps := NewPipSelector(p.g, p.index, p.claims, bounds, point, p.log)
	counters := &splitCounters{}

	workers := p.cfg.Workers
	if workers > len(arcs) {
		workers = max(1, len(arcs))
	}
	wp := concurrent.NewWorkerPool[int, arcPlan](workers, len(arcs)+1)
	for i := range arcs {
		wp.AddJob(i)
	}
	wp.Close()
	wp.Start(func(i int) arcPlan {
		return p.planArc(bounds, point, i, arcs[i])
	})
	wp.Wait()

	plans := make([]arcPlan, 0, len(arcs))
	for plan := range wp.CollectResults() {
		plans = append(plans, plan)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].index < plans[j].index })

	pr := &PartitionResult{
		Point:  point,
		Bounds: bounds,
	}
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := p.splitArc(ps, plan, arcs[plan.index], counters)
		if res.special {
			pr.Special = append(pr.Special, arcs[res.index])
			continue
		}
		for _, pc := range res.pieces {
			pr.Quadrants[pc.seg] = append(pr.Quadrants[pc.seg], pc.arc)
		}
		pr.Crossings = append(pr.Crossings, res.crossings...)
	}
	pr.Stats = PartitionStats{
		Same:       counters.same,
		Horizontal: counters.horizontal,
		Vertical:   counters.vertical,
		Diagonal:   counters.diagonal,
		Special:    counters.special,
	}
	pr.Distortion = Distortion(pr.Counts())

	p.sanityCheck(pr)
	p.logStats(pr, ps)
	return pr, nil
}

// planArc decides which partition lines an arc crosses and where it should cross them.
func (p *Partitioner) planArc(bounds geo.BoundingBox, point geo.Coord, i int, arc da.Arc) arcPlan {
	plan := arcPlan{index: i}
	srcLoc, snkLoc := arc.GetSourceLoc(), arc.GetSinkLoc()
	if !bounds.Contains(srcLoc) || !bounds.Contains(snkLoc) {
		return plan
	}

	src, snk := geo.FromLoc(srcLoc), geo.FromLoc(snkLoc)
	srcNorth, srcEast := src.IsNorthOf(point), src.IsEastOf(point)
	snkNorth, snkEast := snk.IsNorthOf(point), snk.IsEastOf(point)
	srcSeg, snkSeg := geo.SegmentOf(srcNorth, srcEast), geo.SegmentOf(snkNorth, snkEast)
	plan.seg = srcSeg

	switch {
	case srcSeg == snkSeg:
		plan.kind = arcSame

	case srcNorth != snkNorth && srcEast == snkEast:
		plan.kind = arcHorizontal
		mid := geo.NewCoord(point.X, int32((int64(src.Y)+int64(snk.Y))/2))
		if y, ok := geo.ClampInDirection(mid.Y, bounds.Y0, bounds.Y1, point.Y, srcEast); ok {
			mid.Y = y
			plan.routes = [][]hop{{{desired: mid, from: srcLoc, fromSeg: srcSeg, toSeg: snkSeg}}}
		}

	case srcEast != snkEast && srcNorth == snkNorth:
		plan.kind = arcVertical
		mid := geo.NewCoord(int32((int64(src.X)+int64(snk.X))/2), point.Y)
		if x, ok := geo.ClampInDirection(mid.X, bounds.X0, bounds.X1, point.X, srcNorth); ok {
			mid.X = x
			plan.routes = [][]hop{{{desired: mid, from: srcLoc, fromSeg: srcSeg, toSeg: snkSeg}}}
		}

	default:
		plan.kind = arcDiagonal
		plan.routes = diagonalRoutes(bounds, point, arc)
	}
	return plan
}

// diagonalRoutes lists the two ways an arc between opposite quadrants can pass through an adjacent quadrant.
// the quadrant the straight line passes through comes first.
func diagonalRoutes(bounds geo.BoundingBox, point geo.Coord, arc da.Arc) [][]hop {
	srcLoc, snkLoc := arc.GetSourceLoc(), arc.GetSinkLoc()
	src, snk := geo.FromLoc(srcLoc), geo.FromLoc(snkLoc)
	srcNorth, srcEast := src.IsNorthOf(point), src.IsEastOf(point)
	snkNorth := snk.IsNorthOf(point)
	snkEast := snk.IsEastOf(point)

	// mh crosses x == point.X, mv crosses y == point.Y
	mh := geo.NewCoord(point.X, geo.SplitLineOverX(srcLoc, snkLoc, point.X))
	mv := geo.NewCoord(geo.SplitLineOverY(srcLoc, snkLoc, point.Y), point.Y)

	// a line through the partition point has no preferred middle quadrant
	if mh.Y == point.Y || mv.X == point.X {
		mh.Y = point.Y + 1
		if srcEast != snkNorth {
			mv.X = point.X - 1
		} else {
			mv.X = point.X + 1
		}
	}
	horizFirst := (mh.Y < point.Y) == srcEast

	srcSeg := geo.SegmentOf(srcNorth, srcEast)
	snkSeg := geo.SegmentOf(snkNorth, snkEast)

	routes := make([][]hop, 0, 2)
	for _, hf := range []bool{horizFirst, !horizFirst} {
		var ok bool
		h, v := mh, mv
		var midSeg geo.Segment
		var first, second geo.Coord
		if hf {
			// north/south first, along the source's east/west side
			midSeg = geo.SegmentOf(snkNorth, srcEast)
			if h.Y, ok = geo.ClampInDirection(h.Y, bounds.Y0, bounds.Y1, point.Y, srcEast); !ok {
				continue
			}
			if v.X, ok = geo.ClampInDirection(v.X, bounds.X0, bounds.X1, point.X, snkNorth); !ok {
				continue
			}
			first, second = h, v
		} else {
			midSeg = geo.SegmentOf(srcNorth, snkEast)
			if v.X, ok = geo.ClampInDirection(v.X, bounds.X0, bounds.X1, point.X, srcNorth); !ok {
				continue
			}
			if h.Y, ok = geo.ClampInDirection(h.Y, bounds.Y0, bounds.Y1, point.Y, snkEast); !ok {
				continue
			}
			first, second = v, h
		}
		routes = append(routes, []hop{
			{desired: first, from: srcLoc, fromSeg: srcSeg, toSeg: midSeg},
			{desired: second, from: first.Loc(), fromSeg: midSeg, toSeg: snkSeg},
		})
	}
	return routes
}

// splitArc claims the pips of the first route of plan that can be crossed and cuts arc at them.
func (p *Partitioner) splitArc(ps *PipSelector, plan arcPlan, arc da.Arc, counters *splitCounters) classified {
	res := classified{index: plan.index}
	switch plan.kind {
	case arcOutside:
		counters.special++
		res.special = true
		return res
	case arcSame:
		counters.same++
		res.pieces = []piece{{seg: plan.seg, arc: arc}}
		return res
	}

	net := arc.Net()
	for _, route := range plan.routes {
		pips, ok := claimRoute(ps, route, net)
		if !ok {
			continue
		}
		rest := arc
		for k, h := range route {
			var head da.Arc
			head, rest = rest.Split(p.g, pips[k])
			res.pieces = append(res.pieces, piece{seg: h.fromSeg, arc: head})
			res.crossings = append(res.crossings, Crossing{Pip: pips[k], Net: net})
		}
		res.pieces = append(res.pieces, piece{seg: route[len(route)-1].toSeg, arc: rest})

		switch plan.kind {
		case arcHorizontal:
			counters.horizontal++
		case arcVertical:
			counters.vertical++
		case arcDiagonal:
			counters.diagonal++
		}
		return res
	}

	counters.special++
	res.special = true
	return res
}

// claimRoute finds a pip for every hop of route. when a hop cannot be crossed, the pips this call claimed
// are given back; pips the net already held stay with it.
func claimRoute(ps *PipSelector, route []hop, net device.NetIndex) ([]device.PipId, bool) {
	pips := make([]device.PipId, 0, len(route))
	taken := make([]device.PipId, 0, len(route))
	for _, h := range route {
		pip, fresh, ok := ps.findPip(h.desired.Loc(), h.from, net)
		if !ok {
			pip, fresh, ok = ps.segmentBasedFindPip(h.fromSeg, h.toSeg, net)
		}
		if !ok {
			for _, t := range taken {
				ps.Release(t, net)
			}
			return nil, false
		}
		if fresh {
			taken = append(taken, pip)
		}
		pips = append(pips, pip)
	}
	return pips, true
}

// sanityCheck warns about pieces whose endpoints fall outside the quadrant they were assigned to.
func (p *Partitioner) sanityCheck(pr *PartitionResult) {
	for _, seg := range geo.Segments {
		box := pr.Bounds.Quadrant(seg, pr.Point)
		bad := 0
		for _, arc := range pr.Quadrants[seg] {
			if !box.Contains(arc.GetSourceLoc()) || !box.Contains(arc.GetSinkLoc()) {
				bad++
				p.log.Debug("arc outside its quadrant",
					zap.String("quadrant", seg.String()),
					zap.String("box", box.String()),
					zap.String("arc", arc.String()))
			}
		}
		if bad > 0 {
			p.log.Warn("partition sanity check failed",
				zap.String("quadrant", seg.String()),
				zap.Int("bad_arcs", bad),
				zap.Int("arcs", len(pr.Quadrants[seg])))
		}
	}
}

func balanceLabel(share float64) string {
	d := share - pkg.QUADRANT_SHARE
	switch {
	case d > pkg.BALANCE_BAD_DISTORTION:
		return "way too many arcs"
	case d > pkg.BALANCE_WARN_DISTORTION:
		return "too many arcs"
	case d < -pkg.BALANCE_BAD_DISTORTION:
		return "way too few arcs"
	case d < -pkg.BALANCE_WARN_DISTORTION:
		return "too few arcs"
	}
	return "balanced"
}

func (p *Partitioner) logStats(pr *PartitionResult, ps *PipSelector) {
	counts := pr.Counts()
	total := 0
	for _, c := range counts {
		total += c
	}
	fields := []zap.Field{
		zap.String("bounds", pr.Bounds.String()),
		zap.String("point", pr.Point.String()),
		zap.Float64("distortion", pr.Distortion),
		zap.Int("same_quadrant", pr.Stats.Same),
		zap.Int("horizontal", pr.Stats.Horizontal),
		zap.Int("vertical", pr.Stats.Vertical),
		zap.Int("diagonal", pr.Stats.Diagonal),
		zap.Int("special", pr.Stats.Special),
		zap.Int("boundary_pips", ps.Stats().Candidates),
	}
	for _, seg := range geo.Segments {
		share := 0.0
		if total > 0 {
			share = float64(counts[seg]) / float64(total)
		}
		fields = append(fields, zap.String(seg.String(),
			fmt.Sprintf("%d arcs (%.1f%%, %s)", counts[seg], 100*share, balanceLabel(share))))
	}
	p.log.Info("partitioned arcs", fields...)
}
