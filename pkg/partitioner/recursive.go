package partitioner

import (
	"context"

	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"go.uber.org/zap"
)

// MIN_SPLIT_SPAN. a box narrower than this has no interior on one side of any partition line.
const MIN_SPLIT_SPAN = 3

// Plan partitions arcs recursively, depth levels deep, into regions that can be routed independently.
// arcs that no level could split are collected as special and must be routed over the whole bounds.
func (p *Partitioner) Plan(ctx context.Context, bounds geo.BoundingBox, arcs []da.Arc, depth int) (*Plan, error) {
	plan := &Plan{}
	if err := p.plan(ctx, plan, "root", bounds, arcs, depth); err != nil {
		return nil, err
	}
	p.log.Info("partition plan ready",
		zap.Int("regions", len(plan.Regions)),
		zap.Int("special_arcs", len(plan.Special)),
		zap.Int("crossings", len(plan.Crossings)))
	return plan, nil
}

func (p *Partitioner) plan(ctx context.Context, plan *Plan, name string, bounds geo.BoundingBox, arcs []da.Arc,
	depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth <= 0 || len(arcs) == 0 || bounds.Width() < MIN_SPLIT_SPAN || bounds.Height() < MIN_SPLIT_SPAN {
		plan.Regions = append(plan.Regions, Region{Name: name, Bounds: bounds, Arcs: arcs})
		return nil
	}

	pr, err := p.FindPartitionPoint(ctx, bounds, arcs)
	if err != nil {
		return err
	}
	plan.Special = append(plan.Special, pr.Special...)
	plan.Crossings = append(plan.Crossings, pr.Crossings...)

	for _, seg := range geo.Segments {
		child := seg.String()
		if name != "root" {
			child = name + "/" + child
		}
		if err := p.plan(ctx, plan, child, bounds.Quadrant(seg, pr.Point), pr.Quadrants[seg], depth-1); err != nil {
			return err
		}
	}
	return nil
}
