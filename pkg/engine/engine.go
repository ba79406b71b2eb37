package engine

import (
	"context"
	"sort"
	"time"

	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/engine/routing"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/lintang-b-s/awooter/pkg/observer"
	"github.com/lintang-b-s/awooter/pkg/partitioner"
	"github.com/lintang-b-s/awooter/pkg/spatialindex"
	"github.com/lintang-b-s/awooter/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type RegionResult struct {
	Name   string
	Bounds geo.BoundingBox
	Stats  routing.RouterStats
}

type Result struct {
	Arcs      int
	Regions   []RegionResult
	Special   routing.RouterStats
	Crossings int
	Reserved  int
	Duration  time.Duration
	// Routers holds every router of the run, regions first and the special pass last, for heatmaps.
	Routers []*routing.Router
}

// Engine partitions the design, routes the regions in parallel and the leftover arcs over the whole device.
type Engine struct {
	g     device.Oracle
	cfg   util.Config
	index *spatialindex.PipIndex
	obs   observer.Observer
	log   *zap.Logger
}

func NewEngine(g device.Oracle, cfg util.Config, obs observer.Observer, log *zap.Logger) *Engine {
	if obs == nil {
		obs = observer.NewNoop()
	}
	index := spatialindex.NewPipIndex()
	index.Build(g, log)
	return &Engine{
		g:     g,
		cfg:   cfg,
		index: index,
		obs:   obs,
		log:   log,
	}
}

// Route routes every arc of the design and binds the result into the oracle.
// on failure the returned Result still carries the routers run so far.
func (e *Engine) Route(ctx context.Context) (*Result, error) {
	start := time.Now()
	arcs := da.ExtractArcs(e.g)
	res := &Result{Arcs: len(arcs)}
	e.log.Info("routing design", zap.Int("arcs", len(arcs)), zap.Int("nets", e.g.NumNets()))

	bounds := geo.GridBoundingBox(e.g.GridDimX(), e.g.GridDimY())
	part := partitioner.NewPartitioner(e.g, e.index, partitioner.NewClaimTable(), e.cfg.Partition, e.log)
	plan, err := part.Plan(ctx, bounds, arcs, e.cfg.Partition.Depth)
	if err != nil {
		return res, err
	}
	for _, region := range plan.Regions {
		e.obs.OnPartition(region.Name, len(region.Arcs), 0)
	}
	e.obs.OnPartition("special", len(plan.Special), len(plan.Special))

	crossings, err := e.bindCrossings(plan.Crossings)
	if err != nil {
		return res, err
	}
	res.Crossings = len(crossings)

	reserved := e.reserve(arcs, crossings)
	res.Reserved = reserved.Len()

	claims := routing.NewWireClaims()
	routers := make([]*routing.Router, 0, len(plan.Regions))
	regionBounds := make([]geo.BoundingBox, 0, len(plan.Regions))
	for _, region := range plan.Regions {
		if len(region.Arcs) == 0 {
			continue
		}
		regionBounds = append(regionBounds, region.Bounds)
		routers = append(routers, routing.NewRouter(region.Name, e.g, region.Arcs, e.cfg.Router, e.log,
			routing.WithBounds(region.Bounds),
			routing.WithClaims(len(routers)+1, claims),
			routing.WithReservations(reserved),
			routing.WithObserver(e.obs)))
	}
	res.Routers = routers

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(1, e.cfg.Engine.Workers))
	for _, r := range routers {
		eg.Go(func() error {
			return r.Route(egCtx)
		})
	}
	if err := eg.Wait(); err != nil {
		return res, err
	}

	for i, r := range routers {
		if err := r.Commit(); err != nil {
			return res, err
		}
		res.Regions = append(res.Regions, RegionResult{
			Name:   r.Name(),
			Bounds: regionBounds[i],
			Stats:  r.Stats(),
		})
	}

	special := routing.NewRouter("special", e.g, plan.Special, e.cfg.Router, e.log,
		routing.WithReservations(reserved),
		routing.WithObserver(e.obs))
	res.Routers = append(res.Routers, special)
	if err := special.Route(ctx); err != nil {
		return res, err
	}
	if err := special.Commit(); err != nil {
		return res, err
	}
	res.Special = special.Stats()

	for _, arc := range arcs {
		if err := CheckArcRouting(e.g, arc); err != nil {
			return res, err
		}
	}

	res.Duration = time.Since(start)
	e.logResult(res)
	return res, nil
}

// bindCrossings binds the boundary pips chosen by the partitioner, once per pip.
func (e *Engine) bindCrossings(crossings []partitioner.Crossing) ([]partitioner.Crossing, error) {
	unique := make(map[device.PipId]partitioner.Crossing, len(crossings))
	for _, c := range crossings {
		unique[c.Pip] = c
	}
	out := make([]partitioner.Crossing, 0, len(unique))
	for _, c := range unique {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pip < out[j].Pip })

	for _, c := range out {
		if err := e.g.BindPip(c.Pip, c.Net); err != nil {
			return nil, util.WrapErrorf(err, util.ErrBindConflict, "bind boundary pip %s for net %s",
				e.g.NameOfPip(c.Pip), e.g.NameOfNet(c.Net))
		}
	}
	return out, nil
}

// reserve pins arc endpoints and both wires of every boundary pip to their nets.
// boundary pip source wires are terminal: only the arcs ending there may enter them.
func (e *Engine) reserve(arcs []da.Arc, crossings []partitioner.Crossing) *routing.Reservations {
	reserved := routing.NewReservations()
	conflict := func(wire device.WireId, net device.NetIndex) {
		owner, _ := reserved.Owner(wire)
		e.log.Warn("wire reserved by two nets",
			zap.String("wire", e.g.NameOfWire(wire)),
			zap.String("net", e.g.NameOfNet(net)),
			zap.String("owner", e.g.NameOfNet(owner)))
	}
	for _, arc := range arcs {
		for _, w := range []device.WireId{arc.GetSourceWire(), arc.GetSinkWire()} {
			if !reserved.Reserve(w, arc.Net()) {
				conflict(w, arc.Net())
			}
		}
	}
	for _, c := range crossings {
		// the source wire ends the first half of a split arc
		if src := e.g.PipSrcWire(c.Pip); !reserved.ReserveTerminal(src, c.Net) {
			conflict(src, c.Net)
		}
		if dst := e.g.PipDstWire(c.Pip); !reserved.Reserve(dst, c.Net) {
			conflict(dst, c.Net)
		}
	}
	return reserved
}

// CheckArcRouting walks the oracle's bindings from the sink of arc back to its source.
func CheckArcRouting(g device.Oracle, arc da.Arc) error {
	_, err := ArcPath(g, arc)
	return err
}

// ArcPath returns the bound pips from the source of arc to its sink, following the single driver of every wire.
func ArcPath(g device.Oracle, arc da.Arc) ([]device.PipId, error) {
	net := arc.Net()
	w := arc.GetSinkWire()
	path := make([]device.PipId, 0)
	for steps := 0; w != arc.GetSourceWire(); steps++ {
		if steps > len(g.Wires()) {
			return nil, util.WrapErrorf(nil, util.ErrRoutingFailure, "net %s: binding loop at %s",
				g.NameOfNet(net), g.NameOfWire(w))
		}
		driver := device.INVALID_PIP_ID
		for _, pip := range g.UphillPips(w) {
			if g.BoundPipNet(pip) != net {
				continue
			}
			if !driver.IsNull() {
				return nil, util.WrapErrorf(nil, util.ErrInconsistentBinding, "net %s: wire %s driven by %s and %s",
					g.NameOfNet(net), g.NameOfWire(w), g.NameOfPip(driver), g.NameOfPip(pip))
			}
			driver = pip
		}
		if driver.IsNull() {
			return nil, util.WrapErrorf(nil, util.ErrRoutingFailure,
				"net %s: wire %s at %v not driven on the way from %s at %v to %s at %v", g.NameOfNet(net),
				g.NameOfWire(w), g.WireLocation(w), g.NameOfWire(arc.GetSourceWire()), arc.GetSourceLoc(),
				g.NameOfWire(arc.GetSinkWire()), arc.GetSinkLoc())
		}
		path = append(path, driver)
		w = g.PipSrcWire(driver)
	}
	return util.ReverseG(path), nil
}

func (e *Engine) logResult(res *Result) {
	rounds, ripUps, wirelength := res.Special.Rounds, res.Special.RipUps, res.Special.Wirelength
	maxDelay := res.Special.MaxDelay
	for _, r := range res.Regions {
		rounds = max(rounds, r.Stats.Rounds)
		ripUps += r.Stats.RipUps
		wirelength += r.Stats.Wirelength
		maxDelay = max(maxDelay, r.Stats.MaxDelay)
	}
	e.log.Info("design routed",
		zap.Int("arcs", res.Arcs),
		zap.Int("regions", len(res.Regions)),
		zap.Int("special_arcs", res.Special.Arcs),
		zap.Int("boundary_pips", res.Crossings),
		zap.Int("max_rounds", rounds),
		zap.Int("rip_ups", ripUps),
		zap.Int("wirelength", wirelength+res.Crossings),
		zap.Float64("max_delay", maxDelay),
		zap.Duration("duration", res.Duration))
}
