package routing

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/lintang-b-s/awooter/pkg/metrics"
	"github.com/lintang-b-s/awooter/pkg/observer"
	"github.com/lintang-b-s/awooter/pkg/util"
	"go.uber.org/zap"
)

type RouterStats struct {
	Arcs       int
	Rounds     int
	RipUps     int
	Overused   int
	Wirelength int // bound pips
	MaxDelay   float64
	Converged  bool
	Duration   time.Duration
}

// Router negotiates routes for a set of arcs. a Router is driven by one goroutine; routers of different regions
// only meet through the WireClaims they share.
type Router struct {
	id     int
	name   string
	g      device.Oracle
	bounds *geo.BoundingBox // nil routes over the whole device
	arcs   []da.Arc

	cfg      util.RouterConfig
	cost     *metrics.CostModel
	claims   *WireClaims
	reserved *Reservations
	obs      observer.Observer
	log      *zap.Logger

	wireData map[device.WireId]*perWireData
	netData  map[device.NetIndex]*perNetData
	arcState []arcState
	dirty    []device.WireId
	fwdPq    *da.MinHeap[device.WireId]
	bwdPq    *da.MinHeap[device.WireId]

	stats RouterStats
}

type RouterOption func(*Router)

// WithBounds restricts every pip the router uses to bounds.
func WithBounds(bounds geo.BoundingBox) RouterOption {
	return func(r *Router) {
		r.bounds = &bounds
	}
}

func WithClaims(id int, claims *WireClaims) RouterOption {
	return func(r *Router) {
		r.id = id
		r.claims = claims
	}
}

func WithReservations(reserved *Reservations) RouterOption {
	return func(r *Router) {
		r.reserved = reserved
	}
}

func WithObserver(obs observer.Observer) RouterOption {
	return func(r *Router) {
		r.obs = obs
	}
}

func NewRouter(name string, g device.Oracle, arcs []da.Arc, cfg util.RouterConfig, log *zap.Logger,
	opts ...RouterOption) *Router {
	r := &Router{
		name:     name,
		g:        g,
		arcs:     arcs,
		cfg:      cfg,
		cost:     metrics.NewCostModel(cfg),
		obs:      observer.NewNoop(),
		log:      log,
		wireData: make(map[device.WireId]*perWireData),
		netData:  make(map[device.NetIndex]*perNetData),
		arcState: make([]arcState, len(arcs)),
		dirty:    make([]device.WireId, 0),
		fwdPq:    da.NewFourAryHeap[device.WireId](),
		bwdPq:    da.NewFourAryHeap[device.WireId](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stats.Arcs = len(arcs)
	return r
}

func (r *Router) Name() string {
	return r.name
}

func (r *Router) Stats() RouterStats {
	return r.stats
}

func (r *Router) Arcs() []da.Arc {
	return r.arcs
}

// CurrCong. distinct nets currently bound on wire.
func (r *Router) CurrCong(wire device.WireId) int {
	if wd, ok := r.wireData[wire]; ok {
		return wd.currCong
	}
	return 0
}

func (r *Router) HistCong(wire device.WireId) float64 {
	if wd, ok := r.wireData[wire]; ok {
		return wd.histCong
	}
	return 0
}

// routeArc searches and binds one arc. a lost cross-region claim leaves the arc unrouted without error.
func (r *Router) routeArc(idx int) error {
	arc := r.arcs[idx]
	st := &r.arcState[idx]
	if st.routed {
		return nil
	}
	if arc.GetSourceWire() == arc.GetSinkWire() {
		st.routed = true
		st.delay = 0
		return nil
	}

	path, err := r.search(arc, st.crit)
	if err != nil {
		return err
	}
	if err := r.bindPath(arc, path); err != nil {
		if errors.Is(err, errClaimLost) {
			r.log.Debug("lost wire claim, retrying next round",
				zap.String("router", r.name), zap.String("net", r.g.NameOfNet(arc.Net())))
			return nil
		}
		return err
	}
	st.routed = true
	st.delay = r.pathDelay(path)
	return nil
}

// RouteArc routes a single arc outside the negotiation loop.
func (r *Router) RouteArc(idx int) error {
	return r.routeArc(idx)
}

// RipUpArc releases the bindings of a single arc.
func (r *Router) RipUpArc(idx int) {
	r.ripUp(idx)
}

// ArcPath returns the pips bound for arc idx, source to sink.
func (r *Router) ArcPath(idx int) ([]device.PipId, bool) {
	arc := r.arcs[idx]
	if !r.arcState[idx].routed {
		return nil, false
	}
	if arc.GetSourceWire() == arc.GetSinkWire() {
		return []device.PipId{}, true
	}
	wires, ok := r.arcWires(arc)
	if !ok {
		return nil, false
	}
	nd := r.net(arc.Net())
	path := make([]device.PipId, 0, len(wires))
	for i := len(wires) - 1; i >= 0; i-- {
		if b := nd.wires[wires[i]]; !b.pip.IsNull() && wires[i] != arc.GetSourceWire() {
			path = append(path, b.pip)
		}
	}
	return path, true
}

func (r *Router) updateCriticality(firstRound bool) {
	maxDelay := 0.0
	delays := make([]float64, len(r.arcs))
	for i, arc := range r.arcs {
		if firstRound {
			delays[i] = r.g.EstimateDelay(arc.GetSourceWire(), arc.GetSinkWire())
		} else {
			delays[i] = r.arcState[i].delay
		}
		maxDelay = math.Max(maxDelay, delays[i])
	}
	for i := range r.arcs {
		r.arcState[i].crit = r.cost.Criticality(delays[i], maxDelay)
	}
	r.stats.MaxDelay = maxDelay
}

// overusedWires. wires shared by more than one net, sorted.
func (r *Router) overusedWires() []device.WireId {
	overused := make([]device.WireId, 0)
	for w, wd := range r.wireData {
		if wd.currCong > 1 {
			overused = append(overused, w)
		}
	}
	sort.Slice(overused, func(i, j int) bool { return overused[i] < overused[j] })
	return overused
}

func (r *Router) touchesOveruse(idx int) bool {
	wires, _ := r.arcWires(r.arcs[idx])
	for _, w := range wires {
		if r.wireData[w].currCong > 1 {
			return true
		}
	}
	return false
}

// order sorts arc indices by descending criticality; ties keep index order.
func (r *Router) order(queue []int) {
	sort.SliceStable(queue, func(i, j int) bool {
		return r.arcState[queue[i]].crit > r.arcState[queue[j]].crit
	})
}

// Route runs negotiated congestion rounds until no wire is shared by two nets.
// a router stalled for StallRounds rounds reroutes everything and gives up after StallWindows such windows
// without progress; MaxRounds (if set) also bounds the run.
func (r *Router) Route(ctx context.Context) error {
	start := time.Now()
	r.obs.OnRegionStart(r.name, len(r.arcs))

	err := r.negotiate(ctx)
	r.stats.Duration = time.Since(start)
	r.stats.Wirelength = r.boundPips()
	r.obs.OnRegionDone(r.name, r.stats.Rounds, r.stats.Duration, err)
	if err != nil {
		return err
	}

	r.log.Info("router converged",
		zap.String("router", r.name),
		zap.Int("arcs", r.stats.Arcs),
		zap.Int("rounds", r.stats.Rounds),
		zap.Int("rip_ups", r.stats.RipUps),
		zap.Int("wirelength", r.stats.Wirelength),
		zap.Float64("max_delay", r.stats.MaxDelay),
		zap.Duration("duration", r.stats.Duration))
	return nil
}

func (r *Router) negotiate(ctx context.Context) error {
	r.updateCriticality(true)

	queue := make([]int, len(r.arcs))
	for i := range queue {
		queue[i] = i
	}

	best := math.MaxInt
	stalled, windows := 0, 0
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.order(queue)
		for _, idx := range queue {
			if err := r.routeArc(idx); err != nil {
				return err
			}
		}
		r.stats.Rounds = round + 1

		overused := r.overusedWires()
		for _, w := range overused {
			wd := r.wireData[w]
			wd.histCong = r.cost.NextHistory(wd.histCong, wd.currCong)
		}

		next := make([]int, 0)
		for i := range r.arcs {
			if !r.arcState[i].routed || r.touchesOveruse(i) {
				next = append(next, i)
			}
		}
		r.stats.Overused = len(overused)
		r.obs.OnRoundComplete(r.name, round, len(overused), len(next))

		if len(next) == 0 {
			r.stats.Converged = true
			r.updateCriticality(false)
			return nil
		}

		if r.cfg.MaxRounds > 0 && round+1 >= r.cfg.MaxRounds {
			return r.failure(next, overused)
		}

		if len(overused) < best {
			best = len(overused)
			stalled, windows = 0, 0
		} else {
			stalled++
		}
		// every stall window without a new best ends in a full reroute, until the windows run out
		if stalled >= r.cfg.StallRounds {
			windows++
			if windows >= r.cfg.StallWindows {
				return r.failure(next, overused)
			}
			r.log.Warn("congestion stalled, rerouting every arc",
				zap.String("router", r.name),
				zap.Int("round", round),
				zap.Int("stall_window", windows),
				zap.Int("overused", len(overused)))
			stalled = 0
			next = next[:0]
			for i := range r.arcs {
				next = append(next, i)
			}
		}

		for _, idx := range next {
			r.ripUp(idx)
		}
		r.updateCriticality(false)
		queue = next
	}
}

func (r *Router) failure(pending []int, overused []device.WireId) error {
	arc := r.arcs[pending[0]]
	for _, idx := range pending {
		if r.arcState[idx].routed {
			arc = r.arcs[idx]
			break
		}
	}
	wire := "<none>"
	if len(overused) > 0 {
		wire = r.g.NameOfWire(overused[0])
	}
	return util.WrapErrorf(nil, util.ErrRoutingFailure,
		"%s: congestion unresolved after %d rounds (%d overused wires, first %s); net %s from %s at %v to %s at %v",
		r.name, r.stats.Rounds, len(overused), wire, r.g.NameOfNet(arc.Net()),
		r.g.NameOfWire(arc.GetSourceWire()), arc.GetSourceLoc(), r.g.NameOfWire(arc.GetSinkWire()), arc.GetSinkLoc())
}

func (r *Router) boundPips() int {
	n := 0
	for _, nd := range r.netData {
		for _, b := range nd.wires {
			if !b.pip.IsNull() {
				n++
			}
		}
	}
	return n
}

// Commit binds every pip the router holds into the oracle, nets and wires in ascending order.
func (r *Router) Commit() error {
	nets := make([]device.NetIndex, 0, len(r.netData))
	for net := range r.netData {
		nets = append(nets, net)
	}
	sort.Slice(nets, func(i, j int) bool { return nets[i] < nets[j] })

	for _, net := range nets {
		nd := r.netData[net]
		wires := make([]device.WireId, 0, len(nd.wires))
		for w := range nd.wires {
			wires = append(wires, w)
		}
		sort.Slice(wires, func(i, j int) bool { return wires[i] < wires[j] })
		for _, w := range wires {
			pip := nd.wires[w].pip
			if pip.IsNull() {
				continue
			}
			if err := r.g.BindPip(pip, net); err != nil {
				return util.WrapErrorf(err, util.ErrBindConflict, "%s: commit %s for net %s", r.name,
					r.g.NameOfPip(pip), r.g.NameOfNet(net))
			}
		}
	}
	return nil
}
