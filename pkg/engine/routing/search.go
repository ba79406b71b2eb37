package routing

import (
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
)

// admissible decides whether net may use pip on its way to sink, judged on the wire pip drives.
func (r *Router) admissible(pip device.PipId, net device.NetIndex, sink device.WireId) bool {
	if !r.g.PipAvailForNet(pip, net) {
		return false
	}
	if r.bounds != nil && !r.bounds.Contains(r.g.PipLocation(pip)) {
		return false
	}
	dst := r.g.PipDstWire(pip)
	if owner, ok := r.reserved.Owner(dst); ok && owner != net {
		return false
	}
	if dst != sink && r.reserved.Terminal(dst) {
		return false
	}
	if b, ok := r.net(net).wires[dst]; ok && b.pip != pip {
		return false
	}
	if r.claims != nil && !r.claims.Available(r.id, dst, net, pip) {
		return false
	}
	return true
}

// otherNets. nets other than net currently bound on wire.
func (r *Router) otherNets(wd *perWireData, wire device.WireId, net device.NetIndex) int {
	n := wd.currCong
	if _, ok := r.net(net).wires[wire]; ok {
		n--
	}
	return n
}

func (r *Router) hopScore(pip device.PipId, wire device.WireId, net device.NetIndex, crit float64) float64 {
	wd := r.wire(wire)
	nodeDelay := r.g.PipDelay(pip) + r.g.WireDelay(wire) + r.g.DelayEpsilon()
	cong := r.cost.CongestionCost(nodeDelay, wd.histCong, r.otherNets(wd, wire, net))
	return r.cost.Score(crit, nodeDelay, cong)
}

func (r *Router) touch(w device.WireId) *perWireData {
	wd := r.wire(w)
	if wd.costFwd < 0 && wd.costBwd < 0 {
		r.dirty = append(r.dirty, w)
	}
	return wd
}

func (r *Router) resetSearch() {
	for _, w := range r.dirty {
		r.wireData[w].resetSearch()
	}
	r.dirty = r.dirty[:0]
	r.fwdPq.Clear()
	r.bwdPq.Clear()
}

// search runs the bidirectional maze search for arc and returns its pips ordered source to sink.
// the frontier with the smaller minimum priority expands; the search stops at the first wire settled from both sides.
func (r *Router) search(arc da.Arc, crit float64) ([]device.PipId, error) {
	defer r.resetSearch()

	net := arc.Net()
	source, sink := arc.GetSourceWire(), arc.GetSinkWire()

	src := r.touch(source)
	src.costFwd = 0
	src.nodeFwd = da.NewPriorityQueueNode(r.g.EstimateDelay(source, sink), source)
	r.fwdPq.Insert(src.nodeFwd)

	snk := r.touch(sink)
	snk.costBwd = 0
	snk.nodeBwd = da.NewPriorityQueueNode(r.g.EstimateDelay(source, sink), sink)
	r.bwdPq.Insert(snk.nodeBwd)

	meet := device.INVALID_WIRE_ID
	for !r.fwdPq.IsEmpty() && !r.bwdPq.IsEmpty() {
		if r.fwdPq.GetMinrank() <= r.bwdPq.GetMinrank() {
			node, _ := r.fwdPq.ExtractMin()
			w := node.GetItem()
			wd := r.wireData[w]
			wd.visitFwd = true
			if wd.visitBwd {
				meet = w
				break
			}
			for _, pip := range r.g.DownhillPips(w) {
				next := r.g.PipDstWire(pip)
				if !r.admissible(pip, net, sink) {
					continue
				}
				nd := r.touch(next)
				if nd.visitFwd {
					continue
				}
				cost := wd.costFwd + r.hopScore(pip, next, net, crit)
				if nd.costFwd >= 0 && cost >= nd.costFwd {
					continue
				}
				nd.costFwd = cost
				nd.pipFwd = pip
				rank := cost + r.g.EstimateDelay(next, sink)
				if nd.nodeFwd == nil {
					nd.nodeFwd = da.NewPriorityQueueNode(rank, next)
					r.fwdPq.Insert(nd.nodeFwd)
				} else {
					_ = r.fwdPq.DecreaseKey(nd.nodeFwd, rank)
				}
			}
		} else {
			node, _ := r.bwdPq.ExtractMin()
			w := node.GetItem()
			wd := r.wireData[w]
			wd.visitBwd = true
			if wd.visitFwd {
				meet = w
				break
			}
			for _, pip := range r.g.UphillPips(w) {
				prev := r.g.PipSrcWire(pip)
				if !r.admissible(pip, net, sink) {
					continue
				}
				pd := r.touch(prev)
				if pd.visitBwd {
					continue
				}
				cost := wd.costBwd + r.hopScore(pip, w, net, crit)
				if pd.costBwd >= 0 && cost >= pd.costBwd {
					continue
				}
				pd.costBwd = cost
				pd.pipBwd = pip
				rank := cost + r.g.EstimateDelay(source, prev)
				if pd.nodeBwd == nil {
					pd.nodeBwd = da.NewPriorityQueueNode(rank, prev)
					r.bwdPq.Insert(pd.nodeBwd)
				} else {
					_ = r.bwdPq.DecreaseKey(pd.nodeBwd, rank)
				}
			}
		}
	}

	if meet.IsNull() {
		return nil, util.WrapErrorf(nil, util.ErrRoutingFailure,
			"net %s: no route from %s at %v to %s at %v", r.g.NameOfNet(net),
			r.g.NameOfWire(source), arc.GetSourceLoc(), r.g.NameOfWire(sink), arc.GetSinkLoc())
	}

	path := make([]device.PipId, 0)
	for w := meet; w != source; {
		pip := r.wireData[w].pipFwd
		path = append(path, pip)
		w = r.g.PipSrcWire(pip)
	}
	path = util.ReverseG(path)
	for w := meet; w != sink; {
		pip := r.wireData[w].pipBwd
		path = append(path, pip)
		w = r.g.PipDstWire(pip)
	}
	return path, nil
}

func (r *Router) pathDelay(path []device.PipId) float64 {
	d := 0.0
	for _, pip := range path {
		d += r.g.PipDelay(pip) + r.g.WireDelay(r.g.PipDstWire(pip))
	}
	return d
}
