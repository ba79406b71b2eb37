package partitioner

import (
	"sync"

	"github.com/lintang-b-s/awooter/pkg/device"
)

type ownership struct {
	mu     sync.Mutex
	net    device.NetIndex
	driver device.PipId // wires only: the claimed pip driving the wire
	feeds  int          // wires only: claimed pips the wire drives
	refs   int          // wires only: claimed pips touching the wire
}

func newOwnership() *ownership {
	return &ownership{net: device.INVALID_NET, driver: device.INVALID_PIP_ID}
}

func (o *ownership) admits(net device.NetIndex) bool {
	return !o.net.Valid() || o.net == net
}

// ClaimTable. exclusive net ownership of boundary pips and their wires, shared by every PipSelector of a run.
// a wire is driven by at most one claimed pip, even within a net, and a wire driven by a claimed pip never
// drives another one: every claimed pip is bound before routing starts, so a chain of them would leave the
// wire between them unreachable for the arc that has to end there.
// entries are locked individually; when a pip's two wires are locked together the lower WireId goes first.
type ClaimTable struct {
	wires sync.Map // device.WireId -> *ownership
	pips  sync.Map // device.PipId -> *ownership
}

func NewClaimTable() *ClaimTable {
	return &ClaimTable{}
}

func (ct *ClaimTable) wire(w device.WireId) *ownership {
	if o, ok := ct.wires.Load(w); ok {
		return o.(*ownership)
	}
	o, _ := ct.wires.LoadOrStore(w, newOwnership())
	return o.(*ownership)
}

func (ct *ClaimTable) pip(p device.PipId) *ownership {
	if o, ok := ct.pips.Load(p); ok {
		return o.(*ownership)
	}
	o, _ := ct.pips.LoadOrStore(p, newOwnership())
	return o.(*ownership)
}

func (ct *ClaimTable) lockPip(g device.Oracle, pip device.PipId) (src, dst, p *ownership, ok bool) {
	srcWire, dstWire := g.PipSrcWire(pip), g.PipDstWire(pip)
	if srcWire == dstWire {
		return nil, nil, nil, false
	}
	src, dst = ct.wire(srcWire), ct.wire(dstWire)
	if srcWire < dstWire {
		src.mu.Lock()
		dst.mu.Lock()
	} else {
		dst.mu.Lock()
		src.mu.Lock()
	}
	p = ct.pip(pip)
	p.mu.Lock()
	return src, dst, p, true
}

func unlock(src, dst, p *ownership) {
	p.mu.Unlock()
	dst.mu.Unlock()
	src.mu.Unlock()
}

// TryClaim takes pip and both of its wires for net when none of them belongs to another net.
func (ct *ClaimTable) TryClaim(g device.Oracle, pip device.PipId, net device.NetIndex) bool {
	ok, _ := ct.Claim(g, pip, net)
	return ok
}

// Claim is TryClaim that also reports whether this call took the pip; fresh is false when net already held it.
func (ct *ClaimTable) Claim(g device.Oracle, pip device.PipId, net device.NetIndex) (ok, fresh bool) {
	src, dst, p, locked := ct.lockPip(g, pip)
	if !locked {
		return false, false
	}
	defer unlock(src, dst, p)

	if p.net == net {
		return true, false
	}
	if !p.admits(net) || !src.admits(net) || !dst.admits(net) {
		return false, false
	}
	if !dst.driver.IsNull() || !src.driver.IsNull() || dst.feeds > 0 {
		return false, false
	}
	p.net = net
	src.net, dst.net = net, net
	src.refs++
	dst.refs++
	src.feeds++
	dst.driver = pip
	return true, true
}

// Release gives pip back if net holds it. its wires are freed once no other claimed pip of the net uses them.
func (ct *ClaimTable) Release(g device.Oracle, pip device.PipId, net device.NetIndex) {
	src, dst, p, ok := ct.lockPip(g, pip)
	if !ok {
		return
	}
	defer unlock(src, dst, p)

	if p.net != net {
		return
	}
	p.net = device.INVALID_NET
	if dst.driver == pip {
		dst.driver = device.INVALID_PIP_ID
	}
	if src.feeds > 0 {
		src.feeds--
	}
	for _, o := range []*ownership{src, dst} {
		o.refs--
		if o.refs <= 0 {
			o.refs = 0
			o.net = device.INVALID_NET
		}
	}
}

func (ct *ClaimTable) PipOwner(pip device.PipId) device.NetIndex {
	o := ct.pip(pip)
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.net
}

func (ct *ClaimTable) WireOwner(wire device.WireId) device.NetIndex {
	o := ct.wire(wire)
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.net
}
