package routing

import (
	"errors"

	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
)

// errClaimLost. another region took a wire between search and binding.
var errClaimLost = errors.New("wire claimed by another region")

func (r *Router) wire(w device.WireId) *perWireData {
	wd, ok := r.wireData[w]
	if !ok {
		wd = newPerWireData()
		r.wireData[w] = wd
	}
	return wd
}

func (r *Router) net(net device.NetIndex) *perNetData {
	nd, ok := r.netData[net]
	if !ok {
		nd = newPerNetData()
		r.netData[net] = nd
	}
	return nd
}

// bindWire records that net uses wire through pip. a wire already used by the net must keep the same driver.
func (r *Router) bindWire(net device.NetIndex, wire device.WireId, pip device.PipId) error {
	nd := r.net(net)
	if b, ok := nd.wires[wire]; ok {
		// an arc starting on a wire the net already reaches just shares it
		if b.pip != pip && !pip.IsNull() {
			return util.WrapErrorf(nil, util.ErrInconsistentBinding,
				"net %s: wire %s driven by %s, cannot also bind %s", r.g.NameOfNet(net), r.g.NameOfWire(wire),
				r.g.NameOfPip(b.pip), r.g.NameOfPip(pip))
		}
		b.refs++
		return nil
	}
	if r.claims != nil && !r.claims.Claim(r.id, wire, net, pip) {
		return errClaimLost
	}
	nd.wires[wire] = &wireBinding{pip: pip, refs: 1}
	r.wire(wire).currCong++
	return nil
}

func (r *Router) unbindWire(net device.NetIndex, wire device.WireId) {
	nd := r.net(net)
	b, ok := nd.wires[wire]
	if !ok {
		return
	}
	b.refs--
	if b.refs > 0 {
		return
	}
	delete(nd.wires, wire)
	wd := r.wire(wire)
	wd.currCong--
	util.AssertPanic(wd.currCong >= 0, "wire congestion must never go negative")
	if r.claims != nil {
		r.claims.Release(r.id, wire, net)
	}
}

// bindPath binds the source wire and then every pip of path in order. on failure nothing stays bound.
func (r *Router) bindPath(arc da.Arc, path []device.PipId) error {
	net := arc.Net()
	bound := make([]device.WireId, 0, len(path)+1)
	rollback := func() {
		for i := len(bound) - 1; i >= 0; i-- {
			r.unbindWire(net, bound[i])
		}
	}

	if err := r.bindWire(net, arc.GetSourceWire(), device.INVALID_PIP_ID); err != nil {
		return err
	}
	bound = append(bound, arc.GetSourceWire())
	for _, pip := range path {
		dst := r.g.PipDstWire(pip)
		if err := r.bindWire(net, dst, pip); err != nil {
			rollback()
			if errors.Is(err, errClaimLost) {
				wd := r.wire(dst)
				wd.histCong = r.cost.Penalty(wd.histCong)
			}
			return err
		}
		bound = append(bound, dst)
	}
	return nil
}

// arcWires walks the bindings of arc from sink back to source. ok is false if the chain is broken.
func (r *Router) arcWires(arc da.Arc) ([]device.WireId, bool) {
	nd := r.net(arc.Net())
	wires := make([]device.WireId, 0)
	w := arc.GetSinkWire()
	for steps := 0; steps <= len(nd.wires); steps++ {
		b, ok := nd.wires[w]
		if !ok {
			return wires, false
		}
		wires = append(wires, w)
		if w == arc.GetSourceWire() {
			return wires, true
		}
		if b.pip.IsNull() {
			return wires, false
		}
		w = r.g.PipSrcWire(b.pip)
	}
	return wires, false
}

// ripUp releases the bindings of arc, walking sink to source.
func (r *Router) ripUp(idx int) {
	arc := r.arcs[idx]
	st := &r.arcState[idx]
	if !st.routed {
		return
	}
	st.routed = false
	if arc.GetSourceWire() == arc.GetSinkWire() {
		return
	}
	wires, _ := r.arcWires(arc)
	for _, w := range wires {
		r.unbindWire(arc.Net(), w)
	}
	r.stats.RipUps++
}
