package gridarch

import (
	"strings"
	"sync"

	"github.com/lintang-b-s/awooter/pkg"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
)

type wireInfo struct {
	name     string
	loc      device.Loc
	delay    float64
	uphill   []device.PipId
	downhill []device.PipId
}

type pipInfo struct {
	name  string
	src   device.WireId
	dst   device.WireId
	loc   device.Loc
	delay float64
}

// Arch is an in-memory device graph. the topology is immutable once built; pip bindings are guarded by mu.
type Arch struct {
	dimX, dimY int32

	wires []wireInfo
	pips  []pipInfo

	nets        []device.Net
	sourceWires []device.WireId
	sinkWires   [][][]device.WireId

	epsilon         float64
	estimateScale   float64
	generalPatterns []string

	mu         sync.RWMutex
	pipNet     []device.NetIndex
	wireNet    []device.NetIndex
	wireDriver []device.PipId
}

var _ device.Oracle = (*Arch)(nil)

func (a *Arch) GridDimX() int32 { return a.dimX }
func (a *Arch) GridDimY() int32 { return a.dimY }

func (a *Arch) Wires() []device.WireId {
	wires := make([]device.WireId, len(a.wires))
	for i := range a.wires {
		wires[i] = device.WireId(i)
	}
	return wires
}

func (a *Arch) Pips() []device.PipId {
	pips := make([]device.PipId, len(a.pips))
	for i := range a.pips {
		pips[i] = device.PipId(i)
	}
	return pips
}

func (a *Arch) PipSrcWire(pip device.PipId) device.WireId { return a.pips[pip].src }
func (a *Arch) PipDstWire(pip device.PipId) device.WireId { return a.pips[pip].dst }
func (a *Arch) PipLocation(pip device.PipId) device.Loc   { return a.pips[pip].loc }
func (a *Arch) WireLocation(wire device.WireId) device.Loc {
	return a.wires[wire].loc
}

func (a *Arch) PipDelay(pip device.PipId) float64    { return a.pips[pip].delay }
func (a *Arch) WireDelay(wire device.WireId) float64 { return a.wires[wire].delay }
func (a *Arch) DelayEpsilon() float64                { return a.epsilon }

// EstimateDelay. manhattan distance scaled by the cheapest inter-tile hop.
func (a *Arch) EstimateDelay(src, dst device.WireId) float64 {
	s, d := a.wires[src].loc, a.wires[dst].loc
	dist := util.Abs(s.X-d.X) + util.Abs(s.Y-d.Y)
	return float64(dist) * a.estimateScale
}

func (a *Arch) DownhillPips(wire device.WireId) []device.PipId { return a.wires[wire].downhill }
func (a *Arch) UphillPips(wire device.WireId) []device.PipId   { return a.wires[wire].uphill }

func (a *Arch) Nets() []device.Net { return a.nets }
func (a *Arch) NumNets() int       { return len(a.nets) }

func (a *Arch) SourceWire(net device.NetIndex) device.WireId {
	return a.sourceWires[net]
}

func (a *Arch) SinkWires(net device.NetIndex, user int) []device.WireId {
	return a.sinkWires[net][user]
}

func (a *Arch) BindPip(pip device.PipId, net device.NetIndex) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dst := a.pips[pip].dst
	if bound := a.pipNet[pip]; bound.Valid() {
		if bound != net {
			return util.WrapErrorf(nil, util.ErrBindConflict, "pip %s already bound to net %s",
				a.pips[pip].name, a.NameOfNet(bound))
		}
		return nil
	}
	if bound := a.wireNet[dst]; bound.Valid() && bound != net {
		return util.WrapErrorf(nil, util.ErrBindConflict, "wire %s already bound to net %s",
			a.wires[dst].name, a.NameOfNet(bound))
	}
	if driver := a.wireDriver[dst]; !driver.IsNull() && driver != pip {
		return util.WrapErrorf(nil, util.ErrInconsistentBinding, "wire %s already driven by pip %s",
			a.wires[dst].name, a.pips[driver].name)
	}

	a.pipNet[pip] = net
	a.wireNet[dst] = net
	a.wireDriver[dst] = pip
	return nil
}

func (a *Arch) UnbindPip(pip device.PipId) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.pipNet[pip].Valid() {
		return
	}
	dst := a.pips[pip].dst
	a.pipNet[pip] = device.INVALID_NET
	if a.wireDriver[dst] == pip {
		a.wireDriver[dst] = device.INVALID_PIP_ID
		a.wireNet[dst] = device.INVALID_NET
	}
}

func (a *Arch) PipAvailForNet(pip device.PipId, net device.NetIndex) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if bound := a.pipNet[pip]; bound.Valid() && bound != net {
		return false
	}
	dst := a.pips[pip].dst
	if bound := a.wireNet[dst]; bound.Valid() && bound != net {
		return false
	}
	driver := a.wireDriver[dst]
	return driver.IsNull() || driver == pip
}

func (a *Arch) BoundPipNet(pip device.PipId) device.NetIndex {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pipNet[pip]
}

// BoundPips lists every bound pip in id order.
func (a *Arch) BoundPips() []device.PipId {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bound := make([]device.PipId, 0)
	for pip, net := range a.pipNet {
		if net.Valid() {
			bound = append(bound, device.PipId(pip))
		}
	}
	return bound
}

func (a *Arch) IsGeneralRouting(wire device.WireId) bool {
	name := a.wires[wire].name
	for _, pattern := range a.generalPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func (a *Arch) NameOfWire(wire device.WireId) string {
	if wire.IsNull() {
		return "<null wire>"
	}
	return a.wires[wire].name
}

func (a *Arch) NameOfPip(pip device.PipId) string {
	if pip.IsNull() {
		return "<null pip>"
	}
	return a.pips[pip].name
}

func (a *Arch) NameOfNet(net device.NetIndex) string {
	if !net.Valid() || int(net) >= len(a.nets) {
		return "<no net>"
	}
	return a.nets[net].Name
}

// Builder wires up an Arch by hand.
type Builder struct {
	arch *Arch
}

type Sink struct {
	Loc   device.Loc
	Wires []device.WireId
}

func NewBuilder(dimX, dimY int32) *Builder {
	return &Builder{
		arch: &Arch{
			dimX:            dimX,
			dimY:            dimY,
			wires:           make([]wireInfo, 0),
			pips:            make([]pipInfo, 0),
			nets:            make([]device.Net, 0),
			epsilon:         0.001,
			generalPatterns: pkg.EcpGeneralRoutingPatterns,
		},
	}
}

func (b *Builder) AddWire(name string, loc device.Loc, delay float64) device.WireId {
	id := device.WireId(len(b.arch.wires))
	b.arch.wires = append(b.arch.wires, wireInfo{name: name, loc: loc, delay: delay})
	return id
}

func (b *Builder) AddPip(src, dst device.WireId, loc device.Loc, delay float64) device.PipId {
	id := device.PipId(len(b.arch.pips))
	name := b.arch.wires[src].name + "->" + b.arch.wires[dst].name
	b.arch.pips = append(b.arch.pips, pipInfo{name: name, src: src, dst: dst, loc: loc, delay: delay})
	b.arch.wires[src].downhill = append(b.arch.wires[src].downhill, id)
	b.arch.wires[dst].uphill = append(b.arch.wires[dst].uphill, id)
	return id
}

// AddNet registers a net driven by source at driverLoc. each sink becomes one user.
func (b *Builder) AddNet(name string, global bool, source device.WireId, driverLoc device.Loc,
	sinks ...Sink) device.NetIndex {
	idx := device.NetIndex(len(b.arch.nets))
	net := device.Net{
		Index:  idx,
		Name:   name,
		Global: global,
		Driver: device.PortRef{Bel: device.INVALID_BEL_ID, Loc: driverLoc, HasCell: true},
		Users:  make([]device.PortRef, 0, len(sinks)),
	}
	sinkWires := make([][]device.WireId, 0, len(sinks))
	for _, s := range sinks {
		net.Users = append(net.Users, device.PortRef{Bel: device.INVALID_BEL_ID, Loc: s.Loc, HasCell: true})
		sinkWires = append(sinkWires, s.Wires)
	}
	b.arch.nets = append(b.arch.nets, net)
	b.arch.sourceWires = append(b.arch.sourceWires, source)
	b.arch.sinkWires = append(b.arch.sinkWires, sinkWires)
	return idx
}

func (b *Builder) SetGeneralRoutingPatterns(patterns ...string) *Builder {
	b.arch.generalPatterns = patterns
	return b
}

func (b *Builder) SetEstimateScale(scale float64) *Builder {
	b.arch.estimateScale = scale
	return b
}

func (b *Builder) SetDelayEpsilon(eps float64) *Builder {
	b.arch.epsilon = eps
	return b
}

func (b *Builder) Build() *Arch {
	a := b.arch
	a.pipNet = make([]device.NetIndex, len(a.pips))
	for i := range a.pipNet {
		a.pipNet[i] = device.INVALID_NET
	}
	a.wireNet = make([]device.NetIndex, len(a.wires))
	a.wireDriver = make([]device.PipId, len(a.wires))
	for i := range a.wireNet {
		a.wireNet[i] = device.INVALID_NET
		a.wireDriver[i] = device.INVALID_PIP_ID
	}
	return a
}
