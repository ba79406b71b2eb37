package datastructure

import (
	"fmt"

	"github.com/lintang-b-s/awooter/pkg/device"
)

// Arc. one source to sink connection of a net. value type, never shared mutably.
type Arc struct {
	sourceWire device.WireId
	sourceLoc  device.Loc
	sinkWire   device.WireId
	sinkLoc    device.Loc
	net        device.NetIndex
}

func NewArc(sourceWire device.WireId, sourceLoc device.Loc, sinkWire device.WireId, sinkLoc device.Loc,
	net device.NetIndex) Arc {
	return Arc{
		sourceWire: sourceWire,
		sourceLoc:  sourceLoc,
		sinkWire:   sinkWire,
		sinkLoc:    sinkLoc,
		net:        net,
	}
}

func (a Arc) GetSourceWire() device.WireId {
	return a.sourceWire
}

func (a Arc) GetSourceLoc() device.Loc {
	return a.sourceLoc
}

func (a Arc) GetSinkWire() device.WireId {
	return a.sinkWire
}

func (a Arc) GetSinkLoc() device.Loc {
	return a.sinkLoc
}

func (a Arc) Net() device.NetIndex {
	return a.net
}

// Split cuts the arc at pip: the first half ends on the pip's source wire, the second starts on its destination wire.
// the new endpoints take the locations of those wires.
func (a Arc) Split(g device.Oracle, pip device.PipId) (Arc, Arc) {
	srcWire, dstWire := g.PipSrcWire(pip), g.PipDstWire(pip)
	srcToPip := NewArc(a.sourceWire, a.sourceLoc, srcWire, g.WireLocation(srcWire), a.net)
	pipToDst := NewArc(dstWire, g.WireLocation(dstWire), a.sinkWire, a.sinkLoc, a.net)
	return srcToPip, pipToDst
}

func (a Arc) String() string {
	return fmt.Sprintf("net %d: wire %d %v -> wire %d %v", a.net, a.sourceWire, a.sourceLoc, a.sinkWire, a.sinkLoc)
}

// ExtractArcs builds one arc per (user, sink wire) of every non-global net that has a placed driver.
func ExtractArcs(g device.Oracle) []Arc {
	arcs := make([]Arc, 0)
	for _, net := range g.Nets() {
		if net.Global || !net.Driver.HasCell {
			continue
		}
		sourceWire := g.SourceWire(net.Index)
		if sourceWire.IsNull() {
			continue
		}
		for i, user := range net.Users {
			if !user.HasCell {
				continue
			}
			for _, sinkWire := range g.SinkWires(net.Index, i) {
				arcs = append(arcs, NewArc(sourceWire, net.Driver.Loc, sinkWire, user.Loc, net.Index))
			}
		}
	}
	return arcs
}
