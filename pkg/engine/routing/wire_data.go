package routing

import (
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
)

// perWireData. congestion state of one wire plus the scratch labels of the search in flight.
type perWireData struct {
	currCong int // distinct nets with a live binding
	histCong float64

	visitFwd, visitBwd bool // settled
	pipFwd, pipBwd     device.PipId
	costFwd, costBwd   float64
	nodeFwd, nodeBwd   *da.PriorityQueueNode[device.WireId]
}

func newPerWireData() *perWireData {
	return &perWireData{
		pipFwd:  device.INVALID_PIP_ID,
		pipBwd:  device.INVALID_PIP_ID,
		costFwd: -1,
		costBwd: -1,
	}
}

func (wd *perWireData) resetSearch() {
	wd.visitFwd, wd.visitBwd = false, false
	wd.pipFwd, wd.pipBwd = device.INVALID_PIP_ID, device.INVALID_PIP_ID
	wd.costFwd, wd.costBwd = -1, -1
	wd.nodeFwd, wd.nodeBwd = nil, nil
}

type wireBinding struct {
	pip  device.PipId // driver for this net, null on the net's source wire
	refs int          // arcs of the net routed through the wire
}

// perNetData. wires bound by one net in this router.
type perNetData struct {
	wires map[device.WireId]*wireBinding
}

func newPerNetData() *perNetData {
	return &perNetData{wires: make(map[device.WireId]*wireBinding)}
}

type arcState struct {
	routed bool
	delay  float64
	crit   float64
}
