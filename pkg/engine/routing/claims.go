package routing

import (
	"sync"

	"github.com/lintang-b-s/awooter/pkg/device"
)

const CLAIM_SHARDS = 64

type claimHolder struct {
	router int
	net    device.NetIndex
	pip    device.PipId
	count  int
}

type claimShard struct {
	mu      sync.Mutex
	holders map[device.WireId][]claimHolder
}

// WireClaims arbitrates wires between routers working on neighbouring regions concurrently.
// a router may share a wire with its own nets freely (that is congestion, negotiated locally), but
// across routers a wire may only be shared by one net through one driving pip.
type WireClaims struct {
	shards [CLAIM_SHARDS]claimShard
}

func NewWireClaims() *WireClaims {
	wc := &WireClaims{}
	for i := range wc.shards {
		wc.shards[i].holders = make(map[device.WireId][]claimHolder)
	}
	return wc
}

func (wc *WireClaims) shard(wire device.WireId) *claimShard {
	return &wc.shards[uint32(wire)%CLAIM_SHARDS]
}

// compatible. a null pip stands for a driver outside the router, which matches any driver of the same net.
func compatible(h claimHolder, router int, net device.NetIndex, pip device.PipId) bool {
	if h.router == router {
		return true
	}
	return h.net == net && (h.pip == pip || h.pip.IsNull() || pip.IsNull())
}

// Available reports whether router could claim wire for net driven by pip.
func (wc *WireClaims) Available(router int, wire device.WireId, net device.NetIndex, pip device.PipId) bool {
	s := wc.shard(wire)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.holders[wire] {
		if !compatible(h, router, net, pip) {
			return false
		}
	}
	return true
}

func (wc *WireClaims) Claim(router int, wire device.WireId, net device.NetIndex, pip device.PipId) bool {
	s := wc.shard(wire)
	s.mu.Lock()
	defer s.mu.Unlock()

	holders := s.holders[wire]
	for _, h := range holders {
		if !compatible(h, router, net, pip) {
			return false
		}
	}
	for i := range holders {
		if holders[i].router == router && holders[i].net == net {
			holders[i].count++
			return true
		}
	}
	s.holders[wire] = append(holders, claimHolder{router: router, net: net, pip: pip, count: 1})
	return true
}

func (wc *WireClaims) Release(router int, wire device.WireId, net device.NetIndex) {
	s := wc.shard(wire)
	s.mu.Lock()
	defer s.mu.Unlock()

	holders := s.holders[wire]
	for i := range holders {
		if holders[i].router != router || holders[i].net != net {
			continue
		}
		holders[i].count--
		if holders[i].count == 0 {
			holders = append(holders[:i], holders[i+1:]...)
		}
		break
	}
	if len(holders) == 0 {
		delete(s.holders, wire)
		return
	}
	s.holders[wire] = holders
}

// Holders. number of (router, net) pairs currently holding wire.
func (wc *WireClaims) Holders(wire device.WireId) int {
	s := wc.shard(wire)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holders[wire])
}

// Reservations pins wires to the net that must use them: arc endpoints and boundary pip wires.
// a terminal wire may only be entered by an arc that ends on it.
// it is filled before routing starts and only read afterwards.
type Reservations struct {
	wires map[device.WireId]reservation
}

type reservation struct {
	net      device.NetIndex
	terminal bool
}

func NewReservations() *Reservations {
	return &Reservations{wires: make(map[device.WireId]reservation)}
}

// Reserve returns false if wire already belongs to another net; the first reservation stays.
func (rs *Reservations) Reserve(wire device.WireId, net device.NetIndex) bool {
	if res, ok := rs.wires[wire]; ok {
		return res.net == net
	}
	rs.wires[wire] = reservation{net: net}
	return true
}

// ReserveTerminal reserves wire for net and marks it as an arc end.
func (rs *Reservations) ReserveTerminal(wire device.WireId, net device.NetIndex) bool {
	if !rs.Reserve(wire, net) {
		return false
	}
	res := rs.wires[wire]
	res.terminal = true
	rs.wires[wire] = res
	return true
}

func (rs *Reservations) Owner(wire device.WireId) (device.NetIndex, bool) {
	if rs == nil {
		return device.INVALID_NET, false
	}
	res, ok := rs.wires[wire]
	if !ok {
		return device.INVALID_NET, false
	}
	return res.net, true
}

func (rs *Reservations) Terminal(wire device.WireId) bool {
	if rs == nil {
		return false
	}
	return rs.wires[wire].terminal
}

func (rs *Reservations) Len() int {
	return len(rs.wires)
}
