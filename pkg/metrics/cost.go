package metrics

import (
	"math"

	"github.com/lintang-b-s/awooter/pkg"
	"github.com/lintang-b-s/awooter/pkg/util"
)

// CostModel. negotiated congestion cost terms shared by every router of a run.
type CostModel struct {
	pressureFactor float64
	historyFactor  float64
	critExponent   float64
	critCap        float64
	critFloor      float64
}

func NewCostModel(cfg util.RouterConfig) *CostModel {
	return &CostModel{
		pressureFactor: cfg.PressureFactor,
		historyFactor:  cfg.HistoryFactor,
		critExponent:   cfg.CriticalityExponent,
		critCap:        cfg.CriticalityCap,
		critFloor:      cfg.CriticalityFloor,
	}
}

// Criticality reshapes delay/maxDelay into min(ratio, cap)^exponent + floor, clamped to [0, cap]
// so congestion never drops out of the score entirely.
func (cm *CostModel) Criticality(delay, maxDelay float64) float64 {
	if maxDelay <= 0 || delay <= 0 {
		return math.Min(cm.critFloor, cm.critCap)
	}
	ratio := math.Min(delay/maxDelay, cm.critCap)
	crit := math.Pow(ratio, cm.critExponent) + cm.critFloor
	return math.Max(0, math.Min(crit, cm.critCap))
}

// CongestionCost of entering a wire with intrinsic delay nodeDelay. otherNets is the number of other nets already on it.
func (cm *CostModel) CongestionCost(nodeDelay, history float64, otherNets int) float64 {
	return (nodeDelay + history) * (1 + float64(otherNets)*cm.pressureFactor)
}

// Score blends delay and congestion by criticality.
func (cm *CostModel) Score(crit, delay, congestion float64) float64 {
	return crit*delay + (1-crit)*congestion
}

// NextHistory. history after a round in which currCong nets shared the wire.
func (cm *CostModel) NextHistory(history float64, currCong int) float64 {
	if currCong <= 1 {
		return history
	}
	return math.Min(history+float64(currCong-1)*cm.historyFactor, pkg.MAX_HISTORY_COST)
}

// Penalty. history added to a wire another region won while this one was binding it.
func (cm *CostModel) Penalty(history float64) float64 {
	return math.Min(history+math.Max(cm.historyFactor, 1), pkg.MAX_HISTORY_COST)
}
