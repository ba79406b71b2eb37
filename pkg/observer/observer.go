package observer

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Observer receives progress events from the routing run. implementations must be safe for concurrent use,
// regions report from their own goroutines.
type Observer interface {
	OnPartition(region string, arcs, special int)
	OnRegionStart(region string, arcs int)
	OnRoundComplete(region string, round, overused, rerouted int)
	OnRegionDone(region string, rounds int, duration time.Duration, err error)
}

type noop struct{}

func (noop) OnPartition(string, int, int)                   {}
func (noop) OnRegionStart(string, int)                      {}
func (noop) OnRoundComplete(string, int, int, int)          {}
func (noop) OnRegionDone(string, int, time.Duration, error) {}

func NewNoop() Observer {
	return noop{}
}

// ZapObserver logs progress through zap. per-round events are rate limited, everything else is always logged.
type ZapObserver struct {
	log     *zap.Logger
	limiter *rate.Limiter
}

// NewZapObserver logs at most perSecond round events per second (bursts of one).
func NewZapObserver(log *zap.Logger, perSecond float64) *ZapObserver {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &ZapObserver{
		log:     log,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (o *ZapObserver) OnPartition(region string, arcs, special int) {
	o.log.Info("region partitioned",
		zap.String("region", region),
		zap.Int("arcs", arcs),
		zap.Int("special", special))
}

func (o *ZapObserver) OnRegionStart(region string, arcs int) {
	o.log.Info("routing region",
		zap.String("region", region),
		zap.Int("arcs", arcs))
}

func (o *ZapObserver) OnRoundComplete(region string, round, overused, rerouted int) {
	if overused > 0 && !o.limiter.Allow() {
		return
	}
	o.log.Info("round complete",
		zap.String("region", region),
		zap.Int("round", round),
		zap.Int("overused", overused),
		zap.Int("rerouted", rerouted))
}

func (o *ZapObserver) OnRegionDone(region string, rounds int, duration time.Duration, err error) {
	if err != nil {
		o.log.Error("region failed",
			zap.String("region", region),
			zap.Int("rounds", rounds),
			zap.Duration("duration", duration),
			zap.Error(err))
		return
	}
	o.log.Info("region routed",
		zap.String("region", region),
		zap.Int("rounds", rounds),
		zap.Duration("duration", duration))
}

type multi []Observer

// Multi forwards every event to each observer in order. nil observers are skipped.
func Multi(observers ...Observer) Observer {
	m := make(multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multi) OnPartition(region string, arcs, special int) {
	for _, o := range m {
		o.OnPartition(region, arcs, special)
	}
}

func (m multi) OnRegionStart(region string, arcs int) {
	for _, o := range m {
		o.OnRegionStart(region, arcs)
	}
}

func (m multi) OnRoundComplete(region string, round, overused, rerouted int) {
	for _, o := range m {
		o.OnRoundComplete(region, round, overused, rerouted)
	}
}

func (m multi) OnRegionDone(region string, rounds int, duration time.Duration, err error) {
	for _, o := range m {
		o.OnRegionDone(region, rounds, duration, err)
	}
}
