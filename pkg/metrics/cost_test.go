package metrics

import (
	"testing"

	"github.com/lintang-b-s/awooter/pkg"
	"github.com/lintang-b-s/awooter/pkg/util"
	"github.com/stretchr/testify/assert"
)

func defaultModel() *CostModel {
	return NewCostModel(util.DefaultConfig().Router)
}

func TestCriticality(t *testing.T) {
	cm := defaultModel()
	testCases := []struct {
		name            string
		delay, maxDelay float64
		want            float64
	}{
		{name: "no delay yet", delay: 0, maxDelay: 0, want: 0.1},
		{name: "zero delay arc", delay: 0, maxDelay: 4, want: 0.1},
		{name: "half", delay: 2, maxDelay: 4, want: 0.17677669529663687 + 0.1},
		{name: "most critical is capped", delay: 4, maxDelay: 4, want: 0.99},
		{name: "short arc", delay: 0.4, maxDelay: 4, want: 0.0031622776601683794 + 0.1},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cm.Criticality(tt.delay, tt.maxDelay), 1e-9)
		})
	}
}

func TestCriticalityMonotone(t *testing.T) {
	cm := defaultModel()
	prev := cm.Criticality(0.01, 1)
	for d := 0.05; d <= 1; d += 0.05 {
		c := cm.Criticality(d, 1)
		assert.GreaterOrEqual(t, c, prev)
		assert.LessOrEqual(t, c, 0.99)
		prev = c
	}
}

func TestCongestionCost(t *testing.T) {
	cm := defaultModel()
	assert.InDelta(t, 0.5, cm.CongestionCost(0.5, 0, 0), 1e-12)
	// pressure factor 2: every other net adds twice the base cost
	assert.InDelta(t, 1.5, cm.CongestionCost(0.5, 0, 1), 1e-12)
	assert.InDelta(t, 7.5, cm.CongestionCost(0.5, 2, 1), 1e-12)
	assert.InDelta(t, 12.5, cm.CongestionCost(0.5, 2, 2), 1e-12)
}

func TestScore(t *testing.T) {
	cm := defaultModel()
	assert.InDelta(t, 3.0, cm.Score(0, 1, 3), 1e-12)
	assert.InDelta(t, 1.0, cm.Score(1, 1, 3), 1e-12)
	assert.InDelta(t, 2.0, cm.Score(0.5, 1, 3), 1e-12)
}

func TestHistory(t *testing.T) {
	cfg := util.DefaultConfig().Router
	cfg.HistoryFactor = 0.5
	cm := NewCostModel(cfg)

	assert.Equal(t, 3.0, cm.NextHistory(3, 0))
	assert.Equal(t, 3.0, cm.NextHistory(3, 1))
	assert.Equal(t, 3.5, cm.NextHistory(3, 2))
	assert.Equal(t, 4.5, cm.NextHistory(3, 4))
	assert.Equal(t, float64(pkg.MAX_HISTORY_COST), cm.NextHistory(pkg.MAX_HISTORY_COST, 3))

	// penalties add at least one unit
	assert.Equal(t, 4.0, cm.Penalty(3))
	cfg.HistoryFactor = 2
	assert.Equal(t, 5.0, NewCostModel(cfg).Penalty(3))
	assert.Equal(t, float64(pkg.MAX_HISTORY_COST), cm.Penalty(pkg.MAX_HISTORY_COST))
}
