package engine

import (
	"context"
	"testing"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(depth int) util.Config {
	cfg := util.DefaultConfig()
	cfg.Partition.Depth = depth
	cfg.Partition.Workers = 2
	cfg.Engine.Workers = 4
	cfg.Router.HistoryFactor = 2
	return cfg
}

func crossArch(t *testing.T) *gridarch.Arch {
	t.Helper()
	f := gridarch.NewFabric(gridarch.FabricConfig{DimX: 4, DimY: 4, Tracks: 2, BelsPerTile: 2,
		TrackWireDelay: 0.05, HopPipDelay: 0.3, LocalPipDelay: 0.1})
	_, err := f.AddNet(gridarch.NetSpec{Name: "a", Driver: gridarch.PinSpec{X: 0, Y: 0},
		Sinks: []gridarch.PinSpec{{X: 3, Y: 3}}})
	require.NoError(t, err)
	_, err = f.AddNet(gridarch.NetSpec{Name: "b", Driver: gridarch.PinSpec{X: 3, Y: 0},
		Sinks: []gridarch.PinSpec{{X: 0, Y: 3}}})
	require.NoError(t, err)
	return f.Build()
}

// assertLegal checks that every bound pip drives a wire no other net uses and that each arc is connected.
func assertLegal(t *testing.T, g *gridarch.Arch) {
	t.Helper()
	wireNet := make(map[device.WireId]device.NetIndex)
	for _, pip := range g.BoundPips() {
		net := g.BoundPipNet(pip)
		dst := g.PipDstWire(pip)
		owner, seen := wireNet[dst]
		assert.False(t, seen && owner != net, "wire %s shared", g.NameOfWire(dst))
		wireNet[dst] = net
	}
	for _, arc := range da.ExtractArcs(g) {
		assert.NoError(t, CheckArcRouting(g, arc))
	}
}

func TestRouteCross(t *testing.T) {
	g := crossArch(t)
	cfg := testConfig(1)
	cfg.Partition.Bisect = false
	cfg.Partition.Workers = 1

	res, err := NewEngine(g, cfg, nil, zap.NewNop()).Route(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Arcs)
	assert.Len(t, res.Regions, 4)
	assert.Equal(t, 4, res.Crossings)
	assert.Equal(t, 0, res.Special.Arcs)
	for _, region := range res.Regions {
		assert.True(t, region.Stats.Converged, region.Name)
	}
	assert.Len(t, res.Routers, 5)
	assertLegal(t, g)
}

func TestRouteWithoutPartitioning(t *testing.T) {
	g := crossArch(t)
	res, err := NewEngine(g, testConfig(0), nil, zap.NewNop()).Route(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Regions, 1)
	assert.Equal(t, "root", res.Regions[0].Name)
	assert.Equal(t, 0, res.Crossings)
	assertLegal(t, g)
}

func TestRouteRandomDesign(t *testing.T) {
	testCases := []struct {
		name string
		spec gridarch.RandomSpec
	}{
		{name: "24 nets", spec: gridarch.RandomSpec{Nets: 24, MaxFanout: 3, Seed: 3}},
		{name: "16 nets", spec: gridarch.RandomSpec{Nets: 16, MaxFanout: 3, Seed: 7}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := gridarch.NewFabric(gridarch.DefaultFabricConfig())
			require.NoError(t, f.AddRandomNets(tc.spec))
			g := f.Build()

			res, err := NewEngine(g, testConfig(2), nil, zap.NewNop()).Route(context.Background())
			require.NoError(t, err)
			assert.Greater(t, len(res.Regions), 4)
			assert.Equal(t, len(da.ExtractArcs(g)), res.Arcs)
			assert.Positive(t, res.Crossings)
			assert.Positive(t, res.Reserved)
			for _, region := range res.Regions {
				assert.True(t, region.Stats.Converged, region.Name)
			}
			assertLegal(t, g)
		})
	}
}

func TestCheckArcRouting(t *testing.T) {
	b := gridarch.NewBuilder(2, 1)
	src := b.AddWire("R0C0_SRC", device.NewLoc(0, 0), 0)
	mid := b.AddWire("R1C0_MID", device.NewLoc(1, 0), 0)
	snk := b.AddWire("R1C0_SNK", device.NewLoc(1, 0), 0)
	in := b.AddPip(src, mid, device.NewLoc(1, 0), 0.1)
	out := b.AddPip(mid, snk, device.NewLoc(1, 0), 0.1)
	b.AddNet("n", false, src, device.NewLoc(0, 0), gridarch.Sink{Loc: device.NewLoc(1, 0),
		Wires: []device.WireId{snk}})
	g := b.Build()
	arc := da.ExtractArcs(g)[0]

	err := CheckArcRouting(g, arc)
	assert.True(t, util.IsCode(err, util.ErrRoutingFailure))

	require.NoError(t, g.BindPip(out, 0))
	err = CheckArcRouting(g, arc)
	assert.True(t, util.IsCode(err, util.ErrRoutingFailure))
	assert.Contains(t, err.Error(), "R1C0_MID")

	require.NoError(t, g.BindPip(in, 0))
	assert.NoError(t, CheckArcRouting(g, arc))

	path, err := ArcPath(g, arc)
	require.NoError(t, err)
	assert.Equal(t, []device.PipId{in, out}, path)
}

func TestRouteCancelled(t *testing.T) {
	g := crossArch(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(g, testConfig(1), nil, zap.NewNop()).Route(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
