package routing

import (
	"context"
	"testing"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	da "github.com/lintang-b-s/awooter/pkg/datastructure"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/lintang-b-s/awooter/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() util.RouterConfig {
	cfg := util.DefaultConfig().Router
	cfg.HistoryFactor = 5
	cfg.MaxRounds = 200
	return cfg
}

// bottleneck. two nets whose cheapest routes share the wire mid; with detour the second net can avoid it.
type bottleneck struct {
	g                   *gridarch.Arch
	src0, src1          device.WireId
	mid, alt            device.WireId
	snk0, snk1          device.WireId
	detourIn, detourOut device.PipId
}

func newBottleneck(detour bool) *bottleneck {
	b := gridarch.NewBuilder(2, 2)
	bn := &bottleneck{detourIn: device.INVALID_PIP_ID, detourOut: device.INVALID_PIP_ID}
	bn.src0 = b.AddWire("R0C0_SRC0", device.NewLoc(0, 0), 0)
	bn.src1 = b.AddWire("R0C0_SRC1", device.NewLoc(0, 0), 0)
	bn.mid = b.AddWire("R1C0_MID0", device.NewLoc(1, 0), 0.1)
	bn.alt = b.AddWire("R0C1_ALT0", device.NewLoc(0, 1), 0.5)
	bn.snk0 = b.AddWire("R1C1_SNK0", device.NewLoc(1, 1), 0)
	bn.snk1 = b.AddWire("R1C1_SNK1", device.NewLoc(1, 1), 0)

	b.AddPip(bn.src0, bn.mid, device.NewLoc(1, 0), 0.1)
	b.AddPip(bn.src1, bn.mid, device.NewLoc(1, 0), 0.1)
	b.AddPip(bn.mid, bn.snk0, device.NewLoc(1, 1), 0.1)
	b.AddPip(bn.mid, bn.snk1, device.NewLoc(1, 1), 0.1)
	if detour {
		bn.detourIn = b.AddPip(bn.src1, bn.alt, device.NewLoc(0, 1), 0.5)
		bn.detourOut = b.AddPip(bn.alt, bn.snk1, device.NewLoc(1, 1), 0.5)
	}
	b.AddNet("n0", false, bn.src0, device.NewLoc(0, 0), gridarch.Sink{Loc: device.NewLoc(1, 1),
		Wires: []device.WireId{bn.snk0}})
	b.AddNet("n1", false, bn.src1, device.NewLoc(0, 0), gridarch.Sink{Loc: device.NewLoc(1, 1),
		Wires: []device.WireId{bn.snk1}})
	bn.g = b.Build()
	return bn
}

func fabricDesign(t *testing.T, dim int32, nets ...gridarch.NetSpec) (*gridarch.Fabric, *gridarch.Arch) {
	t.Helper()
	cfg := gridarch.DefaultFabricConfig()
	cfg.DimX, cfg.DimY = dim, dim
	f := gridarch.NewFabric(cfg)
	for _, spec := range nets {
		_, err := f.AddNet(spec)
		require.NoError(t, err)
	}
	return f, f.Build()
}

func pinNet(name string, from, to gridarch.PinSpec) gridarch.NetSpec {
	return gridarch.NetSpec{Name: name, Driver: from, Sinks: []gridarch.PinSpec{to}}
}

// assertChain checks that path is a connected pip chain from the arc's source wire to its sink wire.
func assertChain(t *testing.T, g device.Oracle, arc da.Arc, path []device.PipId) {
	t.Helper()
	require.NotEmpty(t, path)
	assert.Equal(t, arc.GetSourceWire(), g.PipSrcWire(path[0]))
	assert.Equal(t, arc.GetSinkWire(), g.PipDstWire(path[len(path)-1]))
	for i := 1; i < len(path); i++ {
		assert.Equal(t, g.PipDstWire(path[i-1]), g.PipSrcWire(path[i]))
	}
}

func TestRouteSingleArc(t *testing.T) {
	_, g := fabricDesign(t, 4, pinNet("a", gridarch.PinSpec{X: 0, Y: 0}, gridarch.PinSpec{X: 3, Y: 3}))
	arcs := da.ExtractArcs(g)
	r := NewRouter("single", g, arcs, testConfig(), zap.NewNop())

	require.NoError(t, r.Route(context.Background()))
	stats := r.Stats()
	assert.True(t, stats.Converged)
	assert.Equal(t, 1, stats.Rounds)
	assert.Equal(t, 0, stats.Overused)

	path, ok := r.ArcPath(0)
	require.True(t, ok)
	assertChain(t, g, arcs[0], path)
	// two local pips plus one hop per unit of manhattan distance
	assert.Len(t, path, 2+6)
	assert.Equal(t, len(path), stats.Wirelength)
	for _, pip := range path {
		assert.Equal(t, 1, r.CurrCong(g.PipDstWire(pip)))
	}
	assert.Equal(t, 1, r.CurrCong(arcs[0].GetSourceWire()))
}

func TestRipUpRestoresCongestion(t *testing.T) {
	_, g := fabricDesign(t, 4, pinNet("a", gridarch.PinSpec{X: 0, Y: 0}, gridarch.PinSpec{X: 2, Y: 3}))
	arcs := da.ExtractArcs(g)
	r := NewRouter("ripup", g, arcs, testConfig(), zap.NewNop())

	require.NoError(t, r.RouteArc(0))
	first, ok := r.ArcPath(0)
	require.True(t, ok)
	assertChain(t, g, arcs[0], first)

	r.RipUpArc(0)
	_, ok = r.ArcPath(0)
	assert.False(t, ok)
	assert.Equal(t, 0, r.CurrCong(arcs[0].GetSourceWire()))
	for _, pip := range first {
		assert.Equal(t, 0, r.CurrCong(g.PipDstWire(pip)))
	}
	assert.Equal(t, 1, r.Stats().RipUps)

	require.NoError(t, r.RouteArc(0))
	second, ok := r.ArcPath(0)
	require.True(t, ok)
	assert.Equal(t, first, second, "rerouting unchanged congestion yields the same path")
}

func TestSharedSourceAcrossArcs(t *testing.T) {
	_, g := fabricDesign(t, 4, gridarch.NetSpec{Name: "fan", Driver: gridarch.PinSpec{X: 1, Y: 1},
		Sinks: []gridarch.PinSpec{{X: 3, Y: 3}, {X: 0, Y: 3}, {X: 3, Y: 0}}})
	arcs := da.ExtractArcs(g)
	require.Len(t, arcs, 3)
	r := NewRouter("fanout", g, arcs, testConfig(), zap.NewNop())

	require.NoError(t, r.Route(context.Background()))
	assert.True(t, r.Stats().Converged)
	for i, arc := range arcs {
		path, ok := r.ArcPath(i)
		require.True(t, ok)
		assertChain(t, g, arc, path)
	}
	assert.Equal(t, 1, r.CurrCong(arcs[0].GetSourceWire()))

	r.RipUpArc(1)
	assert.Equal(t, 1, r.CurrCong(arcs[0].GetSourceWire()), "other arcs still hold the source wire")
	for _, i := range []int{0, 2} {
		path, ok := r.ArcPath(i)
		require.True(t, ok)
		assertChain(t, g, arcs[i], path)
	}
}

func TestSourceEqualsSink(t *testing.T) {
	bn := newBottleneck(false)
	arcs := []da.Arc{da.NewArc(bn.src0, device.NewLoc(0, 0), bn.src0, device.NewLoc(0, 0), 0)}
	r := NewRouter("noop", bn.g, arcs, testConfig(), zap.NewNop())

	require.NoError(t, r.Route(context.Background()))
	path, ok := r.ArcPath(0)
	require.True(t, ok)
	assert.Empty(t, path)
	assert.Equal(t, 0, r.CurrCong(bn.src0))
	assert.Equal(t, 0, r.Stats().Wirelength)
}

func TestNegotiationMovesNetOffSharedWire(t *testing.T) {
	bn := newBottleneck(true)
	arcs := da.ExtractArcs(bn.g)
	r := NewRouter("detour", bn.g, arcs, testConfig(), zap.NewNop())

	require.NoError(t, r.Route(context.Background()))
	stats := r.Stats()
	assert.True(t, stats.Converged)
	assert.Greater(t, stats.Rounds, 1)
	assert.Positive(t, stats.RipUps)
	assert.Equal(t, 1, r.CurrCong(bn.mid))
	assert.Positive(t, r.HistCong(bn.mid))

	path, ok := r.ArcPath(1)
	require.True(t, ok)
	assert.Equal(t, []device.PipId{bn.detourIn, bn.detourOut}, path)
	assert.Equal(t, 1, r.CurrCong(bn.alt))
}

func TestBottleneckFailsAfterMaxRounds(t *testing.T) {
	bn := newBottleneck(false)
	cfg := testConfig()
	cfg.MaxRounds = 5
	r := NewRouter("bottleneck", bn.g, da.ExtractArcs(bn.g), cfg, zap.NewNop())

	err := r.Route(context.Background())
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.ErrRoutingFailure))
	assert.Contains(t, err.Error(), "R1C0_MID0")
	stats := r.Stats()
	assert.False(t, stats.Converged)
	assert.Equal(t, 5, stats.Rounds)
	assert.Equal(t, 1, stats.Overused)
	assert.Equal(t, 2, r.CurrCong(bn.mid))
}

func TestBottleneckFailsAfterStallWindows(t *testing.T) {
	bn := newBottleneck(false)
	cfg := testConfig()
	cfg.MaxRounds = 0
	cfg.StallRounds = 2
	cfg.StallWindows = 3
	r := NewRouter("bottleneck", bn.g, da.ExtractArcs(bn.g), cfg, zap.NewNop())

	err := r.Route(context.Background())
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.ErrRoutingFailure))
	assert.Contains(t, err.Error(), "R1C0_MID0")
	stats := r.Stats()
	assert.False(t, stats.Converged)
	// the first round sets the best overuse, then each window stalls for StallRounds rounds
	assert.Equal(t, 1+cfg.StallRounds*cfg.StallWindows, stats.Rounds)
}

func TestUnreachableSink(t *testing.T) {
	bn := newBottleneck(false)
	// nothing drives src1 from snk0
	arcs := []da.Arc{da.NewArc(bn.snk0, device.NewLoc(1, 1), bn.src1, device.NewLoc(0, 0), 1)}
	r := NewRouter("unreachable", bn.g, arcs, testConfig(), zap.NewNop())

	err := r.Route(context.Background())
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.ErrRoutingFailure))
	assert.Contains(t, err.Error(), "no route")
}

func TestRouteCancelled(t *testing.T) {
	bn := newBottleneck(false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRouter("cancelled", bn.g, da.ExtractArcs(bn.g), testConfig(), zap.NewNop())
	assert.ErrorIs(t, r.Route(ctx), context.Canceled)
}

func TestRouteWithinBounds(t *testing.T) {
	_, g := fabricDesign(t, 4, pinNet("row", gridarch.PinSpec{X: 0, Y: 0}, gridarch.PinSpec{X: 0, Y: 3}))
	arcs := da.ExtractArcs(g)
	bounds := geo.NewBoundingBox(0, 0, 0, 3)
	r := NewRouter("row", g, arcs, testConfig(), zap.NewNop(), WithBounds(bounds))

	require.NoError(t, r.Route(context.Background()))
	path, ok := r.ArcPath(0)
	require.True(t, ok)
	assertChain(t, g, arcs[0], path)
	for _, pip := range path {
		assert.True(t, bounds.Contains(g.PipLocation(pip)), "%s outside %v", g.NameOfPip(pip), bounds)
	}

	blocked := NewRouter("blocked", g, arcs, testConfig(), zap.NewNop(),
		WithBounds(geo.NewBoundingBox(0, 3, 0, 1)))
	assert.True(t, util.IsCode(blocked.Route(context.Background()), util.ErrRoutingFailure))
}

func TestReservedWiresAreAvoided(t *testing.T) {
	bn := newBottleneck(true)
	arcs := da.ExtractArcs(bn.g)[1:]
	reserved := NewReservations()
	require.True(t, reserved.Reserve(bn.mid, 0))
	r := NewRouter("reserved", bn.g, arcs, testConfig(), zap.NewNop(), WithReservations(reserved))

	require.NoError(t, r.Route(context.Background()))
	path, ok := r.ArcPath(0)
	require.True(t, ok)
	assert.Equal(t, []device.PipId{bn.detourIn, bn.detourOut}, path)
	assert.Equal(t, 0, r.CurrCong(bn.mid))
}

func TestTerminalWiresOnlyEndArcs(t *testing.T) {
	bn := newBottleneck(true)
	reserved := NewReservations()
	require.True(t, reserved.ReserveTerminal(bn.mid, 1))

	through := NewRouter("through", bn.g, da.ExtractArcs(bn.g)[1:], testConfig(), zap.NewNop(),
		WithReservations(reserved))
	require.NoError(t, through.Route(context.Background()))
	path, ok := through.ArcPath(0)
	require.True(t, ok)
	assert.Equal(t, []device.PipId{bn.detourIn, bn.detourOut}, path)

	ending := []da.Arc{da.NewArc(bn.src1, device.NewLoc(0, 0), bn.mid, device.NewLoc(1, 0), 1)}
	into := NewRouter("into", bn.g, ending, testConfig(), zap.NewNop(), WithReservations(reserved))
	require.NoError(t, into.Route(context.Background()))
	path, ok = into.ArcPath(0)
	require.True(t, ok)
	assertChain(t, bn.g, ending[0], path)
}

func TestRoutersShareClaims(t *testing.T) {
	bn := newBottleneck(true)
	arcs := da.ExtractArcs(bn.g)
	claims := NewWireClaims()

	first := NewRouter("first", bn.g, arcs[:1], testConfig(), zap.NewNop(), WithClaims(0, claims))
	second := NewRouter("second", bn.g, arcs[1:], testConfig(), zap.NewNop(), WithClaims(1, claims))

	require.NoError(t, first.Route(context.Background()))
	require.NoError(t, second.Route(context.Background()))
	assert.Equal(t, 1, second.Stats().Rounds, "the claimed wire is never tried")

	path, ok := second.ArcPath(0)
	require.True(t, ok)
	assert.Equal(t, []device.PipId{bn.detourIn, bn.detourOut}, path)
	assert.Equal(t, 1, claims.Holders(bn.mid))
	assert.Equal(t, 1, claims.Holders(bn.alt))
}

func TestCommitBindsPips(t *testing.T) {
	_, g := fabricDesign(t, 4,
		pinNet("a", gridarch.PinSpec{X: 0, Y: 0}, gridarch.PinSpec{X: 3, Y: 3}),
		pinNet("b", gridarch.PinSpec{X: 3, Y: 0}, gridarch.PinSpec{X: 0, Y: 3}))
	arcs := da.ExtractArcs(g)
	r := NewRouter("commit", g, arcs, testConfig(), zap.NewNop())

	require.NoError(t, r.Route(context.Background()))
	require.NoError(t, r.Commit())
	for i, arc := range arcs {
		path, ok := r.ArcPath(i)
		require.True(t, ok)
		for _, pip := range path {
			assert.Equal(t, arc.Net(), g.BoundPipNet(pip))
		}
	}
	assert.Len(t, g.BoundPips(), r.Stats().Wirelength)
}

func TestRandomDesignConverges(t *testing.T) {
	cfg := gridarch.DefaultFabricConfig()
	cfg.DimX, cfg.DimY = 8, 8
	f := gridarch.NewFabric(cfg)
	require.NoError(t, f.AddRandomNets(gridarch.RandomSpec{Nets: 16, MaxFanout: 3, Seed: 7}))
	g := f.Build()
	arcs := da.ExtractArcs(g)

	r := NewRouter("random", g, arcs, testConfig(), zap.NewNop())
	require.NoError(t, r.Route(context.Background()))
	assert.True(t, r.Stats().Converged)
	assert.Empty(t, r.overusedWires())
	for i, arc := range arcs {
		path, ok := r.ArcPath(i)
		require.True(t, ok)
		assertChain(t, g, arc, path)
	}
}
