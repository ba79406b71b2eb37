package spatialindex

import (
	"testing"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPipIndex(t *testing.T) {
	cfg := gridarch.DefaultFabricConfig()
	cfg.DimX, cfg.DimY = 5, 5
	g := gridarch.NewFabric(cfg).Build()

	index := NewPipIndex()
	index.Build(g, zap.NewNop())
	require.Equal(t, len(g.Pips()), index.Len())

	testCases := []struct {
		name string
		bb   geo.BoundingBox
	}{
		{name: "single tile", bb: geo.NewBoundingBox(2, 2, 3, 3)},
		{name: "corner", bb: geo.NewBoundingBox(0, 1, 0, 1)},
		{name: "column", bb: geo.NewBoundingBox(0, 4, 4, 4)},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			want := make([]device.PipId, 0)
			for _, pip := range g.Pips() {
				if tt.bb.Contains(g.PipLocation(pip)) {
					want = append(want, pip)
				}
			}
			assert.Equal(t, want, index.SearchBox(tt.bb))
		})
	}
}

func TestSearchPartitionLines(t *testing.T) {
	cfg := gridarch.DefaultFabricConfig()
	cfg.DimX, cfg.DimY = 6, 6
	g := gridarch.NewFabric(cfg).Build()
	index := NewPipIndex()
	index.Build(g, zap.NewNop())

	bb := geo.NewBoundingBox(1, 5, 0, 4)
	p := geo.NewCoord(3, 2)
	got := index.SearchPartitionLines(bb, p)

	want := make([]device.PipId, 0)
	for _, pip := range g.Pips() {
		l := g.PipLocation(pip)
		if bb.Contains(l) && (l.X == p.X || l.Y == p.Y) {
			want = append(want, pip)
		}
	}
	assert.Equal(t, want, got)
	assert.NotEmpty(t, got)
}
