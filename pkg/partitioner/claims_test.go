package partitioner

import (
	"testing"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimTable(t *testing.T) {
	f := gridarch.NewFabric(smallFabric(3, 2))
	g := f.Build()
	ct := NewClaimTable()

	// two ways into track (1,1,0), one way out of it and one way into (0,1,0)
	fromNorth := pipBetween(t, g, f.TrackWire(0, 1, 0), f.TrackWire(1, 1, 0))
	fromEast := pipBetween(t, g, f.TrackWire(1, 0, 0), f.TrackWire(1, 1, 0))
	onward := pipBetween(t, g, f.TrackWire(1, 1, 0), f.TrackWire(2, 1, 0))
	back := pipBetween(t, g, f.TrackWire(1, 1, 0), f.TrackWire(0, 1, 0))
	upstream := pipBetween(t, g, f.TrackWire(0, 0, 0), f.TrackWire(0, 1, 0))

	ok, fresh := ct.Claim(g, fromNorth, 0)
	require.True(t, ok)
	assert.True(t, fresh)
	ok, fresh = ct.Claim(g, fromNorth, 0)
	assert.True(t, ok, "claiming twice is idempotent")
	assert.False(t, fresh)
	assert.False(t, ct.TryClaim(g, fromNorth, 1))
	assert.False(t, ct.TryClaim(g, fromEast, 1), "the wire belongs to net 0")
	assert.False(t, ct.TryClaim(g, fromEast, 0), "a wire has one claimed driver")
	assert.False(t, ct.TryClaim(g, onward, 0), "a claimed pip never drives another")
	assert.False(t, ct.TryClaim(g, back, 0), "the reverse pip closes a cycle")
	assert.False(t, ct.TryClaim(g, upstream, 0), "the source wire already drives a claimed pip")

	ct.Release(g, fromNorth, 1)
	assert.Equal(t, device.NetIndex(0), ct.PipOwner(fromNorth), "only the owner releases")

	ct.Release(g, fromNorth, 0)
	assert.Equal(t, device.INVALID_NET, ct.PipOwner(fromNorth))
	assert.Equal(t, device.INVALID_NET, ct.WireOwner(f.TrackWire(0, 1, 0)))
	assert.Equal(t, device.INVALID_NET, ct.WireOwner(f.TrackWire(1, 1, 0)))

	require.True(t, ct.TryClaim(g, onward, 0), "the chain is gone")
	assert.False(t, ct.TryClaim(g, fromNorth, 0), "onward's source has no driver to spare")
	assert.False(t, ct.TryClaim(g, fromEast, 1))

	ct.Release(g, onward, 0)
	for _, w := range []device.WireId{f.TrackWire(1, 0, 0), f.TrackWire(1, 1, 0), f.TrackWire(2, 1, 0)} {
		assert.Equal(t, device.INVALID_NET, ct.WireOwner(w))
	}
	assert.True(t, ct.TryClaim(g, fromNorth, 1))
}
