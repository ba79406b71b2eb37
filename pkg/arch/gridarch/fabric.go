package gridarch

import (
	"fmt"
	"os"

	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/util"
	"golang.org/x/exp/rand"
	"gopkg.in/yaml.v3"
)

// FabricConfig describes a regular island style fabric: every tile has a few bels and a bundle of routing tracks.
type FabricConfig struct {
	DimX           int32   `yaml:"dim_x"`
	DimY           int32   `yaml:"dim_y"`
	Tracks         int     `yaml:"tracks"`
	BelsPerTile    int     `yaml:"bels_per_tile"`
	TrackWireDelay float64 `yaml:"track_wire_delay"`
	HopPipDelay    float64 `yaml:"hop_pip_delay"`
	LocalPipDelay  float64 `yaml:"local_pip_delay"`
}

type PinSpec struct {
	X   int32 `yaml:"x"`
	Y   int32 `yaml:"y"`
	Bel int   `yaml:"bel"`
}

type NetSpec struct {
	Name   string    `yaml:"name"`
	Global bool      `yaml:"global"`
	Driver PinSpec   `yaml:"driver"`
	Sinks  []PinSpec `yaml:"sinks"`
}

type RandomSpec struct {
	Nets      int    `yaml:"nets"`
	MaxFanout int    `yaml:"max_fanout"`
	Seed      uint64 `yaml:"seed"`
}

// Design is the yaml description consumed by the CLI.
type Design struct {
	Fabric FabricConfig `yaml:"fabric"`
	Nets   []NetSpec    `yaml:"nets"`
	Random RandomSpec   `yaml:"random"`
}

func DefaultFabricConfig() FabricConfig {
	return FabricConfig{
		DimX:           16,
		DimY:           16,
		Tracks:         4,
		BelsPerTile:    2,
		TrackWireDelay: 0.05,
		HopPipDelay:    0.3,
		LocalPipDelay:  0.1,
	}
}

func ReadDesign(path string) (Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Design{}, util.WrapErrorf(err, util.ErrBadParamInput, "read design %s", path)
	}
	design := Design{Fabric: DefaultFabricConfig()}
	if err := yaml.Unmarshal(data, &design); err != nil {
		return Design{}, util.WrapErrorf(err, util.ErrBadParamInput, "parse design %s", path)
	}
	return design, nil
}

var trackKinds = []string{"H01", "V01", "H02", "V02", "H06", "V06"}

type Fabric struct {
	cfg FabricConfig
	b   *Builder

	trackWires [][]device.WireId
	outWires   [][]device.WireId
	inWires    [][]device.WireId

	usedOut map[device.WireId]struct{}
	usedIn  map[device.WireId]struct{}
}

func NewFabric(cfg FabricConfig) *Fabric {
	b := NewBuilder(cfg.DimX, cfg.DimY)
	b.SetEstimateScale(cfg.HopPipDelay + cfg.TrackWireDelay)

	numTiles := int(cfg.DimX) * int(cfg.DimY)
	f := &Fabric{
		cfg:        cfg,
		b:          b,
		trackWires: make([][]device.WireId, numTiles),
		outWires:   make([][]device.WireId, numTiles),
		inWires:    make([][]device.WireId, numTiles),
		usedOut:    make(map[device.WireId]struct{}),
		usedIn:     make(map[device.WireId]struct{}),
	}

	for x := int32(0); x < cfg.DimX; x++ {
		for y := int32(0); y < cfg.DimY; y++ {
			tile := f.tile(x, y)
			loc := device.NewLoc(x, y)
			for t := 0; t < cfg.Tracks; t++ {
				name := fmt.Sprintf("R%dC%d_%sT%d", x, y, trackKinds[t%len(trackKinds)], t)
				f.trackWires[tile] = append(f.trackWires[tile], b.AddWire(name, loc, cfg.TrackWireDelay))
			}
			for bel := 0; bel < cfg.BelsPerTile; bel++ {
				f.outWires[tile] = append(f.outWires[tile], b.AddWire(fmt.Sprintf("R%dC%d_Q%d", x, y, bel), loc, 0))
				f.inWires[tile] = append(f.inWires[tile], b.AddWire(fmt.Sprintf("R%dC%d_A%d", x, y, bel), loc, 0))
			}
		}
	}

	neighbours := [4][2]int32{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for x := int32(0); x < cfg.DimX; x++ {
		for y := int32(0); y < cfg.DimY; y++ {
			tile := f.tile(x, y)
			loc := device.NewLoc(x, y)
			for _, track := range f.trackWires[tile] {
				for _, out := range f.outWires[tile] {
					b.AddPip(out, track, loc, cfg.LocalPipDelay)
				}
				for _, in := range f.inWires[tile] {
					b.AddPip(track, in, loc, cfg.LocalPipDelay)
				}
			}
			for t, track := range f.trackWires[tile] {
				for _, n := range neighbours {
					nx, ny := x+n[0], y+n[1]
					if nx < 0 || ny < 0 || nx >= cfg.DimX || ny >= cfg.DimY {
						continue
					}
					// inter-tile pips sit in the tile they drive
					b.AddPip(track, f.trackWires[f.tile(nx, ny)][t], device.NewLoc(nx, ny), cfg.HopPipDelay)
				}
				if cfg.Tracks > 1 {
					b.AddPip(track, f.trackWires[tile][(t+1)%cfg.Tracks], loc, cfg.LocalPipDelay)
				}
			}
		}
	}
	return f
}

func (f *Fabric) tile(x, y int32) int {
	return int(x)*int(f.cfg.DimY) + int(y)
}

func (f *Fabric) inGrid(p PinSpec) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < f.cfg.DimX && p.Y < f.cfg.DimY && p.Bel >= 0 && p.Bel < f.cfg.BelsPerTile
}

func (f *Fabric) TrackWire(x, y int32, t int) device.WireId {
	return f.trackWires[f.tile(x, y)][t]
}

func (f *Fabric) OutputWire(x, y int32, bel int) device.WireId {
	return f.outWires[f.tile(x, y)][bel]
}

func (f *Fabric) InputWire(x, y int32, bel int) device.WireId {
	return f.inWires[f.tile(x, y)][bel]
}

// AddNet places a net on bel pins. every bel output drives at most one net and every bel input sinks at most one.
func (f *Fabric) AddNet(spec NetSpec) (device.NetIndex, error) {
	if !f.inGrid(spec.Driver) {
		return device.INVALID_NET, util.WrapErrorf(nil, util.ErrBadParamInput, "net %s: driver %+v outside fabric",
			spec.Name, spec.Driver)
	}
	out := f.OutputWire(spec.Driver.X, spec.Driver.Y, spec.Driver.Bel)
	if _, used := f.usedOut[out]; used {
		return device.INVALID_NET, util.WrapErrorf(nil, util.ErrBadParamInput, "net %s: driver %+v already used",
			spec.Name, spec.Driver)
	}

	sinks := make([]Sink, 0, len(spec.Sinks))
	for _, s := range spec.Sinks {
		if !f.inGrid(s) {
			return device.INVALID_NET, util.WrapErrorf(nil, util.ErrBadParamInput, "net %s: sink %+v outside fabric",
				spec.Name, s)
		}
		in := f.InputWire(s.X, s.Y, s.Bel)
		if _, used := f.usedIn[in]; used {
			return device.INVALID_NET, util.WrapErrorf(nil, util.ErrBadParamInput, "net %s: sink %+v already used",
				spec.Name, s)
		}
		f.usedIn[in] = struct{}{}
		sinks = append(sinks, Sink{Loc: device.NewLoc(s.X, s.Y), Wires: []device.WireId{in}})
	}
	f.usedOut[out] = struct{}{}
	return f.b.AddNet(spec.Name, spec.Global, out, device.NewLoc(spec.Driver.X, spec.Driver.Y), sinks...), nil
}

// AddRandomNets places nets on free bel pins. the same seed always yields the same netlist.
func (f *Fabric) AddRandomNets(spec RandomSpec) error {
	rd := rand.New(rand.NewSource(spec.Seed))
	maxFanout := spec.MaxFanout
	if maxFanout < 1 {
		maxFanout = 1
	}
	randomPin := func() PinSpec {
		return PinSpec{
			X:   int32(rd.Intn(int(f.cfg.DimX))),
			Y:   int32(rd.Intn(int(f.cfg.DimY))),
			Bel: rd.Intn(f.cfg.BelsPerTile),
		}
	}

	for i := 0; i < spec.Nets; i++ {
		var driver PinSpec
		found := false
		for attempt := 0; attempt < 64; attempt++ {
			driver = randomPin()
			if _, used := f.usedOut[f.OutputWire(driver.X, driver.Y, driver.Bel)]; !used {
				found = true
				break
			}
		}
		if !found {
			return util.WrapErrorf(nil, util.ErrBadParamInput, "no free driver left after %d nets", i)
		}

		fanout := 1 + rd.Intn(maxFanout)
		sinks := make([]PinSpec, 0, fanout)
		picked := make(map[device.WireId]struct{})
		for len(sinks) < fanout {
			sink := PinSpec{}
			ok := false
			for attempt := 0; attempt < 64; attempt++ {
				sink = randomPin()
				in := f.InputWire(sink.X, sink.Y, sink.Bel)
				_, used := f.usedIn[in]
				_, dup := picked[in]
				if !used && !dup {
					picked[in] = struct{}{}
					ok = true
					break
				}
			}
			if !ok {
				break
			}
			sinks = append(sinks, sink)
		}
		if len(sinks) == 0 {
			return util.WrapErrorf(nil, util.ErrBadParamInput, "no free sink left after %d nets", i)
		}

		if _, err := f.AddNet(NetSpec{Name: fmt.Sprintf("net_%d", i), Driver: driver, Sinks: sinks}); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fabric) Build() *Arch {
	return f.b.Build()
}

// BuildDesign creates the fabric, the listed nets and the random nets of a design.
func BuildDesign(design Design) (*Arch, error) {
	f := NewFabric(design.Fabric)
	for _, spec := range design.Nets {
		if _, err := f.AddNet(spec); err != nil {
			return nil, err
		}
	}
	if design.Random.Nets > 0 {
		if err := f.AddRandomNets(design.Random); err != nil {
			return nil, err
		}
	}
	return f.Build(), nil
}
