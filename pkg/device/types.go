package device

import (
	"fmt"
	"math"
)

type WireId uint32
type PipId uint32
type BelId uint32

// NetIndex. dense per-run net number, used to index flat per-net tables.
type NetIndex int32

const (
	INVALID_WIRE_ID WireId   = math.MaxUint32
	INVALID_PIP_ID  PipId    = math.MaxUint32
	INVALID_BEL_ID  BelId    = math.MaxUint32
	INVALID_NET     NetIndex = -1
)

func (w WireId) IsNull() bool { return w == INVALID_WIRE_ID }
func (p PipId) IsNull() bool  { return p == INVALID_PIP_ID }
func (b BelId) IsNull() bool  { return b == INVALID_BEL_ID }

func (n NetIndex) Valid() bool { return n >= 0 }

// Loc. physical grid location. the grid spans [0, GridDimX) x [0, GridDimY).
type Loc struct {
	X, Y, Z int32
}

func NewLoc(x, y int32) Loc {
	return Loc{X: x, Y: y}
}

func (l Loc) String() string {
	return fmt.Sprintf("(%d, %d, %d)", l.X, l.Y, l.Z)
}

type PortRef struct {
	Bel     BelId
	Loc     Loc
	HasCell bool
}

type Net struct {
	Index  NetIndex
	Name   string
	Global bool
	Driver PortRef
	Users  []PortRef
}
