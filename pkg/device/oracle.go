package device

// Oracle is the device database as seen by the partitioner and the router.
// It is read-mostly: the only mutations are BindPip/UnbindPip issued by the router itself.
// Implementations must make BindPip/UnbindPip/PipAvailForNet safe for concurrent use.
type Oracle interface {
	GridDimX() int32
	GridDimY() int32

	Wires() []WireId
	Pips() []PipId

	PipSrcWire(pip PipId) WireId
	PipDstWire(pip PipId) WireId
	PipLocation(pip PipId) Loc
	WireLocation(wire WireId) Loc

	PipDelay(pip PipId) float64
	WireDelay(wire WireId) float64
	DelayEpsilon() float64
	// EstimateDelay. lower bound of the delay from src to dst.
	EstimateDelay(src, dst WireId) float64

	DownhillPips(wire WireId) []PipId
	UphillPips(wire WireId) []PipId

	Nets() []Net
	NumNets() int
	SourceWire(net NetIndex) WireId
	SinkWires(net NetIndex, user int) []WireId

	BindPip(pip PipId, net NetIndex) error
	UnbindPip(pip PipId)
	PipAvailForNet(pip PipId, net NetIndex) bool
	BoundPipNet(pip PipId) NetIndex

	// IsGeneralRouting. architecture specific filter for wires allowed as partition boundary crossings.
	IsGeneralRouting(wire WireId) bool

	NameOfWire(wire WireId) string
	NameOfPip(pip PipId) string
	NameOfNet(net NetIndex) string
}
