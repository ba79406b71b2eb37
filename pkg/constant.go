package pkg

const (
	INF_WEIGHT float64 = 1e15
)

// default negotiated congestion parameters
const (
	DEFAULT_PRESSURE_FACTOR      = 2.0
	DEFAULT_HISTORY_FACTOR       = 1.0
	DEFAULT_STALL_ROUNDS         = 50
	DEFAULT_STALL_WINDOWS        = 4
	DEFAULT_CRITICALITY_EXPONENT = 2.5
	DEFAULT_CRITICALITY_CAP      = 0.99
	DEFAULT_CRITICALITY_FLOOR    = 0.1
	MAX_HISTORY_COST             = 1e9
	DEFAULT_MAX_ROUNDS           = 1000
)

// default partitioner parameters
const (
	DEFAULT_PARTITION_DEPTH      = 2
	DEFAULT_DISTORTION_THRESHOLD = 5.0 // percent
	QUADRANT_SHARE               = 0.25
	BALANCE_WARN_DISTORTION      = 0.05
	BALANCE_BAD_DISTORTION       = 0.20
	BOUNDARY_WALK_DEPTH          = 1
)

// default routing server parameters
const (
	DEFAULT_API_PORT            = 6060
	DEFAULT_WEBSOCKET_PORT      = 6666
	DEFAULT_API_TIMEOUT         = "300s"
	DEFAULT_REQUESTS_PER_SECOND = 4.0
	DEFAULT_MAX_BODY_BYTES      = 4 << 20
	PROGRESS_EVENTS_PER_SECOND  = 10.0
	WEBSOCKET_WRITE_TIMEOUT     = "2s"
)

// EcpGeneralRoutingPatterns. wire name fragments of the ECP5 general routing fabric.
var EcpGeneralRoutingPatterns = []string{"H01", "V01", "H02", "V02", "H06", "V06"}
