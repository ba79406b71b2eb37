package controllers

import (
	"time"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	"github.com/lintang-b-s/awooter/pkg/engine/routing"
	"github.com/lintang-b-s/awooter/pkg/http/usecases"
)

type fabricRequest struct {
	DimX           int32   `json:"dim_x" validate:"required,min=1,max=512"`
	DimY           int32   `json:"dim_y" validate:"required,min=1,max=512"`
	Tracks         int     `json:"tracks" validate:"required,min=1,max=64"`
	BelsPerTile    int     `json:"bels_per_tile" validate:"required,min=1,max=16"`
	TrackWireDelay float64 `json:"track_wire_delay" validate:"gte=0"`
	HopPipDelay    float64 `json:"hop_pip_delay" validate:"gt=0"`
	LocalPipDelay  float64 `json:"local_pip_delay" validate:"gt=0"`
}

type pinRequest struct {
	X   int32 `json:"x" validate:"gte=0"`
	Y   int32 `json:"y" validate:"gte=0"`
	Bel int   `json:"bel" validate:"gte=0"`
}

type netRequest struct {
	Name   string       `json:"name" validate:"required,max=128"`
	Global bool         `json:"global"`
	Driver pinRequest   `json:"driver"`
	Sinks  []pinRequest `json:"sinks" validate:"required,min=1,dive"`
}

type randomRequest struct {
	Nets      int    `json:"nets" validate:"gte=0,max=100000"`
	MaxFanout int    `json:"max_fanout" validate:"gte=0,max=64"`
	Seed      uint64 `json:"seed"`
}

type routeRequest struct {
	JobID        string        `json:"job_id" validate:"omitempty,max=64"`
	Fabric       fabricRequest `json:"fabric"`
	Nets         []netRequest  `json:"nets" validate:"omitempty,dive"`
	Random       randomRequest `json:"random"`
	Depth        *int          `json:"depth" validate:"omitempty,gte=0,lte=6"`
	IncludePaths bool          `json:"include_paths"`
}

func (r routeRequest) ToDesign() gridarch.Design {
	design := gridarch.Design{
		Fabric: gridarch.FabricConfig{
			DimX:           r.Fabric.DimX,
			DimY:           r.Fabric.DimY,
			Tracks:         r.Fabric.Tracks,
			BelsPerTile:    r.Fabric.BelsPerTile,
			TrackWireDelay: r.Fabric.TrackWireDelay,
			HopPipDelay:    r.Fabric.HopPipDelay,
			LocalPipDelay:  r.Fabric.LocalPipDelay,
		},
		Random: gridarch.RandomSpec{
			Nets:      r.Random.Nets,
			MaxFanout: r.Random.MaxFanout,
			Seed:      r.Random.Seed,
		},
	}
	for _, n := range r.Nets {
		spec := gridarch.NetSpec{
			Name:   n.Name,
			Global: n.Global,
			Driver: n.Driver.toPinSpec(),
		}
		for _, s := range n.Sinks {
			spec.Sinks = append(spec.Sinks, s.toPinSpec())
		}
		design.Nets = append(design.Nets, spec)
	}
	return design
}

func (p pinRequest) toPinSpec() gridarch.PinSpec {
	return gridarch.PinSpec{X: p.X, Y: p.Y, Bel: p.Bel}
}

type statsResponse struct {
	Arcs       int     `json:"arcs"`
	Rounds     int     `json:"rounds"`
	RipUps     int     `json:"rip_ups"`
	Overused   int     `json:"overused"`
	Wirelength int     `json:"wirelength"`
	MaxDelay   float64 `json:"max_delay"`
	Converged  bool    `json:"converged"`
	DurationMs float64 `json:"duration_ms"`
}

type regionResponse struct {
	Name   string        `json:"name"`
	Bounds string        `json:"bounds"`
	Stats  statsResponse `json:"stats"`
}

type arcResponse struct {
	Net    string  `json:"net"`
	Source string  `json:"source"`
	Sink   string  `json:"sink"`
	Pips   int     `json:"pips"`
	Delay  float64 `json:"delay"`
	Path   string  `json:"path"`
}

type routeResponse struct {
	JobID      string           `json:"job_id"`
	Arcs       int              `json:"arcs"`
	Crossings  int              `json:"boundary_pips"`
	Reserved   int              `json:"reserved_wires"`
	DurationMs float64          `json:"duration_ms"`
	Regions    []regionResponse `json:"regions"`
	Special    statsResponse    `json:"special"`
	Paths      []arcResponse    `json:"paths,omitempty"`
}

func NewRouteResponse(report *usecases.RouteReport) routeResponse {
	resp := routeResponse{
		JobID:      report.JobID,
		Arcs:       report.Arcs,
		Crossings:  report.Crossings,
		Reserved:   report.Reserved,
		DurationMs: milliseconds(report.Duration),
		Regions:    make([]regionResponse, 0, len(report.Regions)),
		Special:    newStatsResponse(report.Special),
	}
	for _, r := range report.Regions {
		resp.Regions = append(resp.Regions, regionResponse{
			Name:   r.Name,
			Bounds: r.Bounds,
			Stats:  newStatsResponse(r.Stats),
		})
	}
	for _, a := range report.Paths {
		resp.Paths = append(resp.Paths, arcResponse(a))
	}
	return resp
}

func newStatsResponse(s routing.RouterStats) statsResponse {
	return statsResponse{
		Arcs:       s.Arcs,
		Rounds:     s.Rounds,
		RipUps:     s.RipUps,
		Overused:   s.Overused,
		Wirelength: s.Wirelength,
		MaxDelay:   s.MaxDelay,
		Converged:  s.Converged,
		DurationMs: milliseconds(s.Duration),
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// progressEvent is pushed to websocket subscribers while a job routes.
type progressEvent struct {
	JobID      string  `json:"job_id"`
	Event      string  `json:"event"`
	Region     string  `json:"region,omitempty"`
	Arcs       int     `json:"arcs,omitempty"`
	Special    int     `json:"special,omitempty"`
	Round      int     `json:"round,omitempty"`
	Overused   int     `json:"overused,omitempty"`
	Rerouted   int     `json:"rerouted,omitempty"`
	Rounds     int     `json:"rounds,omitempty"`
	DurationMs float64 `json:"duration_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type subscribeRequest struct {
	// JobID filters the events sent to this connection, empty receives every job.
	JobID string `json:"job_id" validate:"omitempty,max=64"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
