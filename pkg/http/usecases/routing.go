package usecases

import (
	"context"
	"time"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	"github.com/lintang-b-s/awooter/pkg/device"
	"github.com/lintang-b-s/awooter/pkg/engine"
	"github.com/lintang-b-s/awooter/pkg/engine/routing"
	"github.com/lintang-b-s/awooter/pkg/observer"
	"github.com/lintang-b-s/awooter/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type RouteJob struct {
	ID     string
	Design gridarch.Design
	// Depth overrides the configured partition depth when set.
	Depth        *int
	IncludePaths bool
	Observer     observer.Observer
}

type RegionReport struct {
	Name   string
	Bounds string
	Stats  routing.RouterStats
}

type ArcReport struct {
	Net    string
	Source string
	Sink   string
	Pips   int
	Delay  float64
	// Path is the polyline encoded tile sequence from source to sink.
	Path string
}

type RouteReport struct {
	JobID     string
	Arcs      int
	Crossings int
	Reserved  int
	Duration  time.Duration
	Regions   []RegionReport
	Special   routing.RouterStats
	Paths     []ArcReport
}

type RoutingService struct {
	log  *zap.Logger
	cfg  util.Config
	jobs *semaphore.Weighted

	newEngine func(g device.Oracle, cfg util.Config, obs observer.Observer, log *zap.Logger) RoutingEngine
}

// NewRoutingService routes at most maxJobs designs at once, later jobs wait for a free slot.
func NewRoutingService(log *zap.Logger, cfg util.Config, maxJobs int64) *RoutingService {
	return &RoutingService{
		log:  log,
		cfg:  cfg,
		jobs: semaphore.NewWeighted(max(1, maxJobs)),
		newEngine: func(g device.Oracle, cfg util.Config, obs observer.Observer, log *zap.Logger) RoutingEngine {
			return engine.NewEngine(g, cfg, obs, log)
		},
	}
}

func (rs *RoutingService) Route(ctx context.Context, job RouteJob) (*RouteReport, error) {
	if err := rs.jobs.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer rs.jobs.Release(1)

	g, err := gridarch.BuildDesign(job.Design)
	if err != nil {
		return nil, err
	}

	cfg := rs.cfg
	if job.Depth != nil {
		cfg.Partition.Depth = *job.Depth
		if err := util.ValidateConfig(cfg); err != nil {
			return nil, err
		}
	}

	log := rs.log.With(zap.String("job", job.ID))
	res, err := rs.newEngine(g, cfg, job.Observer, log).Route(ctx)
	if err != nil {
		return nil, err
	}

	report := newRouteReport(job.ID, res)
	if job.IncludePaths {
		if report.Paths, err = arcReports(g); err != nil {
			return nil, err
		}
	}
	log.Info("job routed", zap.Int("arcs", report.Arcs), zap.Duration("duration", report.Duration))
	return report, nil
}
