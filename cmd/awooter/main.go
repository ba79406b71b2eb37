package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lintang-b-s/awooter/pkg/arch/gridarch"
	"github.com/lintang-b-s/awooter/pkg/engine"
	"github.com/lintang-b-s/awooter/pkg/engine/routing"
	"github.com/lintang-b-s/awooter/pkg/http"
	"github.com/lintang-b-s/awooter/pkg/http/usecases"
	"github.com/lintang-b-s/awooter/pkg/logger"
	"github.com/lintang-b-s/awooter/pkg/observer"
	"github.com/lintang-b-s/awooter/pkg/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DEFAULT_RANDOM_NETS   = 48
	DEFAULT_RANDOM_FANOUT = 3
	PROGRESS_PER_SECOND   = 2.0
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	v := viper.New()
	var (
		configDir  string
		designPath string
		heatmapDir string
		outputPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:          "awooter",
		Short:        "awooter routes FPGA designs with partitioned negotiated congestion",
		SilenceUsage: true,
	}

	route := &cobra.Command{
		Use:   "route",
		Short: "route a design described in yaml (or a random netlist) on a synthetic fabric",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := util.ReadConfig(v, configDir)
			if err != nil {
				return err
			}

			design := gridarch.Design{
				Fabric: gridarch.DefaultFabricConfig(),
				Random: gridarch.RandomSpec{Nets: DEFAULT_RANDOM_NETS, MaxFanout: DEFAULT_RANDOM_FANOUT, Seed: 1},
			}
			if designPath != "" {
				if design, err = gridarch.ReadDesign(designPath); err != nil {
					return err
				}
			}
			g, err := gridarch.BuildDesign(design)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng := engine.NewEngine(g, cfg, observer.NewZapObserver(log, PROGRESS_PER_SECOND), log)
			res, routeErr := eng.Route(ctx)
			if heatmapDir != "" && res != nil {
				if err := writeHeatmaps(heatmapDir, g.GridDimX(), g.GridDimY(), res.Routers); err != nil {
					log.Error("write heatmaps", zap.Error(err))
				}
			}
			if routeErr != nil {
				log.Error("routing failed", zap.Error(routeErr))
				return routeErr
			}
			if outputPath != "" {
				if err := engine.WriteRouting(outputPath, g); err != nil {
					return err
				}
				log.Info("routing written", zap.String("path", outputPath))
			}
			printResult(cmd, res)
			return nil
		},
	}

	flags := route.Flags()
	flags.StringVar(&configDir, "config", "", "directory holding config.yaml")
	flags.StringVar(&designPath, "design", "", "design yaml; a random netlist is routed when empty")
	flags.StringVar(&heatmapDir, "heatmap", "", "directory to write congestion and utilisation csv heatmaps to")
	flags.StringVar(&outputPath, "output", "", "bzip2 file to write the bound pips of every net to")
	flags.BoolVar(&verbose, "verbose", false, "development logging")
	flags.Float64("pressure-factor", 0, "present congestion pressure factor")
	flags.Float64("history-factor", 0, "historical congestion factor")
	flags.Int("depth", 0, "partition recursion depth")
	flags.Int("max-rounds", 0, "negotiation round limit, 0 for unbounded")
	for key, flag := range map[string]string{
		"router.pressure_factor": "pressure-factor",
		"router.history_factor":  "history-factor",
		"partition.depth":        "depth",
		"router.max_rounds":      "max-rounds",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(route, serveCommand())
	return root
}

func serveCommand() *cobra.Command {
	v := viper.New()
	var (
		configDir string
		verbose   bool
	)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "serve the routing api and the progress websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := util.ReadConfig(v, configDir)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			routingService := usecases.NewRoutingService(log, cfg, cfg.Server.MaxJobs)
			err = http.NewServer(log).Use(ctx, cfg.Server, routingService)
			if errors.Is(err, context.Canceled) {
				log.Info("server stopped")
				return nil
			}
			return err
		},
	}

	flags := serve.Flags()
	flags.StringVar(&configDir, "config", "", "directory holding config.yaml")
	flags.BoolVar(&verbose, "verbose", false, "development logging")
	flags.Int("port", 0, "api port")
	flags.Int("websocket-port", 0, "progress websocket port")
	flags.Bool("rate-limit", false, "limit requests per client ip")
	for key, flag := range map[string]string{
		"server.port":           "port",
		"server.websocket_port": "websocket-port",
		"server.rate_limit":     "rate-limit",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return serve
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return logger.NewDevelopment()
	}
	return logger.New()
}

func writeHeatmaps(dir string, dimX, dimY int32, routers []*routing.Router) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	congestion, err := os.Create(filepath.Join(dir, "congestion_by_coordinate.csv"))
	if err != nil {
		return err
	}
	defer congestion.Close()
	if err := routing.WriteCongestionHeatmap(congestion, dimX, dimY, routers...); err != nil {
		return err
	}

	utilisation, err := os.Create(filepath.Join(dir, "utilisation_by_wiretype.csv"))
	if err != nil {
		return err
	}
	defer utilisation.Close()
	return routing.WriteUtilisationHeatmap(utilisation, routers...)
}

func printResult(cmd *cobra.Command, res *engine.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "arcs: %d, boundary pips: %d, reserved wires: %d, time: %s\n",
		res.Arcs, res.Crossings, res.Reserved, res.Duration)
	for _, r := range res.Regions {
		fmt.Fprintf(out, "  %-24s %-22s arcs %5d rounds %4d rip-ups %6d wirelength %6d max delay %.3f\n",
			r.Name, r.Bounds.String(), r.Stats.Arcs, r.Stats.Rounds, r.Stats.RipUps, r.Stats.Wirelength, r.Stats.MaxDelay)
	}
	s := res.Special
	fmt.Fprintf(out, "  %-24s %-22s arcs %5d rounds %4d rip-ups %6d wirelength %6d max delay %.3f\n",
		"special", "-", s.Arcs, s.Rounds, s.RipUps, s.Wirelength, s.MaxDelay)
}
