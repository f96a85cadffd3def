package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.viam.com/utils"

	"github.com/gravityexperiment/gravsim/config"
	"github.com/gravityexperiment/gravsim/particle"
	"github.com/gravityexperiment/gravsim/sim"
)

const (
	// Flags.
	flagConfig         = "config"
	flagDebug          = "debug"
	flagQuiet          = "quiet"
	flagParticles      = "particles"
	flagTicks          = "ticks"
	flagSeed           = "seed"
	flagBackend        = "backend"
	flagLoad           = "load"
	flagSnapshot       = "snapshot"
	flagSnapshotBinary = "snapshot-binary"
	flagMetricsAddr    = "metrics-addr"
	flagStatsInterval  = "stats-interval"
)

func newApp(out io.Writer) *cli.App {
	var logger golog.Logger

	return &cli.App{
		Name:   "gravsim",
		Usage:  "simulate charged particles over an adaptive octree",
		Writer: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    flagQuiet,
				Aliases: []string{"q"},
				Usage:   "disable logging",
			},
		},
		Before: func(c *cli.Context) error {
			switch {
			case c.Bool(flagQuiet):
				logger = zap.NewNop().Sugar()
			case c.Bool(flagDebug):
				logger = golog.NewDebugLogger("gravsim")
			default:
				logger = golog.NewDevelopmentLogger("gravsim")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run a simulation and print the final octree statistics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load configuration from `FILE`",
					},
					&cli.IntFlag{
						Name:  flagParticles,
						Usage: "particles spawned per group",
					},
					&cli.IntFlag{
						Name:  flagTicks,
						Usage: "number of steps to run",
					},
					&cli.Int64Flag{
						Name:  flagSeed,
						Usage: "spawn seed",
					},
					&cli.StringFlag{
						Name:  flagBackend,
						Usage: "force backend, direct or tree",
					},
					&cli.StringFlag{
						Name:  flagLoad,
						Usage: "load particles from a pcd `FILE` instead of spawning them",
					},
					&cli.StringFlag{
						Name:  flagSnapshot,
						Usage: "write the final particles to a pcd `FILE`",
					},
					&cli.BoolFlag{
						Name:  flagSnapshotBinary,
						Usage: "write the snapshot in binary",
					},
					&cli.StringFlag{
						Name:  flagMetricsAddr,
						Usage: "serve prometheus metrics on `ADDRESS` while running",
					},
					&cli.IntFlag{
						Name:  flagStatsInterval,
						Usage: "log octree statistics every N steps",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c, logger)
					if err != nil {
						return err
					}
					return runSimulation(c.Context, cfg, c.String(flagLoad), c.Bool(flagSnapshotBinary), c.App.Writer, logger)
				},
			},
		},
	}
}

// loadConfig reads the config file, if any, and applies the flags given on the command line.
func loadConfig(c *cli.Context, logger golog.Logger) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %q", path)
		}
	} else {
		def := config.Default()
		cfg = &def
	}

	if c.IsSet(flagParticles) {
		cfg.Spawn.GroupParticles = c.Int(flagParticles)
	}
	if c.IsSet(flagTicks) {
		cfg.Simulation.Ticks = c.Int(flagTicks)
	}
	if c.IsSet(flagSeed) {
		cfg.Spawn.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagBackend) {
		cfg.Physics.Backend = c.String(flagBackend)
	}
	if c.IsSet(flagSnapshot) {
		cfg.Simulation.SnapshotPath = c.String(flagSnapshot)
	}
	if c.IsSet(flagMetricsAddr) {
		cfg.Simulation.MetricsAddress = c.String(flagMetricsAddr)
	}
	if c.IsSet(flagStatsInterval) {
		cfg.Simulation.StatsInterval = c.Int(flagStatsInterval)
	}
	return cfg, cfg.Ensure()
}

func runSimulation(
	ctx context.Context,
	cfg *config.Config,
	loadPath string,
	binarySnapshot bool,
	out io.Writer,
	logger golog.Logger,
) (err error) {
	set := particle.NewSet(logger.Named("particles"))
	if loadPath != "" {
		if err := loadParticles(set, loadPath, cfg.Spawn.Mass); err != nil {
			return err
		}
	} else {
		particle.NewSpawner(cfg.Spawn).Spawn(set)
	}

	s, err := sim.New(*cfg, set, logger)
	if err != nil {
		return err
	}

	if addr := cfg.Simulation.MetricsAddress; addr != "" {
		stop := serveMetrics(addr, s, logger)
		defer func() {
			err = multierr.Combine(err, stop())
		}()
	}

	logger.Infow("running simulation",
		"particles", set.Len(),
		"ticks", cfg.Simulation.Ticks,
		"backend", cfg.Physics.Backend,
	)
	start := time.Now()
	if err := s.Run(ctx, cfg.Simulation.Ticks); err != nil {
		return errors.Wrapf(err, "simulation stopped after %d steps", s.Steps())
	}

	fmt.Fprintf(out, "ran %d steps over %d particles in %s\n", s.Steps(), set.Len(), time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(out, s.Tree().Stats().Table())

	if path := cfg.Simulation.SnapshotPath; path != "" {
		outputType := particle.PCDAscii
		if binarySnapshot {
			outputType = particle.PCDBinary
		}
		if err := writeSnapshot(set, path, outputType); err != nil {
			return err
		}
		logger.Infow("wrote snapshot", "path", path, "particles", set.Len())
	}
	return nil
}

func loadParticles(set *particle.Set, path string, defaultMass float64) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	particles, err := particle.ReadPCD(f, defaultMass)
	if err != nil {
		return errors.Wrapf(err, "failed to read particles from %q", path)
	}
	for _, p := range particles {
		set.Add(p)
	}
	return nil
}

func writeSnapshot(set *particle.Set, path string, outputType particle.PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return particle.WritePCD(set.Particles(), f, outputType)
}

// serveMetrics serves the simulation's metrics until the returned function is called.
func serveMetrics(addr string, s *sim.Simulation, logger golog.Logger) func() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Metrics().Handler())
	httpServer := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Handler:           mux,
	}

	logger.Debugw("serving metrics", "addr", addr)
	utils.PanicCapturingGo(func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "error", err)
		}
	})
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}
