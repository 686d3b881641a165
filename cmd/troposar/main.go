// Command troposar runs one atmospheric correction over an interferogram
// stack: estimate per-date delay fields, correct the stack, invert it into
// a deformation time series, and write the series to the scratch directory.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nameji/troposar/internal/adapter/dem"
	"github.com/nameji/troposar/internal/adapter/era"
	httpadapter "github.com/nameji/troposar/internal/adapter/http"
	"github.com/nameji/troposar/internal/adapter/ifg"
	"github.com/nameji/troposar/internal/adapter/radar"
	"github.com/nameji/troposar/internal/baseline"
	"github.com/nameji/troposar/internal/config"
	"github.com/nameji/troposar/internal/correct"
	"github.com/nameji/troposar/internal/delay"
	"github.com/nameji/troposar/internal/export"
	"github.com/nameji/troposar/internal/geogrid"
	"github.com/nameji/troposar/internal/invert"
	"github.com/nameji/troposar/internal/observability"
	"github.com/nameji/troposar/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "project.yml", "path to the project configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	metrics := observability.NewMetrics()
	logger.Info("project loaded", "config", *configPath, "project", cfg.String())

	p, closeSink, err := buildPipeline(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to assemble pipeline", "error", err)
		os.Exit(1)
	}
	defer closeSink()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	result, err := p.Run(ctx)
	if err != nil {
		logger.Error("correction run failed", "error", err)
		shutdown(srv, logger)
		os.Exit(1)
	}

	if cfg.Files.ScratchDir != "" {
		if err := export.WriteTimeSeries(cfg.Files.ScratchDir, result.Series); err != nil {
			logger.Error("failed to write time series", "error", err)
			shutdown(srv, logger)
			os.Exit(1)
		}
		logger.Info("time series written", "dir", cfg.Files.ScratchDir,
			"dates", len(result.Series.Dates), "incomplete", len(result.Series.Incomplete))
	}

	shutdown(srv, logger)
	logger.Info("done")
}

// buildPipeline assembles the run stages from the project configuration.
// The returned closer flushes the export sink, if one is configured.
func buildPipeline(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, func(), error) {
	demField, err := dem.Read(cfg.Files.DEM)
	if err != nil {
		return nil, nil, err
	}

	paths, err := ifg.Discover(cfg.Files.UifgDir)
	if err != nil {
		return nil, nil, err
	}
	native, err := ifg.NativeAxes(paths)
	if err != nil {
		return nil, nil, err
	}

	grid, err := geogrid.Build(regionOf(cfg), resolutionOf(cfg), demField, native)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("target grid built", "rows", grid.Rows(), "cols", grid.Cols())

	network, err := baseline.Load(cfg.Files.Baselines, cfg.Master)
	if err != nil {
		return nil, nil, err
	}

	nwp := era.NewIngester(&era.DirStore{Dir: cfg.Files.EraModels}, cfg.NWPMaxGap, logger)

	var radarSource delay.RadarSource
	if cfg.Files.WrDir != "" {
		ing, err := radar.NewIngester(&radar.DirStore{Dir: cfg.Files.WrDir}, cfg.RadarTolerance, cfg.RadarProj, logger)
		if err != nil {
			return nil, nil, err
		}
		radarSource = ing
		logger.Info("weather radar enabled", "dir", cfg.Files.WrDir, "tolerance", cfg.RadarTolerance)
	} else {
		logger.Info("weather radar disabled, delays come from the weather model alone")
	}

	params := delay.DefaultParams()
	params.LookAngle = cfg.LookAngle
	estimator := delay.NewEstimator(nwp, radarSource, grid, params, logger, metrics)
	delays := delay.NewCachedSource(estimator, metrics)

	corrector := correct.NewCorrector(grid, cfg.Wavelength, logger)
	inverter := invert.NewInverter(grid, cfg.Wavelength, cfg.Workers, logger, metrics)

	var sink export.Sink = export.NopSink{}
	closeSink := func() {}
	if cfg.ExportEnabled() {
		ks := export.NewKafkaSink(cfg.Export.Brokers, cfg.Export.Topic, logger)
		sink = ks
		closeSink = func() {
			if err := ks.Close(); err != nil {
				logger.Error("export sink close error", "error", err)
			}
		}
		logger.Info("kafka export enabled", "topic", cfg.Export.Topic, "run_id", ks.RunID())
	}

	p := pipeline.New(delays, pipeline.DirStack{Dir: cfg.Files.UifgDir}, network,
		corrector, inverter, sink, logger, metrics, cfg.Workers)
	return p, closeSink, nil
}

func regionOf(cfg *config.Config) *geogrid.Region {
	if cfg.Region == nil {
		return nil
	}
	return &geogrid.Region{
		LatMin: cfg.Region.LatMin, LatMax: cfg.Region.LatMax,
		LonMin: cfg.Region.LonMin, LonMax: cfg.Region.LonMax,
	}
}

func resolutionOf(cfg *config.Config) *geogrid.Resolution {
	if cfg.Resolution == nil {
		return nil
	}
	return &geogrid.Resolution{DeltaX: cfg.Resolution.DeltaX, DeltaY: cfg.Resolution.DeltaY}
}

func shutdown(srv *httpadapter.Server, logger *slog.Logger) {
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
