// Command migrate copies the movie catalogue from SQLite into PostgreSQL.
//
// Configuration comes from the environment (and a .env file when present).
// The process exits 1 when any table fails.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/moviesmigrate/internal/config"
	"github.com/JonMunkholm/moviesmigrate/internal/core"
	_ "github.com/JonMunkholm/moviesmigrate/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/moviesmigrate/internal/logging"
	"github.com/JonMunkholm/moviesmigrate/internal/metrics"
	"github.com/JonMunkholm/moviesmigrate/internal/store"
	"github.com/JonMunkholm/moviesmigrate/internal/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := store.OpenSource(ctx, cfg.Source.Path)
	if err != nil {
		logger.Error("failed to open source", "error", err, "code", core.MapError(err).Code)
		return 1
	}
	defer source.Close()

	pool, err := store.OpenDestination(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to destination", "error", err, "code", core.MapError(err).Code)
		return 1
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline, err := core.NewPipeline(source, pool, core.PipelineOptions{
		BatchSize:  cfg.Migrate.BatchSize,
		Schema:     cfg.Database.Schema,
		Tables:     cfg.Migrate.Tables,
		SkipVerify: cfg.Migrate.SkipVerify,
		Logger:     logger,
		Metrics:    metrics.New(reg),
		Tracker:    core.NewTracker(),
	})
	if err != nil {
		logger.Error("invalid migration", "error", err, "code", core.MapError(err).Code)
		return 1
	}
	logger.Info("tables registered", "count", core.TableCount(), "selected", pipeline.Tables())

	g, gctx := errgroup.WithContext(ctx)

	var server *web.Server
	if cfg.Status.Enabled() {
		server = web.NewServer(pipeline.Tracker(), reg, logger)
		g.Go(func() error {
			if err := server.Start(cfg.Status.Addr); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	var report core.Report
	g.Go(func() error {
		report = pipeline.Run(gctx)

		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Status.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("status server shutdown", "error", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("status server failed", "error", err)
		return 1
	}

	for _, res := range report.Tables {
		attrs := []any{
			"table", res.Table,
			"state", res.State,
			"inserted", res.Inserted,
			"verified_rows", res.VerifiedRows,
			"duration", res.Duration,
		}
		if res.Err != nil {
			logger.Error("table summary", append(attrs, "code", res.Code, "error", core.FormatUserError(res.Err))...)
			continue
		}
		logger.Info("table summary", attrs...)
	}

	if report.Failed() {
		logger.Error("migration finished with failures",
			"duration", report.Duration,
			"inserted", report.Inserted(),
			"error", report.Err(),
		)
		return 1
	}
	logger.Info("migration complete", "duration", report.Duration, "inserted", report.Inserted())
	return 0
}
