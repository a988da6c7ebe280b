package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	corecfg "github.com/pagebeat-io/pagebeat/internal/core/config"
	"github.com/pagebeat-io/pagebeat/internal/core/storage/postgres"
	"github.com/pagebeat-io/pagebeat/internal/dashboard"
	"github.com/pagebeat-io/pagebeat/internal/geo"
	"github.com/pagebeat-io/pagebeat/internal/ingestion"
	"github.com/pagebeat-io/pagebeat/internal/migrations"
	"github.com/pagebeat-io/pagebeat/internal/pipeline"
	"github.com/pagebeat-io/pagebeat/internal/server"
	"github.com/pagebeat-io/pagebeat/internal/session"
)

func main() {
	configPath := flag.String("config", "pagebeat.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// 3. Initialize Geo services (reference table + GeoIP reader)
	cities, err := geo.LoadCities(cfg.Geo.CitiesPath)
	if err != nil {
		slog.Error("Failed to load city reference table", "error", err)
		os.Exit(1)
	}
	resolver := geo.NewResolver(cities, cfg.Geo.SimilarityThreshold)
	slog.Info("City reference table loaded", "cities", len(cities))

	locator, err := geo.NewIPLocator(cfg.Geo.MMDBPath)
	if err != nil {
		slog.Error("Failed to open GeoIP database", "error", err)
		os.Exit(1)
	}
	defer locator.Close()

	// 4. Initialize the ingestion pipeline: buffer -> scheduler -> sink
	buffer := pipeline.NewBuffer(
		pipeline.AdmissionPolicy(cfg.Buffer.Policy),
		cfg.Buffer.Capacity(),
	)
	scheduler := pipeline.NewScheduler(
		buffer,
		cfg.Batch.MaxSize,
		cfg.Batch.FlushWindowDuration(),
		cfg.Batch.PendingBatches,
	)
	sink := pipeline.NewSink(
		dbAdapter,
		scheduler.Batches(),
		cfg.Sink.RetryAttempts,
		cfg.Sink.RetryBackoffDuration(),
	)

	// 5. Initialize HTTP services
	ingestionSvc := ingestion.NewService(buffer)
	sessionSvc := session.NewService(dbAdapter, locator, cfg.Server.AppURL)
	dashboardSvc := dashboard.NewService(postgres.NewSummaryAdapter(dbAdapter.DB()), resolver)

	srv := server.New(
		fmtAddr(cfg.Server.Host, cfg.Server.Port),
		dbAdapter.DB(),
		cfg.Server.Mode,
		cfg.Server.CORSOrigins,
	)
	ingestionSvc.RegisterRoutes(srv.Engine)
	sessionSvc.RegisterRoutes(srv.Engine)
	dashboardSvc.RegisterRoutes(srv.Engine)

	// 6. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Start(gctx) })
	// The sink drains the scheduler's channel to completion, so it exits
	// only after the scheduler's final shutdown flush has been written.
	g.Go(func() error { return sink.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
