package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/project-dimsync/internal/calendar"
	"github.com/aevon-lab/project-dimsync/internal/catalog"
	corecfg "github.com/aevon-lab/project-dimsync/internal/core/config"
	"github.com/aevon-lab/project-dimsync/internal/core/storage"
	"github.com/aevon-lab/project-dimsync/internal/core/storage/memory"
	"github.com/aevon-lab/project-dimsync/internal/core/storage/postgres"
	"github.com/aevon-lab/project-dimsync/internal/ingestion"
	"github.com/aevon-lab/project-dimsync/internal/load"
	"github.com/aevon-lab/project-dimsync/internal/logging"
	"github.com/aevon-lab/project-dimsync/internal/migrations"
	"github.com/aevon-lab/project-dimsync/internal/projection"
	"github.com/aevon-lab/project-dimsync/internal/server"
	"github.com/aevon-lab/project-dimsync/internal/syncjob"
)

// backend bundles the storage roles the process needs.
type backend struct {
	store   storage.Store
	reader  storage.Reader
	staging storage.StagingStore
	health  server.HealthChecker
	closer  io.Closer
}

func main() {
	configPath := flag.String("config", "dimsync.yaml", "Path to configuration file")
	mode := flag.String("mode", "serve", "serve | drain | calendar")
	start := flag.String("start", "2020-01-01", "calendar mode: first date (YYYY-MM-DD)")
	end := flag.String("end", "2025-12-31", "calendar mode: last date (YYYY-MM-DD)")
	flag.Parse()

	// 1. Load Configuration (entity definitions included)
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	logCloser := logging.Setup(cfg.Logging)
	defer logCloser.Close()
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"entities", cfg.Registry.Len(),
		"policies", cfg.Registry.Policies(),
		"batch_mode", cfg.Load.BatchMode,
		"fail_fast", cfg.Load.FailFast,
	)

	// 3. Initialize Storage
	be, err := openBackend(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer be.closer.Close()

	// 4. Initialize Load Orchestrator
	opts, err := cfg.Load.Options()
	if err != nil {
		slog.Error("Invalid load options", "error", err)
		os.Exit(1)
	}
	orchestrator := load.NewOrchestrator(cfg.Registry, be.store, opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler cancels whatever mode is running.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	interval, _ := cfg.Sync.Interval() // validated by config.Load
	scheduler := syncjob.NewScheduler(interval, be.staging, orchestrator, syncjob.BatchJobParameter{
		BatchSize:      cfg.Sync.BatchSize,
		CheckpointName: cfg.Sync.CheckpointName,
	})

	switch *mode {
	case "serve":
		serve(ctx, cfg, be, scheduler)
	case "drain":
		n, err := scheduler.Drain(ctx)
		if err != nil {
			slog.Error("Drain failed", "processed", n, "error", err)
			os.Exit(1)
		}
		slog.Info("Drain complete", "processed", n)
	case "calendar":
		if err := loadCalendar(ctx, orchestrator, *start, *end); err != nil {
			slog.Error("Calendar load failed", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Unknown mode", "mode", *mode)
		os.Exit(1)
	}

	slog.Info("Shutdown complete")
}

func openBackend(cfg *corecfg.Config) (*backend, error) {
	if cfg.Database.Type == "memory" {
		store := memory.NewStore()
		slog.Warn("Using in-memory storage; data is lost on exit")
		return &backend{store: store, reader: store, staging: store, closer: store}, nil
	}

	db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
		db.Close()
		return nil, err
	}
	adapter, err := postgres.NewAdapter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &backend{
		store:   adapter,
		reader:  adapter,
		staging: postgres.NewStagingAdapter(adapter.DB()),
		health:  adapter.DB(),
		closer:  adapter,
	}, nil
}

func serve(ctx context.Context, cfg *corecfg.Config, be *backend, scheduler *syncjob.Scheduler) {
	if cfg.Sync.Enabled {
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Sync scheduler disabled by config")
	}

	ingestionSvc := ingestion.NewService(cfg.Registry, be.staging, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(cfg.Registry, be.reader)

	srv := server.New(cfg.Server.Addr(), be.health, cfg.Server.Mode)
	srv.Register(ingestionSvc, projectionSvc, catalog.NewService(cfg.Registry))

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}
}

func loadCalendar(ctx context.Context, orchestrator *load.Orchestrator, startStr, endStr string) error {
	def, ok := orchestrator.Registry().Get(calendar.Entity)
	if !ok {
		return fmt.Errorf("entity %q is not configured", calendar.Entity)
	}
	if err := calendar.CheckDefinition(def); err != nil {
		return err
	}
	startDate, err := calendar.ParseDate(startStr)
	if err != nil {
		return err
	}
	endDate, err := calendar.ParseDate(endStr)
	if err != nil {
		return err
	}
	records, err := calendar.Generate(startDate, endDate)
	if err != nil {
		return err
	}

	report, err := orchestrator.Run(ctx, load.Batch{calendar.Entity: records})
	if err != nil {
		return err
	}
	totals := report.Totals()
	slog.Info("Calendar loaded",
		"days", len(records),
		"inserted", totals.Inserted,
		"updated", totals.Updated,
		"no_op", totals.NoOp,
		"failed", totals.Failed,
	)
	return nil
}
