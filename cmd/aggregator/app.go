package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/content"
	corecfg "github.com/aevon-lab/completion-aggregator/internal/core/config"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/memory"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/postgres"
	"github.com/aevon-lab/completion-aggregator/internal/migrations"
	"github.com/aevon-lab/completion-aggregator/internal/server"
	"github.com/aevon-lab/completion-aggregator/internal/tracking"
)

const instrumentationName = "github.com/aevon-lab/completion-aggregator"

// app is the wired set of components shared by every subcommand.
type app struct {
	cfg *corecfg.Config

	facts      storage.FactStore
	aggregates storage.AggregateStore
	ledger     storage.StalenessLedger
	health     server.HealthChecker

	updater     *aggregation.Updater
	coordinator *aggregation.Coordinator

	closers []func() error
}

func newApp(ctx context.Context, cfg *corecfg.Config) (*app, error) {
	a := &app{cfg: cfg}
	tracer := otel.Tracer(instrumentationName)

	switch cfg.Database.Type {
	case "memory":
		slog.Warn("[App] Using in-memory storage; data is lost on exit")
		store := memory.NewStore()
		a.facts, a.aggregates, a.ledger = store, store, store
	default:
		if err := a.openPostgres(ctx, tracer); err != nil {
			return nil, err
		}
	}

	provider, err := content.NewFileSystemProvider(cfg.Content.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load course content: %w", err)
	}

	emitter, err := a.newEmitter()
	if err != nil {
		a.Close()
		return nil, err
	}

	registry := cfg.Registry()
	tracker := tracking.NewTracker(emitter, registry, tracking.Options{
		Enabled:   cfg.Tracking.Enabled,
		BIEnabled: cfg.Tracking.BIEnabled,
	})

	a.updater = aggregation.NewUpdater(provider, a.facts, a.aggregates, registry,
		aggregation.WithNotificationSink(tracker),
		aggregation.WithTracer(tracer),
	)

	metrics, err := aggregation.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a.coordinator = aggregation.NewCoordinator(a.updater, a.ledger, metrics, aggregation.CoordinatorOptions{
		BatchSize:         cfg.Aggregation.BatchSize,
		WorkerCount:       cfg.Aggregation.WorkerCount,
		RunTimeout:        cfg.Aggregation.RunTimeoutDuration(),
		Retention:         cfg.Aggregation.RetentionDuration(),
		MaxBatchesPerTick: cfg.Aggregation.MaxBatchesPerTick,
	})

	slog.Info("[App] Components initialized",
		"database", cfg.Database.Type,
		"aggregation_enabled", cfg.Aggregation.Enabled,
		"aggregation_async", cfg.Aggregation.Async,
		"registered_types", registry.Registered(),
		"tracking_enabled", cfg.Tracking.Enabled,
		"tracking_sink", cfg.Tracking.Sink,
	)
	return a, nil
}

func (a *app) openPostgres(ctx context.Context, tracer trace.Tracer) error {
	cfg := a.cfg.Database
	opts := postgres.Options{
		DSN:            cfg.DSN,
		MaxOpenConns:   cfg.MaxOpenConns,
		MaxIdleConns:   cfg.MaxIdleConns,
		ConnectRetries: cfg.ConnectRetries,
	}

	// Migrations run on a bare pool because the adapter validates the schema
	// before preparing statements.
	db, err := postgres.OpenDB(ctx, opts)
	if err != nil {
		return err
	}
	if err := migrations.RunMigrations(db, cfg.AutoMigrate); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db.Close()

	opts.Tracer = tracer
	adapter, err := postgres.NewAdapter(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	a.facts = adapter
	a.aggregates = postgres.NewAggregateAdapter(adapter.DB(), adapter.Tracer())
	a.ledger = postgres.NewLedgerAdapter(adapter.DB(), adapter.Tracer())
	a.health = adapter
	a.closers = append(a.closers, adapter.Close)
	return nil
}

func (a *app) newEmitter() (tracking.Emitter, error) {
	if !a.cfg.Tracking.Enabled || a.cfg.Tracking.Sink != "kafka" {
		return tracking.LogEmitter{}, nil
	}

	kafka := a.cfg.Tracking.Kafka
	producer, err := tracking.NewKafkaProducer(kafka.Brokers, kafka.ClientID)
	if err != nil {
		return nil, err
	}
	emitter := tracking.NewKafkaEmitter(producer, kafka.Topic)
	a.closers = append(a.closers, emitter.Close)
	return emitter, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
