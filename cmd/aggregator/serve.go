package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/ingestion"
	"github.com/aevon-lab/completion-aggregator/internal/projection"
	"github.com/aevon-lab/completion-aggregator/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the aggregation scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ingestionSvc := ingestion.NewService(a.facts, a.ledger, a.updater, ingestion.Options{
		Enabled:       cfg.Aggregation.Enabled,
		Async:         cfg.Aggregation.Async,
		MaxBodySizeMB: cfg.Server.MaxBodySizeMB,
		RunTimeout:    cfg.Aggregation.RunTimeoutDuration(),
	})
	projectionSvc := projection.NewService(a.aggregates, a.ledger, cfg.Registry())
	admin := aggregation.NewAdminHandler(a.coordinator, a.updater)

	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), a.health, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)
	admin.RegisterRoutes(srv.Engine)

	slog.Info("[Serve] Ingestion mode selected", "mode", ingestionSvc.Mode())

	schedulerDone := make(chan struct{})
	if cfg.Aggregation.Enabled {
		scheduler := aggregation.NewScheduler(cfg.Aggregation.CronIntervalDuration(), a.coordinator)
		go func() {
			defer close(schedulerDone)
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("[Serve] Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		close(schedulerDone)
		slog.Info("[Serve] Aggregation scheduler disabled by config")
	}

	// HTTP server blocks until ctx is cancelled.
	runErr := srv.Run(ctx)
	<-schedulerDone

	slog.Info("[Serve] Shutdown complete")
	return runErr
}
