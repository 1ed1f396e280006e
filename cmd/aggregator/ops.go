package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage/postgres"
	"github.com/aevon-lab/completion-aggregator/internal/migrations"
)

func newAggregateCommand(opts *rootOptions) *cobra.Command {
	var noCleanup bool

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Drain the staleness ledger once, then purge old markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if noCleanup {
				report, err := a.coordinator.PerformAggregation(cmd.Context())
				if err != nil {
					return err
				}
				return printTick(cmd.OutOrStdout(), aggregation.TickReport{Batches: []aggregation.BatchReport{report}})
			}

			tick, err := a.coordinator.PerformThenCleanup(cmd.Context())
			if err != nil {
				return err
			}
			return printTick(cmd.OutOrStdout(), tick)
		},
	}
	cmd.Flags().BoolVar(&noCleanup, "no-cleanup", false, "process a single batch and keep resolved markers")
	return cmd
}

func newCleanupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge resolved markers older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			purged, err := a.coordinator.PerformCleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "markers purged: %d\n", purged)
			return nil
		},
	}
}

func newPruneCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <learner-id> <course-id>",
		Short: "Delete aggregates for blocks no longer in the course tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.updater.Prune(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d aggregates for %s\n", res.Deleted, res.Pair)
			for _, id := range res.BlockIDs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
			}
			return nil
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|version>",
		Short:     "Manage the PostgreSQL schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg.Database
			if cfg.Type != "postgres" {
				return errors.New("migrate requires database.type postgres")
			}

			db, err := postgres.OpenDB(cmd.Context(), postgres.Options{
				DSN:            cfg.DSN,
				MaxOpenConns:   1,
				MaxIdleConns:   1,
				ConnectRetries: cfg.ConnectRetries,
			})
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				return migrations.RunMigrations(db, true)
			case "down":
				return migrations.Down(db)
			default:
				version, dirty, ok, err := migrations.Version(db)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}
		},
	}
}

func printTick(w io.Writer, tick aggregation.TickReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tick.Summary())
}
