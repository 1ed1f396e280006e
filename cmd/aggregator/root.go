package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	corecfg "github.com/aevon-lab/completion-aggregator/internal/core/config"
)

// rootOptions holds global flags and the configuration they resolve to.
type rootOptions struct {
	ConfigPath string
	Verbose    bool

	cfg *corecfg.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "aggregator",
		Short: "Completion aggregation service",
		Long: `Rolls per-block learner completion up the course tree into stored
aggregates, either inline with each completion write or in scheduled batches.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

			cfg, err := corecfg.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "aggregator.yaml", "path to configuration file (empty for defaults and env only)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newAggregateCommand(opts))
	cmd.AddCommand(newCleanupCommand(opts))
	cmd.AddCommand(newPruneCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}
