package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/config"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// runtime is filled by the root command before any subcommand runs.
type runtime struct {
	cfg *config.Config
	log *slog.Logger

	// load is replaced in tests.
	load func() (*config.Config, error)
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(&runtime{load: config.Load})
}

func buildRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Classroom portal ranking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.init(cmd)
		},
	}

	root.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newRankingsCommand(rt),
		newHashPasswordCommand(),
	)
	return root
}

func (rt *runtime) init(cmd *cobra.Command) error {
	cfg, err := rt.load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	rt.cfg = cfg

	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.ParseFormat(cfg.Observability.LogFormat)
	opts.Output = cmd.ErrOrStderr()
	opts.Service = cfg.App.Name
	if cfg.App.Debug && opts.Level > slog.LevelDebug {
		opts.Level = slog.LevelDebug
	}

	rt.log = logger.New(opts)
	slog.SetDefault(rt.log)
	cmd.SetContext(logger.WithContext(cmd.Context(), rt.log))
	return nil
}
