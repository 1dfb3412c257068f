package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/scheduler"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

func newServeCommand(rt *runtime) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with event-driven ranking recomputes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), rt, !noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run scheduled jobs in this process")
	return cmd
}

func serve(ctx context.Context, rt *runtime, withScheduler bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := rt.log
	log.Info("starting classroom portal",
		slog.String("env", string(rt.cfg.App.Environment)),
		slog.String("version", rt.cfg.App.Version),
		slog.Bool("memory_store", rt.cfg.UsesMemoryStore()),
	)

	a, err := newApp(ctx, rt.cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// Startup recompute so the first read reflects stored data.
	if snap, report, err := a.engine.CalculateRankings(ctx); err != nil {
		log.Warn("initial ranking computation failed", logger.Err(err))
	} else {
		log.Info("initial rankings computed",
			logger.SnapshotID(snap.ID),
			slog.Int("students", snap.Count()),
			slog.Int("orphans", len(report.Orphans)),
			slog.Int("anomalies", len(report.Anomalies)),
		)
	}

	if withScheduler && rt.cfg.Scheduler.Enabled {
		sched, err := a.newScheduler()
		if err != nil {
			return fmt.Errorf("failed to configure scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
				log.Warn("scheduler stop failed", logger.Err(err))
			}
		}()
	}

	srv := a.newServer()
	errCh := srv.StartAsync()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("starting graceful shutdown...", slog.String("timeout", rt.cfg.App.ShutdownTimeout.String()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), rt.cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info("shutdown completed successfully")
	return nil
}
