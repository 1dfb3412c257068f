// Package jobs contains the portal's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECALCULATE RANKINGS JOB
// ══════════════════════════════════════════════════════════════════════════════

// Recalculator is the part of the ranking engine the job drives.
type Recalculator interface {
	CalculateRankings(ctx context.Context) (*ranking.Snapshot, *ranking.Report, error)
}

// RecalculateRankingsJob runs a full recompute on a schedule. Data changes
// already trigger recomputes; this catches writes made outside the portal.
type RecalculateRankingsJob struct {
	engine  Recalculator
	timeout time.Duration
	logger  *slog.Logger
}

// NewRecalculateRankingsJob creates the job. timeout 0 means no extra deadline.
func NewRecalculateRankingsJob(engine Recalculator, timeout time.Duration, logger *slog.Logger) *RecalculateRankingsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecalculateRankingsJob{
		engine:  engine,
		timeout: timeout,
		logger:  logger.With(slog.String("job", "recalculate_rankings")),
	}
}

// Name returns the job name.
func (j *RecalculateRankingsJob) Name() string { return "recalculate_rankings" }

// Description returns the job description.
func (j *RecalculateRankingsJob) Description() string {
	return "Full ranking recompute from all collaborator sources"
}

// Run executes the recompute.
func (j *RecalculateRankingsJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	snap, report, err := j.engine.CalculateRankings(ctx)
	if err != nil {
		return fmt.Errorf("recalculate rankings: %w", err)
	}

	j.logger.Info("rankings recalculated",
		slog.String("snapshot_id", snap.ID),
		slog.Int("students", snap.Count()),
		slog.Int("orphans", len(report.Orphans)),
		slog.Int("anomalies", len(report.Anomalies)),
	)
	return nil
}
