package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRUNE SNAPSHOTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PruneSnapshotsConfig controls snapshot retention.
type PruneSnapshotsConfig struct {
	// Retention is how long stored snapshots are kept.
	Retention time.Duration

	// KeepLatest snapshots are never pruned regardless of age.
	KeepLatest int
}

// DefaultPruneSnapshotsConfig returns sensible defaults.
func DefaultPruneSnapshotsConfig() PruneSnapshotsConfig {
	return PruneSnapshotsConfig{
		Retention:  30 * 24 * time.Hour,
		KeepLatest: 10,
	}
}

// PruneSnapshotsJob removes old ranking snapshots from the history store.
type PruneSnapshotsJob struct {
	repo   ranking.SnapshotRepository
	config PruneSnapshotsConfig
	now    func() time.Time
	logger *slog.Logger
}

// NewPruneSnapshotsJob creates the job.
func NewPruneSnapshotsJob(repo ranking.SnapshotRepository, config PruneSnapshotsConfig, logger *slog.Logger) *PruneSnapshotsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PruneSnapshotsJob{
		repo:   repo,
		config: config,
		now:    time.Now,
		logger: logger.With(slog.String("job", "prune_snapshots")),
	}
}

// Name returns the job name.
func (j *PruneSnapshotsJob) Name() string { return "prune_snapshots" }

// Description returns the job description.
func (j *PruneSnapshotsJob) Description() string {
	return "Delete ranking snapshots past the retention window"
}

// Run deletes expired snapshots.
func (j *PruneSnapshotsJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.config.Retention)

	removed, err := j.repo.Prune(ctx, cutoff, j.config.KeepLatest)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	if removed > 0 {
		j.logger.Info("snapshots pruned",
			slog.Int("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
	return nil
}
