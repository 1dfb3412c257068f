package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/memory"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

type fakeEngine struct {
	calls int
	err   error
}

func (f *fakeEngine) CalculateRankings(ctx context.Context) (*ranking.Snapshot, *ranking.Report, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return ranking.NewEmptySnapshot(), ranking.NewReport(), nil
}

func TestRecalculateRankingsJob(t *testing.T) {
	eng := &fakeEngine{}
	job := NewRecalculateRankingsJob(eng, time.Second, logger.Discard())

	assert.Equal(t, "recalculate_rankings", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, eng.calls)

	eng.err = errors.New("source down")
	err := job.Run(context.Background())
	assert.ErrorIs(t, err, eng.err)
}

func TestPruneSnapshotsJob(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	ctx := context.Background()
	now := time.Date(2024, 10, 7, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		at := now.Add(-time.Duration(10-i) * 24 * time.Hour)
		require.NoError(t, repo.Save(ctx, ranking.NewSnapshot(fmt.Sprintf("s%d", i), at, nil)))
	}

	job := NewPruneSnapshotsJob(repo, PruneSnapshotsConfig{Retention: 7 * 24 * time.Hour, KeepLatest: 1}, logger.Discard())
	job.now = func() time.Time { return now }
	assert.Equal(t, "prune_snapshots", job.Name())

	// s0..s2 are 10, 9 and 8 days old; s3 and s4 fall inside the window.
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 2, repo.Len())

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s4", latest.ID)
}
