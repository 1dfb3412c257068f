package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// SnapshotRepository implements ranking.SnapshotRepository. Snapshots are
// kept in insertion order, oldest first.
type SnapshotRepository struct {
	mu        sync.RWMutex
	snapshots []*ranking.Snapshot
}

// NewSnapshotRepository creates an empty history.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

// Save appends a copy of the snapshot.
func (r *SnapshotRepository) Save(_ context.Context, s *ranking.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s.Clone())
	return nil
}

// Latest returns the newest snapshot.
func (r *SnapshotRepository) Latest(_ context.Context) (*ranking.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.snapshots) == 0 {
		return nil, shared.ErrSnapshotNotFound
	}
	return r.snapshots[len(r.snapshots)-1].Clone(), nil
}

// History returns the student's positions, newest first.
func (r *SnapshotRepository) History(_ context.Context, id shared.StudentID, limit int) ([]ranking.HistoryPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ranking.HistoryPoint, 0)
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		s := r.snapshots[i]
		e := s.Get(id)
		if e == nil {
			continue
		}
		out = append(out, ranking.HistoryPoint{
			SnapshotID:   s.ID,
			CalculatedAt: s.CalculatedAt,
			Rank:         e.Rank,
			TotalScore:   e.TotalScore,
			RankChange:   e.RankChange,
		})
	}
	return out, nil
}

// Prune drops snapshots older than olderThan, always keeping the newest keep.
func (r *SnapshotRepository) Prune(_ context.Context, olderThan time.Time, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	protected := len(r.snapshots) - keep
	kept := r.snapshots[:0]
	removed := 0
	for i, s := range r.snapshots {
		if i < protected && s.CalculatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(r.snapshots); i++ {
		r.snapshots[i] = nil
	}
	r.snapshots = kept
	return removed, nil
}

// Len returns the number of stored snapshots.
func (r *SnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}

var _ ranking.SnapshotRepository = (*SnapshotRepository)(nil)
