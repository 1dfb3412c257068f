package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ProgressRepository implements progress.Repository.
type ProgressRepository struct {
	mu    sync.RWMutex
	plans map[string]*progress.Plan
}

// NewProgressRepository creates an empty tracker.
func NewProgressRepository() *ProgressRepository {
	return &ProgressRepository{plans: make(map[string]*progress.Plan)}
}

// SavePlan creates or replaces a plan.
func (r *ProgressRepository) SavePlan(_ context.Context, p *progress.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p.Clone()
	return nil
}

// GetPlan returns a plan or shared.ErrPlanNotFound.
func (r *ProgressRepository) GetPlan(_ context.Context, id string) (*progress.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[id]
	if !ok {
		return nil, shared.ErrPlanNotFound
	}
	return p.Clone(), nil
}

// DeletePlan removes a plan and returns it.
func (r *ProgressRepository) DeletePlan(_ context.Context, id string) (*progress.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plans[id]
	if !ok {
		return nil, shared.ErrPlanNotFound
	}
	delete(r.plans, id)
	return p, nil
}

// DeleteByStudent removes every plan of a student.
func (r *ProgressRepository) DeleteByStudent(_ context.Context, studentID shared.StudentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.plans {
		if p.StudentID == studentID {
			delete(r.plans, id)
		}
	}
	return nil
}

// ListByStudent returns plans of a student ordered by id.
func (r *ProgressRepository) ListByStudent(_ context.Context, studentID shared.StudentID) ([]*progress.Plan, error) {
	return r.filter(func(p *progress.Plan) bool { return p.StudentID == studentID }), nil
}

// ListAll returns every plan ordered by student, then id.
func (r *ProgressRepository) ListAll(_ context.Context) ([]*progress.Plan, error) {
	return r.filter(func(*progress.Plan) bool { return true }), nil
}

func (r *ProgressRepository) filter(keep func(*progress.Plan) bool) []*progress.Plan {
	r.mu.RLock()
	out := make([]*progress.Plan, 0, len(r.plans))
	for _, p := range r.plans {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var _ progress.Repository = (*ProgressRepository)(nil)
