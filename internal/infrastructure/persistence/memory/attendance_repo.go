package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// AttendanceRepository implements attendance.Repository.
type AttendanceRepository struct {
	mu      sync.RWMutex
	entries map[string]*attendance.Entry
	byKey   map[attendance.Key]string
}

// NewAttendanceRepository creates an empty ledger.
func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{
		entries: make(map[string]*attendance.Entry),
		byKey:   make(map[attendance.Key]string),
	}
}

// Record upserts by (student, date, session).
func (r *AttendanceRepository) Record(_ context.Context, e *attendance.Entry) (*attendance.Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *e
	c.Date = attendance.DayOf(c.Date)
	key := c.Key()
	if id, ok := r.byKey[key]; ok {
		c.ID = id
	}
	if c.ID == "" {
		c.ID = shared.NewID()
	}
	r.entries[c.ID] = &c
	r.byKey[key] = c.ID

	out := c
	return &out, nil
}

// Delete removes an entry by id.
func (r *AttendanceRepository) Delete(_ context.Context, id string) (*attendance.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, shared.ErrAttendanceNotFound
	}
	delete(r.entries, id)
	delete(r.byKey, e.Key())
	return e, nil
}

// DeleteByStudent removes every entry of a student.
func (r *AttendanceRepository) DeleteByStudent(_ context.Context, studentID shared.StudentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.entries {
		if e.StudentID == studentID {
			delete(r.entries, id)
			delete(r.byKey, e.Key())
		}
	}
	return nil
}

// ListByStudent returns entries of a student by date and session.
func (r *AttendanceRepository) ListByStudent(_ context.Context, studentID shared.StudentID) ([]*attendance.Entry, error) {
	return r.filter(func(e *attendance.Entry) bool { return e.StudentID == studentID }), nil
}

// ListByDate returns entries recorded for a day.
func (r *AttendanceRepository) ListByDate(_ context.Context, day time.Time) ([]*attendance.Entry, error) {
	d := attendance.DayOf(day)
	return r.filter(func(e *attendance.Entry) bool { return e.Date.Equal(d) }), nil
}

// Summary aggregates a student's entries.
func (r *AttendanceRepository) Summary(_ context.Context, studentID shared.StudentID) (attendance.Summary, error) {
	return attendance.Summarize(r.filter(func(e *attendance.Entry) bool { return e.StudentID == studentID })), nil
}

// StudentIDs returns every student referenced by the ledger, sorted.
func (r *AttendanceRepository) StudentIDs(_ context.Context) ([]shared.StudentID, error) {
	r.mu.RLock()
	seen := make(map[shared.StudentID]struct{})
	for _, e := range r.entries {
		seen[e.StudentID] = struct{}{}
	}
	r.mu.RUnlock()

	ids := make([]shared.StudentID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *AttendanceRepository) filter(keep func(*attendance.Entry) bool) []*attendance.Entry {
	r.mu.RLock()
	out := make([]*attendance.Entry, 0)
	for _, e := range r.entries {
		if keep(e) {
			c := *e
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Session != out[j].Session {
			return out[i].Session < out[j].Session
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

var _ attendance.Repository = (*AttendanceRepository)(nil)
