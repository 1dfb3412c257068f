// Package memory provides in-process repository implementations. They back
// the portal when no DATABASE_URL is configured and are used throughout the
// tests. All repositories copy on read and write so callers never share
// mutable state with the store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
)

// StudentRepository implements student.Repository.
type StudentRepository struct {
	mu       sync.RWMutex
	students map[shared.StudentID]*student.Student
}

// NewStudentRepository creates an empty directory.
func NewStudentRepository() *StudentRepository {
	return &StudentRepository{students: make(map[shared.StudentID]*student.Student)}
}

// Save inserts or replaces a student. CreatedAt of an existing record is kept.
func (r *StudentRepository) Save(_ context.Context, s *student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := s.Clone()
	if existing, ok := r.students[s.ID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.students[s.ID] = c
	return nil
}

// GetByID returns a student or shared.ErrStudentNotFound.
func (r *StudentRepository) GetByID(_ context.Context, id shared.StudentID) (*student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[id]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s.Clone(), nil
}

// List returns all students ordered by creation time, then id.
func (r *StudentRepository) List(_ context.Context) ([]*student.Student, error) {
	r.mu.RLock()
	out := make([]*student.Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()

	student.SortForDirectory(out)
	return out, nil
}

// Delete removes a student or returns shared.ErrStudentNotFound.
func (r *StudentRepository) Delete(_ context.Context, id shared.StudentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[id]; !ok {
		return shared.ErrStudentNotFound
	}
	delete(r.students, id)
	return nil
}

var _ student.Repository = (*StudentRepository)(nil)
