package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// QuizRepository implements quiz.Repository.
type QuizRepository struct {
	mu   sync.RWMutex
	subs map[quiz.Key]*quiz.Submission
}

// NewQuizRepository creates an empty submission log.
func NewQuizRepository() *QuizRepository {
	return &QuizRepository{subs: make(map[quiz.Key]*quiz.Submission)}
}

// Submit upserts by (quiz, student). The previous submission's id is kept.
// Scores are not validated here: the command layer rejects out-of-range
// scores and the engine clamps whatever else reaches the log.
func (r *QuizRepository) Submit(_ context.Context, s *quiz.Submission) (*quiz.Submission, error) {
	if s.QuizID == "" {
		return nil, shared.ErrInvalidQuizID
	}
	if !s.StudentID.IsValid() {
		return nil, shared.ErrInvalidStudentID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := cloneSubmission(s)
	if prev, ok := r.subs[c.Key()]; ok {
		c.ID = prev.ID
	}
	if c.ID == "" {
		c.ID = shared.NewID()
	}
	r.subs[c.Key()] = c
	return cloneSubmission(c), nil
}

// DeleteByStudent removes every submission of a student.
func (r *QuizRepository) DeleteByStudent(_ context.Context, studentID shared.StudentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.subs {
		if k.StudentID == studentID {
			delete(r.subs, k)
		}
	}
	return nil
}

// ListByStudent returns a student's submissions by submission time.
func (r *QuizRepository) ListByStudent(_ context.Context, studentID shared.StudentID) ([]*quiz.Submission, error) {
	return r.filter(func(s *quiz.Submission) bool { return s.StudentID == studentID }), nil
}

// ListByQuiz returns every submission of a quiz.
func (r *QuizRepository) ListByQuiz(_ context.Context, quizID string) ([]*quiz.Submission, error) {
	return r.filter(func(s *quiz.Submission) bool { return s.QuizID == quizID }), nil
}

// ListAll returns the whole log.
func (r *QuizRepository) ListAll(_ context.Context) ([]*quiz.Submission, error) {
	return r.filter(func(*quiz.Submission) bool { return true }), nil
}

func (r *QuizRepository) filter(keep func(*quiz.Submission) bool) []*quiz.Submission {
	r.mu.RLock()
	out := make([]*quiz.Submission, 0, len(r.subs))
	for _, s := range r.subs {
		if keep(s) {
			out = append(out, cloneSubmission(s))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		if out[i].StudentID != out[j].StudentID {
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].QuizID < out[j].QuizID
	})
	return out
}

func cloneSubmission(s *quiz.Submission) *quiz.Submission {
	c := *s
	c.Answers = append([]string(nil), s.Answers...)
	return &c
}

var _ quiz.Repository = (*QuizRepository)(nil)
