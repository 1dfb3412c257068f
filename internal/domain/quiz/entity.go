// Package quiz содержит доменную модель журнала сдачи тестов.
// Журнал - единственный источник оценок за тесты для рейтинга.
package quiz

import (
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

const (
	// MinScore - минимальная оценка за тест.
	MinScore = 0.0
	// MaxScore - максимальная оценка за тест.
	MaxScore = 100.0
)

// Submission - сдача теста студентом.
// Инвариант: одна сдача на пару (студент, тест); повторная сдача заменяет прежнюю.
type Submission struct {
	// ID - идентификатор сдачи.
	ID string

	// QuizID - тест.
	QuizID string

	// StudentID - студент.
	StudentID shared.StudentID

	// Answers - ответы в порядке вопросов.
	Answers []string

	// Score - оценка в диапазоне [0, 100].
	Score float64

	// SubmittedAt - время сдачи.
	SubmittedAt time.Time
}

// NewSubmission создаёт сдачу с валидацией.
func NewSubmission(quizID string, studentID shared.StudentID, answers []string, score float64) (*Submission, error) {
	s := &Submission{
		ID:          shared.NewID(),
		QuizID:      strings.TrimSpace(quizID),
		StudentID:   studentID,
		Answers:     append([]string(nil), answers...),
		Score:       score,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate проверяет инварианты сдачи.
func (s *Submission) Validate() error {
	if s.QuizID == "" {
		return shared.ErrInvalidQuizID
	}
	if !s.StudentID.IsValid() {
		return shared.ErrInvalidStudentID
	}
	if s.Score < MinScore || s.Score > MaxScore {
		return shared.ErrInvalidScore
	}
	return nil
}

// Key возвращает ключ уникальности сдачи.
func (s *Submission) Key() Key {
	return Key{QuizID: s.QuizID, StudentID: s.StudentID}
}

// Key - пара (тест, студент).
type Key struct {
	QuizID    string
	StudentID shared.StudentID
}

// Scores возвращает оценки из списка сдач.
func Scores(subs []*Submission) []float64 {
	out := make([]float64, 0, len(subs))
	for _, s := range subs {
		out = append(out, s.Score)
	}
	return out
}
