package quiz

import (
	"context"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Repository определяет контракт журнала сдачи тестов.
type Repository interface {
	// Submit сохраняет сдачу. Существующая сдача той же пары (тест, студент)
	// заменяется; возвращается сохранённая запись.
	Submit(ctx context.Context, s *Submission) (*Submission, error)

	// DeleteByStudent удаляет все сдачи студента.
	DeleteByStudent(ctx context.Context, studentID shared.StudentID) error

	// ListByStudent возвращает сдачи студента по времени сдачи.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Submission, error)

	// ListByQuiz возвращает все сдачи теста.
	ListByQuiz(ctx context.Context, quizID string) ([]*Submission, error)

	// ListAll возвращает плоский список всех сдач (для пересчёта рейтинга).
	ListAll(ctx context.Context) ([]*Submission, error)
}
