package attendance

import (
	"context"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Repository определяет контракт журнала посещаемости.
type Repository interface {
	// Record сохраняет отметку. Если для (студент, дата, сессия) отметка уже есть,
	// она заменяется, а ID существующей записи сохраняется.
	Record(ctx context.Context, e *Entry) (*Entry, error)

	// Delete удаляет запись по ID.
	Delete(ctx context.Context, id string) (*Entry, error)

	// DeleteByStudent удаляет все записи студента.
	DeleteByStudent(ctx context.Context, studentID shared.StudentID) error

	// ListByStudent возвращает записи студента, отсортированные по дате.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Entry, error)

	// ListByDate возвращает все записи за день.
	ListByDate(ctx context.Context, day time.Time) ([]*Entry, error)

	// Summary возвращает сводку посещаемости студента.
	// Для студента без записей возвращается нулевая сводка, а не ошибка.
	Summary(ctx context.Context, studentID shared.StudentID) (Summary, error)

	// StudentIDs возвращает всех студентов, упомянутых в журнале.
	StudentIDs(ctx context.Context) ([]shared.StudentID, error)
}
