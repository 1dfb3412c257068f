package student

import (
	"context"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Repository определяет контракт хранилища справочника студентов.
// Реализации: in-memory (memory) и PostgreSQL (postgres).
type Repository interface {
	// Save создаёт или полностью заменяет запись студента.
	Save(ctx context.Context, s *Student) error

	// GetByID возвращает студента по ID или shared.ErrStudentNotFound.
	GetByID(ctx context.Context, id shared.StudentID) (*Student, error)

	// List возвращает всех студентов в порядке справочника
	// (время создания, затем ID).
	List(ctx context.Context) ([]*Student, error)

	// Delete удаляет студента. Возвращает shared.ErrStudentNotFound,
	// если записи не было.
	Delete(ctx context.Context, id shared.StudentID) error
}
