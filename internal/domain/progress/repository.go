package progress

import (
	"context"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Repository определяет контракт хранилища учебных планов.
type Repository interface {
	// SavePlan создаёт или заменяет план целиком.
	SavePlan(ctx context.Context, p *Plan) error

	// GetPlan возвращает план по ID или shared.ErrPlanNotFound.
	GetPlan(ctx context.Context, id string) (*Plan, error)

	// DeletePlan удаляет план и возвращает удалённую запись.
	DeletePlan(ctx context.Context, id string) (*Plan, error)

	// DeleteByStudent удаляет все планы студента.
	DeleteByStudent(ctx context.Context, studentID shared.StudentID) error

	// ListByStudent возвращает планы студента.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Plan, error)

	// ListAll возвращает плоский список всех планов (для пересчёта рейтинга).
	ListAll(ctx context.Context) ([]*Plan, error)
}
