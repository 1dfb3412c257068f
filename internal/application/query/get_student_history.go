package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT HISTORY QUERY
// История позиций студента по сохранённым снапшотам.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentHistoryQuery содержит параметры запроса истории.
type GetStudentHistoryQuery struct {
	StudentID string

	// Limit - количество точек (по умолчанию 30, максимум 365).
	Limit int
}

// Validate проверяет параметры.
func (q *GetStudentHistoryQuery) Validate() error {
	if strings.TrimSpace(q.StudentID) == "" {
		return shared.ErrInvalidStudentID
	}
	if q.Limit < 0 {
		return invalidQuery("limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 30
	}
	if q.Limit > 365 {
		q.Limit = 365
	}
	return nil
}

// HistoryPointDTO - точка истории.
type HistoryPointDTO struct {
	SnapshotID   string  `json:"snapshot_id"`
	CalculatedAt string  `json:"calculated_at"`
	Rank         int     `json:"rank"`
	TotalScore   float64 `json:"total_score"`
	RankChange   int     `json:"rank_change"`
}

// GetStudentHistoryResult - история, новые точки первыми.
type GetStudentHistoryResult struct {
	StudentID string            `json:"student_id"`
	Points    []HistoryPointDTO `json:"points"`

	// BestRank - лучшая позиция среди возвращённых точек (0, если истории нет).
	BestRank int `json:"best_rank"`
}

// GetStudentHistoryHandler читает историю из хранилища снапшотов.
type GetStudentHistoryHandler struct {
	snapshots ranking.SnapshotRepository
}

// NewGetStudentHistoryHandler создаёт обработчик.
func NewGetStudentHistoryHandler(snapshots ranking.SnapshotRepository) *GetStudentHistoryHandler {
	return &GetStudentHistoryHandler{snapshots: snapshots}
}

// Handle возвращает историю. Пустая история не является ошибкой.
func (h *GetStudentHistoryHandler) Handle(ctx context.Context, q GetStudentHistoryQuery) (*GetStudentHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get student history: %w", err)
	}
	id := shared.StudentID(strings.TrimSpace(q.StudentID))

	points, err := h.snapshots.History(ctx, id, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get student history: %w", err)
	}

	result := &GetStudentHistoryResult{
		StudentID: id.String(),
		Points:    make([]HistoryPointDTO, 0, len(points)),
	}
	for _, p := range points {
		result.Points = append(result.Points, HistoryPointDTO{
			SnapshotID:   p.SnapshotID,
			CalculatedAt: p.CalculatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Rank:         int(p.Rank),
			TotalScore:   p.TotalScore,
			RankChange:   int(p.RankChange),
		})
		if result.BestRank == 0 || int(p.Rank) < result.BestRank {
			result.BestRank = int(p.Rank)
		}
	}
	return result, nil
}
