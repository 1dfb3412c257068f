package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RANK QUERY
// Позиция студента с соседями и разрывом до следующего места.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentRankQuery содержит параметры запроса позиции студента.
type GetStudentRankQuery struct {
	// StudentID - идентификатор студента.
	StudentID string

	// NeighborRange - сколько соседей сверху и снизу показать (по умолчанию 2, максимум 10).
	NeighborRange int
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentRankQuery) Validate() error {
	if strings.TrimSpace(q.StudentID) == "" {
		return shared.ErrInvalidStudentID
	}
	if q.NeighborRange < 0 {
		return invalidQuery("neighbor_range cannot be negative")
	}
	if q.NeighborRange == 0 {
		q.NeighborRange = 2
	}
	if q.NeighborRange > 10 {
		q.NeighborRange = 10
	}
	return nil
}

// GetStudentRankResult - позиция студента в рейтинге.
type GetStudentRankResult struct {
	Entry RankingEntryDTO `json:"entry"`

	// TotalStudents - размер рейтинга.
	TotalStudents int `json:"total_students"`

	// Percentile - доля студентов ниже, в процентах.
	Percentile float64 `json:"percentile"`

	// ScoreToNextRank - сколько баллов до студента выше (0 для первого места).
	ScoreToNextRank float64 `json:"score_to_next_rank"`

	// Neighbors - соседи по рейтингу, включая самого студента.
	Neighbors []RankingEntryDTO `json:"neighbors"`

	Snapshot SnapshotInfoDTO `json:"snapshot"`
}

// GetStudentRankHandler обрабатывает запросы на получение позиции студента.
type GetStudentRankHandler struct {
	reader SnapshotReader
}

// NewGetStudentRankHandler создаёт новый обработчик.
func NewGetStudentRankHandler(reader SnapshotReader) *GetStudentRankHandler {
	return &GetStudentRankHandler{reader: reader}
}

// Handle возвращает позицию или shared.ErrStudentNotRanked.
func (h *GetStudentRankHandler) Handle(_ context.Context, q GetStudentRankQuery) (*GetStudentRankResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get student rank: %w", err)
	}

	snap := h.reader.Snapshot()
	id := shared.StudentID(strings.TrimSpace(q.StudentID))
	entry := snap.Get(id)
	if entry == nil {
		return nil, shared.ErrStudentNotRanked
	}

	return &GetStudentRankResult{
		Entry:           NewRankingEntryDTO(entry),
		TotalStudents:   snap.Count(),
		Percentile:      snap.Percentile(id),
		ScoreToNextRank: gapToNext(snap, entry),
		Neighbors:       NewRankingEntryDTOs(snap.Neighbors(id, q.NeighborRange)),
		Snapshot:        snapshotInfo(snap),
	}, nil
}

func gapToNext(snap *ranking.Snapshot, e *ranking.Entry) float64 {
	if e.Rank <= 1 {
		return 0
	}
	ahead := snap.Entries[int(e.Rank)-2]
	return ahead.TotalScore - e.TotalScore
}
