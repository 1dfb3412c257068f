// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING DTO
// ══════════════════════════════════════════════════════════════════════════════

// ScoresDTO - разбивка итогового балла по компонентам.
type ScoresDTO struct {
	Attendance  float64 `json:"attendance"`
	Progress    float64 `json:"progress"`
	Quiz        float64 `json:"quiz"`
	Achievement float64 `json:"achievement"`
	Total       float64 `json:"total"`
}

// RankingEntryDTO - строка рейтинга для API.
type RankingEntryDTO struct {
	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// Name - имя студента на момент пересчёта.
	Name string `json:"name"`

	// Photo - ссылка на фото (может быть пустой).
	Photo string `json:"photo,omitempty"`

	// Rank - позиция, начиная с 1.
	Rank int `json:"rank"`

	// Medal - "gold", "silver", "bronze" или пусто.
	Medal string `json:"medal,omitempty"`

	// RankChange - положительное значение означает подъём.
	RankChange int `json:"rank_change"`

	// RankDirection - "up", "down" или "stable".
	RankDirection string `json:"rank_direction"`

	// Scores - баллы по компонентам.
	Scores ScoresDTO `json:"scores"`
}

// NewRankingEntryDTO конвертирует запись рейтинга в DTO.
func NewRankingEntryDTO(e *ranking.Entry) RankingEntryDTO {
	b := e.Breakdown()
	return RankingEntryDTO{
		StudentID:     e.StudentID.String(),
		Name:          e.StudentName,
		Photo:         e.Photo,
		Rank:          int(e.Rank),
		Medal:         string(e.Medal),
		RankChange:    int(e.RankChange),
		RankDirection: rankDirection(e.RankChange),
		Scores: ScoresDTO{
			Attendance:  b.Attendance,
			Progress:    b.Progress,
			Quiz:        b.Quiz,
			Achievement: b.Achievement,
			Total:       b.Total,
		},
	}
}

// NewRankingEntryDTOs конвертирует срез записей.
func NewRankingEntryDTOs(entries []*ranking.Entry) []RankingEntryDTO {
	out := make([]RankingEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewRankingEntryDTO(e))
	}
	return out
}

func rankDirection(rc ranking.RankChange) string {
	switch {
	case rc > 0:
		return "up"
	case rc < 0:
		return "down"
	default:
		return "stable"
	}
}

// SnapshotInfoDTO - метаданные снапшота, на котором построен ответ.
type SnapshotInfoDTO struct {
	ID           string     `json:"id,omitempty"`
	CalculatedAt *time.Time `json:"calculated_at,omitempty"`
}

func snapshotInfo(s *ranking.Snapshot) SnapshotInfoDTO {
	if s == nil || s.ID == "" {
		return SnapshotInfoDTO{}
	}
	at := s.CalculatedAt
	return SnapshotInfoDTO{ID: s.ID, CalculatedAt: &at}
}

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotReader - источник текущего снапшота (движок рейтинга).
type SnapshotReader interface {
	Snapshot() *ranking.Snapshot
}

func invalidQuery(msg string) error {
	return shared.NewDomainError("query", "Validate", shared.ErrInvalidInput, msg)
}
