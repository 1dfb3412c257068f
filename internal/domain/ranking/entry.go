package ranking

import (
	"fmt"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank - позиция в рейтинге (1 = первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// RankChange - изменение позиции с прошлого пересчёта.
// Положительное значение - студент поднялся (был 5, стал 2 = +3).
type RankChange int

// String возвращает изменение со знаком.
func (rc RankChange) String() string {
	switch {
	case rc > 0:
		return fmt.Sprintf("+%d", rc)
	case rc < 0:
		return fmt.Sprintf("%d", rc)
	default:
		return "0"
	}
}

// Medal - медаль за место в тройке лидеров.
type Medal string

const (
	MedalNone   Medal = ""
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
)

// MedalForRank возвращает медаль для ранга.
func MedalForRank(r Rank) Medal {
	switch r {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return MedalNone
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - строка рейтинга. Производная сущность: создаётся только пересчётом
// и никогда не изменяется по частям.
type Entry struct {
	// StudentID - студент.
	StudentID shared.StudentID

	// StudentName - имя на момент пересчёта.
	StudentName string

	// Photo - ссылка на фото.
	Photo string

	// Баллы по компонентам.
	AttendanceScore  float64
	ProgressScore    float64
	QuizScore        float64
	AchievementScore float64

	// TotalScore - сумма четырёх компонентов.
	TotalScore float64

	// Rank - позиция, начиная с 1, без пропусков.
	Rank Rank

	// Medal - медаль для первых трёх мест.
	Medal Medal

	// RankChange - изменение позиции относительно предыдущего снапшота.
	RankChange RankChange
}

// Breakdown возвращает баллы записи.
func (e *Entry) Breakdown() Breakdown {
	return Breakdown{
		Attendance:  e.AttendanceScore,
		Progress:    e.ProgressScore,
		Quiz:        e.QuizScore,
		Achievement: e.AchievementScore,
		Total:       e.TotalScore,
	}
}

// Clone создаёт копию записи.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("%s %s (%s) %.2f [%s]", e.Rank, e.StudentName, e.StudentID, e.TotalScore, e.RankChange)
}

// CloneEntries копирует срез записей.
func CloneEntries(entries []*Entry) []*Entry {
	out := make([]*Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
