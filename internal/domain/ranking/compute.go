package ranking

import (
	"sort"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Input - данные одного студента для пересчёта.
type Input struct {
	StudentID   shared.StudentID
	StudentName string
	Photo       string
	Signals     Signals
}

// Compute строит упорядоченный рейтинг со стандартными весами.
func Compute(inputs []Input) []*Entry {
	return DefaultWeights.Compute(inputs)
}

// Compute строит упорядоченный рейтинг: считает баллы каждого студента,
// сортирует по итогу (по убыванию, при равенстве по StudentID),
// назначает ранги 1..N и медали. Чистая функция, входные данные не изменяются.
func (w Weights) Compute(inputs []Input) []*Entry {
	entries := make([]*Entry, 0, len(inputs))
	for _, in := range inputs {
		b := w.Score(in.Signals)
		entries = append(entries, &Entry{
			StudentID:        in.StudentID,
			StudentName:      in.StudentName,
			Photo:            in.Photo,
			AttendanceScore:  b.Attendance,
			ProgressScore:    b.Progress,
			QuizScore:        b.Quiz,
			AchievementScore: b.Achievement,
			TotalScore:       b.Total,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].StudentID < entries[j].StudentID
	})

	for i, e := range entries {
		e.Rank = Rank(i + 1)
		e.Medal = MedalForRank(e.Rank)
	}
	return entries
}
