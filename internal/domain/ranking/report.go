package ranking

import (
	"fmt"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// Source - источник данных, в котором найдена проблема.
type Source string

const (
	SourceAttendance Source = "attendance"
	SourceProgress   Source = "progress"
	SourceQuiz       Source = "quiz"
)

// Orphan - ссылка на студента, которого нет в справочнике.
// Такие данные не попадают в рейтинг.
type Orphan struct {
	Source    Source           `json:"source"`
	StudentID shared.StudentID `json:"student_id"`
}

// Anomaly - значение вне допустимого диапазона, которое было ограничено при подсчёте.
type Anomaly struct {
	Source    Source           `json:"source"`
	StudentID shared.StudentID `json:"student_id"`
	Detail    string           `json:"detail"`
}

// Report - результат проверки данных при пересчёте.
type Report struct {
	Orphans   []Orphan  `json:"orphans"`
	Anomalies []Anomaly `json:"anomalies"`
}

// NewReport создаёт пустой отчёт.
func NewReport() *Report {
	return &Report{
		Orphans:   make([]Orphan, 0),
		Anomalies: make([]Anomaly, 0),
	}
}

// AddOrphan добавляет висячую ссылку.
func (r *Report) AddOrphan(src Source, id shared.StudentID) {
	r.Orphans = append(r.Orphans, Orphan{Source: src, StudentID: id})
}

// HasIssues возвращает true, если отчёт не пуст.
func (r *Report) HasIssues() bool {
	return len(r.Orphans) > 0 || len(r.Anomalies) > 0
}

// OrphanIDs возвращает уникальные ID висячих ссылок в порядке появления.
func (r *Report) OrphanIDs() []shared.StudentID {
	seen := make(map[shared.StudentID]struct{}, len(r.Orphans))
	out := make([]shared.StudentID, 0, len(r.Orphans))
	for _, o := range r.Orphans {
		if _, ok := seen[o.StudentID]; ok {
			continue
		}
		seen[o.StudentID] = struct{}{}
		out = append(out, o.StudentID)
	}
	return out
}

// Inspect проверяет сырые сигналы студента и записывает значения вне диапазона.
func (r *Report) Inspect(id shared.StudentID, s Signals) {
	if s.Present < 0 || s.Late < 0 || s.Absent < 0 {
		r.Anomalies = append(r.Anomalies, Anomaly{
			Source:    SourceAttendance,
			StudentID: id,
			Detail:    fmt.Sprintf("negative session count: present=%d late=%d absent=%d", s.Present, s.Late, s.Absent),
		})
	}
	if s.CompletedTasks > s.TotalTasks || s.CompletedTasks < 0 {
		r.Anomalies = append(r.Anomalies, Anomaly{
			Source:    SourceProgress,
			StudentID: id,
			Detail:    fmt.Sprintf("completed tasks %d out of %d", s.CompletedTasks, s.TotalTasks),
		})
	}
	for _, score := range s.QuizScores {
		if score < 0 || score > MaxQuizScore {
			r.Anomalies = append(r.Anomalies, Anomaly{
				Source:    SourceQuiz,
				StudentID: id,
				Detail:    fmt.Sprintf("quiz score %.2f outside [0, %.0f]", score, MaxQuizScore),
			})
		}
	}
}
