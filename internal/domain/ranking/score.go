// Package ranking содержит доменную модель сводного рейтинга класса:
// формулу подсчёта баллов, упорядочивание, снапшоты и их сравнение.
package ranking

import (
	"fmt"
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// AchievementNormalizer - количество достижений, дающее полный балл компонента.
	AchievementNormalizer = 10

	// LateCredit - доля присутствия, засчитываемая за опоздание.
	LateCredit = 0.5

	// MaxQuizScore - максимальная оценка за тест.
	MaxQuizScore = 100.0

	// MaxTotalScore - сумма весов всех компонентов.
	MaxTotalScore = 100.0
)

// Weights - потолки компонентов рейтинга. Сумма должна быть равна 100.
type Weights struct {
	Attendance  float64 `json:"attendance"`
	Progress    float64 `json:"progress"`
	Quiz        float64 `json:"quiz"`
	Achievement float64 `json:"achievement"`
}

// DefaultWeights - стандартные веса: 30 / 30 / 25 / 15.
var DefaultWeights = Weights{
	Attendance:  30,
	Progress:    30,
	Quiz:        25,
	Achievement: 15,
}

// Sum возвращает сумму весов.
func (w Weights) Sum() float64 {
	return w.Attendance + w.Progress + w.Quiz + w.Achievement
}

// Validate проверяет, что веса неотрицательны и в сумме дают 100.
func (w Weights) Validate() error {
	if w.Attendance < 0 || w.Progress < 0 || w.Quiz < 0 || w.Achievement < 0 {
		return fmt.Errorf("ranking weights must be non-negative: %+v", w)
	}
	if math.Abs(w.Sum()-MaxTotalScore) > 1e-9 {
		return fmt.Errorf("ranking weights must sum to %.0f, got %.2f", MaxTotalScore, w.Sum())
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SIGNALS & BREAKDOWN
// ══════════════════════════════════════════════════════════════════════════════

// Signals - сырые входные данные одного студента, собранные из четырёх источников.
type Signals struct {
	Present int
	Late    int
	Absent  int

	TotalTasks     int
	CompletedTasks int

	QuizScores []float64

	Achievements int
}

// Breakdown - баллы по компонентам и итог.
type Breakdown struct {
	Attendance  float64 `json:"attendance_score"`
	Progress    float64 `json:"progress_score"`
	Quiz        float64 `json:"quiz_score"`
	Achievement float64 `json:"achievement_score"`
	Total       float64 `json:"total_score"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORING
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceScore считает компонент посещаемости.
// Опоздание засчитывается как половина присутствия.
func (w Weights) AttendanceScore(present, late, absent int) float64 {
	present, late, absent = nonNegative(present), nonNegative(late), nonNegative(absent)
	total := present + late + absent
	if total == 0 {
		return 0
	}
	attended := float64(present) + LateCredit*float64(late)
	return clamp(attended/float64(total)*w.Attendance, w.Attendance)
}

// ProgressScore считает компонент прогресса по всем задачам всех планов.
func (w Weights) ProgressScore(totalTasks, completedTasks int) float64 {
	if totalTasks <= 0 {
		return 0
	}
	return clamp(float64(nonNegative(completedTasks))/float64(totalTasks)*w.Progress, w.Progress)
}

// QuizScore считает компонент тестов по средней оценке.
func (w Weights) QuizScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := sum / float64(len(scores))
	return clamp(avg/MaxQuizScore*w.Quiz, w.Quiz)
}

// AchievementScore считает компонент достижений с потолком.
func (w Weights) AchievementScore(count int) float64 {
	return clamp(float64(nonNegative(count))/AchievementNormalizer*w.Achievement, w.Achievement)
}

// Score считает все компоненты и итоговый балл.
func (w Weights) Score(s Signals) Breakdown {
	b := Breakdown{
		Attendance:  w.AttendanceScore(s.Present, s.Late, s.Absent),
		Progress:    w.ProgressScore(s.TotalTasks, s.CompletedTasks),
		Quiz:        w.QuizScore(s.QuizScores),
		Achievement: w.AchievementScore(s.Achievements),
	}
	b.Total = b.Attendance + b.Progress + b.Quiz + b.Achievement
	return b
}

// AttendanceScore считает компонент посещаемости со стандартными весами.
func AttendanceScore(present, late, absent int) float64 {
	return DefaultWeights.AttendanceScore(present, late, absent)
}

// ProgressScore считает компонент прогресса со стандартными весами.
func ProgressScore(totalTasks, completedTasks int) float64 {
	return DefaultWeights.ProgressScore(totalTasks, completedTasks)
}

// QuizScore считает компонент тестов со стандартными весами.
func QuizScore(scores []float64) float64 {
	return DefaultWeights.QuizScore(scores)
}

// AchievementScore считает компонент достижений со стандартными весами.
func AchievementScore(count int) float64 {
	return DefaultWeights.AchievementScore(count)
}

// Score считает разбивку баллов со стандартными весами.
func Score(s Signals) Breakdown {
	return DefaultWeights.Score(s)
}

// clamp ограничивает значение отрезком [0, ceiling]. NaN превращается в 0.
func clamp(v, ceiling float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > ceiling:
		return ceiling
	default:
		return v
	}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
