package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttendanceScore_LateCountsAsHalf(t *testing.T) {
	assert.InDelta(t, 27.0, AttendanceScore(8, 2, 0), 1e-9)
	assert.InDelta(t, 30.0, AttendanceScore(5, 0, 0), 1e-9)
	assert.InDelta(t, 15.0, AttendanceScore(0, 4, 0), 1e-9)
	assert.InDelta(t, 10.0, AttendanceScore(1, 0, 2), 1e-9)
}

func TestAttendanceScore_NoSessions(t *testing.T) {
	assert.Equal(t, 0.0, AttendanceScore(0, 0, 0))
}

func TestProgressScore(t *testing.T) {
	assert.Equal(t, 0.0, ProgressScore(0, 0))
	assert.InDelta(t, 15.0, ProgressScore(4, 2), 1e-9)
	assert.InDelta(t, 30.0, ProgressScore(3, 3), 1e-9)
	// more completed than total is clamped to the ceiling
	assert.InDelta(t, 30.0, ProgressScore(2, 5), 1e-9)
}

func TestQuizScore(t *testing.T) {
	assert.Equal(t, 0.0, QuizScore(nil))
	assert.InDelta(t, 20.0, QuizScore([]float64{70, 90}), 1e-9)
	assert.InDelta(t, 25.0, QuizScore([]float64{150}), 1e-9)
	assert.Equal(t, 0.0, QuizScore([]float64{-40}))
}

func TestAchievementScore_Capped(t *testing.T) {
	assert.Equal(t, 0.0, AchievementScore(0))
	assert.InDelta(t, 4.5, AchievementScore(3), 1e-9)
	assert.InDelta(t, 15.0, AchievementScore(10), 1e-9)
	assert.Equal(t, 15.0, AchievementScore(20))
	assert.Equal(t, 0.0, AchievementScore(-2))
}

func TestScore_ZeroDenominators(t *testing.T) {
	b := Score(Signals{Achievements: 4})

	assert.Equal(t, 0.0, b.Attendance)
	assert.Equal(t, 0.0, b.Progress)
	assert.Equal(t, 0.0, b.Quiz)
	assert.InDelta(t, 6.0, b.Achievement, 1e-9)
	assert.Equal(t, b.Achievement, b.Total)
	assert.False(t, math.IsNaN(b.Total))

	empty := Score(Signals{})
	assert.Equal(t, 0.0, empty.Total)
}

func TestScore_TotalBounded(t *testing.T) {
	cases := []Signals{
		{Present: 10, TotalTasks: 5, CompletedTasks: 5, QuizScores: []float64{100}, Achievements: 10},
		{Present: 1, Late: 1, Absent: 1, TotalTasks: 3, CompletedTasks: 1, QuizScores: []float64{55, 65}, Achievements: 2},
		{Present: 3, TotalTasks: 1, CompletedTasks: 9, QuizScores: []float64{400}, Achievements: 99},
		{Present: -3, Late: 7, TotalTasks: 2, CompletedTasks: 1, QuizScores: []float64{-10, 110}, Achievements: 1},
	}

	for _, s := range cases {
		b := Score(s)
		assert.InDelta(t, b.Attendance+b.Progress+b.Quiz+b.Achievement, b.Total, 1e-9)
		assert.LessOrEqual(t, b.Total, MaxTotalScore+1e-9)
		assert.GreaterOrEqual(t, b.Total, 0.0)
		assert.LessOrEqual(t, b.Attendance, DefaultWeights.Attendance)
		assert.LessOrEqual(t, b.Progress, DefaultWeights.Progress)
		assert.LessOrEqual(t, b.Quiz, DefaultWeights.Quiz)
		assert.LessOrEqual(t, b.Achievement, DefaultWeights.Achievement)
	}

	perfect := Score(cases[0])
	assert.InDelta(t, 100.0, perfect.Total, 1e-9)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, DefaultWeights.Validate())
	assert.NoError(t, Weights{Attendance: 25, Progress: 25, Quiz: 25, Achievement: 25}.Validate())
	assert.Error(t, Weights{Attendance: 30, Progress: 30, Quiz: 30, Achievement: 30}.Validate())
	assert.Error(t, Weights{Attendance: -10, Progress: 60, Quiz: 35, Achievement: 15}.Validate())
}

func TestWeights_Custom(t *testing.T) {
	w := Weights{Attendance: 40, Progress: 20, Quiz: 20, Achievement: 20}
	b := w.Score(Signals{Present: 8, Late: 2, Achievements: 5})

	assert.InDelta(t, 36.0, b.Attendance, 1e-9)
	assert.InDelta(t, 10.0, b.Achievement, 1e-9)
	assert.InDelta(t, 46.0, b.Total, 1e-9)
}
