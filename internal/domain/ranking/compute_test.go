package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

func classInputs() []Input {
	return []Input{
		{StudentID: "s-carol", StudentName: "Carol", Signals: Signals{Present: 5, TotalTasks: 2, CompletedTasks: 1, QuizScores: []float64{60}}},
		{StudentID: "s-alice", StudentName: "Alice", Signals: Signals{Present: 10, TotalTasks: 4, CompletedTasks: 4, QuizScores: []float64{90, 100}, Achievements: 6}},
		{StudentID: "s-dave", StudentName: "Dave"},
		{StudentID: "s-bob", StudentName: "Bob", Signals: Signals{Present: 8, Late: 2, TotalTasks: 4, CompletedTasks: 3, QuizScores: []float64{80}, Achievements: 2}},
	}
}

func TestCompute_OrderRanksAndMedals(t *testing.T) {
	entries := Compute(classInputs())
	require.Len(t, entries, 4)

	ids := make([]shared.StudentID, len(entries))
	for i, e := range entries {
		ids[i] = e.StudentID
	}
	assert.Equal(t, []shared.StudentID{"s-alice", "s-bob", "s-carol", "s-dave"}, ids)

	assert.Equal(t, MedalGold, entries[0].Medal)
	assert.Equal(t, MedalSilver, entries[1].Medal)
	assert.Equal(t, MedalBronze, entries[2].Medal)
	assert.Equal(t, MedalNone, entries[3].Medal)

	for i := range entries {
		assert.Equal(t, Rank(i+1), entries[i].Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, entries[i-1].TotalScore, entries[i].TotalScore)
			assert.Less(t, entries[i-1].Rank, entries[i].Rank)
		}
	}
}

func TestCompute_TieBreakByStudentID(t *testing.T) {
	same := Signals{Present: 3, Achievements: 1}
	entries := Compute([]Input{
		{StudentID: "zed", Signals: same},
		{StudentID: "amy", Signals: same},
		{StudentID: "max", Signals: same},
	})

	require.Len(t, entries, 3)
	assert.Equal(t, shared.StudentID("amy"), entries[0].StudentID)
	assert.Equal(t, shared.StudentID("max"), entries[1].StudentID)
	assert.Equal(t, shared.StudentID("zed"), entries[2].StudentID)
	assert.Equal(t, Rank(3), entries[2].Rank)
}

func TestCompute_Deterministic(t *testing.T) {
	first := Compute(classInputs())

	in := classInputs()
	in[0], in[3] = in[3], in[0]
	second := Compute(in)

	assert.Equal(t, first, second)
}

func TestCompute_Empty(t *testing.T) {
	assert.Empty(t, Compute(nil))
}

func TestSnapshot_Queries(t *testing.T) {
	snap := NewSnapshot("snap-1", time.Now(), Compute(classInputs()))

	assert.Equal(t, 4, snap.Count())
	assert.Empty(t, snap.Top(0))
	assert.Empty(t, snap.Top(-3))
	assert.Len(t, snap.Top(2), 2)
	assert.Len(t, snap.Top(50), 4)

	e := snap.Get("s-bob")
	require.NotNil(t, e)
	assert.Equal(t, Rank(2), e.Rank)
	assert.Nil(t, snap.Get("ghost"))

	assert.Len(t, snap.Page(1, 2), 2)
	assert.Equal(t, shared.StudentID("s-bob"), snap.Page(1, 2)[0].StudentID)
	assert.Empty(t, snap.Page(10, 2))

	n := snap.Neighbors("s-alice", 1)
	require.Len(t, n, 2)
	assert.Equal(t, shared.StudentID("s-bob"), n[1].StudentID)
	assert.Nil(t, snap.Neighbors("ghost", 1))

	assert.InDelta(t, 75.0, snap.Percentile("s-alice"), 1e-9)
	assert.InDelta(t, 0.0, snap.Percentile("s-dave"), 1e-9)
}

func TestSnapshot_TopReturnsCopies(t *testing.T) {
	snap := NewSnapshot("snap-1", time.Now(), Compute(classInputs()))

	top := snap.Top(1)
	top[0].TotalScore = -1

	assert.NotEqual(t, -1.0, snap.Entries[0].TotalScore)
}

func TestDiff(t *testing.T) {
	old := NewSnapshot("old", time.Now(), Compute(classInputs()))

	in := classInputs()
	// Dave overtakes everyone, Carol leaves the class.
	in[2].Signals = Signals{Present: 10, TotalTasks: 1, CompletedTasks: 1, QuizScores: []float64{100}, Achievements: 10}
	in = append(in[:0], in[1:]...)
	in = append(in, Input{StudentID: "s-erin", StudentName: "Erin"})
	next := NewSnapshot("next", time.Now(), Compute(in))

	d := Diff(old, next)

	assert.True(t, d.HasChanges())
	assert.Equal(t, RankChange(3), d.RankChanges["s-dave"])
	assert.Equal(t, RankChange(-1), d.RankChanges["s-alice"])
	assert.Equal(t, RankChange(3), next.Get("s-dave").RankChange)
	assert.Equal(t, []shared.StudentID{"s-erin"}, d.NewEntries)
	assert.Equal(t, []shared.StudentID{"s-carol"}, d.RemovedEntries)
	assert.NotEmpty(t, d.MedalChanges)
}

func TestDiff_CarriesRankChangeWhenOrderIsStable(t *testing.T) {
	old := NewSnapshot("old", time.Now(), Compute(classInputs()))
	in := classInputs()
	in[2].Signals = Signals{Present: 10, TotalTasks: 1, CompletedTasks: 1, QuizScores: []float64{100}, Achievements: 10}
	moved := NewSnapshot("moved", time.Now(), Compute(in))
	Diff(old, moved)
	require.Equal(t, RankChange(3), moved.Get("s-dave").RankChange)

	again := NewSnapshot("again", time.Now(), Compute(in))
	d := Diff(moved, again)

	assert.False(t, d.HasChanges())
	assert.Zero(t, d.Moved())
	assert.Equal(t, RankChange(0), d.RankChanges["s-dave"])
	assert.Equal(t, moved.Entries, again.Entries)
}

func TestDiff_FirstSnapshot(t *testing.T) {
	next := NewSnapshot("first", time.Now(), Compute(classInputs()))

	d := Diff(nil, next)

	assert.Len(t, d.NewEntries, 4)
	assert.Empty(t, d.RankChanges)
	for _, e := range next.Entries {
		assert.Equal(t, RankChange(0), e.RankChange)
	}
}

func TestReport_Inspect(t *testing.T) {
	r := NewReport()
	r.Inspect("s-1", Signals{Present: 2, TotalTasks: 1, CompletedTasks: 1, QuizScores: []float64{80}})
	assert.False(t, r.HasIssues())

	r.Inspect("s-2", Signals{Absent: -1, TotalTasks: 1, CompletedTasks: 2, QuizScores: []float64{120, 50}})
	assert.Len(t, r.Anomalies, 3)

	r.AddOrphan(SourceQuiz, "ghost")
	r.AddOrphan(SourceAttendance, "ghost")
	assert.Equal(t, []shared.StudentID{"ghost"}, r.OrphanIDs())
}
