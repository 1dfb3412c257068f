package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/messaging"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/infrastructure/persistence/memory"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

type fixture struct {
	students   *memory.StudentRepository
	attendance *memory.AttendanceRepository
	progress   *memory.ProgressRepository
	quizzes    *memory.QuizRepository
	snapshots  *memory.SnapshotRepository
	engine     *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		students:   memory.NewStudentRepository(),
		attendance: memory.NewAttendanceRepository(),
		progress:   memory.NewProgressRepository(),
		quizzes:    memory.NewQuizRepository(),
		snapshots:  memory.NewSnapshotRepository(),
	}
	e, err := New(Dependencies{
		Students:   f.students,
		Attendance: f.attendance,
		Progress:   f.progress,
		Quizzes:    f.quizzes,
		Snapshots:  f.snapshots,
		Logger:     logger.Discard(),
	}, ranking.DefaultWeights)
	require.NoError(t, err)
	f.engine = e
	return f
}

func (f *fixture) addStudent(t *testing.T, id shared.StudentID, name string, achievements int) {
	t.Helper()
	s, err := student.NewStudent(id, name, "")
	require.NoError(t, err)
	for i := 0; i < achievements; i++ {
		s.AddAchievement(string(rune('a' + i)))
	}
	require.NoError(t, f.students.Save(context.Background(), s))
}

func (f *fixture) mark(t *testing.T, id shared.StudentID, session string, status attendance.Status) {
	t.Helper()
	e, err := attendance.NewEntry(id, time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC), session, status, "")
	require.NoError(t, err)
	_, err = f.attendance.Record(context.Background(), e)
	require.NoError(t, err)
}

func (f *fixture) submit(t *testing.T, id shared.StudentID, quizID string, score float64) {
	t.Helper()
	_, err := f.quizzes.Submit(context.Background(), &quiz.Submission{QuizID: quizID, StudentID: id, Score: score})
	require.NoError(t, err)
}

func (f *fixture) seedClass(t *testing.T) {
	f.addStudent(t, "s-ani", "Ani", 3)
	f.addStudent(t, "s-budi", "Budi", 12)
	f.addStudent(t, "s-citra", "Citra", 0)

	for i, st := range []attendance.Status{
		attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent,
		attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent, attendance.StatusPresent,
		attendance.StatusLate, attendance.StatusLate,
	} {
		f.mark(t, "s-ani", string(rune('a'+i)), st)
	}
	f.mark(t, "s-budi", "a", attendance.StatusAbsent)

	plan, err := progress.NewPlan("p-ani", "s-ani", "Math", []progress.Task{
		{ID: "1", Completed: true}, {ID: "2", Completed: true}, {ID: "3"}, {ID: "4"},
	})
	require.NoError(t, err)
	require.NoError(t, f.progress.SavePlan(context.Background(), plan))

	f.submit(t, "s-ani", "q-1", 80)
	f.submit(t, "s-ani", "q-2", 100)
	f.submit(t, "s-budi", "q-1", 40)
}

func TestCalculateRankings_Scores(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)

	snap, report, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, snap.Count())
	assert.False(t, report.HasIssues())

	ani, err := f.engine.GetStudentRank("s-ani")
	require.NoError(t, err)
	assert.InDelta(t, 27.0, ani.AttendanceScore, 1e-9)
	assert.InDelta(t, 15.0, ani.ProgressScore, 1e-9)
	assert.InDelta(t, 22.5, ani.QuizScore, 1e-9)
	assert.InDelta(t, 4.5, ani.AchievementScore, 1e-9)
	assert.InDelta(t, 69.0, ani.TotalScore, 1e-9)
	assert.Equal(t, ranking.Rank(1), ani.Rank)
	assert.Equal(t, ranking.MedalGold, ani.Medal)

	budi, err := f.engine.GetStudentRank("s-budi")
	require.NoError(t, err)
	assert.Equal(t, 0.0, budi.AttendanceScore)
	assert.Equal(t, 15.0, budi.AchievementScore)
	assert.InDelta(t, 25.0, budi.TotalScore, 1e-9)

	citra, err := f.engine.GetStudentRank("s-citra")
	require.NoError(t, err)
	assert.Equal(t, 0.0, citra.TotalScore)
	assert.Equal(t, ranking.MedalBronze, citra.Medal)
}

func TestCalculateRankings_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)

	_, _, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)
	first := f.engine.Rankings()

	_, _, err = f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)
	second := f.engine.Rankings()

	assert.Equal(t, first, second)
	assert.Equal(t, 2, f.snapshots.Len())
}

func TestCalculateRankings_IdempotentAfterRankMove(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "s-a", "A", 0)
	f.addStudent(t, "s-b", "B", 0)
	ctx := context.Background()

	_, _, err := f.engine.CalculateRankings(ctx)
	require.NoError(t, err)

	f.mark(t, "s-b", "morning", attendance.StatusPresent)
	_, _, err = f.engine.CalculateRankings(ctx)
	require.NoError(t, err)
	first := f.engine.Rankings()

	_, _, err = f.engine.CalculateRankings(ctx)
	require.NoError(t, err)
	second := f.engine.Rankings()

	require.Equal(t, first, second)
	assert.Equal(t, shared.StudentID("s-b"), second[0].StudentID)
	assert.Equal(t, ranking.RankChange(1), second[0].RankChange)
	assert.Equal(t, ranking.RankChange(-1), second[1].RankChange)
}

func TestCalculateRankings_Orphans(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "s-1", "Dewi", 0)
	f.mark(t, "ghost", "a", attendance.StatusPresent)
	f.mark(t, "ghost", "b", attendance.StatusPresent)
	f.submit(t, "ghost", "q-1", 90)
	plan, _ := progress.NewPlan("p-x", "phantom", "Lost", []progress.Task{{ID: "1"}})
	require.NoError(t, f.progress.SavePlan(context.Background(), plan))

	snap, report, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Count())
	assert.Nil(t, snap.Get("ghost"))
	assert.Equal(t, []ranking.Orphan{
		{Source: ranking.SourceAttendance, StudentID: "ghost"},
		{Source: ranking.SourceProgress, StudentID: "phantom"},
		{Source: ranking.SourceQuiz, StudentID: "ghost"},
	}, report.Orphans)
}

func TestCalculateRankings_ClampsOutOfRangeQuiz(t *testing.T) {
	f := newFixture(t)
	f.addStudent(t, "s-1", "Eka", 0)
	f.submit(t, "s-1", "q-1", 180)

	_, report, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)

	e, err := f.engine.GetStudentRank("s-1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, e.QuizScore)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, ranking.SourceQuiz, report.Anomalies[0].Source)
}

func TestReadSide_BeforeFirstCalculation(t *testing.T) {
	f := newFixture(t)

	assert.Empty(t, f.engine.Rankings())
	assert.Empty(t, f.engine.GetTopStudents(DefaultTopCount))
	_, err := f.engine.GetStudentRank("anyone")
	assert.ErrorIs(t, err, shared.ErrStudentNotRanked)
}

func TestGetTopStudents_Boundaries(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)
	_, _, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)

	assert.Empty(t, f.engine.GetTopStudents(0))
	assert.Empty(t, f.engine.GetTopStudents(-1))
	assert.Len(t, f.engine.GetTopStudents(2), 2)
	assert.Len(t, f.engine.GetTopStudents(100), 3)

	_, err = f.engine.GetStudentRank("not-in-class")
	assert.ErrorIs(t, err, shared.ErrStudentNotRanked)
	assert.True(t, shared.IsNotFound(err))
}

func TestRankingsAreCopies(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)
	_, _, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)

	view := f.engine.Rankings()
	view[0].TotalScore = 1000
	view[0].Rank = 99

	again, _ := f.engine.GetStudentRank(view[0].StudentID)
	assert.NotEqual(t, 1000.0, again.TotalScore)
	assert.Equal(t, ranking.Rank(1), again.Rank)
}

func TestSubscribe_RecomputesOnEvent(t *testing.T) {
	f := newFixture(t)
	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: logger.Discard()})
	require.NoError(t, f.engine.Subscribe(bus))
	f.engine.deps.Publisher = bus

	var recalculated []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventRankingRecalculated, func(_ context.Context, e shared.Event) error {
		recalculated = append(recalculated, e)
		return nil
	}))

	f.addStudent(t, "s-1", "Fajar", 0)
	f.addStudent(t, "s-2", "Gita", 0)
	f.mark(t, "s-2", "a", attendance.StatusPresent)
	require.NoError(t, bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventAttendanceRecorded, "s-2", "")))

	top := f.engine.GetTopStudents(1)
	require.Len(t, top, 1)
	assert.Equal(t, shared.StudentID("s-2"), top[0].StudentID)
	require.Len(t, recalculated, 1)
	assert.Equal(t, shared.EventAttendanceRecorded, recalculated[0].(shared.RankingRecalculatedEvent).Trigger)

	// s-1 overtakes s-2
	f.mark(t, "s-1", "a", attendance.StatusPresent)
	f.submit(t, "s-1", "q-1", 100)
	require.NoError(t, bus.Publish(context.Background(), shared.NewCollaboratorChangedEvent(shared.EventQuizSubmitted, "s-1", "q-1")))

	s1, err := f.engine.GetStudentRank("s-1")
	require.NoError(t, err)
	assert.Equal(t, ranking.Rank(1), s1.Rank)
	assert.Equal(t, ranking.RankChange(1), s1.RankChange)
}

type failingStudents struct{}

func (failingStudents) List(context.Context) ([]*student.Student, error) {
	return nil, errors.New("connection reset")
}

func TestCalculateRankings_SourceFailureKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)
	_, _, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)
	before := f.engine.Rankings()

	f.engine.deps.Students = failingStudents{}
	_, _, err = f.engine.CalculateRankings(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, f.engine.Rankings())
}

type flakyCache struct {
	mu            sync.Mutex
	calls         int
	invalidations int
}

func (c *flakyCache) Publish(context.Context, *ranking.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return errors.New("redis: connection refused")
}
func (c *flakyCache) Top(context.Context, int) ([]*ranking.Entry, error) { return nil, nil }
func (c *flakyCache) Get(context.Context, shared.StudentID) (*ranking.Entry, error) {
	return nil, shared.ErrStudentNotRanked
}
func (c *flakyCache) SnapshotID(context.Context) (string, error) { return "", nil }
func (c *flakyCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

// onceCache holds the published snapshot in memory and fails every publish
// after the first one.
type onceCache struct {
	mu            sync.Mutex
	snap          *ranking.Snapshot
	publishes     int
	invalidations int
	invalidateErr error
}

func (c *onceCache) Publish(_ context.Context, s *ranking.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes++
	if c.publishes > 1 {
		return errors.New("redis: i/o timeout")
	}
	c.snap = s.Clone()
	return nil
}

func (c *onceCache) Top(_ context.Context, n int) ([]*ranking.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.Top(n), nil
}

func (c *onceCache) Get(_ context.Context, id shared.StudentID) (*ranking.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.snap.Get(id); e != nil {
		return e, nil
	}
	return nil, shared.ErrStudentNotRanked
}

func (c *onceCache) SnapshotID(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return "", nil
	}
	return c.snap.ID, nil
}

func (c *onceCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	c.snap = nil
	return nil
}

type recorder struct {
	recalcs, persistFails int
	lastErr               error
}

func (r *recorder) ObserveRecalculation(_ string, _ time.Duration, _, _, _ int, err error) {
	r.recalcs++
	r.lastErr = err
}
func (r *recorder) SnapshotPersistFailed() { r.persistFails++ }

func TestCalculateRankings_CacheFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	cache := &flakyCache{}
	rec := &recorder{}
	f.engine.deps.Cache = cache
	f.engine.deps.Recorder = rec
	f.seedClass(t)

	snap, _, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Count())
	assert.Equal(t, 1, cache.calls)
	assert.Equal(t, 1, cache.invalidations)
	assert.Equal(t, 1, rec.recalcs)
	assert.Equal(t, 1, rec.persistFails)
	assert.NoError(t, rec.lastErr)
}

func TestTopStudents_FollowEngineAfterFailedPublish(t *testing.T) {
	tests := []struct {
		name          string
		invalidateErr error
	}{
		{name: "cache invalidated"},
		{name: "invalidate also fails", invalidateErr: errors.New("redis: i/o timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cache := &onceCache{invalidateErr: tt.invalidateErr}
			f.engine.deps.Cache = cache
			f.addStudent(t, "s-a", "A", 1)
			f.addStudent(t, "s-b", "B", 0)
			ctx := context.Background()
			top := query.NewGetTopStudentsHandler(f.engine, cache, logger.Discard())

			_, _, err := f.engine.CalculateRankings(ctx)
			require.NoError(t, err)
			res, err := top.Handle(ctx, query.GetTopStudentsQuery{})
			require.NoError(t, err)
			assert.Equal(t, "cache", res.Source)
			assert.Equal(t, "s-a", res.Entries[0].StudentID)

			for i := 0; i < 5; i++ {
				f.mark(t, "s-b", fmt.Sprintf("session-%d", i), attendance.StatusPresent)
			}
			_, _, err = f.engine.CalculateRankings(ctx)
			require.NoError(t, err)

			res, err = top.Handle(ctx, query.GetTopStudentsQuery{})
			require.NoError(t, err)
			want := f.engine.GetTopStudents(DefaultTopCount)
			require.Len(t, res.Entries, len(want))
			for i, e := range want {
				assert.Equal(t, e.StudentID.String(), res.Entries[i].StudentID)
			}
			assert.Equal(t, "s-b", res.Entries[0].StudentID)
			assert.Equal(t, "memory", res.Source)
			assert.Equal(t, 1, cache.invalidations)
		})
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)
	_, _, err := f.engine.CalculateRankings(context.Background())
	require.NoError(t, err)

	restarted, err := New(Dependencies{
		Students:   f.students,
		Attendance: f.attendance,
		Progress:   f.progress,
		Quizzes:    f.quizzes,
		Snapshots:  f.snapshots,
		Logger:     logger.Discard(),
	}, ranking.DefaultWeights)
	require.NoError(t, err)
	require.NoError(t, restarted.Restore(context.Background()))

	assert.Equal(t, f.engine.Rankings(), restarted.Rankings())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Dependencies{}, ranking.DefaultWeights)
	assert.Error(t, err)

	f := newFixture(t)
	_, err = New(f.engine.deps, ranking.Weights{Attendance: 50, Progress: 50, Quiz: 50})
	assert.Error(t, err)
}

func TestConcurrentRecalculations(t *testing.T) {
	f := newFixture(t)
	f.seedClass(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = f.engine.CalculateRankings(context.Background())
			_ = f.engine.GetTopStudents(DefaultTopCount)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, len(f.engine.Rankings()))
	assert.Equal(t, 8, f.snapshots.Len())
}
