// Package engine owns the class ranking. It pulls the four collaborator
// sources, recomputes the whole snapshot from scratch and serves read-only
// views of the latest result.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// DefaultTopCount is used by GetTopStudents callers that do not pass a count.
const DefaultTopCount = 10

// TriggerManual labels recomputes not caused by a collaborator event.
const TriggerManual shared.EventType = "manual"

// ══════════════════════════════════════════════════════════════════════════════
// COLLABORATOR PORTS
// ══════════════════════════════════════════════════════════════════════════════

// StudentSource lists the student directory.
type StudentSource interface {
	List(ctx context.Context) ([]*student.Student, error)
}

// AttendanceSource exposes per-student attendance summaries.
type AttendanceSource interface {
	Summary(ctx context.Context, id shared.StudentID) (attendance.Summary, error)
	StudentIDs(ctx context.Context) ([]shared.StudentID, error)
}

// ProgressSource exposes every study plan.
type ProgressSource interface {
	ListAll(ctx context.Context) ([]*progress.Plan, error)
}

// QuizSource exposes every quiz submission.
type QuizSource interface {
	ListAll(ctx context.Context) ([]*quiz.Submission, error)
}

// Recorder receives recompute measurements. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveRecalculation(trigger string, d time.Duration, students, orphans, anomalies int, err error)
	SnapshotPersistFailed()
}

// CacheGuard runs cache writes behind a circuit breaker.
type CacheGuard interface {
	Execute(ctx context.Context, fn func(context.Context) error) error
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies groups the engine collaborators. The four sources are
// required; everything else is optional.
type Dependencies struct {
	Students   StudentSource
	Attendance AttendanceSource
	Progress   ProgressSource
	Quizzes    QuizSource

	// Snapshots stores every computed snapshot for history queries.
	Snapshots ranking.SnapshotRepository

	// Cache receives each snapshot for readers in other processes.
	Cache ranking.SnapshotCache

	// CacheGuard wraps Cache writes. Usually a circuit breaker.
	CacheGuard CacheGuard

	// Publisher receives ranking.recalculated events.
	Publisher shared.EventPublisher

	// Recorder receives metrics.
	Recorder Recorder

	Logger *slog.Logger
}

// Engine is safe for concurrent use. Recomputes are serialized; readers
// always see a complete snapshot.
type Engine struct {
	deps    Dependencies
	weights ranking.Weights
	logger  *slog.Logger
	now     func() time.Time

	recalcMu sync.Mutex
	current  atomic.Pointer[ranking.Snapshot]
}

// New creates an engine with an empty snapshot.
func New(deps Dependencies, weights ranking.Weights) (*Engine, error) {
	if deps.Students == nil || deps.Attendance == nil || deps.Progress == nil || deps.Quizzes == nil {
		return nil, fmt.Errorf("engine: all four collaborator sources are required")
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = shared.NopPublisher{}
	}

	e := &Engine{
		deps:    deps,
		weights: weights,
		logger:  deps.Logger.With(logger.Component("ranking_engine")),
		now:     time.Now,
	}
	e.current.Store(ranking.NewEmptySnapshot())
	return e, nil
}

// Subscribe registers a recompute for every collaborator event.
func (e *Engine) Subscribe(bus shared.EventSubscriber) error {
	for _, t := range shared.CollaboratorEvents {
		if err := bus.Subscribe(t, e.onCollaboratorChanged); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

func (e *Engine) onCollaboratorChanged(ctx context.Context, event shared.Event) error {
	_, _, err := e.recalculate(ctx, event.EventType())
	return err
}

// Restore loads the latest stored snapshot so that rank changes survive a
// restart. A missing snapshot is not an error.
func (e *Engine) Restore(ctx context.Context) error {
	if e.deps.Snapshots == nil {
		return nil
	}
	snap, err := e.deps.Snapshots.Latest(ctx)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("restore snapshot: %w", err)
	}

	e.recalcMu.Lock()
	defer e.recalcMu.Unlock()
	e.current.Store(snap)
	e.logger.Info("ranking snapshot restored", logger.SnapshotID(snap.ID), slog.Int("students", snap.Count()))
	return nil
}

// CalculateRankings recomputes the snapshot from scratch and replaces the
// current one. Calling it twice without data changes yields the same order
// and scores.
func (e *Engine) CalculateRankings(ctx context.Context) (*ranking.Snapshot, *ranking.Report, error) {
	return e.recalculate(ctx, TriggerManual)
}

// recalculate runs a locked recompute and publishes the result after the
// lock is released, so ranking.recalculated handlers may read the engine.
func (e *Engine) recalculate(ctx context.Context, trigger shared.EventType) (*ranking.Snapshot, *ranking.Report, error) {
	snap, report, elapsed, err := e.recompute(ctx, trigger)
	if err != nil {
		return nil, nil, err
	}

	event := shared.NewRankingRecalculatedEvent(snap.ID, snap.Count(), len(report.Orphans), trigger, elapsed)
	if err := e.deps.Publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("publish ranking event", logger.Trigger(string(trigger)), logger.Err(err))
	}
	return snap, report, nil
}

func (e *Engine) recompute(ctx context.Context, trigger shared.EventType) (*ranking.Snapshot, *ranking.Report, time.Duration, error) {
	e.recalcMu.Lock()
	defer e.recalcMu.Unlock()

	start := time.Now()
	log := e.logger.With(logger.Trigger(string(trigger)))

	inputs, report, err := e.gather(ctx)
	if err != nil {
		e.record(trigger, time.Since(start), 0, nil, err)
		log.Error("ranking recalculation failed", logger.Err(err))
		return nil, nil, 0, err
	}

	prev := e.current.Load()
	next := ranking.NewSnapshot(shared.NewID(), e.now(), e.weights.Compute(inputs))
	diff := ranking.Diff(prev, next)
	e.current.Store(next)

	elapsed := time.Since(start)
	e.record(trigger, elapsed, next.Count(), report, nil)

	if len(report.Orphans) > 0 {
		log.Warn("orphaned collaborator records ignored",
			slog.Int("count", len(report.Orphans)),
			slog.Any("student_ids", report.OrphanIDs()),
		)
	}
	for _, a := range report.Anomalies {
		log.Warn("out-of-range input clamped",
			logger.StudentID(a.StudentID.String()),
			slog.String("source", string(a.Source)),
			slog.String("detail", a.Detail),
		)
	}

	e.persist(ctx, next)

	log.Info("ranking recalculated",
		logger.SnapshotID(next.ID),
		slog.Int("students", next.Count()),
		slog.Int("moved", diff.Moved()),
		slog.Int("joined", len(diff.NewEntries)),
		slog.Int("left", len(diff.RemovedEntries)),
		logger.Latency(elapsed),
	)
	return next.Clone(), report, elapsed, nil
}

// gather reads every source and joins them by student id.
func (e *Engine) gather(ctx context.Context) ([]ranking.Input, *ranking.Report, error) {
	students, err := e.deps.Students.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list students: %w", err)
	}
	plans, err := e.deps.Progress.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list plans: %w", err)
	}
	submissions, err := e.deps.Quizzes.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list quiz submissions: %w", err)
	}
	attendanceIDs, err := e.deps.Attendance.StudentIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list attendance students: %w", err)
	}

	report := ranking.NewReport()
	known := make(map[shared.StudentID]struct{}, len(students))
	for _, s := range students {
		known[s.ID] = struct{}{}
	}

	type taskCounts struct{ total, completed int }
	tasks := make(map[shared.StudentID]taskCounts)
	for _, p := range plans {
		if _, ok := known[p.StudentID]; !ok {
			report.AddOrphan(ranking.SourceProgress, p.StudentID)
			continue
		}
		total, completed := p.Counts()
		c := tasks[p.StudentID]
		c.total += total
		c.completed += completed
		tasks[p.StudentID] = c
	}

	scores := make(map[shared.StudentID][]float64)
	for _, sub := range submissions {
		if _, ok := known[sub.StudentID]; !ok {
			report.AddOrphan(ranking.SourceQuiz, sub.StudentID)
			continue
		}
		scores[sub.StudentID] = append(scores[sub.StudentID], sub.Score)
	}

	for _, id := range attendanceIDs {
		if _, ok := known[id]; !ok {
			report.AddOrphan(ranking.SourceAttendance, id)
		}
	}
	dedupeOrphans(report)

	inputs := make([]ranking.Input, 0, len(students))
	for _, s := range students {
		summary, err := e.deps.Attendance.Summary(ctx, s.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("attendance summary %s: %w", s.ID, err)
		}
		signals := ranking.Signals{
			Present:        summary.Present,
			Late:           summary.Late,
			Absent:         summary.Absent,
			TotalTasks:     tasks[s.ID].total,
			CompletedTasks: tasks[s.ID].completed,
			QuizScores:     scores[s.ID],
			Achievements:   s.AchievementCount(),
		}
		report.Inspect(s.ID, signals)
		inputs = append(inputs, ranking.Input{
			StudentID:   s.ID,
			StudentName: s.Name,
			Photo:       s.Photo,
			Signals:     signals,
		})
	}
	return inputs, report, nil
}

// dedupeOrphans keeps one orphan per (source, student) in a stable order.
func dedupeOrphans(r *ranking.Report) {
	seen := make(map[ranking.Orphan]struct{}, len(r.Orphans))
	out := r.Orphans[:0]
	for _, o := range r.Orphans {
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].StudentID < out[j].StudentID
	})
	r.Orphans = out
}

// persist writes the snapshot to storage and cache. Failures are logged and
// counted; the in-memory snapshot stays authoritative.
func (e *Engine) persist(ctx context.Context, snap *ranking.Snapshot) {
	if e.deps.Snapshots != nil {
		if err := e.deps.Snapshots.Save(ctx, snap); err != nil {
			e.persistFailed()
			e.logger.Error("save ranking snapshot", logger.SnapshotID(snap.ID), logger.Err(err))
		}
	}

	if e.deps.Cache == nil {
		return
	}
	publish := func(ctx context.Context) error { return e.deps.Cache.Publish(ctx, snap) }
	var err error
	if e.deps.CacheGuard != nil {
		err = e.deps.CacheGuard.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		e.persistFailed()
		e.logger.Warn("publish ranking to cache", logger.SnapshotID(snap.ID), logger.Err(err))
		// The previous snapshot must not outlive a failed publish.
		if err := e.deps.Cache.Invalidate(ctx); err != nil {
			e.logger.Warn("invalidate ranking cache", logger.Err(err))
		}
	}
}

func (e *Engine) persistFailed() {
	if e.deps.Recorder != nil {
		e.deps.Recorder.SnapshotPersistFailed()
	}
}

func (e *Engine) record(trigger shared.EventType, d time.Duration, students int, report *ranking.Report, err error) {
	if e.deps.Recorder == nil {
		return
	}
	var orphans, anomalies int
	if report != nil {
		orphans, anomalies = len(report.Orphans), len(report.Anomalies)
	}
	e.deps.Recorder.ObserveRecalculation(string(trigger), d, students, orphans, anomalies, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

// Rankings returns a copy of the current ordered snapshot.
func (e *Engine) Rankings() []*ranking.Entry {
	return ranking.CloneEntries(e.current.Load().Entries)
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (e *Engine) Snapshot() *ranking.Snapshot {
	return e.current.Load()
}

// GetStudentRank returns the student's entry or shared.ErrStudentNotRanked.
func (e *Engine) GetStudentRank(id shared.StudentID) (*ranking.Entry, error) {
	entry := e.current.Load().Get(id)
	if entry == nil {
		return nil, shared.ErrStudentNotRanked
	}
	return entry.Clone(), nil
}

// GetTopStudents returns the first count entries. count <= 0 yields an empty
// slice; a count larger than the class yields the whole ranking.
func (e *Engine) GetTopStudents(count int) []*ranking.Entry {
	return e.current.Load().Top(count)
}

// Weights returns the weights used for scoring.
func (e *Engine) Weights() ranking.Weights {
	return e.weights
}
