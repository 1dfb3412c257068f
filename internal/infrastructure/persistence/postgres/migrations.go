package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one schema step.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded migrations and tracks them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a migrator with the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: Migrations(), tableName: "schema_migrations"}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		out[version] = at
	}
	return out, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
// Returns the number of migrations applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// Rollback reverts the last applied migration. No-op when nothing is applied.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range done {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return nil
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			mig = &m.migrations[i]
			break
		}
	}
	if mig == nil || mig.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	for i := range out {
		if at, ok := done[out[i].Version]; ok {
			out[i].IsApplied = true
			out[i].AppliedAt = at
		}
	}
	return out, nil
}

// Migrations returns the embedded schema in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_students", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_collaborators", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_ranking_snapshots", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: STUDENT DIRECTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    name VARCHAR(120) NOT NULL,
    photo TEXT NOT NULL DEFAULT '',
    role VARCHAR(20) NOT NULL DEFAULT 'student',
    interests TEXT[] NOT NULL DEFAULT '{}',
    achievements TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('student', 'monitor')),
    CONSTRAINT non_empty_name CHECK (length(trim(name)) > 0)
);

CREATE INDEX IF NOT EXISTS idx_students_directory ON students(created_at, id);
`

const migration001Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: ATTENDANCE, PLANS, QUIZ SUBMISSIONS
// student_id has no foreign key: records that reference a missing student are
// reported as orphans by the ranking engine instead of being rejected here.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS attendance_entries (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    day DATE NOT NULL,
    session VARCHAR(64) NOT NULL,
    status VARCHAR(10) NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_attendance_status CHECK (status IN ('present', 'absent', 'late')),
    CONSTRAINT uq_attendance_mark UNIQUE (student_id, day, session)
);

CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_entries(student_id, day);
CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance_entries(day);

CREATE TABLE IF NOT EXISTS study_plans (
    id TEXT PRIMARY KEY,
    student_id TEXT NOT NULL,
    title VARCHAR(200) NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_study_plans_student ON study_plans(student_id);

CREATE TABLE IF NOT EXISTS plan_tasks (
    plan_id TEXT NOT NULL REFERENCES study_plans(id) ON DELETE CASCADE,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    description TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,

    PRIMARY KEY (plan_id, id)
);

CREATE INDEX IF NOT EXISTS idx_plan_tasks_order ON plan_tasks(plan_id, position);

CREATE TABLE IF NOT EXISTS quiz_submissions (
    id TEXT PRIMARY KEY,
    quiz_id VARCHAR(64) NOT NULL,
    student_id TEXT NOT NULL,
    answers TEXT[] NOT NULL DEFAULT '{}',
    score DOUBLE PRECISION NOT NULL,
    submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_quiz_submission UNIQUE (quiz_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_quiz_submissions_student ON quiz_submissions(student_id, submitted_at);
`

const migration002Down = `
DROP TABLE IF EXISTS quiz_submissions;
DROP TABLE IF EXISTS plan_tasks;
DROP TABLE IF EXISTS study_plans;
DROP TABLE IF EXISTS attendance_entries;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: RANKING SNAPSHOT HISTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS ranking_snapshots (
    id TEXT PRIMARY KEY,
    calculated_at TIMESTAMPTZ NOT NULL,
    total_students INTEGER NOT NULL DEFAULT 0,
    average_score DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ranking_snapshots_at ON ranking_snapshots(calculated_at DESC);

CREATE TABLE IF NOT EXISTS ranking_entries (
    snapshot_id TEXT NOT NULL REFERENCES ranking_snapshots(id) ON DELETE CASCADE,
    student_id TEXT NOT NULL,
    student_name TEXT NOT NULL,
    photo TEXT NOT NULL DEFAULT '',
    attendance_score DOUBLE PRECISION NOT NULL,
    progress_score DOUBLE PRECISION NOT NULL,
    quiz_score DOUBLE PRECISION NOT NULL,
    achievement_score DOUBLE PRECISION NOT NULL,
    total_score DOUBLE PRECISION NOT NULL,
    rank INTEGER NOT NULL,
    medal VARCHAR(10) NOT NULL DEFAULT '',
    rank_change INTEGER NOT NULL DEFAULT 0,

    PRIMARY KEY (snapshot_id, student_id),
    CONSTRAINT valid_rank CHECK (rank >= 1)
);

CREATE INDEX IF NOT EXISTS idx_ranking_entries_student ON ranking_entries(student_id);
CREATE INDEX IF NOT EXISTS idx_ranking_entries_rank ON ranking_entries(snapshot_id, rank);
`

const migration003Down = `
DROP TABLE IF EXISTS ranking_entries;
DROP TABLE IF EXISTS ranking_snapshots;
`
