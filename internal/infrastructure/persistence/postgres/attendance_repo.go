package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// AttendanceRepository implements attendance.Repository for PostgreSQL.
type AttendanceRepository struct {
	conn *Connection
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(conn *Connection) *AttendanceRepository {
	return &AttendanceRepository{conn: conn}
}

const attendanceColumns = `id, student_id, day, session, status, note, recorded_at`

// Record upserts on (student_id, day, session); the existing row keeps its id.
func (r *AttendanceRepository) Record(ctx context.Context, e *attendance.Entry) (*attendance.Entry, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	row := r.conn.QueryRow(ctx, `
		INSERT INTO attendance_entries (`+attendanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, day, session) DO UPDATE SET
			status = EXCLUDED.status,
			note = EXCLUDED.note,
			recorded_at = EXCLUDED.recorded_at
		RETURNING `+attendanceColumns,
		e.ID,
		e.StudentID.String(),
		attendance.DayOf(e.Date),
		e.Session,
		string(e.Status),
		e.Note,
		e.RecordedAt,
	)
	saved, err := scanAttendance(row)
	if err != nil {
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}
	return saved, nil
}

// Delete removes an entry and returns it.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) (*attendance.Entry, error) {
	row := r.conn.QueryRow(ctx, `DELETE FROM attendance_entries WHERE id = $1 RETURNING `+attendanceColumns, id)
	e, err := scanAttendance(row)
	if IsNoRows(err) {
		return nil, shared.ErrAttendanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete attendance entry: %w", err)
	}
	return e, nil
}

// DeleteByStudent removes every entry of a student.
func (r *AttendanceRepository) DeleteByStudent(ctx context.Context, studentID shared.StudentID) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM attendance_entries WHERE student_id = $1`, studentID.String()); err != nil {
		return fmt.Errorf("failed to delete attendance of student: %w", err)
	}
	return nil
}

// ListByStudent returns a student's entries ordered by day and session.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*attendance.Entry, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendance_entries WHERE student_id = $1 ORDER BY day, session`, studentID.String())
}

// ListByDate returns every entry of a day ordered by student and session.
func (r *AttendanceRepository) ListByDate(ctx context.Context, day time.Time) ([]*attendance.Entry, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendance_entries WHERE day = $1 ORDER BY student_id, session`, attendance.DayOf(day))
}

// Summary aggregates a student's marks in one query.
func (r *AttendanceRepository) Summary(ctx context.Context, studentID shared.StudentID) (attendance.Summary, error) {
	var s attendance.Summary
	err := r.conn.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'absent'),
			COUNT(*) FILTER (WHERE status = 'late')
		FROM attendance_entries
		WHERE student_id = $1
	`, studentID.String()).Scan(&s.Present, &s.Absent, &s.Late)
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to summarize attendance: %w", err)
	}
	if total := s.Total(); total > 0 {
		s.AttendanceRate = float64(s.Present+s.Late) / float64(total) * 100
	}
	return s, nil
}

// StudentIDs returns every student referenced by the ledger.
func (r *AttendanceRepository) StudentIDs(ctx context.Context) ([]shared.StudentID, error) {
	rows, err := r.conn.Query(ctx, `SELECT DISTINCT student_id FROM attendance_entries ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance students: %w", err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shared.StudentID, error) {
		var id string
		err := row.Scan(&id)
		return shared.StudentID(id), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan attendance students: %w", err)
	}
	return ids, nil
}

func (r *AttendanceRepository) list(ctx context.Context, sql string, args ...any) ([]*attendance.Entry, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	out := make([]*attendance.Entry, 0)
	for rows.Next() {
		e, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanAttendance(row pgx.Row) (*attendance.Entry, error) {
	var e attendance.Entry
	var studentID, status string
	if err := row.Scan(&e.ID, &studentID, &e.Date, &e.Session, &status, &e.Note, &e.RecordedAt); err != nil {
		return nil, err
	}
	e.StudentID = shared.StudentID(studentID)
	e.Status = attendance.Status(status)
	e.Date = attendance.DayOf(e.Date)
	return &e, nil
}
