package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

var _ student.Repository = (*StudentRepository)(nil)

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `id, name, photo, role, interests, achievements, created_at, updated_at`

// Save upserts a student. created_at of an existing row is preserved.
func (r *StudentRepository) Save(ctx context.Context, s *student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			photo = EXCLUDED.photo,
			role = EXCLUDED.role,
			interests = EXCLUDED.interests,
			achievements = EXCLUDED.achievements,
			updated_at = EXCLUDED.updated_at
	`,
		s.ID.String(),
		s.Name,
		s.Photo,
		string(s.Role),
		nonNil(s.Interests),
		nonNil(s.Achievements),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsCheckViolation(err) {
			return shared.WrapError("student", "Save", shared.ErrInvalidEntity, "student violates table constraints", err)
		}
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

// GetByID returns a student or shared.ErrStudentNotFound.
func (r *StudentRepository) GetByID(ctx context.Context, id shared.StudentID) (*student.Student, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id.String())
	s, err := scanStudent(row)
	if IsNoRows(err) {
		return nil, shared.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// List returns the directory ordered by creation time, then id.
func (r *StudentRepository) List(ctx context.Context) ([]*student.Student, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	out := make([]*student.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a student or returns shared.ErrStudentNotFound.
func (r *StudentRepository) Delete(ctx context.Context, id shared.StudentID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM students WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

// scanStudent scans a single student; works for pgx.Row and pgx.Rows.
func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var id, role string

	if err := row.Scan(&id, &s.Name, &s.Photo, &role, &s.Interests, &s.Achievements, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.ID = shared.StudentID(id)
	s.Role = student.Role(role)
	return &s, nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
