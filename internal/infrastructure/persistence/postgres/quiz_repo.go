package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// QuizRepository implements quiz.Repository for PostgreSQL.
type QuizRepository struct {
	conn *Connection
}

var _ quiz.Repository = (*QuizRepository)(nil)

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(conn *Connection) *QuizRepository {
	return &QuizRepository{conn: conn}
}

const submissionColumns = `id, quiz_id, student_id, answers, score, submitted_at`

// Submit upserts on (quiz_id, student_id); a resubmission keeps the original id.
func (r *QuizRepository) Submit(ctx context.Context, s *quiz.Submission) (*quiz.Submission, error) {
	id := s.ID
	if id == "" {
		id = shared.NewID()
	}

	row := r.conn.QueryRow(ctx, `
		INSERT INTO quiz_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (quiz_id, student_id) DO UPDATE SET
			answers = EXCLUDED.answers,
			score = EXCLUDED.score,
			submitted_at = EXCLUDED.submitted_at
		RETURNING `+submissionColumns,
		id,
		s.QuizID,
		s.StudentID.String(),
		nonNil(s.Answers),
		s.Score,
		s.SubmittedAt,
	)
	saved, err := scanSubmission(row)
	if err != nil {
		return nil, fmt.Errorf("failed to submit quiz: %w", err)
	}
	return saved, nil
}

// DeleteByStudent removes all submissions of a student.
func (r *QuizRepository) DeleteByStudent(ctx context.Context, studentID shared.StudentID) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM quiz_submissions WHERE student_id = $1`, studentID.String()); err != nil {
		return fmt.Errorf("failed to delete submissions of student: %w", err)
	}
	return nil
}

// ListByStudent returns a student's submissions by submission time.
func (r *QuizRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*quiz.Submission, error) {
	return r.list(ctx, `WHERE student_id = $1`, studentID.String())
}

// ListByQuiz returns every submission for a quiz.
func (r *QuizRepository) ListByQuiz(ctx context.Context, quizID string) ([]*quiz.Submission, error) {
	return r.list(ctx, `WHERE quiz_id = $1`, quizID)
}

// ListAll returns every submission.
func (r *QuizRepository) ListAll(ctx context.Context) ([]*quiz.Submission, error) {
	return r.list(ctx, ``)
}

func (r *QuizRepository) list(ctx context.Context, where string, args ...any) ([]*quiz.Submission, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions `+where+` ORDER BY submitted_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*quiz.Submission, error) {
		return scanSubmission(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan submissions: %w", err)
	}
	return subs, nil
}

func scanSubmission(row pgx.Row) (*quiz.Submission, error) {
	var s quiz.Submission
	var studentID string
	if err := row.Scan(&s.ID, &s.QuizID, &studentID, &s.Answers, &s.Score, &s.SubmittedAt); err != nil {
		return nil, err
	}
	s.StudentID = shared.StudentID(studentID)
	return &s, nil
}
