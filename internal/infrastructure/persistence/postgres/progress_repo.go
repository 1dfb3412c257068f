package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

// ProgressRepository implements progress.Repository for PostgreSQL.
// A plan is stored as one study_plans row plus ordered plan_tasks rows.
type ProgressRepository struct {
	conn *Connection
}

var _ progress.Repository = (*ProgressRepository)(nil)

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// SavePlan replaces the plan row and all of its tasks in one transaction.
func (r *ProgressRepository) SavePlan(ctx context.Context, p *progress.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO study_plans (id, student_id, title, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				student_id = EXCLUDED.student_id,
				title = EXCLUDED.title,
				updated_at = EXCLUDED.updated_at
		`, p.ID, p.StudentID.String(), p.Title, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert plan: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM plan_tasks WHERE plan_id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to clear plan tasks: %w", err)
		}
		if len(p.Tasks) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, t := range p.Tasks {
			batch.Queue(`
				INSERT INTO plan_tasks (plan_id, id, position, description, completed)
				VALUES ($1, $2, $3, $4, $5)
			`, p.ID, t.ID, i, t.Description, t.Completed)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for range p.Tasks {
			if _, err := br.Exec(); err != nil {
				if IsUniqueViolation(err) {
					return shared.WrapError("progress", "SavePlan", shared.ErrAlreadyExists, "duplicate task id in plan", err)
				}
				return fmt.Errorf("failed to insert task: %w", err)
			}
		}
		return nil
	})
}

// GetPlan returns a plan with its tasks or shared.ErrPlanNotFound.
func (r *ProgressRepository) GetPlan(ctx context.Context, id string) (*progress.Plan, error) {
	plans, err := r.load(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, shared.ErrPlanNotFound
	}
	return plans[0], nil
}

// DeletePlan removes a plan (tasks cascade) and returns it.
func (r *ProgressRepository) DeletePlan(ctx context.Context, id string) (*progress.Plan, error) {
	plan, err := r.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	tag, err := r.conn.Exec(ctx, `DELETE FROM study_plans WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrPlanNotFound
	}
	return plan, nil
}

// DeleteByStudent removes all plans of a student.
func (r *ProgressRepository) DeleteByStudent(ctx context.Context, studentID shared.StudentID) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM study_plans WHERE student_id = $1`, studentID.String()); err != nil {
		return fmt.Errorf("failed to delete plans of student: %w", err)
	}
	return nil
}

// ListByStudent returns a student's plans.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*progress.Plan, error) {
	return r.load(ctx, `WHERE student_id = $1`, studentID.String())
}

// ListAll returns every plan.
func (r *ProgressRepository) ListAll(ctx context.Context) ([]*progress.Plan, error) {
	return r.load(ctx, ``)
}

// load reads plans matching where and attaches their tasks with a second query.
func (r *ProgressRepository) load(ctx context.Context, where string, args ...any) ([]*progress.Plan, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, student_id, title, updated_at FROM study_plans `+where+` ORDER BY updated_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	plans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*progress.Plan, error) {
		var p progress.Plan
		var studentID string
		if err := row.Scan(&p.ID, &studentID, &p.Title, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.StudentID = shared.StudentID(studentID)
		p.Tasks = make([]progress.Task, 0)
		return &p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plans: %w", err)
	}
	if len(plans) == 0 {
		return plans, nil
	}

	byID := make(map[string]*progress.Plan, len(plans))
	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	taskRows, err := r.conn.Query(ctx, `
		SELECT plan_id, id, description, completed
		FROM plan_tasks
		WHERE plan_id = ANY($1)
		ORDER BY plan_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan tasks: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		var planID string
		var t progress.Task
		if err := taskRows.Scan(&planID, &t.ID, &t.Description, &t.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan plan task: %w", err)
		}
		if p, ok := byID[planID]; ok {
			p.Tasks = append(p.Tasks, t)
		}
	}
	return plans, taskRows.Err()
}
