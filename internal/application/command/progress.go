package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// TaskInput is one task of a SavePlanCommand.
type TaskInput struct {
	ID          string `json:"id" validate:"max=64"`
	Description string `json:"description" validate:"required,max=500"`
	Completed   bool   `json:"completed"`
}

// SavePlanCommand creates or replaces a study plan.
type SavePlanCommand struct {
	PlanID    string      `json:"plan_id" validate:"max=64"`
	StudentID string      `json:"student_id" validate:"required"`
	Title     string      `json:"title" validate:"required,max=200"`
	Tasks     []TaskInput `json:"tasks" validate:"max=500,dive"`
}

// ToggleTaskCommand flips the completed flag of one task.
type ToggleTaskCommand struct {
	PlanID string `json:"plan_id" validate:"required"`
	TaskID string `json:"task_id" validate:"required"`
}

// DeletePlanCommand removes a plan.
type DeletePlanCommand struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// ProgressHandler handles Progress Tracker commands.
type ProgressHandler struct {
	plans     progress.Repository
	students  student.Repository
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(plans progress.Repository, students student.Repository, publisher shared.EventPublisher, log *slog.Logger) *ProgressHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ProgressHandler{
		plans:     plans,
		students:  students,
		publisher: publisherOrNop(publisher),
		logger:    log.With(logger.Component("progress_commands")),
	}
}

// SavePlan creates or replaces a plan. A plan cannot move to another student.
func (h *ProgressHandler) SavePlan(ctx context.Context, cmd SavePlanCommand) (*progress.Plan, error) {
	if err := validateCommand("save_plan", cmd); err != nil {
		return nil, err
	}
	id := shared.StudentID(strings.TrimSpace(cmd.StudentID))
	if _, err := h.students.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if cmd.PlanID != "" {
		existing, err := h.plans.GetPlan(ctx, cmd.PlanID)
		switch {
		case err == nil && existing.StudentID != id:
			return nil, shared.NewDomainError("progress", "SavePlan", shared.ErrForbidden, "plan belongs to another student")
		case err != nil && !shared.IsNotFound(err):
			return nil, fmt.Errorf("save_plan: load: %w", err)
		}
	}

	tasks := make([]progress.Task, 0, len(cmd.Tasks))
	for _, t := range cmd.Tasks {
		tasks = append(tasks, progress.Task{ID: t.ID, Description: strings.TrimSpace(t.Description), Completed: t.Completed})
	}
	plan, err := progress.NewPlan(cmd.PlanID, id, cmd.Title, tasks)
	if err != nil {
		return nil, err
	}
	if err := h.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save_plan: %w", err)
	}

	total, done := plan.Counts()
	h.logger.Debug("plan saved", logger.StudentID(id.String()), slog.String("plan_id", plan.ID), slog.Int("tasks", total), slog.Int("completed", done))

	return plan, publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventPlanSaved, id, plan.ID))
}

// ToggleTask flips a task and returns the updated plan.
func (h *ProgressHandler) ToggleTask(ctx context.Context, cmd ToggleTaskCommand) (*progress.Plan, error) {
	if err := validateCommand("toggle_task", cmd); err != nil {
		return nil, err
	}
	plan, err := h.plans.GetPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}
	if _, err := plan.ToggleTask(cmd.TaskID); err != nil {
		return nil, err
	}
	if err := h.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("toggle_task: %w", err)
	}
	return plan, publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventTaskToggled, plan.StudentID, plan.ID))
}

// DeletePlan removes a plan.
func (h *ProgressHandler) DeletePlan(ctx context.Context, cmd DeletePlanCommand) error {
	if err := validateCommand("delete_plan", cmd); err != nil {
		return err
	}
	removed, err := h.plans.DeletePlan(ctx, cmd.PlanID)
	if err != nil {
		return err
	}
	return publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventPlanDeleted, removed.StudentID, removed.ID))
}
