package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

// SaveStudentCommand creates or replaces a directory record.
type SaveStudentCommand struct {
	ID           string   `json:"id" validate:"required,max=64"`
	Name         string   `json:"name" validate:"required,max=120"`
	Photo        string   `json:"photo" validate:"omitempty,max=512"`
	Role         string   `json:"role" validate:"omitempty,oneof=student monitor"`
	Interests    []string `json:"interests" validate:"omitempty,max=20,dive,max=64"`
	Achievements []string `json:"achievements" validate:"omitempty,max=200,dive,max=64"`
}

// DeleteStudentCommand removes a student and every record that references it.
type DeleteStudentCommand struct {
	ID string `json:"id" validate:"required"`
}

// AddAchievementCommand grants one achievement.
type AddAchievementCommand struct {
	StudentID     string `json:"student_id" validate:"required"`
	AchievementID string `json:"achievement_id" validate:"required,max=64"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StudentHandler handles Student Directory commands.
type StudentHandler struct {
	students   student.Repository
	attendance attendance.Repository
	progress   progress.Repository
	quizzes    quiz.Repository
	publisher  shared.EventPublisher
	logger     *slog.Logger
}

// NewStudentHandler creates a StudentHandler. The other collaborator
// repositories are needed for the cascade on delete.
func NewStudentHandler(
	students student.Repository,
	att attendance.Repository,
	prog progress.Repository,
	quizzes quiz.Repository,
	publisher shared.EventPublisher,
	log *slog.Logger,
) *StudentHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StudentHandler{
		students:   students,
		attendance: att,
		progress:   prog,
		quizzes:    quizzes,
		publisher:  publisherOrNop(publisher),
		logger:     log.With(logger.Component("student_commands")),
	}
}

// Save creates or replaces a student.
func (h *StudentHandler) Save(ctx context.Context, cmd SaveStudentCommand) (*student.Student, error) {
	if err := validateCommand("save_student", cmd); err != nil {
		return nil, err
	}

	id, err := shared.ParseStudentID(cmd.ID)
	if err != nil {
		return nil, err
	}

	s, err := h.students.GetByID(ctx, id)
	switch {
	case err == nil:
		s.Name = strings.TrimSpace(cmd.Name)
		s.Photo = cmd.Photo
		s.UpdatedAt = time.Now().UTC()
	case shared.IsNotFound(err):
		s, err = student.NewStudent(id, cmd.Name, cmd.Photo)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("save_student: load: %w", err)
	}

	if cmd.Role != "" {
		s.Role = student.Role(cmd.Role)
	}
	s.Interests = append([]string(nil), cmd.Interests...)
	s.SetAchievements(cmd.Achievements)

	if err := h.students.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save_student: %w", err)
	}
	h.logger.Info("student saved", logger.StudentID(s.ID.String()), slog.Int("achievements", s.AchievementCount()))

	if err := publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventStudentSaved, s.ID, "")); err != nil {
		return s, err
	}
	return s, nil
}

// Delete removes a student together with its attendance, plans and quiz
// submissions so the portal itself never creates orphaned records.
//
// Once the directory row is gone the event is always published, even if part
// of the cascade failed. Leftover rows are then reported by the engine as
// orphans and the cascade errors are returned together.
func (h *StudentHandler) Delete(ctx context.Context, cmd DeleteStudentCommand) error {
	if err := validateCommand("delete_student", cmd); err != nil {
		return err
	}
	id := shared.StudentID(strings.TrimSpace(cmd.ID))

	if err := h.students.Delete(ctx, id); err != nil {
		return err
	}

	var errs []error
	if err := h.attendance.DeleteByStudent(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete_student: attendance: %w", err))
	}
	if err := h.progress.DeleteByStudent(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete_student: plans: %w", err))
	}
	if err := h.quizzes.DeleteByStudent(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete_student: submissions: %w", err))
	}
	if len(errs) > 0 {
		h.logger.Warn("student deleted, cascade incomplete",
			logger.StudentID(id.String()), logger.Err(errors.Join(errs...)))
	} else {
		h.logger.Info("student deleted", logger.StudentID(id.String()))
	}

	if err := publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventStudentDeleted, id, "")); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// AddAchievement grants an achievement. Returns false when the student
// already had it; no event is published in that case.
func (h *StudentHandler) AddAchievement(ctx context.Context, cmd AddAchievementCommand) (bool, error) {
	if err := validateCommand("add_achievement", cmd); err != nil {
		return false, err
	}
	id := shared.StudentID(strings.TrimSpace(cmd.StudentID))

	s, err := h.students.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !s.AddAchievement(cmd.AchievementID) {
		return false, nil
	}
	if err := h.students.Save(ctx, s); err != nil {
		return false, fmt.Errorf("add_achievement: %w", err)
	}

	return true, publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventStudentSaved, id, cmd.AchievementID))
}
