package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/pkg/logger"
)

// SubmitQuizCommand records a student's submission. A later submission for
// the same quiz replaces the earlier one.
type SubmitQuizCommand struct {
	QuizID    string   `json:"quiz_id" validate:"required,max=64"`
	StudentID string   `json:"student_id" validate:"required"`
	Answers   []string `json:"answers" validate:"max=200"`
	Score     float64  `json:"score" validate:"gte=0,lte=100"`
}

// QuizHandler handles Quiz Submission Log commands.
type QuizHandler struct {
	submissions quiz.Repository
	students    student.Repository
	publisher   shared.EventPublisher
	logger      *slog.Logger
}

// NewQuizHandler creates a QuizHandler.
func NewQuizHandler(submissions quiz.Repository, students student.Repository, publisher shared.EventPublisher, log *slog.Logger) *QuizHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QuizHandler{
		submissions: submissions,
		students:    students,
		publisher:   publisherOrNop(publisher),
		logger:      log.With(logger.Component("quiz_commands")),
	}
}

// Submit stores the submission and triggers a recompute.
func (h *QuizHandler) Submit(ctx context.Context, cmd SubmitQuizCommand) (*quiz.Submission, error) {
	if err := validateCommand("submit_quiz", cmd); err != nil {
		return nil, err
	}
	id := shared.StudentID(strings.TrimSpace(cmd.StudentID))
	if _, err := h.students.GetByID(ctx, id); err != nil {
		return nil, err
	}

	sub, err := quiz.NewSubmission(cmd.QuizID, id, cmd.Answers, cmd.Score)
	if err != nil {
		return nil, err
	}
	saved, err := h.submissions.Submit(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("submit_quiz: %w", err)
	}
	h.logger.Debug("quiz submitted", logger.StudentID(id.String()), slog.String("quiz_id", saved.QuizID), logger.Score("score", saved.Score))

	return saved, publish(ctx, h.publisher, shared.NewCollaboratorChangedEvent(shared.EventQuizSubmitted, id, saved.QuizID))
}
