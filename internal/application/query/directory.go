package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/attendance"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/progress"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/quiz"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY QUERIES
// Чтение исходных данных: справочник, посещаемость, планы, тесты.
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO - запись справочника.
type StudentDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Photo        string    `json:"photo,omitempty"`
	Role         string    `json:"role"`
	Interests    []string  `json:"interests"`
	Achievements []string  `json:"achievements"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewStudentDTO конвертирует студента.
func NewStudentDTO(s *student.Student) StudentDTO {
	return StudentDTO{
		ID:           s.ID.String(),
		Name:         s.Name,
		Photo:        s.Photo,
		Role:         string(s.Role),
		Interests:    nonNilStrings(s.Interests),
		Achievements: nonNilStrings(s.Achievements),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// AttendanceEntryDTO - отметка посещаемости.
type AttendanceEntryDTO struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Session    string    `json:"session"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewAttendanceEntryDTO конвертирует отметку.
func NewAttendanceEntryDTO(e *attendance.Entry) AttendanceEntryDTO {
	return AttendanceEntryDTO{
		ID:         e.ID,
		Date:       e.Date.Format("2006-01-02"),
		Session:    e.Session,
		Status:     string(e.Status),
		Note:       e.Note,
		RecordedAt: e.RecordedAt,
	}
}

// StudentAttendanceResult - посещаемость студента.
type StudentAttendanceResult struct {
	StudentID string               `json:"student_id"`
	Entries   []AttendanceEntryDTO `json:"entries"`
	Summary   attendance.Summary   `json:"summary"`
}

// PlanDTO - учебный план с подсчётом задач.
type PlanDTO struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Tasks     []progress.Task `json:"tasks"`
	Total     int             `json:"total_tasks"`
	Completed int             `json:"completed_tasks"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewPlanDTO конвертирует план.
func NewPlanDTO(p *progress.Plan) PlanDTO {
	total, done := p.Counts()
	tasks := p.Tasks
	if tasks == nil {
		tasks = []progress.Task{}
	}
	return PlanDTO{ID: p.ID, Title: p.Title, Tasks: tasks, Total: total, Completed: done, UpdatedAt: p.UpdatedAt}
}

// StudentPlansResult - планы студента.
type StudentPlansResult struct {
	StudentID      string    `json:"student_id"`
	Plans          []PlanDTO `json:"plans"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
}

// SubmissionDTO - сдача теста.
type SubmissionDTO struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	Score       float64   `json:"score"`
	Answers     []string  `json:"answers"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewSubmissionDTO конвертирует сдачу.
func NewSubmissionDTO(s *quiz.Submission) SubmissionDTO {
	return SubmissionDTO{
		ID:          s.ID,
		QuizID:      s.QuizID,
		Score:       s.Score,
		Answers:     nonNilStrings(s.Answers),
		SubmittedAt: s.SubmittedAt,
	}
}

// StudentSubmissionsResult - сдачи тестов студента.
type StudentSubmissionsResult struct {
	StudentID    string          `json:"student_id"`
	Submissions  []SubmissionDTO `json:"submissions"`
	AverageScore float64         `json:"average_score"`
}

// DirectoryHandler обслуживает чтение справочника и исходных данных рейтинга.
type DirectoryHandler struct {
	students   student.Repository
	attendance attendance.Repository
	progress   progress.Repository
	quizzes    quiz.Repository
}

// NewDirectoryHandler создаёт обработчик.
func NewDirectoryHandler(students student.Repository, att attendance.Repository, prog progress.Repository, quizzes quiz.Repository) *DirectoryHandler {
	return &DirectoryHandler{students: students, attendance: att, progress: prog, quizzes: quizzes}
}

// ListStudents возвращает справочник в порядке добавления.
func (h *DirectoryHandler) ListStudents(ctx context.Context) ([]StudentDTO, error) {
	list, err := h.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	out := make([]StudentDTO, 0, len(list))
	for _, s := range list {
		out = append(out, NewStudentDTO(s))
	}
	return out, nil
}

// GetStudent возвращает студента или shared.ErrStudentNotFound.
func (h *DirectoryHandler) GetStudent(ctx context.Context, rawID string) (*StudentDTO, error) {
	s, err := h.students.GetByID(ctx, shared.StudentID(strings.TrimSpace(rawID)))
	if err != nil {
		return nil, err
	}
	dto := NewStudentDTO(s)
	return &dto, nil
}

// StudentAttendance возвращает отметки и сводку. Студент должен существовать.
func (h *DirectoryHandler) StudentAttendance(ctx context.Context, rawID string) (*StudentAttendanceResult, error) {
	id, err := h.existing(ctx, rawID)
	if err != nil {
		return nil, err
	}
	entries, err := h.attendance.ListByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("student attendance: %w", err)
	}
	result := &StudentAttendanceResult{
		StudentID: id.String(),
		Entries:   make([]AttendanceEntryDTO, 0, len(entries)),
		Summary:   attendance.Summarize(entries),
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, NewAttendanceEntryDTO(e))
	}
	return result, nil
}

// StudentPlans возвращает планы студента и общий прогресс.
func (h *DirectoryHandler) StudentPlans(ctx context.Context, rawID string) (*StudentPlansResult, error) {
	id, err := h.existing(ctx, rawID)
	if err != nil {
		return nil, err
	}
	plans, err := h.progress.ListByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("student plans: %w", err)
	}
	total, done := progress.TaskCounts(plans)
	result := &StudentPlansResult{
		StudentID:      id.String(),
		Plans:          make([]PlanDTO, 0, len(plans)),
		TotalTasks:     total,
		CompletedTasks: done,
	}
	for _, p := range plans {
		result.Plans = append(result.Plans, NewPlanDTO(p))
	}
	return result, nil
}

// StudentSubmissions возвращает сдачи тестов и средний балл.
func (h *DirectoryHandler) StudentSubmissions(ctx context.Context, rawID string) (*StudentSubmissionsResult, error) {
	id, err := h.existing(ctx, rawID)
	if err != nil {
		return nil, err
	}
	subs, err := h.quizzes.ListByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("student submissions: %w", err)
	}
	result := &StudentSubmissionsResult{
		StudentID:   id.String(),
		Submissions: make([]SubmissionDTO, 0, len(subs)),
	}
	var sum float64
	for _, s := range subs {
		result.Submissions = append(result.Submissions, NewSubmissionDTO(s))
		sum += s.Score
	}
	if len(subs) > 0 {
		result.AverageScore = sum / float64(len(subs))
	}
	return result, nil
}

func (h *DirectoryHandler) existing(ctx context.Context, rawID string) (shared.StudentID, error) {
	id := shared.StudentID(strings.TrimSpace(rawID))
	if _, err := h.students.GetByID(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
