package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/command"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRecordAttendance(w http.ResponseWriter, r *http.Request) {
	var cmd command.RecordAttendanceCommand
	if err := decodeJSON(r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, err := s.deps.Attendance.Record(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.NewAttendanceEntryDTO(entry))
}

func (s *Server) handleDeleteAttendance(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Attendance.Delete(r.Context(), command.DeleteAttendanceCommand{EntryID: chi.URLParam(r, "entryID")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDY PLAN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type savePlanRequest struct {
	StudentID string              `json:"student_id"`
	Title     string              `json:"title"`
	Tasks     []command.TaskInput `json:"tasks"`
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var req savePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	plan, err := s.deps.Progress.SavePlan(r.Context(), command.SavePlanCommand{
		PlanID:    chi.URLParam(r, "planID"),
		StudentID: req.StudentID,
		Title:     req.Title,
		Tasks:     req.Tasks,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewPlanDTO(plan))
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	plan, err := s.deps.Progress.ToggleTask(r.Context(), command.ToggleTaskCommand{
		PlanID: chi.URLParam(r, "planID"),
		TaskID: chi.URLParam(r, "taskID"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewPlanDTO(plan))
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Progress.DeletePlan(r.Context(), command.DeletePlanCommand{PlanID: chi.URLParam(r, "planID")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUIZ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type submitQuizRequest struct {
	StudentID string   `json:"student_id"`
	Answers   []string `json:"answers"`
	Score     float64  `json:"score"`
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitQuizRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sub, err := s.deps.Quizzes.Submit(r.Context(), command.SubmitQuizCommand{
		QuizID:    chi.URLParam(r, "quizID"),
		StudentID: req.StudentID,
		Answers:   req.Answers,
		Score:     req.Score,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.NewSubmissionDTO(sub))
}
