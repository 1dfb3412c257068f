package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/command"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT DIRECTORY HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Directory.ListStudents(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Directory.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// saveStudentRequest is the PUT body; the id comes from the path.
type saveStudentRequest struct {
	Name         string   `json:"name"`
	Photo        string   `json:"photo"`
	Role         string   `json:"role"`
	Interests    []string `json:"interests"`
	Achievements []string `json:"achievements"`
}

func (s *Server) handleSaveStudent(w http.ResponseWriter, r *http.Request) {
	var req saveStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.deps.Students.Save(r.Context(), command.SaveStudentCommand{
		ID:           chi.URLParam(r, "id"),
		Name:         req.Name,
		Photo:        req.Photo,
		Role:         req.Role,
		Interests:    req.Interests,
		Achievements: req.Achievements,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewStudentDTO(st))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Students.Delete(r.Context(), command.DeleteStudentCommand{ID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addAchievementRequest struct {
	AchievementID string `json:"achievement_id"`
}

func (s *Server) handleAddAchievement(w http.ResponseWriter, r *http.Request) {
	var req addAchievementRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	granted, err := s.deps.Students.AddAchievement(r.Context(), command.AddAchievementCommand{
		StudentID:     chi.URLParam(r, "id"),
		AchievementID: req.AchievementID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if granted {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, map[string]bool{"granted": granted})
}

func (s *Server) handleStudentAttendance(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Directory.StudentAttendance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleStudentPlans(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Directory.StudentPlans(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleStudentSubmissions(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Directory.StudentSubmissions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
